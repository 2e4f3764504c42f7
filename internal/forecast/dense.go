package forecast

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

type denseLayer struct {
	in, out int
	relu    bool
	w       *param // out x in
	b       *param
}

func newDense(in, out int, relu bool, rng *rand.Rand) *denseLayer {
	d := &denseLayer{in: in, out: out, relu: relu, w: newParam(out * in), b: newParam(out)}
	glorot(d.w.w, in, out, rng)
	return d
}

func (d *denseLayer) params() []*param { return []*param{d.w, d.b} }

// forward writes the activation of x into y.
func (d *denseLayer) forward(x, y []float64) {
	for r := 0; r < d.out; r++ {
		v := d.b.w[r] + floats.Dot(d.w.w[r*d.in:(r+1)*d.in], x)
		if d.relu && v < 0 {
			v = 0
		}
		y[r] = v
	}
}

// backward takes dy (overwritten with the pre-activation gradient), the input
// x and output y of the forward pass, accumulates into g and writes dx.
func (d *denseLayer) backward(dy, x, y []float64, g [][]float64, dx []float64) {
	gw, gb := g[0], g[1]
	if dx != nil {
		clear(dx)
	}
	for r := 0; r < d.out; r++ {
		if d.relu && y[r] <= 0 {
			dy[r] = 0
		}
		v := dy[r]
		if v == 0 {
			continue
		}
		gb[r] += v
		floats.AddScaled(gw[r*d.in:(r+1)*d.in], v, x)
		if dx != nil {
			floats.AddScaled(dx, v, d.w.w[r*d.in:(r+1)*d.in])
		}
	}
}

// dropoutMask fills m with 0 or 1/(1-rate).
func dropoutMask(m []float64, rate float64, rng *rand.Rand) {
	keep := 1 / (1 - rate)
	for i := range m {
		if rng.Float64() < rate {
			m[i] = 0
		} else {
			m[i] = keep
		}
	}
}
