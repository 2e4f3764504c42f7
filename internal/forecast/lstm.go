package forecast

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// lstmLayer is a single LSTM layer. Gate rows are laid out as
// input, forget, cell, output, each block units wide.
type lstmLayer struct {
	in, units int
	wx        *param // 4*units x in
	wh        *param // 4*units x units
	b         *param // 4*units
}

func newLSTM(in, units int, rng *rand.Rand) *lstmLayer {
	l := &lstmLayer{
		in:    in,
		units: units,
		wx:    newParam(4 * units * in),
		wh:    newParam(4 * units * units),
		b:     newParam(4 * units),
	}
	glorot(l.wx.w, in, 4*units, rng)
	glorot(l.wh.w, units, 4*units, rng)
	for j := units; j < 2*units; j++ {
		l.b.w[j] = 1
	}
	return l
}

func (l *lstmLayer) params() []*param { return []*param{l.wx, l.wh, l.b} }

// lstmCache keeps the activations of one forward pass for backprop.
type lstmCache struct {
	xs    [][]float64 // T x in
	hs    [][]float64 // T+1 x units, hs[0] is the zero state
	cs    [][]float64 // T+1 x units
	gates [][]float64 // T x 4*units, post activation
	dz    []float64
	dh    []float64
	dc    []float64
	dxs   [][]float64
}

func (c *lstmCache) reset(steps, in, units int) {
	c.hs = grow(c.hs, steps+1, units)
	c.cs = grow(c.cs, steps+1, units)
	c.gates = grow(c.gates, steps, 4*units)
	clear(c.hs[0])
	clear(c.cs[0])
}

// forward runs the sequence and returns the hidden state at every step.
// The returned rows alias the cache.
func (l *lstmLayer) forward(xs [][]float64, c *lstmCache) [][]float64 {
	steps, h := len(xs), l.units
	c.reset(steps, l.in, h)
	c.xs = xs
	for t := 0; t < steps; t++ {
		x, hPrev, z := xs[t], c.hs[t], c.gates[t]
		for r := 0; r < 4*h; r++ {
			z[r] = l.b.w[r] +
				floats.Dot(l.wx.w[r*l.in:(r+1)*l.in], x) +
				floats.Dot(l.wh.w[r*h:(r+1)*h], hPrev)
		}
		cPrev, cNext, hNext := c.cs[t], c.cs[t+1], c.hs[t+1]
		for j := 0; j < h; j++ {
			i := sigmoid(z[j])
			f := sigmoid(z[h+j])
			g := math.Tanh(z[2*h+j])
			o := sigmoid(z[3*h+j])
			z[j], z[h+j], z[2*h+j], z[3*h+j] = i, f, g, o
			cNext[j] = f*cPrev[j] + i*g
			hNext[j] = o * math.Tanh(cNext[j])
		}
	}
	return c.hs[1:]
}

// backward propagates dh (one row per step, nil rows mean no gradient) through
// time, accumulating parameter gradients into g (aligned with params()). It
// returns the input gradients when wantInput is set.
func (l *lstmLayer) backward(dh [][]float64, c *lstmCache, g [][]float64, wantInput bool) [][]float64 {
	steps, h := len(c.xs), l.units
	c.dz = growVec(c.dz, 4*h)
	c.dh = growVec(c.dh, h)
	c.dc = growVec(c.dc, h)
	clear(c.dh)
	clear(c.dc)
	if wantInput {
		c.dxs = grow(c.dxs, steps, l.in)
	}
	gwx, gwh, gb := g[0], g[1], g[2]

	for t := steps - 1; t >= 0; t-- {
		gt, cPrev, cCur := c.gates[t], c.cs[t], c.cs[t+1]
		for j := 0; j < h; j++ {
			dhj := c.dh[j]
			if dh[t] != nil {
				dhj += dh[t][j]
			}
			i, f, gg, o := gt[j], gt[h+j], gt[2*h+j], gt[3*h+j]
			tc := math.Tanh(cCur[j])
			dcj := c.dc[j] + dhj*o*(1-tc*tc)
			c.dz[j] = dcj * gg * i * (1 - i)
			c.dz[h+j] = dcj * cPrev[j] * f * (1 - f)
			c.dz[2*h+j] = dcj * i * (1 - gg*gg)
			c.dz[3*h+j] = dhj * tc * o * (1 - o)
			c.dc[j] = dcj * f
		}

		x, hPrev := c.xs[t], c.hs[t]
		clear(c.dh)
		var dx []float64
		if wantInput {
			dx = c.dxs[t]
			clear(dx)
		}
		for r := 0; r < 4*h; r++ {
			d := c.dz[r]
			if d == 0 {
				continue
			}
			gb[r] += d
			floats.AddScaled(gwx[r*l.in:(r+1)*l.in], d, x)
			floats.AddScaled(gwh[r*h:(r+1)*h], d, hPrev)
			floats.AddScaled(c.dh, d, l.wh.w[r*h:(r+1)*h])
			if dx != nil {
				floats.AddScaled(dx, d, l.wx.w[r*l.in:(r+1)*l.in])
			}
		}
	}
	if !wantInput {
		return nil
	}
	return c.dxs
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// glorot fills w with Glorot-uniform values for the given fan sizes.
func glorot(w []float64, fanIn, fanOut int, rng *rand.Rand) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * limit
	}
}

func grow(m [][]float64, rows, cols int) [][]float64 {
	if cap(m) < rows {
		m = append(m[:cap(m)], make([][]float64, rows-cap(m))...)
	}
	m = m[:rows]
	for i := range m {
		m[i] = growVec(m[i], cols)
	}
	return m
}

func growVec(v []float64, n int) []float64 {
	if cap(v) < n {
		return make([]float64, n)
	}
	return v[:n]
}
