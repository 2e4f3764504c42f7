package forecast

import "math"

// param is one trainable tensor stored flat, with its Adam moments.
type param struct {
	w    []float64
	m, v []float64
}

func newParam(n int) *param {
	return &param{w: make([]float64, n), m: make([]float64, n), v: make([]float64, n)}
}

type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
}

func newAdam(lr float64) *adam {
	return &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-7}
}

// step applies one update; grads[i] is aligned with params[i].
func (a *adam) step(params []*param, grads [][]float64) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	lrT := a.lr * math.Sqrt(c2) / c1
	for i, p := range params {
		g := grads[i]
		for j := range p.w {
			p.m[j] = a.beta1*p.m[j] + (1-a.beta1)*g[j]
			p.v[j] = a.beta2*p.v[j] + (1-a.beta2)*g[j]*g[j]
			p.w[j] -= lrT * p.m[j] / (math.Sqrt(p.v[j]) + a.eps)
		}
	}
}
