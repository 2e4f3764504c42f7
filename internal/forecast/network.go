package forecast

import (
	"fmt"
	"math/rand"
	"sync"
)

// Regressor predicts the next scaled value from a window of scaled values.
type Regressor interface {
	Predict(window []float64) float64
}

// Weights is an opaque copy of a model's parameters.
type Weights [][]float64

// Trainable is a Regressor that can be fitted batch by batch.
type Trainable interface {
	Regressor
	// TrainBatch runs one optimizer step and returns the mean batch loss.
	TrainBatch(inputs [][]float64, targets []float64) float64
	Snapshot() Weights
	Restore(w Weights)
}

// ModelConfig sizes the stacked recurrent regressor.
type ModelConfig struct {
	LSTM1        int
	LSTM2        int
	Dense        int
	Dropout      float64
	LearningRate float64
	HuberDelta   float64
	Seed         int64
	// Workers > 1 splits the samples of a batch across goroutines.
	Workers int
}

func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		LSTM1:        128,
		LSTM2:        64,
		Dense:        32,
		Dropout:      0.2,
		LearningRate: 0.001,
		HuberDelta:   1.0,
		Seed:         42,
		Workers:      1,
	}
}

// Network is LSTM -> Dropout -> LSTM -> Dropout -> Dense(ReLU) -> Dense(1),
// trained with Huber loss and Adam.
type Network struct {
	cfg    ModelConfig
	l1, l2 *lstmLayer
	d1, d2 *denseLayer
	opt    *adam
	rng    *rand.Rand
	all    []*param
	pool   []*workspace
	infer  *workspace
}

func NewNetwork(cfg ModelConfig) *Network {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.HuberDelta <= 0 {
		cfg.HuberDelta = 1
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	n := &Network{
		cfg: cfg,
		l1:  newLSTM(1, cfg.LSTM1, rng),
		l2:  newLSTM(cfg.LSTM1, cfg.LSTM2, rng),
		d1:  newDense(cfg.LSTM2, cfg.Dense, true, rng),
		d2:  newDense(cfg.Dense, 1, false, rng),
		opt: newAdam(cfg.LearningRate),
		rng: rng,
	}
	n.all = append(n.all, n.l1.params()...)
	n.all = append(n.all, n.l2.params()...)
	n.all = append(n.all, n.d1.params()...)
	n.all = append(n.all, n.d2.params()...)
	return n
}

// Describe lists the layers in order.
func (n *Network) Describe() []string {
	return []string{
		fmt.Sprintf("LSTM(%d, return_sequences=True)", n.cfg.LSTM1),
		fmt.Sprintf("Dropout(%g)", n.cfg.Dropout),
		fmt.Sprintf("LSTM(%d)", n.cfg.LSTM2),
		fmt.Sprintf("Dropout(%g)", n.cfg.Dropout),
		fmt.Sprintf("Dense(%d, relu)", n.cfg.Dense),
		"Dense(1)",
	}
}

// workspace holds per-goroutine activations and gradient buffers.
type workspace struct {
	xs     [][]float64
	c1, c2 lstmCache
	seq1   [][]float64
	mask1  [][]float64
	h2     []float64
	mask2  []float64
	a1     []float64
	y      []float64
	da1    []float64
	dh2    []float64
	dseq   [][]float64
	grads  [][]float64
	rng    *rand.Rand
}

func (n *Network) newWorkspace(withGrads bool) *workspace {
	ws := &workspace{
		h2:    make([]float64, n.cfg.LSTM2),
		mask2: make([]float64, n.cfg.LSTM2),
		a1:    make([]float64, n.cfg.Dense),
		y:     make([]float64, 1),
		da1:   make([]float64, n.cfg.Dense),
		dh2:   make([]float64, n.cfg.LSTM2),
		rng:   rand.New(rand.NewSource(1)),
	}
	if withGrads {
		ws.grads = make([][]float64, len(n.all))
		for i, p := range n.all {
			ws.grads[i] = make([]float64, len(p.w))
		}
	}
	return ws
}

// forward returns the scalar prediction; dropout is applied when train is set.
func (n *Network) forward(ws *workspace, window []float64, train bool) float64 {
	steps := len(window)
	ws.xs = grow(ws.xs, steps, 1)
	for t, v := range window {
		ws.xs[t][0] = v
	}

	out1 := n.l1.forward(ws.xs, &ws.c1)
	seq := out1
	if train && n.cfg.Dropout > 0 {
		ws.seq1 = grow(ws.seq1, steps, n.cfg.LSTM1)
		ws.mask1 = grow(ws.mask1, steps, n.cfg.LSTM1)
		for t := range out1 {
			dropoutMask(ws.mask1[t], n.cfg.Dropout, ws.rng)
			for j, v := range out1[t] {
				ws.seq1[t][j] = v * ws.mask1[t][j]
			}
		}
		seq = ws.seq1
	}

	out2 := n.l2.forward(seq, &ws.c2)
	copy(ws.h2, out2[steps-1])
	if train && n.cfg.Dropout > 0 {
		dropoutMask(ws.mask2, n.cfg.Dropout, ws.rng)
		for j := range ws.h2 {
			ws.h2[j] *= ws.mask2[j]
		}
	}

	n.d1.forward(ws.h2, ws.a1)
	n.d2.forward(ws.a1, ws.y)
	return ws.y[0]
}

// backward accumulates the gradients of one sample with dLoss/dPred = dy.
func (n *Network) backward(ws *workspace, dy float64) {
	g := ws.grads
	// parameter order: l1(3) l2(3) d1(2) d2(2)
	gl1, gl2, gd1, gd2 := g[0:3], g[3:6], g[6:8], g[8:10]

	dout := []float64{dy}
	n.d2.backward(dout, ws.a1, ws.y, gd2, ws.da1)
	n.d1.backward(ws.da1, ws.h2, ws.a1, gd1, ws.dh2)

	useDrop := n.cfg.Dropout > 0
	if useDrop {
		for j := range ws.dh2 {
			ws.dh2[j] *= ws.mask2[j]
		}
	}
	steps := len(ws.c2.xs)
	ws.dseq = ws.dseq[:0]
	for t := 0; t < steps; t++ {
		ws.dseq = append(ws.dseq, nil)
	}
	ws.dseq[steps-1] = ws.dh2

	dx2 := n.l2.backward(ws.dseq, &ws.c2, gl2, true)
	if useDrop {
		for t := range dx2 {
			for j := range dx2[t] {
				dx2[t][j] *= ws.mask1[t][j]
			}
		}
	}
	n.l1.backward(dx2, &ws.c1, gl1, false)
}

// Predict runs the network in inference mode. It is not safe for
// concurrent use.
func (n *Network) Predict(window []float64) float64 {
	if n.infer == nil {
		n.infer = n.newWorkspace(false)
	}
	return n.forward(n.infer, window, false)
}

func (n *Network) TrainBatch(inputs [][]float64, targets []float64) float64 {
	size := len(inputs)
	if size == 0 {
		return 0
	}
	workers := n.cfg.Workers
	if workers > size {
		workers = size
	}
	for len(n.pool) < workers {
		n.pool = append(n.pool, n.newWorkspace(true))
	}
	for _, ws := range n.pool[:workers] {
		for _, g := range ws.grads {
			clear(g)
		}
	}

	base := n.rng.Int63()
	losses := make([]float64, workers)
	run := func(w int) {
		ws := n.pool[w]
		for i := w; i < size; i += workers {
			ws.rng.Seed(base + int64(i))
			pred := n.forward(ws, inputs[i], true)
			l, d := huber(pred-targets[i], n.cfg.HuberDelta)
			losses[w] += l
			n.backward(ws, d)
		}
	}

	if workers == 1 {
		run(0)
	} else {
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				run(w)
			}(w)
		}
		wg.Wait()
	}

	total := n.pool[0].grads
	for _, ws := range n.pool[1:workers] {
		for i, g := range ws.grads {
			for j, v := range g {
				total[i][j] += v
			}
		}
	}
	scale := 1 / float64(size)
	var loss float64
	for _, l := range losses {
		loss += l
	}
	for _, g := range total {
		for j := range g {
			g[j] *= scale
		}
	}
	n.opt.step(n.all, total)
	return loss * scale
}

func (n *Network) Snapshot() Weights {
	w := make(Weights, len(n.all))
	for i, p := range n.all {
		w[i] = append([]float64(nil), p.w...)
	}
	return w
}

func (n *Network) Restore(w Weights) {
	for i, p := range n.all {
		copy(p.w, w[i])
	}
}
