package forecast

import "math"

// huber returns the Huber loss of err = pred - target and its derivative.
func huber(err, delta float64) (loss, grad float64) {
	a := math.Abs(err)
	if a <= delta {
		return 0.5 * err * err, err
	}
	if err > 0 {
		return delta * (a - 0.5*delta), delta
	}
	return delta * (a - 0.5*delta), -delta
}
