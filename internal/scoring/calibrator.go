package scoring

import (
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"
)

// Calibrator maps raw model probabilities onto observed conversion rates
// via the isotonic fit exported from training. It interpolates linearly
// between knots and clamps outside them, so calibrated outputs preserve
// the raw score ordering.
type Calibrator struct {
	X []float64 `json:"X_thresholds"`
	Y []float64 `json:"y_thresholds"`
}

// LoadCalibrator parses and validates a calibrator artifact. Knots must be
// strictly increasing in X and non-decreasing in Y; anything else means
// the export is corrupt and calibration cannot be trusted.
func LoadCalibrator(data []byte) (*Calibrator, error) {
	var c Calibrator
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "scoring: parse calibrator artifact")
	}
	if len(c.X) != len(c.Y) {
		return nil, eris.Errorf("scoring: calibrator knot count mismatch (%d X, %d Y)", len(c.X), len(c.Y))
	}
	if len(c.X) < 2 {
		return nil, eris.New("scoring: calibrator needs at least 2 knots")
	}
	for i := range c.X {
		if c.Y[i] < 0 || c.Y[i] > 1 {
			return nil, eris.Errorf("scoring: calibrator knot %d output %v out of [0,1]", i, c.Y[i])
		}
		if i == 0 {
			continue
		}
		if c.X[i] <= c.X[i-1] {
			return nil, eris.Errorf("scoring: calibrator knots not increasing at %d", i)
		}
		if c.Y[i] < c.Y[i-1] {
			return nil, eris.Errorf("scoring: calibrator not monotone at knot %d", i)
		}
	}
	return &c, nil
}

// Apply maps one raw probability to its calibrated value.
func (c *Calibrator) Apply(p float64) float64 {
	n := len(c.X)
	if p <= c.X[0] {
		return c.Y[0]
	}
	if p >= c.X[n-1] {
		return c.Y[n-1]
	}
	// First knot strictly above p; interpolate from its predecessor.
	i := sort.SearchFloat64s(c.X, p)
	if c.X[i] == p {
		return c.Y[i]
	}
	x0, x1 := c.X[i-1], c.X[i]
	y0, y1 := c.Y[i-1], c.Y[i]
	return y0 + (y1-y0)*(p-x0)/(x1-x0)
}
