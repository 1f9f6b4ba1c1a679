// Package association implements the WEAT association engine and its
// significance estimator.
package association

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/iamshnoo/soc-bias/domain/core"
)

// Cosine returns the cosine similarity of u and v, clamped to [-1, 1].
// A zero or non-finite norm is an error, never a silent 0.
func Cosine(u, v []float64) (float64, error) {
	if len(u) != len(v) {
		return 0, core.NewDimensionMismatchError(len(u), len(v))
	}
	nu := floats.Norm(u, 2)
	nv := floats.Norm(v, 2)
	if !usableNorm(nu) || !usableNorm(nv) {
		return 0, core.ErrDegenerateVector
	}
	return clamp(floats.Dot(u, v) / (nu * nv)), nil
}

// Association is s(w,A,B): the mean cosine of w to A minus its mean cosine to B.
func Association(w []float64, a, b [][]float64) (float64, error) {
	meanA, err := meanCosine(w, a)
	if err != nil {
		return 0, err
	}
	meanB, err := meanCosine(w, b)
	if err != nil {
		return 0, err
	}
	return meanA - meanB, nil
}

// Statistic is S(X,Y,A,B) = Σx s(x,A,B) − Σy s(y,A,B)
func Statistic(x, y, a, b [][]float64) (float64, error) {
	scores, err := targetScores(x, y, a, b)
	if err != nil {
		return 0, err
	}
	return partitionStatistic(scores, firstN(len(scores), len(x))), nil
}

// targetScores computes s(w,A,B) for every word of X followed by every word of Y
func targetScores(x, y, a, b [][]float64) ([]float64, error) {
	scores := make([]float64, 0, len(x)+len(y))
	for _, group := range [][][]float64{x, y} {
		for _, w := range group {
			s, err := Association(w, a, b)
			if err != nil {
				return nil, err
			}
			scores = append(scores, s)
		}
	}
	return scores, nil
}

// partitionStatistic sums scores on each side of mask in index order.
// Every statistic of a test goes through here so the identity split
// reproduces the observed value bit for bit.
func partitionStatistic(scores []float64, mask []bool) float64 {
	var inX, inY float64
	for i, s := range scores {
		if mask[i] {
			inX += s
		} else {
			inY += s
		}
	}
	return inX - inY
}

func meanCosine(w []float64, set [][]float64) (float64, error) {
	if len(set) == 0 {
		return 0, core.ErrInvalidTest
	}
	var sum float64
	for _, v := range set {
		c, err := Cosine(w, v)
		if err != nil {
			return 0, err
		}
		sum += c
	}
	return sum / float64(len(set)), nil
}

func usableNorm(n float64) bool {
	return n > 0 && !math.IsInf(n, 0) && !math.IsNaN(n)
}

func clamp(c float64) float64 {
	if c > 1 {
		return 1
	}
	if c < -1 {
		return -1
	}
	return c
}
