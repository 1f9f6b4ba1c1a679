package association

import (
	"context"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/iamshnoo/soc-bias/domain/core"
	"github.com/iamshnoo/soc-bias/domain/weat"
	"github.com/iamshnoo/soc-bias/ports"
)

// DefaultSamples is the permutation sample count when none is configured
const DefaultSamples = 1000

// Method names how a p-value was obtained
type Method string

const (
	MethodExact      Method = "exact"
	MethodSampled    Method = "sampled"
	MethodParametric Method = "parametric"
)

// Estimate is the outcome of one association test
type Estimate struct {
	EffectSize float64
	PValue     float64
	Statistic  float64
	Method     Method
	Samples    int
}

// Estimator computes effect sizes and one-sided p-values for encoded tests
type Estimator struct {
	NSamples   int
	Parametric bool
	Random     ports.RandomState
}

// NewEstimator creates an estimator consuming random from the given state
func NewEstimator(nSamples int, parametric bool, random ports.RandomState) *Estimator {
	if nSamples <= 0 {
		nSamples = DefaultSamples
	}
	return &Estimator{NSamples: nSamples, Parametric: parametric, Random: random}
}

// Estimate runs the test for target sets x, y and attribute sets a, b.
// The p-value is computed before the effect size so the random state is
// consumed in the same order on every run.
func (e *Estimator) Estimate(ctx context.Context, x, y, a, b *weat.EncodedSet) (Estimate, error) {
	if err := checkSets(x, y, a, b); err != nil {
		return Estimate{}, err
	}

	nx := x.Len()
	scores, err := targetScores(x.Ordered(), y.Ordered(), a.Ordered(), b.Ordered())
	if err != nil {
		return Estimate{}, err
	}

	est := Estimate{Statistic: partitionStatistic(scores, firstN(len(scores), nx))}
	if e.Parametric {
		est.Method = MethodParametric
		est.PValue, err = parametricPValue(scores, nx)
	} else {
		est.Method, est.Samples, est.PValue, err = e.permutationPValue(ctx, scores, nx, est.Statistic)
	}
	if err != nil {
		return Estimate{}, err
	}

	est.EffectSize, err = effectSize(scores, nx)
	if err != nil {
		return Estimate{}, err
	}
	return est, nil
}

// permutationPValue is the fraction of splits whose statistic is at least
// the observed one. Ties count towards the null.
func (e *Estimator) permutationPValue(ctx context.Context, scores []float64, nx int, observed float64) (Method, int, float64, error) {
	n := len(scores)
	var atLeast, total int
	visit := func(mask []bool) {
		if partitionStatistic(scores, mask) >= observed {
			atLeast++
		}
		total++
	}

	method := MethodSampled
	var err error
	if count, ok := splitCount(n, nx); ok && count <= e.NSamples {
		method = MethodExact
		err = enumerateSplits(ctx, n, nx, visit)
	} else {
		if e.Random == nil {
			return "", 0, 0, fmt.Errorf("sampled permutation test needs a random state")
		}
		err = sampleSplits(ctx, n, nx, e.NSamples, e.Random, visit)
	}
	if err != nil {
		return "", 0, 0, err
	}
	return method, total, float64(atLeast) / float64(total), nil
}

// parametricPValue is the one-sided normal tail of the two-sample z statistic
func parametricPValue(scores []float64, nx int) (float64, error) {
	xs, ys := scores[:nx], scores[nx:]
	if len(xs) < 2 || len(ys) < 2 {
		return 0, fmt.Errorf("%w: parametric test needs at least two words per target set", core.ErrInvalidTest)
	}

	meanX, err := stats.Mean(xs)
	if err != nil {
		return 0, err
	}
	meanY, err := stats.Mean(ys)
	if err != nil {
		return 0, err
	}
	varX, err := stats.SampleVariance(xs)
	if err != nil {
		return 0, err
	}
	varY, err := stats.SampleVariance(ys)
	if err != nil {
		return 0, err
	}

	diff := meanX - meanY
	se := math.Sqrt(varX/float64(len(xs)) + varY/float64(len(ys)))
	if se == 0 {
		if diff > 0 {
			return 0, nil
		}
		return 1, nil
	}
	return distuv.UnitNormal.Survival(diff / se), nil
}

// effectSize is (mean_X s − mean_Y s) / population std of s over X∪Y
func effectSize(scores []float64, nx int) (float64, error) {
	if allEqual(scores) {
		return 0, core.ErrUndefinedEffectSize
	}
	meanX, err := stats.Mean(scores[:nx])
	if err != nil {
		return 0, err
	}
	meanY, err := stats.Mean(scores[nx:])
	if err != nil {
		return 0, err
	}
	std, err := stats.StandardDeviationPopulation(scores)
	if err != nil {
		return 0, err
	}
	if std == 0 || math.IsNaN(std) {
		return 0, core.ErrUndefinedEffectSize
	}
	return (meanX - meanY) / std, nil
}

func allEqual(xs []float64) bool {
	for _, v := range xs[1:] {
		if v != xs[0] {
			return false
		}
	}
	return true
}

// checkSets rejects empty sets, mixed dimensions and unusable vectors,
// naming the offending input.
func checkSets(sets ...*weat.EncodedSet) error {
	dim := -1
	for _, set := range sets {
		if set == nil || set.Len() == 0 {
			name := "<nil>"
			if set != nil {
				name = set.Name
			}
			return fmt.Errorf("%w: %s is empty", core.ErrInvalidTest, name)
		}
		for _, key := range set.Keys {
			vec := set.Vectors[key]
			if dim < 0 {
				dim = len(vec)
			}
			if len(vec) != dim {
				return fmt.Errorf("%s %q: %w", set.Name, key, core.NewDimensionMismatchError(dim, len(vec)))
			}
			if !usableVector(vec) {
				return core.NewDegenerateVectorError(set.Name, key)
			}
		}
	}
	return nil
}

func usableVector(v []float64) bool {
	return usableNorm(floats.Norm(v, 2))
}
