package association

import (
	"context"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/iamshnoo/soc-bias/ports"
)

// maxCountableSplits bounds the split counts computed exactly; larger pools
// always take the sampled branch.
const maxCountableSplits = 1e15

// firstN is the observed split: the first k of n pooled words are in X
func firstN(n, k int) []bool {
	mask := make([]bool, n)
	for i := 0; i < k; i++ {
		mask[i] = true
	}
	return mask
}

// splitCount returns C(n, k) and whether it was small enough to count
func splitCount(n, k int) (int, bool) {
	if combin.GeneralizedBinomial(float64(n), float64(k)) > maxCountableSplits {
		return 0, false
	}
	return combin.Binomial(n, k), true
}

// maskKey packs a mask into a comparable string, eight positions per byte
func maskKey(mask []bool) string {
	buf := make([]byte, (len(mask)+7)/8)
	for i, in := range mask {
		if in {
			buf[i/8] |= 1 << (i % 8)
		}
	}
	return string(buf)
}

// enumerateSplits calls visit with every split of n words into groups of
// k and n-k, starting with the observed one. The random state is not used.
func enumerateSplits(ctx context.Context, n, k int, visit func(mask []bool)) error {
	gen := combin.NewCombinationGenerator(n, k)
	idx := make([]int, k)
	mask := make([]bool, n)
	for count := 0; gen.Next(); count++ {
		if count%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		gen.Combination(idx)
		for i := range mask {
			mask[i] = false
		}
		for _, j := range idx {
			mask[j] = true
		}
		visit(mask)
	}
	return nil
}

// sampleSplits calls visit with the observed split and then samples-1
// further distinct splits, each drawn by a Fisher-Yates shuffle of the pool
// indices. Splits already visited are redrawn. samples must not exceed C(n, k).
func sampleSplits(ctx context.Context, n, k, samples int, random ports.RandomState, visit func(mask []bool)) error {
	mask := firstN(n, k)
	seen := make(map[string]struct{}, samples)
	seen[maskKey(mask)] = struct{}{}
	visit(mask)

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	swap := func(i, j int) { idx[i], idx[j] = idx[j], idx[i] }

	for draws := 0; len(seen) < samples; draws++ {
		if draws%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		random.Shuffle(n, swap)
		for i := range mask {
			mask[i] = false
		}
		for _, j := range idx[:k] {
			mask[j] = true
		}
		key := maskKey(mask)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		visit(mask)
	}
	return nil
}
