package ports

// RandomState is the single random source of a run. It is created once from
// the run seed and consumed sequentially by every test, so reordering calls
// changes results.
type RandomState interface {
	// Shuffle permutes n elements using swap, Fisher-Yates style
	Shuffle(n int, swap func(i, j int))
}
