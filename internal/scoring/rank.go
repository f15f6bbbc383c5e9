package scoring

import "sort"

// Scored pairs an item with its result
type Scored[T any] struct {
	Item   T
	Result Result
}

// Rank sorts descending by score. Equal scores keep their input (fetch) order.
func Rank[T any](items []Scored[T]) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Result.Score > items[j].Result.Score
	})
}

// Top ranks items and keeps at most n of them
func Top[T any](items []Scored[T], n int) []Scored[T] {
	Rank(items)
	if n >= 0 && len(items) > n {
		return items[:n]
	}
	return items
}
