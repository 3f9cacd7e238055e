package pool

type queue[T any] []T

func (q *queue[T]) Len() int { return len(*q) }

func (q *queue[T]) Pop() T {
	old := *q
	x := old[0]
	var zero T
	old[0] = zero
	*q = old[1:]
	return x
}

func (q *queue[T]) Push(t T) {
	*q = append(*q, t)
}

// Remove drops every element matching fn, keeping the order of the rest.
func (q *queue[T]) Remove(fn func(T) bool) int {
	old := *q
	kept := old[:0]
	removed := 0
	for _, t := range old {
		if fn(t) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	var zero T
	for i := len(kept); i < len(old); i++ {
		old[i] = zero
	}
	*q = kept
	return removed
}

// Drain empties the queue and returns its elements in order.
func (q *queue[T]) Drain() []T {
	items := *q
	*q = nil
	return items
}
