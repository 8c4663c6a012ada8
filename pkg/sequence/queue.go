package sequence

import "container/heap"

type PriorityItem[T any] struct {
	Value    T
	Priority int
	index    int
	order    uint64
}

// priorityQueue implements heap.Interface. Equal priorities pop in insertion
// order, which keeps searches built on it deterministic.
type priorityQueue[T any] struct {
	items []*PriorityItem[T]
	seq   uint64
}

func (pq *priorityQueue[T]) Len() int { return len(pq.items) }

func (pq *priorityQueue[T]) Less(i, j int) bool {
	a, b := pq.items[i], pq.items[j]
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.order < b.order
}

func (pq *priorityQueue[T]) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	pq.items[i].index = i
	pq.items[j].index = j
}

func (pq *priorityQueue[T]) Push(x any) {
	item := x.(*PriorityItem[T])
	item.index = len(pq.items)
	item.order = pq.seq
	pq.seq++
	pq.items = append(pq.items, item)
}

func (pq *priorityQueue[T]) Pop() any {
	n := len(pq.items)
	item := pq.items[n-1]
	pq.items[n-1] = nil
	item.index = -1
	pq.items = pq.items[:n-1]
	return item
}

// PriorityQueue is a binary min-heap: the lowest priority pops first.
type PriorityQueue[T any] struct {
	pq priorityQueue[T]
}

func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{}
}

// Enqueue adds value and returns its handle for Update.
func (pq *PriorityQueue[T]) Enqueue(value T, priority int) *PriorityItem[T] {
	item := &PriorityItem[T]{Value: value, Priority: priority}
	heap.Push(&pq.pq, item)
	return item
}

func (pq *PriorityQueue[T]) Dequeue() (T, bool) {
	if pq.pq.Len() == 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(&pq.pq).(*PriorityItem[T]).Value, true
}

func (pq *PriorityQueue[T]) Peek() (T, bool) {
	if pq.pq.Len() == 0 {
		var zero T
		return zero, false
	}
	return pq.pq.items[0].Value, true
}

// Update changes an enqueued item in place and reports whether it was still
// queued. Handles of popped items are ignored.
func (pq *PriorityQueue[T]) Update(item *PriorityItem[T], value T, priority int) bool {
	if item == nil || item.index < 0 || item.index >= pq.pq.Len() || pq.pq.items[item.index] != item {
		return false
	}
	item.Value = value
	item.Priority = priority
	heap.Fix(&pq.pq, item.index)
	return true
}

// Reset drops every item but keeps the backing array for reuse.
func (pq *PriorityQueue[T]) Reset() {
	clear(pq.pq.items)
	pq.pq.items = pq.pq.items[:0]
	pq.pq.seq = 0
}

func (pq *PriorityQueue[T]) Len() int { return pq.pq.Len() }

func (pq *PriorityQueue[T]) IsEmpty() bool { return pq.pq.Len() == 0 }
