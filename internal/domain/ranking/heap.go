// Package ranking provides the max-heap used to order assets by USD value.
package ranking

import "container/heap"

// Item is a labelled value stored in the heap.
type Item struct {
	Label string
	Value float64
}

// items implements heap.Interface as a max-heap on Value.
type items []Item

func (h items) Len() int           { return len(h) }
func (h items) Less(i, j int) bool { return h[i].Value > h[j].Value }
func (h items) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *items) Push(x any) { *h = append(*h, x.(Item)) }

func (h *items) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// Heap is an array-backed binary max-heap. Order among equal values is unspecified.
// Not safe for concurrent use.
type Heap struct {
	data items
}

// New returns a heap with room for capacity items.
func New(capacity int) *Heap {
	return &Heap{data: make(items, 0, capacity)}
}

// Insert adds an item in O(log n).
func (h *Heap) Insert(label string, value float64) {
	heap.Push(&h.data, Item{Label: label, Value: value})
}

// ExtractMax removes and returns the item with the largest value.
// The second result is false when the heap is empty.
func (h *Heap) ExtractMax() (Item, bool) {
	if len(h.data) == 0 {
		return Item{}, false
	}
	return heap.Pop(&h.data).(Item), true
}

// Peek returns the largest item without removing it.
func (h *Heap) Peek() (Item, bool) {
	if len(h.data) == 0 {
		return Item{}, false
	}
	return h.data[0], true
}

// IsEmpty reports whether the heap holds no items.
func (h *Heap) IsEmpty() bool { return len(h.data) == 0 }

// Len returns the number of items.
func (h *Heap) Len() int { return len(h.data) }
