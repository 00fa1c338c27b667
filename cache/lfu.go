package cache

import "container/heap"

// lfuHeap is a min-heap of entries ordered by access count, breaking
// ties on last access time, so Pop yields the least frequently (then
// least recently) used entry in O(log n).
type lfuHeap struct {
	items []*entry
}

func (h *lfuHeap) Len() int { return len(h.items) }

func (h *lfuHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.accessCount != b.accessCount {
		return a.accessCount < b.accessCount
	}
	return a.lastAccess.Before(b.lastAccess)
}

func (h *lfuHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].heapIdx = i
	h.items[j].heapIdx = j
}

func (h *lfuHeap) Push(x any) {
	ent := x.(*entry)
	ent.heapIdx = len(h.items)
	h.items = append(h.items, ent)
}

func (h *lfuHeap) Pop() any {
	old := h.items
	n := len(old)
	ent := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	ent.heapIdx = -1
	return ent
}

func (h *lfuHeap) push(ent *entry) { heap.Push(h, ent) }

func (h *lfuHeap) fix(ent *entry) {
	if ent.heapIdx >= 0 && ent.heapIdx < len(h.items) {
		heap.Fix(h, ent.heapIdx)
	}
}

func (h *lfuHeap) remove(ent *entry) {
	if ent.heapIdx >= 0 && ent.heapIdx < len(h.items) && h.items[ent.heapIdx] == ent {
		heap.Remove(h, ent.heapIdx)
	}
}

func (h *lfuHeap) peek() *entry {
	if len(h.items) == 0 {
		return nil
	}
	return h.items[0]
}
