package store

import "sync/atomic"

type slotNode struct {
	slot int
	next *slotNode
}

// SlotRecycler is a lock-free LIFO stack of freed record numbers. Nodes are
// never reused, so the compare-and-swap loops are free of ABA problems.
type SlotRecycler struct {
	head atomic.Pointer[slotNode]
}

// NewSlotRecycler creates an empty recycler.
func NewSlotRecycler() *SlotRecycler {
	return &SlotRecycler{}
}

// Push adds a freed slot.
func (s *SlotRecycler) Push(slot int) {
	node := &slotNode{slot: slot}
	for {
		old := s.head.Load()
		node.next = old
		if s.head.CompareAndSwap(old, node) {
			return
		}
	}
}

// Pop removes and returns the most recently freed slot.
func (s *SlotRecycler) Pop() (int, bool) {
	for {
		old := s.head.Load()
		if old == nil {
			return 0, false
		}
		if s.head.CompareAndSwap(old, old.next) {
			return old.slot, true
		}
	}
}

// Peek returns the most recently freed slot without removing it.
func (s *SlotRecycler) Peek() (int, bool) {
	if top := s.head.Load(); top != nil {
		return top.slot, true
	}
	return 0, false
}

// Len counts the slots in a snapshot of the stack.
func (s *SlotRecycler) Len() int {
	n := 0
	for node := s.head.Load(); node != nil; node = node.next {
		n++
	}
	return n
}
