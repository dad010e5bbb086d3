package utils

import "github.com/notargets/wenohybrid/types"

// DynBuffer is a growable buffer that keeps its storage across Reset, used for message queues and cell lists that
// are refilled every step
type DynBuffer[T any] struct {
	cells []T
}

func NewDynBuffer[T any](capacity int) *DynBuffer[T] {
	return &DynBuffer[T]{cells: make([]T, 0, capacity)}
}

func (db *DynBuffer[T]) Add(val T) {
	if len(db.cells) == cap(db.cells) {
		db.cells = types.GrowSlice(db.cells, 2*cap(db.cells)+1)
	}
	db.cells = append(db.cells, val)
}

func (db *DynBuffer[T]) Cells() []T { return db.cells }

func (db *DynBuffer[T]) Len() int { return len(db.cells) }

func (db *DynBuffer[T]) Reset() { db.cells = db.cells[:0] }

// Retain keeps only the cells for which keep returns true, preserving order
func (db *DynBuffer[T]) Retain(keep func(T) bool) {
	var n int
	for _, c := range db.cells {
		if keep(c) {
			db.cells[n] = c
			n++
		}
	}
	var zero T
	for i := n; i < len(db.cells); i++ {
		db.cells[i] = zero
	}
	db.cells = db.cells[:n]
}
