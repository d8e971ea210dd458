// Package kdtree provides a static, balanced k-d tree with range and
// nearest-neighbour queries over arbitrary element types.
//
// Coordinates are read through an Accessor so that several trees can index
// the same elements in different spaces (for example the average and the
// dominant colour of a palette entry).
//
// Complexity:
//
//   - Build:        O(n log² n) (sorted copy per level)
//   - RangeSearch:  O(√n + m) typical for m results in 3 dimensions
//   - KNearest:     O(log n) typical, O(n) worst case
package kdtree

import (
	"cmp"
	"slices"

	"github.com/emirpasic/gods/queues/priorityqueue"
)

// Accessor returns the coordinate of e along dimension dim.
type Accessor[T any] func(e T, dim int) float64

// Distance returns the squared Euclidean distance between two elements in the
// space described by the tree's Accessor.
type Distance[T any] func(a, b T) float64

// Filter reports whether an element may be returned by a nearest query.
type Filter[T any] func(e T) bool

// Equal reports whether two elements are the same element.
type Equal[T any] func(a, b T) bool

// Tree is an immutable k-d tree. Delete returns a new tree that shares
// unchanged subtrees with the receiver.
type Tree[T any] struct {
	root   *node[T]
	dims   int
	access Accessor[T]
	size   int
}

type node[T any] struct {
	element     T
	left, right *node[T]
}

// New builds a balanced tree over elements. The input slice is not modified.
// dims must be at least 1.
func New[T any](elements []T, dims int, access Accessor[T]) *Tree[T] {
	if dims < 1 {
		dims = 1
	}
	t := &Tree[T]{dims: dims, access: access, size: len(elements)}
	if len(elements) > 0 {
		t.root = t.build(slices.Clone(elements), 0)
	}
	return t
}

// build selects the median along dim as pivot. Elements equal to the pivot
// may end up on either side, so queries treat ties as reaching both children.
func (t *Tree[T]) build(elements []T, dim int) *node[T] {
	if len(elements) == 0 {
		return nil
	}
	slices.SortStableFunc(elements, func(a, b T) int {
		return cmp.Compare(t.access(a, dim), t.access(b, dim))
	})
	middle := len(elements) >> 1
	next := (dim + 1) % t.dims
	return &node[T]{
		element: elements[middle],
		left:    t.build(elements[:middle], next),
		right:   t.build(elements[middle+1:], next),
	}
}

// Len returns the number of indexed elements.
func (t *Tree[T]) Len() int {
	return t.size
}

// Dims returns the dimensionality of the tree.
func (t *Tree[T]) Dims() int {
	return t.dims
}

// RangeSearch returns every element whose coordinates all lie within the
// closed box [min, max]. min and max must have Dims() entries.
func (t *Tree[T]) RangeSearch(min, max []float64) []T {
	var found []T
	if t.root == nil || len(min) < t.dims || len(max) < t.dims {
		return found
	}

	type frame struct {
		n   *node[T]
		dim int
	}
	stack := []frame{{t.root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if t.inBox(f.n.element, min, max) {
			found = append(found, f.n.element)
		}
		line := t.access(f.n.element, f.dim)
		next := (f.dim + 1) % t.dims
		if f.n.right != nil && max[f.dim] >= line {
			stack = append(stack, frame{f.n.right, next})
		}
		if f.n.left != nil && min[f.dim] <= line {
			stack = append(stack, frame{f.n.left, next})
		}
	}
	return found
}

func (t *Tree[T]) inBox(e T, min, max []float64) bool {
	for d := range t.dims {
		v := t.access(e, d)
		if v < min[d] || v > max[d] {
			return false
		}
	}
	return true
}

// Nearest returns the element closest to target, or false if the tree is empty.
func (t *Tree[T]) Nearest(target T, dist Distance[T]) (T, bool) {
	found := t.KNearest(target, 1, dist, nil)
	if len(found) == 0 {
		var zero T
		return zero, false
	}
	return found[0], true
}

type candidate[T any] struct {
	element T
	dist    float64
}

// KNearest returns up to k elements closest to target, nearest first.
// Elements rejected by filter are never returned; a nil filter accepts all.
// The target itself is returned if it is indexed and accepted.
func (t *Tree[T]) KNearest(target T, k int, dist Distance[T], filter Filter[T]) []T {
	if t.root == nil || k <= 0 {
		return nil
	}

	// Max-queue: the current worst candidate sits at the head.
	queue := priorityqueue.NewWith(func(a, b interface{}) int {
		return cmp.Compare(b.(candidate[T]).dist, a.(candidate[T]).dist)
	})
	t.kNearest(t.root, 0, target, k, dist, filter, queue)

	result := make([]T, queue.Size())
	for i := len(result) - 1; i >= 0; i-- {
		v, _ := queue.Dequeue()
		result[i] = v.(candidate[T]).element
	}
	return result
}

func (t *Tree[T]) kNearest(n *node[T], dim int, target T, k int, dist Distance[T], filter Filter[T], queue *priorityqueue.Queue) {
	if n == nil {
		return
	}
	if filter == nil || filter(n.element) {
		d := dist(n.element, target)
		if queue.Size() < k {
			queue.Enqueue(candidate[T]{n.element, d})
		} else if worst, _ := queue.Peek(); d < worst.(candidate[T]).dist {
			queue.Dequeue()
			queue.Enqueue(candidate[T]{n.element, d})
		}
	}

	lineDist := t.access(target, dim) - t.access(n.element, dim)
	near, far := n.right, n.left
	if lineDist < 0 {
		near, far = n.left, n.right
	}
	next := (dim + 1) % t.dims

	t.kNearest(near, next, target, k, dist, filter, queue)
	if far == nil {
		return
	}
	if queue.Size() < k {
		t.kNearest(far, next, target, k, dist, filter, queue)
		return
	}
	if worst, _ := queue.Peek(); worst.(candidate[T]).dist >= lineDist*lineDist {
		t.kNearest(far, next, target, k, dist, filter, queue)
	}
}

// Delete returns a tree without the first element equal to target. The
// receiver is left untouched. If target is not indexed the receiver is
// returned.
func (t *Tree[T]) Delete(target T, equal Equal[T]) *Tree[T] {
	root, ok := t.delete(t.root, 0, target, equal)
	if !ok {
		return t
	}
	return &Tree[T]{root: root, dims: t.dims, access: t.access, size: t.size - 1}
}

func (t *Tree[T]) delete(n *node[T], dim int, target T, equal Equal[T]) (*node[T], bool) {
	if n == nil {
		return nil, false
	}
	next := (dim + 1) % t.dims

	if equal(n.element, target) {
		switch {
		case n.right != nil:
			m := t.minimum(n.right, dim, next)
			right, _ := t.delete(n.right, next, m, equal)
			return &node[T]{element: m, left: n.left, right: right}, true
		case n.left != nil:
			// Promote the left subtree to the right so that left <= pivot <= right holds.
			m := t.minimum(n.left, dim, next)
			right, _ := t.delete(n.left, next, m, equal)
			return &node[T]{element: m, right: right}, true
		default:
			return nil, true
		}
	}

	tv, nv := t.access(target, dim), t.access(n.element, dim)
	if tv <= nv {
		if left, ok := t.delete(n.left, next, target, equal); ok {
			return &node[T]{element: n.element, left: left, right: n.right}, true
		}
	}
	if tv >= nv {
		if right, ok := t.delete(n.right, next, target, equal); ok {
			return &node[T]{element: n.element, left: n.left, right: right}, true
		}
	}
	return n, false
}

// minimum returns the element with the smallest coordinate along axis in the
// subtree rooted at n, whose split dimension is dim.
func (t *Tree[T]) minimum(n *node[T], axis, dim int) T {
	best := n.element
	next := (dim + 1) % t.dims
	consider := func(c *node[T]) {
		if c == nil {
			return
		}
		if m := t.minimum(c, axis, next); t.access(m, axis) < t.access(best, axis) {
			best = m
		}
	}
	consider(n.left)
	if dim != axis {
		consider(n.right)
	}
	return best
}

// All returns every indexed element in tree order.
func (t *Tree[T]) All() []T {
	out := make([]T, 0, t.size)
	var walk func(*node[T])
	walk = func(n *node[T]) {
		if n == nil {
			return
		}
		walk(n.left)
		out = append(out, n.element)
		walk(n.right)
	}
	walk(t.root)
	return out
}
