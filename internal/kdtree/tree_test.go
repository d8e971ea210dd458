package kdtree

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	id int
	v  [3]float64
}

func pointAt(p point, dim int) float64 { return p.v[dim] }

func sqDist(a, b point) float64 {
	var s float64
	for d := range 3 {
		x := a.v[d] - b.v[d]
		s += x * x
	}
	return s
}

func samePoint(a, b point) bool { return a.id == b.id }

func randomPoints(r *rand.Rand, n int) []point {
	pts := make([]point, n)
	for i := range pts {
		pts[i] = point{id: i, v: [3]float64{r.Float64(), r.Float64(), r.Float64()}}
	}
	return pts
}

func ids(pts []point) []int {
	out := make([]int, len(pts))
	for i, p := range pts {
		out[i] = p.id
	}
	slices.Sort(out)
	return out
}

func bruteRange(pts []point, min, max []float64) []point {
	var out []point
	for _, p := range pts {
		in := true
		for d := range 3 {
			if p.v[d] < min[d] || p.v[d] > max[d] {
				in = false
				break
			}
		}
		if in {
			out = append(out, p)
		}
	}
	return out
}

func TestEmptyTree(t *testing.T) {
	tree := New[point](nil, 3, pointAt)

	assert.Equal(t, 0, tree.Len())
	assert.Equal(t, 3, tree.Dims())
	assert.Empty(t, tree.RangeSearch([]float64{0, 0, 0}, []float64{1, 1, 1}))
	assert.Empty(t, tree.KNearest(point{}, 3, sqDist, nil))

	_, ok := tree.Nearest(point{}, sqDist)
	assert.False(t, ok)
}

func TestRangeSearchMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	pts := randomPoints(r, 500)
	tree := New(pts, 3, pointAt)
	require.Equal(t, len(pts), tree.Len())

	for range 50 {
		lo := []float64{r.Float64() * 0.8, r.Float64() * 0.8, r.Float64() * 0.8}
		hi := []float64{lo[0] + 0.3, lo[1] + 0.3, lo[2] + 0.3}
		assert.Equal(t, ids(bruteRange(pts, lo, hi)), ids(tree.RangeSearch(lo, hi)))
	}
}

func TestRangeSearchBoundsAreInclusive(t *testing.T) {
	pts := []point{
		{id: 0, v: [3]float64{0.5, 0.5, 0.5}},
		{id: 1, v: [3]float64{0.5, 0.5, 0.5}},
		{id: 2, v: [3]float64{0.6, 0.5, 0.5}},
	}
	tree := New(pts, 3, pointAt)

	got := tree.RangeSearch([]float64{0.5, 0.5, 0.5}, []float64{0.5, 0.5, 0.5})
	assert.Equal(t, []int{0, 1}, ids(got))
}

func TestKNearestMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	pts := randomPoints(r, 300)
	tree := New(pts, 3, pointAt)

	for range 30 {
		target := point{id: -1, v: [3]float64{r.Float64(), r.Float64(), r.Float64()}}
		sorted := slices.Clone(pts)
		slices.SortFunc(sorted, func(a, b point) int {
			da, db := sqDist(a, target), sqDist(b, target)
			switch {
			case da < db:
				return -1
			case da > db:
				return 1
			}
			return 0
		})

		got := tree.KNearest(target, 5, sqDist, nil)
		require.Len(t, got, 5)
		for i := range got {
			assert.InDelta(t, sqDist(sorted[i], target), sqDist(got[i], target), 1e-12)
		}

		nearest, ok := tree.Nearest(target, sqDist)
		require.True(t, ok)
		assert.InDelta(t, sqDist(sorted[0], target), sqDist(nearest, target), 1e-12)
	}
}

func TestKNearestFilter(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	pts := randomPoints(r, 200)
	tree := New(pts, 3, pointAt)

	even := func(p point) bool { return p.id%2 == 0 }
	got := tree.KNearest(pts[1], 10, sqDist, even)
	require.Len(t, got, 10)
	for _, p := range got {
		assert.True(t, even(p), "filtered point %d returned", p.id)
	}
}

func TestKNearestFewerThanK(t *testing.T) {
	pts := []point{{id: 0}, {id: 1, v: [3]float64{1, 1, 1}}}
	tree := New(pts, 3, pointAt)

	got := tree.KNearest(point{id: -1}, 5, sqDist, nil)
	assert.Equal(t, []int{0, 1}, []int{got[0].id, got[1].id})
}

func TestDelete(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 8))
	pts := randomPoints(r, 200)
	tree := New(pts, 3, pointAt)

	remaining := slices.Clone(pts)
	current := tree
	for _, victim := range []int{0, 17, 99, 150, 199} {
		current = current.Delete(pts[victim], samePoint)
		remaining = slices.DeleteFunc(remaining, func(p point) bool { return p.id == victim })
	}

	assert.Equal(t, len(pts), tree.Len(), "original tree must be unchanged")
	assert.Equal(t, ids(pts), ids(tree.All()))

	assert.Equal(t, len(remaining), current.Len())
	assert.Equal(t, ids(remaining), ids(current.All()))

	lo, hi := []float64{0, 0, 0}, []float64{1, 1, 1}
	assert.Equal(t, ids(remaining), ids(current.RangeSearch(lo, hi)))

	for range 20 {
		lo := []float64{r.Float64() * 0.7, r.Float64() * 0.7, r.Float64() * 0.7}
		hi := []float64{lo[0] + 0.3, lo[1] + 0.3, lo[2] + 0.3}
		assert.Equal(t, ids(bruteRange(remaining, lo, hi)), ids(current.RangeSearch(lo, hi)))
	}
}

func TestDeleteMissing(t *testing.T) {
	pts := []point{{id: 0}, {id: 1, v: [3]float64{1, 1, 1}}}
	tree := New(pts, 3, pointAt)

	same := tree.Delete(point{id: 42, v: [3]float64{0.5, 0.5, 0.5}}, samePoint)
	assert.Same(t, tree, same)
}

func TestDeleteDuplicateCoordinates(t *testing.T) {
	pts := make([]point, 20)
	for i := range pts {
		pts[i] = point{id: i, v: [3]float64{0.5, float64(i%3) / 2, 0.25}}
	}
	tree := New(pts, 3, pointAt)

	for i := range pts {
		tree = tree.Delete(pts[i], samePoint)
		assert.Equal(t, len(pts)-i-1, tree.Len())
		assert.Len(t, tree.All(), len(pts)-i-1)
	}
}
