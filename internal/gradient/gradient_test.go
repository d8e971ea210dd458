package gradient

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/swatchpath/internal/cluster"
	"github.com/jmylchreest/swatchpath/internal/colour"
)

func solid(item string, c colour.RGB) cluster.Sample {
	return cluster.Sample{Item: cluster.Item(item), Pixels: colour.SolidBuffer(16, 16, c)}
}

// distinctEntries returns n entries with well separated colours and ids 0..n-1.
func distinctEntries(t *testing.T, n int) []*cluster.Entry {
	t.Helper()
	samples := make([]cluster.Sample, n)
	for i := range samples {
		v := uint8(10 + i*20)
		samples[i] = solid(string(rune('a'+i)), colour.RGB{R: v, G: 255 - v, B: uint8(i * 7)})
	}
	entries := cluster.NewBuilder().Build(samples).Entries()
	require.Len(t, entries, n)
	return entries
}

func graphOf(entries []*cluster.Entry, edges [][3]float64) *Graph {
	g := NewGraph()
	for _, e := range entries {
		g.AddNode(e.ID, e)
	}
	for _, ed := range edges {
		_ = g.AddEdge(int(ed[0]), int(ed[1]), ed[2])
	}
	return g
}

func plainGraph(n int, edges [][3]float64) *Graph {
	g := NewGraph()
	for i := range n {
		g.AddNode(i, nil)
	}
	for _, ed := range edges {
		_ = g.AddEdge(int(ed[0]), int(ed[1]), ed[2])
	}
	return g
}

func bruteForce(n *Node, dest *Node, acc float64, best *float64) {
	if n == dest {
		*best = math.Min(*best, acc)
		return
	}
	for _, e := range n.Edges {
		bruteForce(e.To, dest, acc+e.Weight, best)
	}
}

func rowEntries(r Row) []*cluster.Entry {
	out := make([]*cluster.Entry, len(r))
	for i, c := range r {
		out[i] = c.Entry
	}
	return out
}

func weightsFinite(g *Graph) bool {
	for _, n := range g.Nodes() {
		for _, e := range n.Edges {
			if e.Weight < 0 || math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) {
				return false
			}
		}
	}
	return true
}

func TestShortestPathHandBuilt(t *testing.T) {
	g := plainGraph(4, [][3]float64{
		{0, 1, 1}, {1, 3, 1},
		{0, 2, 0.5}, {2, 3, 2},
		{0, 3, 0.1},
	})
	src, _ := g.Node(0)
	dst, _ := g.Node(3)
	order, err := g.TopoSort()
	require.NoError(t, err)

	path, ok := ShortestPath(order, src, dst, nil)
	require.True(t, ok)
	assert.Empty(t, path, "direct edge is cheapest")

	g.RemoveEdge(0, 3)
	path, ok = ShortestPath(order, src, dst, nil)
	require.True(t, ok)
	require.Len(t, path, 1)
	assert.Equal(t, 1, path[0].ID)
	assert.InDelta(t, 2.0, PathCost(src, path, dst), 1e-12)

	heavy := func(from, to *Node, w float64) float64 {
		if from.ID == 1 {
			return w * 10
		}
		return w
	}
	path, ok = ShortestPath(order, src, dst, heavy)
	require.True(t, ok)
	assert.Equal(t, 2, path[0].ID)

	_, ok = ShortestPath(order, dst, src, nil)
	assert.False(t, ok)
	_, ok = ShortestPath(order, src, src, nil)
	assert.False(t, ok)
}

func TestShortestPathMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(11, 12))
	for trial := range 60 {
		n := 3 + r.IntN(8)
		var edges [][3]float64
		for i := range n {
			for j := i + 1; j < n; j++ {
				if r.Float64() < 0.45 {
					edges = append(edges, [3]float64{float64(i), float64(j), r.Float64() * 10})
				}
			}
		}
		g := plainGraph(n, edges)
		order, err := g.TopoSort()
		require.NoError(t, err)

		src, _ := g.Node(0)
		dst, _ := g.Node(n - 1)
		best := math.Inf(1)
		bruteForce(src, dst, 0, &best)

		path, ok := ShortestPath(order, src, dst, nil)
		if math.IsInf(best, 1) {
			assert.False(t, ok, "trial %d: unexpected path", trial)
			continue
		}
		require.True(t, ok, "trial %d: path not found", trial)
		assert.InDelta(t, best, PathCost(src, path, dst), 1e-9, "trial %d", trial)
	}
}

func TestTopoSortOrdersEdges(t *testing.T) {
	r := rand.New(rand.NewPCG(21, 22))
	perm := r.Perm(12)
	var edges [][3]float64
	for i := range perm {
		for j := i + 1; j < len(perm); j++ {
			if r.Float64() < 0.3 {
				edges = append(edges, [3]float64{float64(perm[i]), float64(perm[j]), 1})
			}
		}
	}
	g := plainGraph(12, edges)
	order, err := g.TopoSort()
	require.NoError(t, err)
	require.Len(t, order, 12)

	pos := make(map[*Node]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	for _, n := range g.Nodes() {
		for _, e := range n.Edges {
			assert.Less(t, pos[n], pos[e.To])
		}
	}
	assert.Nil(t, g.FindCycle())
}

func TestCycleDetection(t *testing.T) {
	g := plainGraph(4, [][3]float64{{0, 1, 1}, {1, 2, 1}, {2, 1, 1}, {2, 3, 1}})

	cycle := g.FindCycle()
	require.Len(t, cycle, 2)
	ids := []int{cycle[0].ID, cycle[1].ID}
	slices.Sort(ids)
	assert.Equal(t, []int{1, 2}, ids)

	_, err := g.TopoSort()
	assert.True(t, errors.Is(err, ErrCycle))

	e := NewEngine(g, 0, 3)
	assert.Equal(t, StateExhausted, e.State())
	assert.Empty(t, e.Row(0))
	assert.Equal(t, 0, e.Len())
}

func TestAddEdgeValidation(t *testing.T) {
	g := plainGraph(2, nil)
	assert.ErrorIs(t, g.AddEdge(0, 5, 1), ErrNodeNotFound)
	assert.ErrorIs(t, g.AddEdge(5, 0, 1), ErrNodeNotFound)
	assert.Error(t, g.AddEdge(0, 1, -1))
	assert.Error(t, g.AddEdge(0, 1, math.Inf(1)))

	require.NoError(t, g.AddEdge(0, 1, 1))
	require.NoError(t, g.AddEdge(0, 1, 3))
	assert.Equal(t, 1, g.EdgeCount())
	n, _ := g.Node(0)
	assert.Equal(t, 3.0, n.EdgeTo(1).Weight)
	assert.True(t, g.RemoveEdge(0, 1))
	assert.False(t, g.RemoveEdge(0, 1))
	assert.False(t, g.RemoveEdge(9, 1))
}

func threeBranches(t *testing.T) ([]*cluster.Entry, *Graph) {
	t.Helper()
	entries := distinctEntries(t, 5)
	g := graphOf(entries, [][3]float64{
		{0, 1, 1}, {1, 4, 1},
		{0, 2, 1.1}, {2, 4, 1.1},
		{0, 3, 1.2}, {3, 4, 1.2},
		{0, 4, 0.01},
	})
	return entries, g
}

func TestRowsDivergeAndExhaust(t *testing.T) {
	entries, g := threeBranches(t)
	cfg := DefaultConfig()
	cfg.DriftStrength = 0

	e := NewEngine(g, 0, 4, WithConfig(cfg))
	require.Equal(t, StateActive, e.State())
	n0, _ := g.Node(0)
	assert.Nil(t, n0.EdgeTo(4), "direct edge removed")

	assert.Empty(t, e.Row(-1))

	rows := e.Rows(10)
	require.Len(t, rows, 3)
	assert.Equal(t, []*cluster.Entry{entries[0], entries[1], entries[4]}, rowEntries(rows[0]))
	assert.Equal(t, []*cluster.Entry{entries[0], entries[2], entries[4]}, rowEntries(rows[1]))
	assert.Equal(t, []*cluster.Entry{entries[0], entries[3], entries[4]}, rowEntries(rows[2]))
	for i := 1; i < len(rows); i++ {
		assert.NotEqual(t, rowEntries(rows[i-1]), rowEntries(rows[i]))
	}

	for x, c := range rows[1] {
		assert.Equal(t, x, c.X)
		assert.Equal(t, 1, c.Y)
	}

	assert.Equal(t, StateExhausted, e.State())
	assert.Empty(t, e.Row(3))
	assert.Empty(t, e.Row(100))
	assert.Equal(t, StateExhausted, e.State())
	assert.Equal(t, rows[0], e.Row(0), "rows are cached")
	assert.Equal(t, 3, e.Len())
}

func TestDiversifyInflatesPathEdges(t *testing.T) {
	entries := distinctEntries(t, 6)
	g := graphOf(entries, [][3]float64{
		{0, 1, 1}, {1, 2, 0.5}, {2, 3, 1}, {3, 4, 1}, {4, 5, 1},
		{1, 3, 5}, {1, 4, 9},
	})
	cfg := DefaultConfig()
	cfg.DriftStrength = 0
	e := NewEngine(g, 0, 5, WithConfig(cfg))

	row := e.Row(0)
	require.Len(t, row, 6)

	n0, _ := g.Node(0)
	n1, _ := g.Node(1)
	n2, _ := g.Node(2)
	n3, _ := g.Node(3)
	n4, _ := g.Node(4)

	assert.Nil(t, n1.EdgeTo(2), "cheapest consecutive edge removed")
	assert.InDelta(t, 2.0, n0.EdgeTo(1).Weight, 1e-12)
	assert.InDelta(t, 51.0, n2.EdgeTo(3).Weight, 1e-12)
	assert.InDelta(t, 5*26.0, n1.EdgeTo(3).Weight, 1e-9)
	assert.InDelta(t, 9*(1+50.0/3), n1.EdgeTo(4).Weight, 1e-9)
	assert.InDelta(t, 51.0, n3.EdgeTo(4).Weight, 1e-12)
	assert.InDelta(t, 2.0, n4.EdgeTo(5).Weight, 1e-12)
}

func TestDriftTarget(t *testing.T) {
	_, g := threeBranches(t)
	e := NewEngine(g, 0, 4)

	_, ok := e.Drift()
	assert.False(t, ok)

	first := e.Row(0)
	require.Len(t, first, 3)
	d0, ok := e.Drift()
	require.True(t, ok)
	assert.Equal(t, first[1].Entry.Average(), d0)

	second := e.Row(1)
	require.Len(t, second, 3)
	d1, _ := e.Drift()
	mid := second[1].Entry.Average()
	assert.InDelta(t, 0.95*d0.X+0.05*mid.X, d1.X, 1e-12)
	assert.InDelta(t, 0.95*d0.Y+0.05*mid.Y, d1.Y, 1e-12)
	assert.InDelta(t, 0.95*d0.Z+0.05*mid.Z, d1.Z, 1e-12)
	assert.NotEqual(t, rowEntries(first), rowEntries(second))
}

func greyscale(t *testing.T) *cluster.Palette {
	t.Helper()
	p := cluster.NewBuilder().Build([]cluster.Sample{
		solid("white", colour.RGB{R: 255, G: 255, B: 255}),
		solid("gray", colour.RGB{R: 128, G: 128, B: 128}),
		solid("black", colour.RGB{}),
	})
	require.Equal(t, 3, p.Len())
	return p
}

func TestEndToEndWhiteGrayBlack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDiff = 1.0

	for _, v := range []Variant{VariantAverage, VariantDominant} {
		t.Run(v.String(), func(t *testing.T) {
			p := greyscale(t)
			a, _ := p.EntryFor("white")
			b, _ := p.EntryFor("gray")
			c, _ := p.EntryFor("black")

			e := Build(p.Entries(), a, c, v, WithConfig(cfg))
			require.Equal(t, StateActive, e.State())

			na, _ := e.Graph().Node(a.ID)
			nb, _ := e.Graph().Node(b.ID)
			assert.Nil(t, na.EdgeTo(c.ID), "source to destination edge removed")
			assert.Nil(t, nb.EdgeTo(a.ID), "no backward edges")

			assert.Equal(t, []*cluster.Entry{a, b, c}, rowEntries(e.Row(0)))
			assert.Empty(t, e.Row(1))
			assert.Equal(t, StateExhausted, e.State())
		})
	}
}

func TestDegenerateBuilds(t *testing.T) {
	p := greyscale(t)
	white, _ := p.EntryFor("white")
	black, _ := p.EntryFor("black")

	assert.Equal(t, StateExhausted, Build(p.Entries(), white, white, VariantAverage).State())
	assert.Equal(t, StateExhausted, Build(p.Entries(), nil, black, VariantAverage).State())
	assert.Equal(t, StateExhausted, Build(nil, white, black, VariantAverage).State())

	e := Build(p.Entries(), white, black, VariantAverage)
	assert.Empty(t, e.Row(0), "default box is too small to reach any neighbour")
	assert.Equal(t, StateExhausted, e.State())

	assert.Equal(t, StateExhausted, NewEngine(nil, 0, 1).State())
	assert.Equal(t, StateExhausted, NewEngine(plainGraph(2, nil), 0, 7).State())
}

func TestBuildFromSession(t *testing.T) {
	s := cluster.NewStaticSession(greyscale(t))
	cfg := DefaultConfig()
	cfg.MaxDiff = 1.0

	e, err := BuildFromSession(context.Background(), s, "white", "black", VariantAverage, WithConfig(cfg))
	require.NoError(t, err)
	row := e.Row(0)
	require.Len(t, row, 3)
	assert.Equal(t, "gray", row[1].Entry.Label())

	_, err = BuildFromSession(context.Background(), s, "white", "missing", VariantAverage)
	assert.ErrorIs(t, err, ErrUnknownItem)
	_, err = BuildFromSession(context.Background(), s, "missing", "white", VariantAverage)
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestBuildFromSessionEntriesRejectsStaleEndpoints(t *testing.T) {
	generations := [][]cluster.Sample{
		{solid("white", colour.RGB{R: 255, G: 255, B: 255}), solid("gray", colour.RGB{R: 128, G: 128, B: 128}), solid("black", colour.RGB{})},
		{solid("red", colour.RGB{R: 255}), solid("gray", colour.RGB{R: 128, G: 128, B: 128}), solid("black", colour.RGB{})},
	}
	calls := 0
	s := cluster.NewSession(func(context.Context) ([]cluster.Sample, error) {
		samples := generations[min(calls, len(generations)-1)]
		calls++
		return samples, nil
	})
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.MaxDiff = 1.0

	p, err := s.Palette(ctx)
	require.NoError(t, err)
	white, ok := p.EntryFor("white")
	require.True(t, ok)
	black, ok := p.EntryFor("black")
	require.True(t, ok)

	s.Invalidate()
	_, err = BuildFromSessionEntries(ctx, s, white, black, VariantAverage, WithConfig(cfg))
	assert.ErrorIs(t, err, ErrPaletteChanged)

	// Endpoints resolved from the reloaded palette build normally.
	p, err = s.Palette(ctx)
	require.NoError(t, err)
	red, _ := p.EntryFor("red")
	black, _ = p.EntryFor("black")
	e, err := BuildFromSessionEntries(ctx, s, red, black, VariantAverage, WithConfig(cfg))
	require.NoError(t, err)
	assert.Equal(t, StateActive, e.State())
	assert.Equal(t, 2, calls)
}

func TestRandomPaletteProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(31, 32))
	samples := []cluster.Sample{
		solid("black", colour.RGB{}),
		solid("white", colour.RGB{R: 255, G: 255, B: 255}),
	}
	for i := range 60 {
		samples = append(samples, solid(string(rune('A'+i)), colour.RGB{
			R: uint8(r.IntN(256)), G: uint8(r.IntN(256)), B: uint8(r.IntN(256)),
		}))
	}
	p := cluster.NewBuilder().Build(samples)
	black, _ := p.EntryFor("black")
	white, _ := p.EntryFor("white")

	cfg := DefaultConfig()
	cfg.MaxDiff = 0.45
	e := Build(p.Entries(), black, white, VariantAverage, WithConfig(cfg))

	rows := e.Rows(25)
	for i, row := range rows {
		require.GreaterOrEqual(t, len(row), 3)
		assert.Same(t, black, row[0].Entry)
		assert.Same(t, white, row[len(row)-1].Entry)
		if i > 0 {
			assert.NotEqual(t, rowEntries(rows[i-1]), rowEntries(row), "row %d repeats row %d", i, i-1)
		}
	}
	assert.True(t, weightsFinite(e.Graph()))
	assert.Nil(t, e.Graph().FindCycle())
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.InDelta(t, 0.18, cfg.HalfWidth(VariantDominant), 1e-12)
	assert.Equal(t, 0.15, cfg.HalfWidth(VariantAverage))

	assert.Equal(t, 0.0, cfg.EdgeWeight(0, 1))
	assert.Less(t, cfg.EdgeWeight(0.05, 1), cfg.EdgeWeight(0.1, 1))
	assert.Less(t, cfg.EdgeWeight(0.05, 1), cfg.EdgeWeight(0.05, 0.5))
	assert.InDelta(t, 0.1*(math.Exp(3)-1)+0.2*(math.Exp(1.5)-1), cfg.EdgeWeight(0.1, 0.9), 1e-9)
	assert.Equal(t, cfg.MaxEdgeWeight, cfg.EdgeWeight(10, -1))

	bad := cfg
	bad.MaxDiff = 0
	bad.EndpointInflation = 0.5
	bad.InflationSpan = 0
	bad.DriftDecay = 2
	err := bad.Validate()
	require.Error(t, err)
	for _, want := range []string{"max diff", "endpoint inflation", "inflation span", "drift decay"} {
		assert.ErrorContains(t, err, want)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("SWATCHPATH_MAX_DIFF", "0.3")
	t.Setenv("SWATCHPATH_DRIFT_STRENGTH", "0")
	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.MaxDiff)
	assert.Equal(t, 0.0, cfg.DriftStrength)
	assert.Equal(t, DefaultConfig().MinStep, cfg.MinStep)

	t.Setenv("SWATCHPATH_MIN_STEP", "x")
	_, err = ConfigFromEnv()
	assert.Error(t, err)

	t.Setenv("SWATCHPATH_MIN_STEP", "")
	t.Setenv("SWATCHPATH_MAX_DIFF", "-1")
	_, err = ConfigFromEnv()
	assert.Error(t, err)
}
