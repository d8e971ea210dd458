package render

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/swatchpath/internal/cluster"
	"github.com/jmylchreest/swatchpath/internal/colour"
	"github.com/jmylchreest/swatchpath/internal/gradient"
)

// EngineFunc builds a fresh engine for a variant.
type EngineFunc func(ctx context.Context, v cluster.Variant) (*gradient.Engine, error)

type reloadEvent struct{}

// view is the scroll position and selected cell of one variant.
type view struct {
	offsetX, offsetY int
	cursorX, cursorY int
}

// Browser is a scrollable terminal view of an engine's rows. Rows are
// generated lazily as they scroll into view. One cell is selected; its
// colour and member items are shown in the status line.
type Browser struct {
	screen  tcell.Screen
	engines EngineFunc
	logger  hclog.Logger

	mu      sync.Mutex
	variant cluster.Variant
	engine  *gradient.Engine
	err     error
	views   map[cluster.Variant]*view

	cellWidth int
}

// BrowserOption configures a Browser.
type BrowserOption func(*Browser)

// WithBrowserLogger sets the logger.
func WithBrowserLogger(l hclog.Logger) BrowserOption {
	return func(b *Browser) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithBrowserVariant sets the initial variant.
func WithBrowserVariant(v cluster.Variant) BrowserOption {
	return func(b *Browser) { b.variant = v }
}

// WithCellWidth sets the character width of a cell.
func WithCellWidth(n int) BrowserOption {
	return func(b *Browser) {
		if n > 0 {
			b.cellWidth = n
		}
	}
}

// NewBrowser creates a browser drawing to an initialised screen.
func NewBrowser(screen tcell.Screen, engines EngineFunc, opts ...BrowserOption) *Browser {
	b := &Browser{
		screen:    screen,
		engines:   engines,
		logger:    hclog.NewNullLogger(),
		cellWidth: 4,
		views:     make(map[cluster.Variant]*view),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Variant returns the variant being shown.
func (b *Browser) Variant() cluster.Variant {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.variant
}

// Offset returns the scroll position in cells.
func (b *Browser) Offset() (x, y int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.view()
	return v.offsetX, v.offsetY
}

// Cursor returns the grid position of the selected cell.
func (b *Browser) Cursor() (x, y int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.view()
	return v.cursorX, v.cursorY
}

// Selected returns the entry under the cursor, or nil if no row is there.
func (b *Browser) Selected() *cluster.Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selected()
}

// view returns the state of the current variant. Callers hold mu.
func (b *Browser) view() *view {
	v, ok := b.views[b.variant]
	if !ok {
		v = &view{}
		b.views[b.variant] = v
	}
	return v
}

// rowLen returns the number of cells in row y, or 0. Callers hold mu.
func (b *Browser) rowLen(y int) int {
	if b.engine == nil {
		return 0
	}
	return len(b.engine.Row(y))
}

func (b *Browser) selected() *cluster.Entry {
	v := b.view()
	if b.engine == nil {
		return nil
	}
	row := b.engine.Row(v.cursorY)
	if v.cursorX < 0 || v.cursorX >= len(row) {
		return nil
	}
	return row[v.cursorX].Entry
}

// Reload asks the event loop to rebuild the engine. It is safe to call from
// any goroutine.
func (b *Browser) Reload() {
	if err := b.screen.PostEvent(tcell.NewEventInterrupt(reloadEvent{})); err != nil {
		b.logger.Debug("dropped reload event", "error", err)
	}
}

// Run shows the grid until the user quits or ctx is cancelled. The caller
// owns the screen and must call Fini.
func (b *Browser) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	b.rebuild(ctx)

	go func() {
		<-ctx.Done()
		_ = b.screen.PostEvent(tcell.NewEventInterrupt(ctx.Err()))
	}()

	for {
		b.Draw()
		switch ev := b.screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			b.screen.Sync()
		case *tcell.EventKey:
			if b.HandleKey(ctx, ev) {
				return nil
			}
		case *tcell.EventMouse:
			b.HandleMouse(ev)
		case *tcell.EventInterrupt:
			switch data := ev.Data().(type) {
			case reloadEvent:
				b.logger.Debug("palette changed, rebuilding")
				b.rebuild(ctx)
			case error:
				return data
			}
		}
	}
}

func (b *Browser) rebuild(ctx context.Context) {
	b.mu.Lock()
	v := b.variant
	b.mu.Unlock()

	engine, err := b.engines(ctx, v)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.engine, b.err = engine, err
	if err != nil {
		b.logger.Warn("failed to build gradient", "variant", v, "error", err)
	}
}

// HandleKey applies a key press and reports whether the browser should quit.
// Arrows and page keys move the cursor; the view scrolls to keep it visible.
func (b *Browser) HandleKey(ctx context.Context, ev *tcell.EventKey) bool {
	b.mu.Lock()
	v := b.view()
	_, h := b.screen.Size()
	page := max(h-1, 1)

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		b.mu.Unlock()
		return true
	case tcell.KeyUp:
		b.moveCursor(v, 0, -1)
	case tcell.KeyDown:
		b.moveCursor(v, 0, 1)
	case tcell.KeyLeft:
		b.moveCursor(v, -1, 0)
	case tcell.KeyRight:
		b.moveCursor(v, 1, 0)
	case tcell.KeyPgUp:
		b.moveCursor(v, 0, -page)
	case tcell.KeyPgDn:
		b.moveCursor(v, 0, page)
	case tcell.KeyHome:
		*v = view{}
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			b.mu.Unlock()
			return true
		case 'v':
			// Each variant keeps its own position.
			if b.variant == cluster.VariantAverage {
				b.variant = cluster.VariantDominant
			} else {
				b.variant = cluster.VariantAverage
			}
			b.mu.Unlock()
			b.rebuild(ctx)
			return false
		}
	}
	b.mu.Unlock()
	return false
}

// HandleMouse selects the clicked cell.
func (b *Browser) HandleMouse(ev *tcell.EventMouse) {
	if ev.Buttons()&tcell.Button1 == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	sx, sy := ev.Position()
	_, h := b.screen.Size()
	if sy >= h-1 {
		return
	}
	v := b.view()
	x, y := v.offsetX+sx/b.cellWidth, v.offsetY+sy
	if x < b.rowLen(y) {
		v.cursorX, v.cursorY = x, y
	}
}

// moveCursor moves the cursor by dx, dy within the generated rows and
// scrolls it into view. Callers hold mu.
func (b *Browser) moveCursor(v *view, dx, dy int) {
	y := max(v.cursorY+dy, 0)
	for y > v.cursorY && b.rowLen(y) == 0 {
		y--
	}
	x := max(v.cursorX+dx, 0)
	if n := b.rowLen(y); n > 0 {
		x = min(x, n-1)
	}
	v.cursorX, v.cursorY = x, y

	w, h := b.screen.Size()
	cols, rows := max(w/b.cellWidth, 1), max(h-1, 1)
	v.offsetX = min(v.offsetX, v.cursorX)
	v.offsetX = max(v.offsetX, v.cursorX-cols+1)
	v.offsetY = min(v.offsetY, v.cursorY)
	v.offsetY = max(v.offsetY, v.cursorY-rows+1)
}

// Draw paints the visible rows, marks the selected cell and writes the
// status line.
func (b *Browser) Draw() {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.screen
	s.Clear()
	w, h := s.Size()
	gridRows := max(h-1, 0)
	v := b.view()

	if b.engine != nil {
		for sy := 0; sy < gridRows; sy++ {
			y := v.offsetY + sy
			row := b.engine.Row(y)
			if row == nil {
				break
			}
			for i := v.offsetX; i < len(row); i++ {
				sx := (i - v.offsetX) * b.cellWidth
				if sx >= w {
					break
				}
				b.drawCell(sx, sy, w, row[i].Entry, i == v.cursorX && y == v.cursorY)
			}
		}
	}

	status := b.status()
	for i, r := range []rune(status) {
		if i >= w {
			break
		}
		s.SetContent(i, h-1, r, nil, tcell.StyleDefault.Reverse(true))
	}
	s.Show()
}

func (b *Browser) drawCell(sx, sy, w int, e *cluster.Entry, selected bool) {
	c := CellColour(e, b.variant)
	fg := colour.ContrastingText(c)
	style := tcell.StyleDefault.
		Background(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))).
		Foreground(tcell.NewRGBColor(int32(fg.R), int32(fg.G), int32(fg.B)))
	for dx := 0; dx < b.cellWidth && sx+dx < w; dx++ {
		ch := ' '
		if selected {
			switch {
			case b.cellWidth == 1:
				ch = '+'
			case dx == 0:
				ch = '['
			case dx == b.cellWidth-1:
				ch = ']'
			}
		}
		b.screen.SetContent(sx+dx, sy, ch, nil, style)
	}
}

func (b *Browser) status() string {
	if b.err != nil {
		return fmt.Sprintf(" %s | error: %v | q quit", b.variant, b.err)
	}
	if b.engine == nil {
		return fmt.Sprintf(" %s | loading", b.variant)
	}
	v := b.view()
	state := fmt.Sprintf("%d rows (%s)", b.engine.Len(), b.engine.State())
	e := b.selected()
	if e == nil {
		return fmt.Sprintf(" %s | %s | arrows move, v variant, q quit", b.variant, state)
	}
	return fmt.Sprintf(" %s | %d,%d %s %s | %s",
		b.variant, v.cursorX, v.cursorY, CellColour(e, b.variant).Hex(), Describe(e), state)
}

// Describe lists an entry's items with their faces, e.g. "oak_log[side,top]".
func Describe(e *cluster.Entry) string {
	items := e.Items()
	parts := make([]string, 0, len(items))
	for _, item := range items {
		label := string(item)
		if faces, ok := e.Facings(item); ok && faces != nil {
			label += "[" + faces.String() + "]"
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, " ")
}
