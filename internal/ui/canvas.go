package ui

import (
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
	"github.com/desertthunder/framelabel/internal/workspace"
)

const (
	defaultCanvasCols = 64
	defaultCanvasRows = 18
	defaultFrameW     = 640
	defaultFrameH     = 360
)

var _ workspace.Widget = (*Canvas)(nil)

type cell struct{ col, row int }

// Canvas is a character-grid drawing surface that maps cells onto frame pixels.
//
// In draw mode the first mark sets an anchor corner and the second creates a box spanning both
// cells. In select mode a mark selects the topmost box under the cursor. Only these gestures
// (plus erase and nudge) emit events.
type Canvas struct {
	mu       sync.Mutex
	cols     int
	rows     int
	frameW   int
	frameH   int
	cursor   cell
	anchor   *cell
	selMode  bool
	boxes    []models.Annotation
	selected string
	handlers map[workspace.EventKind][]func(models.Annotation)
}

// NewCanvas returns a canvas of cols × rows cells over a 640x360 frame.
func NewCanvas(cols, rows int) *Canvas {
	if cols <= 0 {
		cols = defaultCanvasCols
	}
	if rows <= 0 {
		rows = defaultCanvasRows
	}
	return &Canvas{
		cols:     cols,
		rows:     rows,
		frameW:   defaultFrameW,
		frameH:   defaultFrameH,
		handlers: make(map[workspace.EventKind][]func(models.Annotation)),
	}
}

func (c *Canvas) On(kind workspace.EventKind, fn func(models.Annotation)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[kind] = append(c.handlers[kind], fn)
}

func (c *Canvas) SetAnnotations(annotations []models.Annotation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boxes = slices.Clone(annotations)
	c.selected = ""
	for _, a := range c.boxes {
		if a.Selected {
			c.selected = a.ID
		}
	}
	c.anchor = nil
}

func (c *Canvas) Select(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = id
}

func (c *Canvas) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boxes = slices.DeleteFunc(c.boxes, func(a models.Annotation) bool { return a.ID == id })
	if c.selected == id {
		c.selected = ""
	}
}

func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boxes = nil
	c.selected = ""
	c.anchor = nil
}

func (c *Canvas) CancelSelected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchor = nil
	c.selected = ""
}

func (c *Canvas) ToggleMode() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selMode = !c.selMode
	c.anchor = nil
}

// SetFrameSize sets the pixel size of the displayed frame. Non-positive values keep the current size.
func (c *Canvas) SetFrameSize(w, h int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w > 0 && h > 0 {
		c.frameW, c.frameH = w, h
	}
}

// Resize changes the grid, keeping the cursor inside it.
func (c *Canvas) Resize(cols, rows int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cols < 8 || rows < 4 {
		return
	}
	c.cols, c.rows = cols, rows
	c.cursor = c.clampLocked(c.cursor)
	c.anchor = nil
}

// Cursor returns the cursor cell.
func (c *Canvas) Cursor() (col, row int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor.col, c.cursor.row
}

// Drawing reports whether an anchor corner has been placed.
func (c *Canvas) Drawing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.anchor != nil
}

// MoveCursor moves the cursor by (dc, dr) cells, clamped to the grid.
func (c *Canvas) MoveCursor(dc, dr int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = c.clampLocked(cell{c.cursor.col + dc, c.cursor.row + dr})
}

// Mark is the primary gesture: place an anchor, finish a box, or select under the cursor.
func (c *Canvas) Mark() {
	c.mu.Lock()
	if c.selMode {
		id := c.hitLocked(c.cursor)
		if id == "" {
			c.mu.Unlock()
			return
		}
		c.selected = id
		ann := c.boxLocked(id)
		c.mu.Unlock()
		c.emit(workspace.EventSelected, ann)
		return
	}

	if c.anchor == nil {
		a := c.cursor
		c.anchor = &a
		c.mu.Unlock()
		return
	}

	ann := c.spanLocked(*c.anchor, c.cursor)
	ann.ID = shared.GenerateID()
	c.anchor = nil
	c.boxes = append(c.boxes, ann)
	c.mu.Unlock()
	c.emit(workspace.EventCreated, ann)
}

// Erase deletes the topmost box under the cursor.
func (c *Canvas) Erase() bool {
	c.mu.Lock()
	id := c.hitLocked(c.cursor)
	if id == "" {
		c.mu.Unlock()
		return false
	}
	ann := c.boxLocked(id)
	c.boxes = slices.DeleteFunc(c.boxes, func(a models.Annotation) bool { return a.ID == id })
	if c.selected == id {
		c.selected = ""
	}
	c.mu.Unlock()
	c.emit(workspace.EventDeleted, ann)
	return true
}

// Nudge moves the selected box by (dc, dr) cells, staying inside the frame.
func (c *Canvas) Nudge(dc, dr int) bool {
	c.mu.Lock()
	i := slices.IndexFunc(c.boxes, func(a models.Annotation) bool { return a.ID == c.selected })
	if i < 0 {
		c.mu.Unlock()
		return false
	}
	a := c.boxes[i]
	cw, ch := c.cellSizeLocked()
	a.X = min(max(a.X+float64(dc)*cw, 0), float64(c.frameW)-a.Width)
	a.Y = min(max(a.Y+float64(dr)*ch, 0), float64(c.frameH)-a.Height)
	c.boxes[i] = a
	c.mu.Unlock()
	c.emit(workspace.EventUpdated, a)
	return true
}

func (c *Canvas) emit(kind workspace.EventKind, a models.Annotation) {
	c.mu.Lock()
	fns := slices.Clone(c.handlers[kind])
	c.mu.Unlock()
	for _, fn := range fns {
		fn(a)
	}
}

func (c *Canvas) clampLocked(p cell) cell {
	return cell{min(max(p.col, 0), c.cols-1), min(max(p.row, 0), c.rows-1)}
}

func (c *Canvas) cellSizeLocked() (float64, float64) {
	return float64(c.frameW) / float64(c.cols), float64(c.frameH) / float64(c.rows)
}

// spanLocked converts the cell rectangle between a and b, inclusive, into a pixel box.
func (c *Canvas) spanLocked(a, b cell) models.Annotation {
	cw, ch := c.cellSizeLocked()
	c0, c1 := min(a.col, b.col), max(a.col, b.col)
	r0, r1 := min(a.row, b.row), max(a.row, b.row)
	return models.Annotation{
		X:      float64(c0) * cw,
		Y:      float64(r0) * ch,
		Width:  float64(c1-c0+1) * cw,
		Height: float64(r1-r0+1) * ch,
	}
}

// cellsLocked returns the inclusive cell range a box covers.
func (c *Canvas) cellsLocked(a models.Annotation) (c0, r0, c1, r1 int) {
	cw, ch := c.cellSizeLocked()
	c0 = min(max(int(a.X/cw), 0), c.cols-1)
	r0 = min(max(int(a.Y/ch), 0), c.rows-1)
	c1 = min(max(int((a.X+a.Width)/cw+0.999)-1, c0), c.cols-1)
	r1 = min(max(int((a.Y+a.Height)/ch+0.999)-1, r0), c.rows-1)
	return
}

// hitLocked returns the id of the last drawn box covering p.
func (c *Canvas) hitLocked(p cell) string {
	for i := len(c.boxes) - 1; i >= 0; i-- {
		c0, r0, c1, r1 := c.cellsLocked(c.boxes[i])
		if p.col >= c0 && p.col <= c1 && p.row >= r0 && p.row <= r1 {
			return c.boxes[i].ID
		}
	}
	return ""
}

func (c *Canvas) boxLocked(id string) models.Annotation {
	for _, a := range c.boxes {
		if a.ID == id {
			return a
		}
	}
	return models.Annotation{}
}

type paint int

const (
	paintEmpty paint = iota
	paintBox
	paintSelected
	paintPreview
	paintCursor
)

// View renders the grid with box outlines, the pending rectangle and the cursor.
func (c *Canvas) View() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	glyphs := make([][]rune, c.rows)
	paints := make([][]paint, c.rows)
	for r := range glyphs {
		glyphs[r] = []rune(strings.Repeat("·", c.cols))
		paints[r] = make([]paint, c.cols)
	}

	outline := func(c0, r0, c1, r1 int, p paint) {
		for col := c0; col <= c1; col++ {
			for _, row := range []int{r0, r1} {
				glyphs[row][col] = '─'
				paints[row][col] = p
			}
		}
		for row := r0; row <= r1; row++ {
			for _, col := range []int{c0, c1} {
				glyphs[row][col] = '│'
				paints[row][col] = p
			}
		}
		glyphs[r0][c0], glyphs[r0][c1], glyphs[r1][c0], glyphs[r1][c1] = '┌', '┐', '└', '┘'
	}

	for _, a := range c.boxes {
		p := paintBox
		if a.ID == c.selected {
			p = paintSelected
		}
		c0, r0, c1, r1 := c.cellsLocked(a)
		outline(c0, r0, c1, r1, p)
	}
	if c.anchor != nil {
		a, b := *c.anchor, c.cursor
		outline(min(a.col, b.col), min(a.row, b.row), max(a.col, b.col), max(a.row, b.row), paintPreview)
	}
	paints[c.cursor.row][c.cursor.col] = paintCursor
	if glyphs[c.cursor.row][c.cursor.col] == '·' {
		glyphs[c.cursor.row][c.cursor.col] = '+'
	}

	var b strings.Builder
	for r := range glyphs {
		if r > 0 {
			b.WriteByte('\n')
		}
		renderRow(&b, glyphs[r], paints[r])
	}
	return styles.canvas.Render(b.String())
}

// renderRow writes runs of equally painted cells with one style call each.
func renderRow(b *strings.Builder, glyphs []rune, paints []paint) {
	start := 0
	for i := 1; i <= len(glyphs); i++ {
		if i < len(glyphs) && paints[i] == paints[start] {
			continue
		}
		b.WriteString(paintStyle(paints[start]).Render(string(glyphs[start:i])))
		start = i
	}
}

func paintStyle(p paint) lipgloss.Style {
	switch p {
	case paintBox:
		return styles.box
	case paintSelected:
		return styles.selected
	case paintPreview:
		return styles.preview
	case paintCursor:
		return styles.cursor
	default:
		return styles.help
	}
}
