// Package canvas implements the 2-D text canvas used to render assertion
// failures: a grid of codepoints plus a per-cell style, with the drawing
// primitives the assertion engine composes into drop lines, value boxes and
// overline brackets. Cell styling is a lipgloss.Style, so color collapses to
// a no-op automatically when the renderer is built with an ASCII profile
// (see NewRenderer), matching spec.md 4.H's "no-op when color is disabled".
package canvas

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/width"
)

// Palette cycles the colors used for successive captured values, matching
// taut's fixed-palette rule.
var Palette = []lipgloss.Color{
	lipgloss.Color("2"),  // green
	lipgloss.Color("3"),  // yellow
	lipgloss.Color("6"),  // cyan
	lipgloss.Color("5"),  // magenta
	lipgloss.Color("4"),  // blue
	lipgloss.Color("1"),  // red
}

// ColorFor returns the i-th palette color, cycling.
func ColorFor(i int) lipgloss.Color { return Palette[i%len(Palette)] }

// Important marks a cell that drawing routines must not silently overwrite
// (skip_important), used so value boxes never collide with the expression
// line or with an already-placed box.
type cell struct {
	r         rune
	style     lipgloss.Style
	important bool
	set       bool
}

// Canvas is a grid that grows on demand, rows then columns.
type Canvas struct {
	rows [][]cell
}

// New returns an empty canvas.
func New() *Canvas { return &Canvas{} }

func (c *Canvas) ensureRow(row int) {
	for len(c.rows) <= row {
		c.rows = append(c.rows, nil)
	}
}

func (c *Canvas) ensureCol(row, col int) {
	c.ensureRow(row)
	for len(c.rows[row]) <= col {
		c.rows[row] = append(c.rows[row], cell{r: ' '})
	}
}

// Height reports the number of rows currently allocated.
func (c *Canvas) Height() int { return len(c.rows) }

// Width reports the widest row currently allocated.
func (c *Canvas) Width() int {
	w := 0
	for _, r := range c.rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// DrawString writes text starting at (row, col), widening the row as
// needed. Every written cell is flagged important so later drawing
// (drop lines searching for free space) won't collide with it. A
// full-width codepoint (most CJK, per Unicode East Asian Width) occupies
// two columns, its second cell left unset so a wide glyph isn't split.
func (c *Canvas) DrawString(row, col int, text string, style lipgloss.Style) {
	for _, r := range text {
		c.ensureCol(row, col)
		c.rows[row][col] = cell{r: r, style: style, important: true, set: true}
		col++
		if runeWidth(r) == 2 {
			c.ensureCol(row, col)
			c.rows[row][col] = cell{r: 0, style: style, important: true, set: false}
			col++
		}
	}
}

// runeWidth reports the terminal column width of r: 2 for East-Asian wide
// and fullwidth codepoints, 1 otherwise.
func runeWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}

// DrawRow fills [col, col+width) on row with r, honoring skipImportant.
func (c *Canvas) DrawRow(row, col, width int, r rune, style lipgloss.Style, skipImportant bool) {
	for i := 0; i < width; i++ {
		c.ensureCol(row, col+i)
		if skipImportant && c.rows[row][col+i].important {
			continue
		}
		c.rows[row][col+i] = cell{r: r, style: style, important: true, set: true}
	}
}

// DrawColumn fills [row, row+height) on col with r, honoring skipImportant.
func (c *Canvas) DrawColumn(row, col, height int, r rune, style lipgloss.Style, skipImportant bool) {
	for i := 0; i < height; i++ {
		c.ensureCol(row+i, col)
		if skipImportant && c.rows[row+i][col].important {
			continue
		}
		c.rows[row+i][col] = cell{r: r, style: style, important: true, set: true}
	}
}

// FindFreeSpace locates the first row at or below startRow (advancing by
// vstep when there's no ongoing candidate run) where a height x width
// rectangle, plus a gap-row margin above and below, fits without
// overlapping any important cell in [col, col+width).
func (c *Canvas) FindFreeSpace(startRow, col, height, width, gap, vstep int) int {
	if vstep <= 0 {
		vstep = 1
	}
	row := startRow
	for {
		if c.regionFree(row-gap, col, height+2*gap, width) {
			return row
		}
		row += vstep
		if row > startRow+100000 {
			// Defensive bound: a canvas this tall indicates a caller bug,
			// not a legitimately crowded assertion.
			return row
		}
	}
}

func (c *Canvas) regionFree(row, col, height, width int) bool {
	for r := row; r < row+height; r++ {
		if r < 0 {
			continue
		}
		if r >= len(c.rows) {
			continue
		}
		for cc := col; cc < col+width; cc++ {
			if cc < 0 || cc >= len(c.rows[r]) {
				continue
			}
			if c.rows[r][cc].important {
				return false
			}
		}
	}
	return true
}

// DrawHorBracket draws a horizontal bracket over [col, col+width) on row
// with downward tails of tailLen at both ends and a downward tail at the
// center (the connector to the value box placed below).
func (c *Canvas) DrawHorBracket(row, col, width, tailLen int, style lipgloss.Style) {
	c.DrawRow(row, col, width, '─', style, false)
	c.DrawColumn(row, col, tailLen, '│', style, false)
	c.DrawColumn(row, col+width-1, tailLen, '│', style, false)
	center := col + width/2
	c.DrawColumn(row+1, center, tailLen, '│', style, false)
}

// DrawOverline draws the `╰...╯` bracket used when a nested assertion fails
// mid-evaluation of a marker, pointing at the in-progress subexpression.
func (c *Canvas) DrawOverline(row, col, width int, label string, style lipgloss.Style) {
	c.DrawString(row, col, "╰"+label+"╯", style)
	_ = width
}

// Render walks the grid row by row, collapsing runs of cells that share a
// style into a single lipgloss.Render call, and appends a trailing newline
// per row.
func (c *Canvas) Render() string {
	var b strings.Builder
	for _, row := range c.rows {
		b.WriteString(renderRow(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func renderRow(row []cell) string {
	var b strings.Builder
	i := 0
	for i < len(row) {
		j := i + 1
		for j < len(row) && sameStyle(row[j].style, row[i].style) {
			j++
		}
		var text strings.Builder
		for k := i; k < j; k++ {
			if row[k].set {
				text.WriteRune(row[k].r)
			} else {
				text.WriteRune(' ')
			}
		}
		b.WriteString(row[i].style.Render(text.String()))
		i = j
	}
	return b.String()
}

func sameStyle(a, b lipgloss.Style) bool {
	return a.Render("x") == b.Render("x")
}
