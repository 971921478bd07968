// Package ui holds the few immediate-mode widgets drawn over the flock view.
package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	widgetHeight = 20
	charWidth    = 6 // debug font glyph width
	padding      = 6
	spacing      = 8

	// ToolbarHeight is the height of a Toolbar including its padding.
	ToolbarHeight = widgetHeight + 2*padding
)

var (
	bgColor     = color.RGBA{R: 30, G: 30, B: 40, A: 200}
	borderColor = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	hoverColor  = color.RGBA{R: 100, G: 150, B: 220, A: 255}
	buttonColor = color.RGBA{R: 80, G: 120, B: 180, A: 255}
	checkColor  = color.RGBA{R: 100, G: 200, B: 100, A: 255}
)

// Widget is anything the Toolbar can lay out in a row.
type Widget interface {
	Label() string
	Width() float64
	// Click is called when the left button is released over the widget.
	Click()
	Draw(screen *ebiten.Image, x, y float64, hover bool)
}

// Button calls OnClick every time it is clicked.
type Button struct {
	Text    string
	OnClick func()
}

func (b *Button) Label() string  { return b.Text }
func (b *Button) Width() float64 { return float64(len(b.Text)*charWidth + 2*padding) }

func (b *Button) Click() {
	if b.OnClick != nil {
		b.OnClick()
	}
}

func (b *Button) Draw(screen *ebiten.Image, x, y float64, hover bool) {
	bg := buttonColor
	if hover {
		bg = hoverColor
	}
	vector.FillRect(screen, float32(x), float32(y), float32(b.Width()), widgetHeight, bg, true)
	vector.StrokeRect(screen, float32(x), float32(y), float32(b.Width()), widgetHeight, 1, borderColor, true)
	ebitenutil.DebugPrintAt(screen, b.Text, int(x)+padding, int(y)+2)
}

// Toggle is a labelled checkbox. OnChange, if set, receives the new value.
type Toggle struct {
	Text     string
	Value    bool
	OnChange func(bool)
}

func (t *Toggle) Label() string  { return t.Text }
func (t *Toggle) Width() float64 { return widgetHeight + float64(len(t.Text)*charWidth+padding) }

func (t *Toggle) Click() {
	t.Value = !t.Value
	if t.OnChange != nil {
		t.OnChange(t.Value)
	}
}

func (t *Toggle) Draw(screen *ebiten.Image, x, y float64, hover bool) {
	box := float32(widgetHeight - 4)
	border := borderColor
	if hover {
		border = hoverColor
	}
	vector.StrokeRect(screen, float32(x)+2, float32(y)+2, box, box, 2, border, true)
	if t.Value {
		vector.FillRect(screen, float32(x)+5, float32(y)+5, box-6, box-6, checkColor, true)
	}
	ebitenutil.DebugPrintAt(screen, t.Text, int(x)+widgetHeight+padding/2, int(y)+2)
}

// Toolbar lays its widgets out left to right along the bottom edge.
type Toolbar struct {
	Widgets []Widget
	x, y    float64
	hovered int
}

// NewToolbar creates a toolbar whose top-left corner is at (x, y).
func NewToolbar(x, y float64, widgets ...Widget) *Toolbar {
	return &Toolbar{Widgets: widgets, x: x, y: y, hovered: -1}
}

func (tb *Toolbar) Height() float64 { return ToolbarHeight }

// Width of the bar including its padding.
func (tb *Toolbar) Width() float64 {
	w := float64(padding)
	for _, wd := range tb.Widgets {
		w += wd.Width() + spacing
	}
	return w - spacing + padding
}

// Contains reports whether the point lies on the bar.
func (tb *Toolbar) Contains(x, y float64) bool {
	return x >= tb.x && x < tb.x+tb.Width() && y >= tb.y && y < tb.y+tb.Height()
}

// WidgetAt returns the index of the widget under the point, or -1.
func (tb *Toolbar) WidgetAt(x, y float64) int {
	if y < tb.y+padding || y >= tb.y+padding+widgetHeight {
		return -1
	}
	left := tb.x + padding
	for i, wd := range tb.Widgets {
		if x >= left && x < left+wd.Width() {
			return i
		}
		left += wd.Width() + spacing
	}
	return -1
}

// Update tracks the hovered widget and fires clicks. It reports whether the
// cursor is over the bar, so callers can ignore that mouse input.
func (tb *Toolbar) Update() bool {
	mx, my := ebiten.CursorPosition()
	x, y := float64(mx), float64(my)
	tb.hovered = tb.WidgetAt(x, y)
	if tb.hovered >= 0 && inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		tb.Widgets[tb.hovered].Click()
	}
	return tb.Contains(x, y)
}

func (tb *Toolbar) Draw(screen *ebiten.Image) {
	vector.FillRect(screen, float32(tb.x), float32(tb.y), float32(tb.Width()), float32(tb.Height()), bgColor, true)
	left := tb.x + padding
	for i, wd := range tb.Widgets {
		wd.Draw(screen, left, tb.y+padding, i == tb.hovered)
		left += wd.Width() + spacing
	}
}
