// Package mouse tracks the position of the pointer driven by relative
// movement reports from a USB mouse.
package mouse

// Initial pointer position.
const (
	InitialX = 200
	InitialY = 100
)

// Renderer draws the pointer. It is implemented by the graphics layer.
type Renderer interface {
	// Erase restores the screen contents under a pointer drawn at (x, y).
	Erase(x, y int)

	// Draw renders the pointer with its hot spot at (x, y).
	Draw(x, y int)
}

// Cursor is the pointer position on a screen of fixed size.
type Cursor struct {
	renderer      Renderer
	width, height int
	x, y          int
}

// NewCursor returns a cursor for a width x height screen placed at the
// initial position and draws it. renderer may be nil.
func NewCursor(renderer Renderer, width, height int) Cursor {
	c := Cursor{
		renderer: renderer,
		width:    width,
		height:   height,
	}
	c.x, c.y = c.clamp(InitialX, InitialY)

	if c.renderer != nil {
		c.renderer.Draw(c.x, c.y)
	}

	return c
}

// Position returns the current pointer position.
func (c *Cursor) Position() (x, y int) {
	return c.x, c.y
}

// MoveRelative displaces the pointer by (dx, dy). The pointer never leaves
// the screen.
func (c *Cursor) MoveRelative(dx, dy int8) {
	x, y := c.clamp(c.x+int(dx), c.y+int(dy))
	if x == c.x && y == c.y {
		return
	}

	if c.renderer != nil {
		c.renderer.Erase(c.x, c.y)
	}

	c.x, c.y = x, y

	if c.renderer != nil {
		c.renderer.Draw(c.x, c.y)
	}
}

func (c *Cursor) clamp(x, y int) (int, int) {
	return clampAxis(x, c.width), clampAxis(y, c.height)
}

func clampAxis(v, size int) int {
	switch {
	case v < 0, size <= 0:
		return 0
	case v >= size:
		return size - 1
	default:
		return v
	}
}
