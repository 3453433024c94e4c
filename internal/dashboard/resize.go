package dashboard

const (
	MinPanelWidth  = 320
	MinPanelHeight = 360
)

var DefaultPanelSize = Size{Width: 400, Height: 560}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Edge is the panel edge being dragged. The panel is anchored to the
// bottom-right corner, so only the left and top edges move.
type Edge string

const (
	EdgeLeft    Edge = "left"
	EdgeTop     Edge = "top"
	EdgeTopLeft Edge = "top-left"
)

func (e Edge) valid() bool {
	return e == EdgeLeft || e == EdgeTop || e == EdgeTopLeft
}

// ResizeState is either idle (Edge empty) or dragging one edge.
type ResizeState struct {
	Edge      Edge    `json:"edge,omitempty"`
	StartX    float64 `json:"start_x,omitempty"`
	StartY    float64 `json:"start_y,omitempty"`
	StartSize Size    `json:"start_size"`
}

func (r ResizeState) Dragging() bool {
	return r.Edge != ""
}

// ClampSize keeps size within [320x360, bounds]. When bounds are smaller than
// the minimum the minimum wins.
func ClampSize(size, bounds Size) Size {
	return Size{
		Width:  clamp(size.Width, MinPanelWidth, bounds.Width),
		Height: clamp(size.Height, MinPanelHeight, bounds.Height),
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi > 0 && v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// dragTo computes the panel size for a pointer at (x, y) during a drag.
func (r ResizeState) dragTo(x, y float64, viewport Size) Size {
	size := r.StartSize
	dx, dy := x-r.StartX, y-r.StartY
	if r.Edge == EdgeLeft || r.Edge == EdgeTopLeft {
		size.Width = r.StartSize.Width - dx
	}
	if r.Edge == EdgeTop || r.Edge == EdgeTopLeft {
		size.Height = r.StartSize.Height - dy
	}
	return ClampSize(size, viewport)
}
