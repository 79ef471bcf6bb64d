// Package surface maps screen positions to drive commands. The six
// arrow triangles are rasterised once into an offscreen byte buffer
// whose "pixels" hold command codes, so a pointer lookup is a single
// indexed read no matter what the visible arrows look like.
package surface

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/seagrayinc/usbcar/internal/car"
)

// Stock canvas and arrow parameters.
const (
	DefaultWidth  = 240
	DefaultHeight = 180
	DefaultK      = 0.8
	DefaultW      = 10
)

// Triangle is one arrow outline, tip first.
type Triangle [3]mgl64.Vec2

// Arrows generates the six direction arrows for a width×height canvas,
// in car.Directions order. k scales the radial offset of the tips from
// the canvas centre and w is the arrow half-width.
func Arrows(width, height int, k, w float64) [6]Triangle {
	x := float64(width) / 2
	y := float64(height) / 2
	rx := x * k
	ry := y * k
	s := math.Sqrt2

	return [6]Triangle{
		{ // forward, top
			{x, y - ry},
			{x - w, y - ry + w},
			{x + w, y - ry + w},
		},
		{ // right, upper right
			{x + rx/s, y - ry/s},
			{x + rx/s - w*s, y - ry/s},
			{x + rx/s, y - ry/s + w*s},
		},
		{ // reverse right, lower right
			{x + rx/s, y + ry/s},
			{x + rx/s, y + ry/s - w*s},
			{x + rx/s - w*s, y + ry/s},
		},
		{ // reverse, bottom
			{x, y + ry},
			{x - w, y + ry - w},
			{x + w, y + ry - w},
		},
		{ // reverse left, lower left
			{x - rx/s, y + ry/s},
			{x - rx/s + w*s, y + ry/s},
			{x - rx/s, y + ry/s - w*s},
		},
		{ // left, upper left
			{x - rx/s, y - ry/s},
			{x - rx/s, y - ry/s + w*s},
			{x - rx/s + w*s, y - ry/s},
		},
	}
}

// Surface is the precomputed hit-test buffer. It is immutable once
// built and decoupled from whatever is actually painted on screen.
type Surface struct {
	width, height int
	arrows        [6]Triangle
	buf           []byte
}

// New rasterises the arrows into a fresh command buffer. dirs is
// positional: dirs[i] becomes the command of the i-th arrow. The
// background is car.Stop.
func New(width, height int, k, w float64, dirs [6]car.Direction) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("surface: invalid canvas %dx%d", width, height)
	}
	s := &Surface{
		width:  width,
		height: height,
		arrows: Arrows(width, height, k, w),
		buf:    make([]byte, width*height), // zeroed, i.e. car.Stop
	}
	for i, tri := range s.arrows {
		s.fill(tri, byte(dirs[i]))
	}
	return s, nil
}

// NewDefault builds the stock 240×180 surface with the canonical
// direction order.
func NewDefault() *Surface {
	s, err := New(DefaultWidth, DefaultHeight, DefaultK, DefaultW, car.Directions)
	if err != nil {
		panic(err) // static parameters, cannot fail
	}
	return s
}

// Arrows returns the generated geometry for external renderers.
func (s *Surface) Arrows() [6]Triangle { return s.arrows }

// Size returns the canvas dimensions.
func (s *Surface) Size() (width, height int) { return s.width, s.height }

// Lookup resolves a pointer position to a command. Positions are
// clamped onto the canvas; anything outside the six arrows resolves to
// car.Stop.
func (s *Surface) Lookup(x, y int) car.Direction {
	x = clamp(x, 0, s.width-1)
	y = clamp(y, 0, s.height-1)
	return car.Direction(s.buf[y*s.width+x])
}

func (s *Surface) fill(t Triangle, code byte) {
	minX := clamp(int(math.Floor(min3(t[0].X(), t[1].X(), t[2].X()))), 0, s.width-1)
	maxX := clamp(int(math.Ceil(max3(t[0].X(), t[1].X(), t[2].X()))), 0, s.width-1)
	minY := clamp(int(math.Floor(min3(t[0].Y(), t[1].Y(), t[2].Y()))), 0, s.height-1)
	maxY := clamp(int(math.Ceil(max3(t[0].Y(), t[1].Y(), t[2].Y()))), 0, s.height-1)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if contains(t, mgl64.Vec2{float64(x), float64(y)}) {
				s.buf[y*s.width+x] = code
			}
		}
	}
}

// contains reports whether p lies inside t, edges included. The sign
// test works for either winding.
func contains(t Triangle, p mgl64.Vec2) bool {
	d1 := edge(p, t[0], t[1])
	d2 := edge(p, t[1], t[2])
	d3 := edge(p, t[2], t[0])

	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

func edge(p, a, b mgl64.Vec2) float64 {
	return (p.X()-b.X())*(a.Y()-b.Y()) - (a.X()-b.X())*(p.Y()-b.Y())
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min3(a, b, c float64) float64 { return math.Min(a, math.Min(b, c)) }

func max3(a, b, c float64) float64 { return math.Max(a, math.Max(b, c)) }
