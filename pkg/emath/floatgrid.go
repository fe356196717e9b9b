package emath

import(
	"fmt"
	"math"
)

// A FloatGrid is a grid of floats, stored row-major in a flat slice
// with a stride, with some operations
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

// NewFloatGridFrom wraps an existing row-major slice; len(values) must be w*h.
func NewFloatGridFrom(w, h int, values []float64) (FloatGrid, error) {
	if w <= 0 || h <= 0 {
		return FloatGrid{}, fmt.Errorf("grid dimensions must be positive, got %dx%d", w, h)
	}
	if len(values) != w*h {
		return FloatGrid{}, fmt.Errorf("grid %dx%d needs %d values, got %d", w, h, w*h, len(values))
	}
	return FloatGrid{stride: w, values: values}, nil
}

func (fg *FloatGrid)Get(x, y int) float64    { return fg.values[fg.stride*y + x] }
func (fg *FloatGrid)Index(x, y int) int      { return fg.stride*y + x }
func (fg *FloatGrid)Dx() int                 { return fg.stride }
func (fg *FloatGrid)Len() int                { return len(fg.values) }
func (fg *FloatGrid)At(i int) float64        { return fg.values[i] }
func (fg *FloatGrid)SetAt(i int, v float64)  { fg.values[i] = v }

func (fg *FloatGrid)Dy() int {
	if fg.stride == 0 { return 0 }
	return len(fg.values) / fg.stride
}

func (fg *FloatGrid)In(x, y int) bool {
	return x >= 0 && y >= 0 && x < fg.Dx() && y < fg.Dy()
}

func (g1 *FloatGrid)Copy() *FloatGrid {
	g2 := FloatGrid{stride: g1.stride, values:make([]float64, len(g1.values))}
	copy(g2.values, g1.values)
	return &g2
}

// Collect returns the values whose index passes `keep`, in index
// order. Validity is decided by the caller; no value (in particular
// 0.0) is treated as special here.
func (fg *FloatGrid)Collect(keep func(i int) bool) []float64 {
	out := []float64{}
	for i:=0; i<len(fg.values); i++ {
		if keep(i) {
			out = append(out, fg.values[i])
		}
	}
	return out
}

// A BilinearTap is one of the (up to four) grid cells contributing to
// an interpolated value.
type BilinearTap struct {
	X, Y   int
	Weight float64
}

// snapEps absorbs floating point noise when a sample position lands on a node.
const snapEps = 1e-9

// BilinearTaps returns the cells, and their weights, needed to
// interpolate at the fractional grid position (x,y), where integer
// positions are cell nodes. Cells with zero weight are omitted, so a
// sample exactly on a node needs only that node. The bool is false
// if any needed cell falls outside the grid.
func (fg *FloatGrid)BilinearTaps(x, y float64) ([]BilinearTap, bool) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return nil, false
	}
	if r := math.Round(x); math.Abs(x-r) < snapEps { x = r }
	if r := math.Round(y); math.Abs(y-r) < snapEps { y = r }

	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)

	taps := make([]BilinearTap, 0, 4)
	cand := []BilinearTap{
		{ix,   iy,   (1-fx)*(1-fy)},
		{ix+1, iy,   fx*(1-fy)},
		{ix,   iy+1, (1-fx)*fy},
		{ix+1, iy+1, fx*fy},
	}
	for _, t := range cand {
		if t.Weight == 0 {
			continue
		}
		if !fg.In(t.X, t.Y) {
			return nil, false
		}
		taps = append(taps, t)
	}
	return taps, true
}
