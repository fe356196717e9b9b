package dem

import(
	"fmt"
	"math"

	"github.com/abworrall/demcompare/pkg/emath"
)

// A GeoTransform maps grid indices to ground coordinates. The origin is
// the outer (north west) corner of cell (0,0); rows run southwards.
// Pixel sizes are always positive.
type GeoTransform struct {
	OriginX    float64 `yaml:"origin_x"`
	OriginY    float64 `yaml:"origin_y"`
	PixelSizeX float64 `yaml:"pixel_size_x"`
	PixelSizeY float64 `yaml:"pixel_size_y"`
	RotationX  float64 `yaml:"rotation_x,omitempty"` // contribution of the row index to x
	RotationY  float64 `yaml:"rotation_y,omitempty"` // contribution of the column index to y
}

// NorthUp returns a transform with no rotation.
func NorthUp(originX, originY, pixelSizeX, pixelSizeY float64) GeoTransform {
	return GeoTransform{OriginX:originX, OriginY:originY, PixelSizeX:pixelSizeX, PixelSizeY:pixelSizeY}
}

// GeoTransformFromMatrix is the inverse of Matrix; it is how rotated
// grids get built.
func GeoTransformFromMatrix(m emath.Aff3) GeoTransform {
	return GeoTransform{
		OriginX:    m[2],
		OriginY:    m[5],
		PixelSizeX: m[0],
		PixelSizeY: -1*m[4],
		RotationX:  m[1],
		RotationY:  m[3],
	}
}

// Matrix maps continuous pixel coords (col,row) to ground (x,y)
func (gt GeoTransform)Matrix() emath.Aff3 {
	// Rows run south, then the whole lot gets moved to the origin
	scale := emath.Aff3{gt.PixelSizeX, gt.RotationX, 0,   gt.RotationY, -1*gt.PixelSizeY, 0}
	return emath.Identity().Translate(gt.OriginX, gt.OriginY).Mult(scale)
}

func (gt GeoTransform)Validate() error {
	for _, v := range []float64{gt.OriginX, gt.OriginY, gt.PixelSizeX, gt.PixelSizeY, gt.RotationX, gt.RotationY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite geotransform %+v", ErrInvalidGrid, gt)
		}
	}
	if gt.PixelSizeX <= 0 || gt.PixelSizeY <= 0 {
		return fmt.Errorf("%w: pixel size must be positive, got %gx%g", ErrInvalidGrid, gt.PixelSizeX, gt.PixelSizeY)
	}
	if _, err := gt.Matrix().Invert(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGrid, err)
	}
	return nil
}

// A Grid is a raster of elevations (or elevation differences) with an
// explicit validity mask. Validity only ever comes from the mask; a
// value of 0.0 is a perfectly good measurement.
type Grid struct {
	emath.FloatGrid
	Valid  []bool
	Geo    GeoTransform
	CRS    string   // opaque, passed through
	NoData float64  // the sentinel used on input/output; not consulted for validity
}

// NewGrid returns a w*h grid with every cell invalid.
func NewGrid(w, h int, geo GeoTransform) *Grid {
	return &Grid{
		FloatGrid: emath.NewFloatGrid(w, h),
		Valid:     make([]bool, w*h),
		Geo:       geo,
		NoData:    math.NaN(),
	}
}

// NewGridFromValues builds a grid from row-major values, treating NaN,
// and cells equal to `nodata`, as invalid. Pass NaN as nodata to only
// mask NaNs. The values slice is copied.
func NewGridFromValues(w, h int, values []float64, nodata float64, geo GeoTransform) (*Grid, error) {
	valid := make([]bool, len(values))
	for i, v := range values {
		valid[i] = !math.IsNaN(v) && (math.IsNaN(nodata) || v != nodata)
	}
	g, err := NewGridWithMask(w, h, values, valid, geo)
	if err != nil {
		return nil, err
	}
	g.NoData = nodata
	return g, nil
}

// NewGridWithMask builds a grid from row-major values and an explicit
// validity mask. Both slices are copied.
func NewGridWithMask(w, h int, values []float64, valid []bool, geo GeoTransform) (*Grid, error) {
	vals := make([]float64, len(values))
	copy(vals, values)
	fg, err := emath.NewFloatGridFrom(w, h, vals)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGrid, err)
	}
	if len(valid) != len(values) {
		return nil, fmt.Errorf("%w: mask has %d cells, values have %d", ErrInvalidGrid, len(valid), len(values))
	}
	mask := make([]bool, len(valid))
	copy(mask, valid)

	g := &Grid{FloatGrid: fg, Valid: mask, Geo: geo, NoData: math.NaN()}
	return g, g.Validate()
}

// Validate checks shape, mask and geotransform consistency.
func (g *Grid)Validate() error {
	if g == nil {
		return fmt.Errorf("%w: nil grid", ErrInvalidGrid)
	}
	if g.Dx() <= 0 || g.Dy() <= 0 || g.Dx()*g.Dy() != g.Len() {
		return fmt.Errorf("%w: bad shape %dx%d (%d values)", ErrInvalidGrid, g.Dx(), g.Dy(), g.Len())
	}
	if len(g.Valid) != g.Len() {
		return fmt.Errorf("%w: mask has %d cells, grid has %d", ErrInvalidGrid, len(g.Valid), g.Len())
	}
	return g.Geo.Validate()
}

func (g *Grid)String() string {
	return fmt.Sprintf("Grid[%dx%d, %d valid, %s]", g.Dx(), g.Dy(), g.CountValid(), g.Geo.Matrix())
}

func (g *Grid)IsValid(x, y int) bool { return g.Valid[g.Index(x, y)] }
func (g *Grid)Invalidate(x, y int)  { g.Valid[g.Index(x, y)] = false }

// SetValue stores v and marks the cell valid
func (g *Grid)SetValue(x, y int, v float64) {
	i := g.Index(x, y)
	g.SetAt(i, v)
	g.Valid[i] = true
}

func (g *Grid)CountValid() int {
	n := 0
	for _, v := range g.Valid {
		if v { n++ }
	}
	return n
}

// ValidValues returns the values of all valid cells, in row-major order
func (g *Grid)ValidValues() []float64 {
	return g.Collect(func(i int) bool { return g.Valid[i] })
}

// Clone returns a deep copy
func (g *Grid)Clone() *Grid {
	g2 := *g
	g2.FloatGrid = *g.FloatGrid.Copy()
	g2.Valid = make([]bool, len(g.Valid))
	copy(g2.Valid, g.Valid)
	return &g2
}

// NewFromThis returns an all-invalid grid with the same shape and georeferencing
func (g *Grid)NewFromThis() *Grid {
	g2 := NewGrid(g.Dx(), g.Dy(), g.Geo)
	g2.CRS = g.CRS
	g2.NoData = g.NoData
	return g2
}

func (g *Grid)SameShape(g2 *Grid) bool { return g.Dx() == g2.Dx() && g.Dy() == g2.Dy() }

// CellCenter returns the ground coords of the centre of cell (x,y)
func (g *Grid)CellCenter(x, y int) (float64, float64) {
	return g.Geo.Matrix().Apply(float64(x)+0.5, float64(y)+0.5)
}

// GroundToCell maps ground coords to fractional cell coords, where
// integer results land on cell centres.
func (g *Grid)GroundToCell(gx, gy float64) (float64, float64, error) {
	inv, err := g.Geo.Matrix().Invert()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidGrid, err)
	}
	u, v := inv.Apply(gx, gy)
	return u-0.5, v-0.5, nil
}

// Sample bilinearly interpolates at fractional cell coords. The bool
// is false if a contributing cell is out of range or invalid.
func (g *Grid)Sample(x, y float64) (float64, bool) {
	taps, ok := g.BilinearTaps(x, y)
	if !ok {
		return 0, false
	}
	sum := 0.0
	for _, t := range taps {
		i := g.Index(t.X, t.Y)
		if !g.Valid[i] {
			return 0, false
		}
		sum += t.Weight * g.At(i)
	}
	return sum, true
}

// Difference returns sec - ref over cells valid in both. The grids must
// share a shape; the result takes the reference's georeferencing.
func Difference(ref, sec *Grid) (*Grid, error) {
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	if err := sec.Validate(); err != nil {
		return nil, fmt.Errorf("secondary: %w", err)
	}
	if !ref.SameShape(sec) {
		return nil, fmt.Errorf("%w: shape mismatch %dx%d vs %dx%d", ErrInvalidGrid, ref.Dx(), ref.Dy(), sec.Dx(), sec.Dy())
	}

	dh := ref.NewFromThis()
	for i:=0; i<ref.Len(); i++ {
		if ref.Valid[i] && sec.Valid[i] {
			dh.SetAt(i, sec.At(i) - ref.At(i))
			dh.Valid[i] = true
		}
	}
	return dh, nil
}
