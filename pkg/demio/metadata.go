// Package demio loads and saves DEMs as 16-bit grayscale TIFFs, with
// the georeferencing and elevation scaling kept in a YAML sidecar file
// next to the image (dem.tif goes with dem.yaml).
package demio

import(
	"fmt"
	"io/ioutil"
	"log"
	"math"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/demcompare/pkg/dem"
)

/* Example sidecar file ...

geotransform:
  origin_x: 600000
  origin_y: 4800000
  pixel_size_x: 30
  pixel_size_y: 30
crs: EPSG:32631
scale: 0.1
offset: -500
nodata: 0

*/

// Metadata says how raw pixel values become elevations:
//
//   elevation = raw*Scale + Offset
//
// and where the grid sits on the ground. Pixels equal to NoData are
// invalid; a nil NoData means every pixel is valid.
type Metadata struct {
	Geo    dem.GeoTransform `yaml:"geotransform"`
	CRS    string           `yaml:"crs,omitempty"`
	Scale  float64          `yaml:"scale"`
	Offset float64          `yaml:"offset"`
	NoData *uint16          `yaml:"nodata,omitempty"`
}

func NewMetadata(geo dem.GeoTransform) Metadata {
	return Metadata{Geo: geo, Scale: 1}
}

// FitMetadata picks a scale and offset that spread the valid values of
// `g` over the whole 16-bit range, reserving raw 0 for nodata.
func FitMetadata(g *dem.Grid) Metadata {
	md := NewMetadata(g.Geo)
	md.CRS = g.CRS
	nodata := uint16(0)
	md.NoData = &nodata

	vals := g.ValidValues()
	if len(vals) == 0 {
		return md
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		if v < lo { lo = v }
		if v > hi { hi = v }
	}
	if hi > lo {
		md.Scale = (hi - lo) / float64(math.MaxUint16 - 1)
	}
	// raw 1 lands on lo
	md.Offset = lo - md.Scale
	return md
}

func (md Metadata)Validate() error {
	if !(md.Scale > 0) || math.IsInf(md.Scale, 0) {
		return fmt.Errorf("%w: scale must be positive, got %g", dem.ErrInvalidGrid, md.Scale)
	}
	if math.IsNaN(md.Offset) || math.IsInf(md.Offset, 0) {
		return fmt.Errorf("%w: offset must be finite", dem.ErrInvalidGrid)
	}
	return md.Geo.Validate()
}

func (md Metadata)Elevation(raw uint16) float64 { return float64(raw)*md.Scale + md.Offset }

// Raw quantizes an elevation, clamping to the 16-bit range. A value that
// would land on the nodata code is nudged one step away from it.
func (md Metadata)Raw(elev float64) uint16 {
	r := math.Round((elev - md.Offset) / md.Scale)
	if r < 0 { r = 0 }
	if r > math.MaxUint16 { r = math.MaxUint16 }
	raw := uint16(r)

	if md.NoData != nil && raw == *md.NoData {
		if raw < math.MaxUint16 {
			raw++
		} else {
			raw--
		}
	}
	return raw
}

func (md Metadata)AsYaml() string {
	b, err := yaml.Marshal(md)
	if err != nil {
		log.Fatalf("Can't marshal metadata yaml: %v\n", err)
	}
	return string(b)
}

// SidecarFilename returns the metadata filename that goes with an image
func SidecarFilename(imageFilename string) string {
	return strings.TrimSuffix(imageFilename, filepath.Ext(imageFilename)) + ".yaml"
}

func LoadMetadata(filename string) (Metadata, error) {
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata read '%s': %v", filename, err)
	}

	md := Metadata{Scale: 1}
	if err := yaml.Unmarshal(contents, &md); err != nil {
		return md, fmt.Errorf("metadata parse '%s': %v", filename, err)
	}
	if err := md.Validate(); err != nil {
		return md, fmt.Errorf("metadata '%s': %w", filename, err)
	}
	return md, nil
}

func SaveMetadata(md Metadata, filename string) error {
	if err := ioutil.WriteFile(filename, []byte(md.AsYaml()), 0644); err != nil {
		return fmt.Errorf("metadata write '%s': %v", filename, err)
	}
	return nil
}
