package demio

import(
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"golang.org/x/image/tiff"

	"github.com/abworrall/demcompare/pkg/dem"
)

// Decode reads a grayscale TIFF and turns it into an elevation grid.
// 8-bit images are widened to 16 bits as raw values, not rescaled.
func Decode(r io.Reader, md Metadata) (*dem.Grid, error) {
	if err := md.Validate(); err != nil {
		return nil, err
	}

	img, err := tiff.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("tiff decode: %v", err)
	}

	b := img.Bounds()
	g := dem.NewGrid(b.Dx(), b.Dy(), md.Geo)
	g.CRS = md.CRS
	if md.NoData != nil {
		g.NoData = md.Elevation(*md.NoData)
	}

	for y:=0; y<b.Dy(); y++ {
		for x:=0; x<b.Dx(); x++ {
			raw := rawAt(img, b.Min.X+x, b.Min.Y+y)
			if md.NoData != nil && raw == *md.NoData {
				continue
			}
			g.SetValue(x, y, md.Elevation(raw))
		}
	}

	return g, nil
}

func rawAt(img image.Image, x, y int) uint16 {
	switch i := img.(type) {
	case *image.Gray16: return i.Gray16At(x, y).Y
	case *image.Gray:   return uint16(i.GrayAt(x, y).Y)
	default:            return color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y
	}
}

// Encode quantizes the grid into a 16-bit grayscale TIFF. Invalid cells
// are written as md.NoData, which must be set if any cell is invalid.
func Encode(w io.Writer, g *dem.Grid, md Metadata) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if err := md.Validate(); err != nil {
		return err
	}
	if md.NoData == nil && g.CountValid() < g.Len() {
		return fmt.Errorf("%w: grid has invalid cells but the metadata has no nodata value", dem.ErrInvalidGrid)
	}

	img := image.NewGray16(image.Rectangle{Max:image.Point{g.Dx(), g.Dy()}})
	for y:=0; y<g.Dy(); y++ {
		for x:=0; x<g.Dx(); x++ {
			raw := uint16(0)
			if g.IsValid(x, y) {
				raw = md.Raw(g.Get(x, y))
			} else {
				raw = *md.NoData
			}
			img.SetGray16(x, y, color.Gray16{Y: raw})
		}
	}

	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
}

// Load reads a DEM image and its sidecar metadata
func Load(filename string) (*dem.Grid, error) {
	md, err := LoadMetadata(SidecarFilename(filename))
	if err != nil {
		return nil, err
	}

	reader, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r '%s': %v", filename, err)
	}
	defer reader.Close()

	g, err := Decode(reader, md)
	if err != nil {
		return nil, fmt.Errorf("load '%s': %w", filename, err)
	}
	return g, nil
}

// Save writes the grid as a TIFF plus sidecar, with a scale fitted to
// its values. It returns the metadata used.
func Save(g *dem.Grid, filename string) (Metadata, error) {
	md := FitMetadata(g)

	writer, err := os.Create(filename)
	if err != nil {
		return md, fmt.Errorf("open+w '%s': %v", filename, err)
	}
	defer writer.Close()

	if err := Encode(writer, g, md); err != nil {
		return md, fmt.Errorf("save '%s': %w", filename, err)
	}
	return md, SaveMetadata(md, SidecarFilename(filename))
}
