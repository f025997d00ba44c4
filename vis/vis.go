// Package vis renders disparity grids and fitted mesh layouts to image files.
// It only reads pipeline outputs.
package vis

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"go.viam.com/depthmesh/mesh"
	"go.viam.com/depthmesh/rimage"
)

const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// disparityGrid adapts a DisparityMap to plotter.GridXYZ.
type disparityGrid struct {
	dm *rimage.DisparityMap
}

func (g disparityGrid) Dims() (c, r int)   { return g.dm.Cols(), g.dm.Rows() }
func (g disparityGrid) Z(c, r int) float64 { return g.dm.At(r, c) }
func (g disparityGrid) X(c int) float64    { return float64(c) }
func (g disparityGrid) Y(r int) float64    { return float64(r) }

// DisparityHeatMap writes a heat map of the grid, row 0 at the top. The image
// format follows the extension of path.
func DisparityHeatMap(dm *rimage.DisparityMap, path string) error {
	if dm == nil || dm.Size() == 0 {
		return errors.Wrap(rimage.ErrMalformedGrid, "nothing to plot")
	}
	lo, hi, ok := dm.MinMax()
	if !ok {
		return errors.New("disparity grid has no finite values to plot")
	}

	colors := moreland.SmoothBlueRed()
	colors.SetMin(0)
	colors.SetMax(1)
	hm := plotter.NewHeatMap(disparityGrid{dm: dm}, colors.Palette(255))
	hm.NaN = color.Transparent
	if hi == lo {
		lo, hi = lo-0.5, hi+0.5
	}
	hm.Min, hm.Max = lo, hi

	p := plot.New()
	p.Title.Text = "Disparity"
	p.X.Label.Text = "column"
	p.Y.Label.Text = "row"
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Add(hm)
	return errors.Wrapf(p.Save(plotWidth, plotHeight, path), "saving %q", path)
}

// relative edge length error at which an edge is drawn fully in badEdge
const saturatingError = 0.1

var (
	goodEdge = colorful.Color{R: 0.1, G: 0.3, B: 0.8}
	badEdge  = colorful.Color{R: 0.9, G: 0.1, B: 0.1}
)

// EdgeColor shades an edge from blue to red by how far its current length is
// from the length implied by its squared target.
func EdgeColor(a, b r3.Vector, target float64) color.Color {
	want := math.Sqrt(target)
	if want == 0 || math.IsNaN(want) {
		return goodEdge
	}
	t := math.Min(1, math.Abs(a.Sub(b).Norm()-want)/want/saturatingError)
	return goodEdge.BlendLab(badEdge, t).Clamped()
}

// edgeLines draws every mesh edge as a straight segment between two offsets.
type edgeLines struct {
	points []r3.Vector
	edges  []mesh.Edge
	draw.LineStyle
}

func (el *edgeLines) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	sty := el.LineStyle
	for _, e := range el.edges {
		a, b := el.points[e.A], el.points[e.B]
		sty.Color = EdgeColor(a, b, e.Target)
		c.StrokeLine2(sty, trX(a.X), trY(a.Y), trX(b.X), trY(b.Y))
	}
}

func (el *edgeLines) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for _, p := range el.points {
		xmin, xmax = math.Min(xmin, p.X), math.Max(xmax, p.X)
		ymin, ymax = math.Min(ymin, p.Y), math.Max(ymax, p.Y)
	}
	return xmin, xmax, ymin, ymax
}

// Wireframe writes the x/y projection of a mesh layout with the y axis pointing
// down, like image coordinates. Edges are colored by EdgeColor.
func Wireframe(offsets []r3.Vector, edges []mesh.Edge, title, path string) error {
	if len(offsets) == 0 {
		return errors.New("no offsets to plot")
	}
	for _, e := range edges {
		if e.A < 0 || e.B < 0 || e.A >= len(offsets) || e.B >= len(offsets) {
			return errors.Errorf("edge (%d, %d) is out of range for %d offsets", e.A, e.B, len(offsets))
		}
	}
	for i, o := range offsets {
		if math.IsNaN(o.X) || math.IsNaN(o.Y) || math.IsInf(o.X, 0) || math.IsInf(o.Y, 0) {
			return errors.Errorf("offset %d is not finite", i)
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Add(plotter.NewGrid())

	lines := &edgeLines{points: offsets, edges: edges, LineStyle: plotter.DefaultLineStyle}
	lines.Width = vg.Points(0.5)
	p.Add(lines)

	verts := make(plotter.XYs, len(offsets))
	for i, o := range offsets {
		verts[i] = plotter.XY{X: o.X, Y: o.Y}
	}
	scatter, err := plotter.NewScatter(verts)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Radius = vg.Points(1)
	scatter.GlyphStyle.Color = color.RGBA{R: 200, A: 255}
	p.Add(scatter)

	return errors.Wrapf(p.Save(plotWidth, plotHeight, path), "saving %q", path)
}
