package pointcloud

import (
	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// WriteToLASFile writes the finite points of the cloud to a LAS file. LAS stores
// scaled integers, so coordinates lose precision below the file's scale factor
// and non-finite points cannot be represented at all.
func WriteToLASFile(cloud PointCloud, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return
	}
	defer func() {
		cerr := lf.Close()
		err = multierr.Combine(err, cerr)
	}()

	if err = lf.AddHeader(lidario.LasHeader{
		PointFormatID: 0,
	}); err != nil {
		return
	}
	for _, i := range cloud.FiniteIndices() {
		pos := cloud[i]
		if err = lf.AddLasPoint(&lidario.PointRecord0{
			X: pos.X,
			Y: pos.Y,
			Z: pos.Z,
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3),
			},
			PointSourceID: 1,
		}); err != nil {
			return
		}
	}
	return
}

// NewFromLASFile reads the points of a LAS file in file order.
func NewFromLASFile(fn string) (PointCloud, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(lf.Close)

	pc := New(lf.Header.NumberPoints)
	for i := range pc {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, err
		}
		data := p.PointData()
		pc[i] = r3.Vector{X: data.X, Y: data.Y, Z: data.Z}
	}
	return pc, nil
}
