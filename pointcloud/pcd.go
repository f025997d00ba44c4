package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PCDType is the DATA encoding of a PCD file.
type PCDType int

// PCD encodings.
const (
	PCDAscii PCDType = iota
	PCDBinary
)

// PCDTypeFromString parses "ascii" or "binary".
func PCDTypeFromString(s string) (PCDType, error) {
	switch s {
	case "", "ascii":
		return PCDAscii, nil
	case "binary":
		return PCDBinary, nil
	}
	return PCDAscii, errors.Errorf("unknown pcd type %q", s)
}

// ToPCD writes the cloud as an unorganized PCD (HEIGHT 1).
func ToPCD(cloud PointCloud, out io.Writer, outputType PCDType) error {
	return writePCD(cloud, cloud.Size(), 1, out, outputType)
}

// ToOrganizedPCD writes the cloud as an organized rows x cols PCD, keeping
// non-finite points as nan so the grid layout survives.
func ToOrganizedPCD(cloud PointCloud, rows, cols int, out io.Writer, outputType PCDType) error {
	if rows*cols != cloud.Size() {
		return errors.Errorf("cannot organize %d points as %dx%d", cloud.Size(), rows, cols)
	}
	return writePCD(cloud, cols, rows, out, outputType)
}

func writePCD(cloud PointCloud, width, height int, out io.Writer, outputType PCDType) error {
	bw := bufio.NewWriter(out)
	_, err := fmt.Fprintf(bw, "VERSION .7\n"+
		"FIELDS x y z\n"+
		"SIZE 4 4 4\n"+
		"TYPE F F F\n"+
		"COUNT 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n",
		width, height, cloud.Size())
	if err != nil {
		return err
	}

	switch outputType {
	case PCDAscii:
		_, err = fmt.Fprintf(bw, "DATA ascii\n")
	case PCDBinary:
		_, err = fmt.Fprintf(bw, "DATA binary\n")
	default:
		return errors.Errorf("unsupported pcd type %d", outputType)
	}
	if err != nil {
		return err
	}
	if err := writePCDData(cloud, bw, outputType); err != nil {
		return err
	}
	return bw.Flush()
}

func formatPCDFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "nan"
	}
	return strconv.FormatFloat(float64(float32(v)), 'f', -1, 32)
}

func writePCDData(cloud PointCloud, out io.Writer, pcdtype PCDType) error {
	buf := make([]byte, 12)
	for _, p := range cloud {
		var err error
		switch pcdtype {
		case PCDBinary:
			if !IsFinite(p) {
				p = r3.Vector{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}
			}
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(p.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Z)))
			_, err = out.Write(buf)
		case PCDAscii:
			_, err = fmt.Fprintf(out, "%s %s %s\n", formatPCDFloat(p.X), formatPCDFloat(p.Y), formatPCDFloat(p.Z))
		}
		if err != nil {
			return err
		}
	}
	return nil
}
