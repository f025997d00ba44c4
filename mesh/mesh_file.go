package mesh

import (
	"bufio"
	"fmt"
	"io"

	"go.viam.com/depthmesh/pointcloud"
)

// WriteEdges writes one "a b target" line per edge.
func WriteEdges(w io.Writer, edges []Edge) error {
	bw := bufio.NewWriter(w)
	for _, e := range edges {
		if _, err := fmt.Fprintf(bw, "%d %d %.9g\n", e.A, e.B, e.Target); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WritePoints writes one "x y z" line per point, in index order.
func WritePoints(w io.Writer, points pointcloud.PointCloud) error {
	bw := bufio.NewWriter(w)
	for _, p := range points {
		if _, err := fmt.Fprintf(bw, "%.9g %.9g %.9g\n", p.X, p.Y, p.Z); err != nil {
			return err
		}
	}
	return bw.Flush()
}
