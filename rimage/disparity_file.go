package rimage

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

const maxLineBytes = 16 * 1024 * 1024

// readNumericRows reads whitespace-delimited numbers, one row per line.
// Blank lines and lines starting with '#' are skipped.
func readNumericRows(r io.Reader) ([][]float64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var rows [][]float64
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		row := make([]float64, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d, column %d", lineNum, i+1)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadDisparityText reads a disparity grid written as plain text, one grid row per line.
func ReadDisparityText(r io.Reader) (*DisparityMap, error) {
	rows, err := readNumericRows(r)
	if err != nil {
		return nil, err
	}
	return NewDisparityMapFromRows(rows)
}

// openMaybeGzip opens fn, transparently decompressing it if it ends in .gz.
func openMaybeGzip(fn string) (io.ReadCloser, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(fn) != ".gz" {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		utils.UncheckedError(f.Close())
		return nil, err
	}
	return &gzipFile{Reader: gz, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()
	if closeErr := g.f.Close(); err == nil {
		err = closeErr
	}
	return err
}

// ParseDisparityFile reads a text disparity grid from disk. Files ending in .gz are decompressed.
func ParseDisparityFile(fn string) (*DisparityMap, error) {
	f, err := openMaybeGzip(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	dm, err := ReadDisparityText(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading disparity from %q", fn)
	}
	return dm, nil
}

// WriteText writes the grid in the format read by ReadDisparityText.
func (dm *DisparityMap) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for r := 0; r < dm.rows; r++ {
		for c := 0; c < dm.cols; c++ {
			if c > 0 {
				if err := bw.WriteByte(' '); err != nil {
					return err
				}
			}
			if _, err := bw.WriteString(strconv.FormatFloat(dm.At(r, c), 'g', -1, 64)); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Params is the flat parameter vector written next to a rendered disparity image:
// [f, p0, p1, p2, theta, phi, psi, k]. Only the focal length is used here.
type Params []float64

// Focal returns the focal length in pixels.
func (p Params) Focal() float64 {
	return p[0]
}

// ReadParams reads a 1D numeric array. Values may be spread over several lines.
func ReadParams(r io.Reader) (Params, error) {
	rows, err := readNumericRows(r)
	if err != nil {
		return nil, err
	}
	var out Params
	for _, row := range rows {
		out = append(out, row...)
	}
	if len(out) == 0 {
		return nil, newMalformedGridError("params file has no values")
	}
	return out, nil
}

// ParseParamsFile reads a params file from disk.
func ParseParamsFile(fn string) (Params, error) {
	f, err := openMaybeGzip(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	p, err := ReadParams(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading params from %q", fn)
	}
	return p, nil
}

// String renders the parameters for logging.
func (p Params) String() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
