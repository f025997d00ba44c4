package distancefit

import (
	"fmt"
	"io"
	"math"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// ErrorStats summarizes the absolute edge length error |sqrt(predicted) - sqrt(target)|
// of a layout, in the units of the projected points.
type ErrorStats struct {
	Mean   float64
	Median float64
	Max    float64
	StdDev float64
	RMS    float64
}

// String prints the statistics as a two column table.
func (es ErrorStats) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Edge error", "Value"})
	t.AppendRow(table.Row{"mean", fmt.Sprintf("%.6g", es.Mean)})
	t.AppendRow(table.Row{"median", fmt.Sprintf("%.6g", es.Median)})
	t.AppendRow(table.Row{"max", fmt.Sprintf("%.6g", es.Max)})
	t.AppendRow(table.Row{"std dev", fmt.Sprintf("%.6g", es.StdDev)})
	t.AppendRow(table.Row{"rms", fmt.Sprintf("%.6g", es.RMS)})
	return t.Render()
}

// EdgeErrors returns |sqrt(predicted) - sqrt(target)| for every edge, in edge order.
func EdgeErrors(problem *Problem, solution []float64) ([]float64, error) {
	if err := problem.checkGuess(solution); err != nil {
		return nil, err
	}
	edges := len(problem.Design.links)
	if edges == 0 {
		return nil, errors.New("problem has no edges")
	}
	predicted := problem.Predict(nil, solution)
	diffs := make([]float64, edges)
	for i := range diffs {
		diffs[i] = math.Abs(math.Sqrt(predicted[i]) - math.Sqrt(problem.Targets[i]))
	}
	return diffs, nil
}

// EdgeErrorStats measures how well solution reproduces the edge lengths. The
// anchor residuals are not included.
func EdgeErrorStats(problem *Problem, solution []float64) (ErrorStats, error) {
	errs, err := EdgeErrors(problem, solution)
	if err != nil {
		return ErrorStats{}, err
	}
	diffs := stats.Float64Data(errs)
	squares := make(stats.Float64Data, len(diffs))
	for i, d := range diffs {
		squares[i] = d * d
	}

	var out ErrorStats
	if out.Mean, err = stats.Mean(diffs); err != nil {
		return ErrorStats{}, err
	}
	if out.Median, err = stats.Median(diffs); err != nil {
		return ErrorStats{}, err
	}
	if out.Max, err = stats.Max(diffs); err != nil {
		return ErrorStats{}, err
	}
	if out.StdDev, err = stats.StandardDeviation(diffs); err != nil {
		return ErrorStats{}, err
	}
	meanSquare, err := stats.Mean(squares)
	if err != nil {
		return ErrorStats{}, err
	}
	out.RMS = math.Sqrt(meanSquare)
	return out, nil
}

// WriteErrorHistogram prints a text histogram of the edge errors to w.
func WriteErrorHistogram(w io.Writer, problem *Problem, solution []float64, bins int) error {
	errs, err := EdgeErrors(problem, solution)
	if err != nil {
		return err
	}
	lo, hi := errs[0], errs[0]
	for _, e := range errs {
		lo, hi = math.Min(lo, e), math.Max(hi, e)
	}
	if lo == hi {
		_, err := fmt.Fprintf(w, "all %d edges have error %g\n", len(errs), lo)
		return err
	}
	if bins < 1 {
		bins = 1
	}
	return histogram.Fprint(w, histogram.Hist(bins, errs), histogram.Linear(40))
}
