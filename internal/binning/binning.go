// Package binning reduces a corrected cast to fixed-width depth bins, one
// pass per leg: descent bins ascending, then ascent bins descending, matching
// the down-then-up shape of the deployment.
package binning

import (
	"fmt"
	"math"
	"time"

	"github.com/oceandata/ctd-pipeline/internal/types"
)

// LabelColumn names the bin label column for a bin size in meters
func LabelColumn(binSize int) string {
	return fmt.Sprintf("Depth Binned (%dm)", binSize)
}

// Header returns the ordered output columns of a binned cast: the bin label,
// the cast's averaged columns minus the scan index, and the per-bin scan count.
func Header(c *types.Cast, binSize int) []string {
	out := []string{LabelColumn(binSize)}
	for _, col := range c.Header {
		if col == types.ColScan {
			continue
		}
		out = append(out, col)
	}
	return append(out, types.ColScansPerBin)
}

// BinDepths partitions a corrected cast into right-open depth intervals of
// binSize meters, labeled by the lower edge. Rows flagged invalid in
// temperature, conductivity, pressure, or vertical velocity are excluded
// first. With average set, each bin carries the mean of every numeric column
// and the contributing scan count; empty bins are dropped. Without it every
// retained scan stays its own record, labeled by the bin it falls in.
func BinDepths(c *types.Cast, binSize int, average bool) ([]types.DepthBin, error) {
	if c == nil || c.Len() == 0 {
		return nil, fmt.Errorf("cast is empty, skipping binning")
	}
	depth := c.Column(types.ColDepth)
	if depth == nil {
		return nil, fmt.Errorf("depth column is not present for binning")
	}
	if binSize < 1 {
		binSize = 1
	}

	include := validRows(c)

	maxDepth := math.NaN()
	for _, d := range depth {
		if math.IsNaN(maxDepth) || d > maxDepth {
			maxDepth = d
		}
	}
	if math.IsNaN(maxDepth) {
		return nil, fmt.Errorf("no usable depth values for binning")
	}
	binCount := (int(math.Floor(maxDepth)) + 1) / binSize

	avgCols := averagedColumns(c)
	downFlags := c.Column(types.ColIsDowncast)

	var out []types.DepthBin
	for _, downcast := range []bool{true, false} {
		bins := legBins(c, depth, downFlags, include, avgCols, binSize, binCount, downcast, average)
		if !downcast && average {
			// ascent reads deepest first; per-scan output already does
			for i, j := 0, len(bins)-1; i < j; i, j = i+1, j-1 {
				bins[i], bins[j] = bins[j], bins[i]
			}
		}
		out = append(out, bins...)
	}
	return out, nil
}

// validRows masks out rows flagged invalid in the columns binning depends on
func validRows(c *types.Cast) []bool {
	include := make([]bool, c.Len())
	for i := range include {
		include[i] = true
	}
	required := []string{types.ColTemperature, types.ColConductivity, types.ColPressure}
	if c.Invalid(types.ColVerticalVelocity) != nil {
		required = append(required, types.ColVerticalVelocity)
	}
	for _, col := range required {
		flags := c.Invalid(col)
		if flags == nil {
			continue
		}
		for i, bad := range flags {
			if bad {
				include[i] = false
			}
		}
	}
	return include
}

// averagedColumns lists the numeric columns carried into each bin
func averagedColumns(c *types.Cast) []string {
	var cols []string
	for _, col := range c.Header {
		switch col {
		case types.ColScan, types.ColDate, types.ColTime:
			continue
		}
		if c.HasColumn(col) {
			cols = append(cols, col)
		}
	}
	return cols
}

func legBins(c *types.Cast, depth, downFlags []float64, include []bool,
	avgCols []string, binSize, binCount int, downcast, average bool) []types.DepthBin {

	type accumulator struct {
		sums   map[string]float64
		counts map[string]int
		dtSum  float64
		dtN    int
		scans  int
	}
	acc := make([]*accumulator, binCount)

	var bins []types.DepthBin
	for i := 0; i < c.Len(); i++ {
		if !include[i] {
			continue
		}
		if downFlags != nil && (downFlags[i] == 1) != downcast {
			continue
		}
		if downFlags == nil && !downcast {
			continue
		}
		d := depth[i]
		if math.IsNaN(d) || d < 0 {
			continue
		}
		bin := int(math.Floor(d)) / binSize
		if bin >= binCount {
			continue
		}
		if !average {
			values := make(map[string]float64, len(avgCols))
			for _, col := range avgCols {
				values[col] = roundTo(c.Column(col)[i], 6)
			}
			rt := c.RowTime(i).UTC()
			bins = append(bins, types.DepthBin{
				Label:     float64(bin * binSize),
				Downcast:  downcast,
				Values:    values,
				ScanCount: 1,
				Date:      rt.Format("2006-01-02"),
				Time:      rt.Format("15:04:05"),
			})
			continue
		}
		if acc[bin] == nil {
			acc[bin] = &accumulator{
				sums:   make(map[string]float64),
				counts: make(map[string]int),
			}
		}
		a := acc[bin]
		a.scans++
		for _, col := range avgCols {
			v := c.Column(col)[i]
			if math.IsNaN(v) {
				continue
			}
			a.sums[col] += v
			a.counts[col]++
		}
		a.dtSum += float64(c.RowTime(i).UnixNano())
		a.dtN++
	}

	for bin, a := range acc {
		if a == nil || a.scans == 0 {
			continue
		}
		values := make(map[string]float64, len(avgCols))
		for _, col := range avgCols {
			if n := a.counts[col]; n > 0 {
				values[col] = roundTo(a.sums[col]/float64(n), 6)
			} else {
				values[col] = math.NaN()
			}
		}

		b := types.DepthBin{
			Label:     float64(bin * binSize),
			Downcast:  downcast,
			Values:    values,
			ScanCount: a.scans,
		}
		if a.dtN > 0 {
			mean := time.Unix(0, int64(a.dtSum/float64(a.dtN))).UTC()
			b.Date = mean.Format("2006-01-02")
			b.Time = mean.Format("15:04:05")
		}
		bins = append(bins, b)
	}
	return bins
}

func roundTo(v float64, n int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scale := math.Pow10(n)
	return math.Round(v*scale) / scale
}
