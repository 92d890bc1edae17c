// Package storage reads and writes casts as flat CSV files under the
// per-stage output directories: converted, corrected, and binned.
package storage

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/oceandata/ctd-pipeline/internal/binning"
	"github.com/oceandata/ctd-pipeline/internal/types"
)

const (
	dateFormat = "2006-01-02"
	timeFormat = "15:04:05.000000"

	invalidSuffix = " invalid"
)

// Storage handles cast files for the three pipeline stages
type Storage struct {
	convertedDir string
	correctedDir string
	binnedDir    string
}

// New creates a new Storage instance over the stage directories
func New(convertedDir, correctedDir, binnedDir string) *Storage {
	return &Storage{
		convertedDir: convertedDir,
		correctedDir: correctedDir,
		binnedDir:    binnedDir,
	}
}

// WriteConverted stores a freshly converted cast, returning the file path
func (s *Storage) WriteConverted(c *types.Cast) (string, error) {
	path := filepath.Join(s.convertedDir, csvName(c.SourceFile))
	return path, writeCast(path, c, false)
}

// WriteCorrected stores a corrected cast with its invalidity flag columns
func (s *Storage) WriteCorrected(c *types.Cast) (string, error) {
	path := filepath.Join(s.correctedDir, csvName(c.SourceFile))
	return path, writeCast(path, c, true)
}

// WriteBinned stores the depth-binned output of a cast
func (s *Storage) WriteBinned(c *types.Cast, bins []types.DepthBin, binSize int) (string, error) {
	path := filepath.Join(s.binnedDir, csvName(c.SourceFile))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create binned file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := binning.Header(c, binSize)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write binned header: %w", err)
	}

	label := binning.LabelColumn(binSize)
	for _, bin := range bins {
		rec := make([]string, 0, len(header))
		for _, col := range header {
			switch col {
			case label:
				rec = append(rec, formatValue(bin.Label))
			case types.ColDate:
				rec = append(rec, bin.Date)
			case types.ColTime:
				rec = append(rec, bin.Time)
			case types.ColScansPerBin:
				rec = append(rec, strconv.Itoa(bin.ScanCount))
			default:
				rec = append(rec, formatValue(bin.Values[col]))
			}
		}
		if err := w.Write(rec); err != nil {
			return "", fmt.Errorf("failed to write binned row: %w", err)
		}
	}
	w.Flush()
	return path, w.Error()
}

func writeCast(path string, c *types.Cast, withFlags bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create cast file: %w", err)
	}
	defer f.Close()

	header := append([]string(nil), c.Header...)
	var flagged []string
	if withFlags {
		flagged = c.InvalidColumns()
		for _, col := range flagged {
			header = append(header, col+invalidSuffix)
		}
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write cast header: %w", err)
	}

	for i := 0; i < c.Len(); i++ {
		rec := make([]string, 0, len(header))
		for _, col := range c.Header {
			switch col {
			case types.ColDate:
				rec = append(rec, c.RowTime(i).Format(dateFormat))
			case types.ColTime:
				rec = append(rec, c.RowTime(i).Format(timeFormat))
			default:
				rec = append(rec, formatValue(c.Column(col)[i]))
			}
		}
		for _, col := range flagged {
			rec = append(rec, strconv.FormatBool(c.Invalid(col)[i]))
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("failed to write cast row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// ReadCast loads a cast CSV written by WriteConverted or WriteCorrected. The
// start time comes from the first row's date/time columns and the sampling
// frequency from the spacing of the first two rows; the model is inferred
// from that frequency.
func ReadCast(path string) (*types.Cast, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cast file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read cast file: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("cast file %s has no data rows", path)
	}

	fullHeader := records[0]
	rows := records[1:]

	var header []string
	var flagged []string
	colIdx := make(map[string]int)
	for i, col := range fullHeader {
		if strings.HasSuffix(col, invalidSuffix) {
			flagged = append(flagged, strings.TrimSuffix(col, invalidSuffix))
		} else {
			header = append(header, col)
		}
		colIdx[col] = i
	}

	times, err := rowTimes(rows, colIdx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamps in %s: %w", path, err)
	}
	start := times[0]
	freq := 0.0
	if len(times) > 1 {
		if dt := times[1].Sub(times[0]).Seconds(); dt > 0 {
			freq = 1 / dt
		}
	}

	cast := types.NewCast(modelForFrequency(freq), header, start)
	cast.SourceFile = filepath.Base(path)
	if freq > 0 {
		cast.SamplingFrequency = freq
	}

	for _, col := range header {
		if col == types.ColDate || col == types.ColTime {
			continue
		}
		idx := colIdx[col]
		values := make([]float64, len(rows))
		for i, rec := range rows {
			values[i] = parseValue(rec, idx)
		}
		cast.SetColumn(col, values)
	}
	for _, col := range flagged {
		idx := colIdx[col+invalidSuffix]
		flags := make([]bool, len(rows))
		for i, rec := range rows {
			flags[i] = idx < len(rec) && strings.EqualFold(strings.TrimSpace(rec[idx]), "true")
		}
		cast.SetInvalid(col, flags)
	}
	return cast, nil
}

func rowTimes(rows [][]string, colIdx map[string]int) ([]time.Time, error) {
	dateIdx, okD := colIdx[types.ColDate]
	timeIdx, okT := colIdx[types.ColTime]
	if !okD {
		return nil, fmt.Errorf("no date column")
	}

	times := make([]time.Time, len(rows))
	for i, rec := range rows {
		value := rec[dateIdx]
		layout := dateFormat
		if okT {
			value += " " + rec[timeIdx]
			layout += " " + timeFormat
		}
		t, err := time.Parse(layout, value)
		if err != nil {
			return nil, err
		}
		times[i] = t
	}
	return times, nil
}

// modelForFrequency maps a scan rate back to the instrument that produces it
func modelForFrequency(freq float64) types.Model {
	switch int(math.Round(freq)) {
	case 24:
		return types.ModelCTD9
	case 16:
		return types.ModelUnderway
	case 4:
		return types.ModelCTD19plusV2
	case 1:
		return types.ModelCTD39
	default:
		return types.ModelUnknown
	}
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseValue(rec []string, idx int) float64 {
	if idx >= len(rec) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func csvName(source string) string {
	base := filepath.Base(source)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base + ".csv"
}
