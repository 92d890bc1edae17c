package convert

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oceandata/ctd-pipeline/internal/decode"
	"github.com/oceandata/ctd-pipeline/internal/equations"
	"github.com/oceandata/ctd-pipeline/internal/types"
	"github.com/oceandata/ctd-pipeline/internal/xmlcon"
)

// Result is a converted cast plus the decode counters for the run
type Result struct {
	Cast         *types.Cast
	ScansDecoded int
	ScansSkipped int
}

// minimalHeader is the output header for the temperature/pressure logger,
// which carries no conductivity channel.
var minimalHeader = []string{
	types.ColScan, types.ColDepth, types.ColPressure, types.ColTemperature,
	types.ColLatitude, types.ColLongitude, types.ColDate, types.ColTime,
}

// HexCast converts a hex-encoded cast file using the calibration config in
// xmlconFile. loc, when non-nil, supplies the deployment start time and
// position and outranks the file header. Individual undecodable scans are
// logged and skipped; the cast keeps processing.
func HexCast(dataFile, xmlconFile string, loc *types.CastLocation, now time.Time) (*Result, error) {
	lines, err := readLines(dataFile)
	if err != nil {
		return nil, err
	}

	info := ScanHeader(lines, now)
	switch info.Model {
	case types.ModelCTD9, types.ModelCTD19plusV2:
	case types.ModelCTD39:
		return minimalCast(dataFile, lines, info, loc)
	default:
		return nil, fmt.Errorf("unrecognized instrument model in %s", dataFile)
	}

	xml, err := os.ReadFile(xmlconFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read instrument config: %w", err)
	}
	cfg, err := xmlcon.Parse(xml)
	if err != nil {
		return nil, fmt.Errorf("failed to parse instrument config: %w", err)
	}
	schema, err := cfg.BuildSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to build field schema for %s: %w", dataFile, err)
	}

	start, lat, lon := applyLocation(loc, info.StartTime, info.Latitude, info.Longitude)

	conv := &Converter{
		Config:    cfg,
		Schema:    schema,
		Latitude:  lat,
		Longitude: lon,
		Interval:  1 / info.Model.SamplingFrequency(),
	}
	dec := decode.NewHexDecoder(schema)

	cast := types.NewCast(info.Model, types.CTDHeader, start)
	cast.ID = uuid.New().String()
	cast.SourceFile = filepath.Base(dataFile)

	res := &Result{Cast: cast}
	var previous []float64
	scan := 0
	for i := info.DataStart; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		scan++
		raw, err := dec.DecodeLine(lines[i], scan)
		if err != nil {
			log.Printf("Skipping scan in %s: %v", cast.SourceFile, err)
			res.ScansSkipped++
			continue
		}
		cast.Append(conv.Convert(raw, previous))
		previous = raw
		res.ScansDecoded++
	}
	return res, nil
}

// minimalCast converts the temperature/pressure logger's ASCII records:
// comma-separated temperature, pressure, date, time at 1 Hz.
func minimalCast(dataFile string, lines []string, info *HeaderInfo, loc *types.CastLocation) (*Result, error) {
	start, lat, lon := applyLocation(loc, info.StartTime, info.Latitude, info.Longitude)

	cast := types.NewCast(types.ModelCTD39, minimalHeader, start)
	cast.ID = uuid.New().String()
	cast.SourceFile = filepath.Base(dataFile)

	res := &Result{Cast: cast}
	scan := 0
	for i := info.DataStart; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		scan++
		parts := strings.Split(lines[i], ",")
		if len(parts) < 2 {
			log.Printf("Skipping scan in %s: line %d: record has %d fields, need 2",
				cast.SourceFile, scan, len(parts))
			res.ScansSkipped++
			continue
		}
		t, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		p, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil {
			log.Printf("Skipping scan in %s: line %d: non-numeric record", cast.SourceFile, scan)
			res.ScansSkipped++
			continue
		}

		s := &types.EngineeringSample{Scan: scan}
		s.Temperature = round(t, 4)
		s.Pressure = round(p, 3)
		if lat != nil {
			s.Depth = round(equations.Depth(p, *lat), 3)
			s.Latitude = round(*lat, 6)
		}
		if lon != nil {
			s.Longitude = round(*lon, 6)
		}
		cast.Append(s)
		res.ScansDecoded++
	}
	return res, nil
}

// UnderwayCast converts an underway ASCII cast file. The deployment position
// and start time are required; a cast without them cannot be georeferenced or
// timestamped and is rejected.
func UnderwayCast(dataFile string, loc *types.CastLocation) (*Result, error) {
	lines, err := readLines(dataFile)
	if err != nil {
		return nil, err
	}
	cfg, err := xmlcon.ParseUnderwayHeader(lines)
	if err != nil {
		return nil, fmt.Errorf("failed to parse underway header: %w", err)
	}

	start, lat, lon := applyLocation(loc, cfg.StartTime, cfg.Latitude, cfg.Longitude)
	if lat == nil {
		return nil, fmt.Errorf("latitude not found for %s, skipping cast", dataFile)
	}
	if lon == nil {
		return nil, fmt.Errorf("longitude not found for %s, skipping cast", dataFile)
	}
	if start.IsZero() {
		return nil, fmt.Errorf("start time not found for %s, skipping cast", dataFile)
	}

	condCol := columnIndex(cfg.Columns, "Conductivity")
	tempCol := columnIndex(cfg.Columns, "Temperature")
	presCol := columnIndex(cfg.Columns, "Pressure")
	if condCol < 0 || tempCol < 0 || presCol < 0 {
		return nil, fmt.Errorf("underway header for %s lacks a C/T/P column", dataFile)
	}

	cast := types.NewCast(types.ModelUnderway, types.UnderwayHeader, start)
	cast.ID = uuid.New().String()
	cast.SourceFile = filepath.Base(dataFile)
	if cfg.SamplingRate > 0 {
		cast.SamplingFrequency = cfg.SamplingRate
	}

	res := &Result{Cast: cast}
	scan := 0
	for i := cfg.DataStart; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		scan++
		values, err := decode.DecodeASCIILine(lines[i], len(cfg.Columns), scan)
		if err != nil {
			res.ScansSkipped++
			continue
		}

		cond, t, p := values[condCol], values[tempCol], values[presCol]
		sal := equations.Salinity(cond, t, p)
		depth := equations.Depth(p, *lat)

		s := &types.EngineeringSample{
			Scan:            int(values[0]),
			Conductivity:    &cond,
			Temperature:     &t,
			Pressure:        &p,
			Depth:           &depth,
			Salinity:        &sal,
			SoundVelocityCM: round(equations.SoundVelocityChenMillero(sal, t, p), 2),
			SoundVelocityD:  round(equations.SoundVelocityDelGrosso(sal, t, p), 2),
			SoundVelocityW:  round(equations.SoundVelocityWilson(sal, t, p), 2),
			Latitude:        lat,
			Longitude:       lon,
		}
		cast.Append(s)
		res.ScansDecoded++
	}
	return res, nil
}

// applyLocation merges a locations-table entry over header-derived metadata.
// Table values win wherever both are present.
func applyLocation(loc *types.CastLocation, start time.Time, lat, lon *float64) (time.Time, *float64, *float64) {
	if loc == nil {
		return start, lat, lon
	}
	if !loc.StartTime.IsZero() {
		start = loc.StartTime
	}
	if loc.Latitude != nil {
		lat = loc.Latitude
	}
	if loc.Longitude != nil {
		lon = loc.Longitude
	}
	return start, lat, lon
}

func columnIndex(columns []string, substr string) int {
	for i, c := range columns {
		if strings.Contains(c, substr) {
			return i
		}
	}
	return -1
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cast file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cast file: %w", err)
	}
	return lines, nil
}
