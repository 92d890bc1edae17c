package convert

import (
	"strconv"
	"strings"
	"time"

	"github.com/oceandata/ctd-pipeline/internal/types"
)

// HeaderInfo is the metadata scanned from the comment header of a hex cast
// file, everything above the *END* marker.
type HeaderInfo struct {
	Model     types.Model
	StartTime time.Time
	Latitude  *float64
	Longitude *float64
	DataStart int // index of the first data line
}

// start-time sources in priority order; a locations-table entry, applied by
// the caller, outranks all of these
const (
	timeNMEAUTC = iota
	timeSystemUTC
	timeStartTime
	timeSourceCount
)

// ScanHeader reads cast metadata from the header lines of a hex file. Start
// times are gathered from every line that carries one and the highest
// priority candidate wins; candidates in the future are clock glitches and
// are discarded.
func ScanHeader(lines []string, now time.Time) *HeaderInfo {
	info := &HeaderInfo{Model: types.ModelUnknown}
	candidates := make([]time.Time, timeSourceCount)

	for i, line := range lines {
		if strings.Contains(line, "*END*") {
			info.DataStart = i + 1
			break
		}

		if info.Model == types.ModelUnknown {
			lower := strings.ToLower(line)
			switch {
			case strings.Contains(line, "* Sea-Bird ") && strings.Contains(line, "Data File:"):
				switch {
				case strings.Contains(lower, "sbe19plus"):
					info.Model = types.ModelCTD19plusV2
				case strings.Contains(lower, "sbe 9 "):
					info.Model = types.ModelCTD9
				case strings.Contains(lower, "sbe39"):
					info.Model = types.ModelCTD39
				}
			case strings.Contains(line, "* SBE") && strings.Contains(line, "SERIAL NO."):
				if strings.Contains(lower, "19plus v 2") {
					info.Model = types.ModelCTD19plusV2
				}
			}
		}

		switch {
		case strings.HasPrefix(line, "* System UTC ="):
			if t, ok := parseHeaderTime(line); ok {
				candidates[timeSystemUTC] = t
			}
		case strings.HasPrefix(line, "# start_time ="):
			if t, ok := parseHeaderTime(line); ok {
				candidates[timeStartTime] = t
			}
		case strings.HasPrefix(line, "* NMEA UTC (Time) ="):
			if t, ok := parseHeaderTime(line); ok {
				candidates[timeNMEAUTC] = t
			}
		}

		if info.Latitude == nil && strings.HasPrefix(line, "* NMEA Latitude") {
			if parts := strings.SplitN(line, "=", 2); len(parts) == 2 {
				if v, ok := parseNMEAAngle(parts[1]); ok {
					info.Latitude = &v
				}
			}
		}
		if info.Longitude == nil && strings.HasPrefix(line, "* NMEA Longitude") {
			if parts := strings.SplitN(line, "=", 2); len(parts) == 2 {
				if v, ok := parseNMEAAngle(parts[1]); ok {
					info.Longitude = &v
				}
			}
		}
	}

	for _, t := range candidates {
		if !t.IsZero() && !t.After(now) {
			info.StartTime = t
			break
		}
	}

	return info
}

// parseHeaderTime extracts a "MMM DD YYYY HH:mm:ss" timestamp from the value
// side of a header line. The NMEA UTC line sometimes carries a double space
// between date and time, so whitespace is collapsed first.
func parseHeaderTime(line string) (time.Time, bool) {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) != 2 {
		return time.Time{}, false
	}
	value := strings.Join(strings.Fields(parts[1]), " ")
	t, err := time.Parse("Jan 2 2006 15:04:05", value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseNMEAAngle converts a "DD MM.MM H" degrees/decimal-minutes/hemisphere
// angle to signed decimal degrees.
func parseNMEAAngle(s string) (float64, bool) {
	parts := strings.Fields(s)
	if len(parts) < 3 {
		return 0, false
	}
	deg, err1 := strconv.ParseFloat(parts[0], 64)
	min, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil {
		return 0, false
	}
	v := deg + min/60
	switch strings.ToUpper(parts[2]) {
	case "S", "W":
		v = -v
	}
	return v, true
}
