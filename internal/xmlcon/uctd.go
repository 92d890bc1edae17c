package xmlcon

import (
	"strconv"
	"strings"
	"time"
)

// UnderwayConfig is the metadata block parsed from the header of an underway
// ASCII cast file. Latitude/Longitude are nil when the header lacks them;
// a locations-table entry takes precedence either way.
type UnderwayConfig struct {
	StartTime    time.Time
	Latitude     *float64
	Longitude    *float64
	SamplingRate float64
	DeviceType   string
	Version      string
	SerialNumber string

	// calibration blocks by quantity name (Temperature, Conductivity, Pressure)
	Coefficients map[string]map[string]float64

	// native data columns in file order
	Columns []string

	// index of the first data line
	DataStart int
}

var underwayColumnNames = map[string]string{
	"C": "Conductivity (S_per_m)",
	"T": "Temperature (degC)",
	"P": "Pressure (decibar)",
}

// coefficient names accepted per calibration block
var underwayCoefficients = map[string]map[string]bool{
	"Temperature":  set("A0", "A1", "A2", "A3"),
	"Conductivity": set("G", "H", "I", "J", "PCOR", "TCOR", "SLOPE"),
	"Pressure": set("A0", "A1", "A2", "PTEMP A0", "PTEMP A1", "PTEMP A2",
		"TC A0", "TC A1", "TC A2", "TC B0", "TC B1", "TC B2", "RANGE", "OFFSET"),
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// ParseUnderwayHeader scans the header lines of an underway cast file. The
// header ends at the column-name line (or, for files captured in 2017 without
// one, at the bare line following the *Cast line, in which case the native
// column order is fixed to scan#, conductivity, temperature, pressure).
func ParseUnderwayHeader(lines []string) (*UnderwayConfig, error) {
	cfg := &UnderwayConfig{
		Coefficients: make(map[string]map[string]float64),
	}

	var current map[string]float64
	var accepted map[string]bool
	coefficientsFound := false
	previous := ""

	for i, line := range lines {
		if strings.Contains(line, "*scan#") ||
			(strings.HasPrefix(previous, "*Cast ") && (line == "*" || line == "")) {
			cfg.DataStart = i + 1
			columns := strings.Fields(line)
			if len(columns) == 4 {
				for _, col := range columns {
					name := strings.TrimPrefix(strings.SplitN(col, "[", 2)[0], "*")
					if full, ok := underwayColumnNames[name]; ok {
						name = full
					}
					cfg.Columns = append(cfg.Columns, name)
				}
			} else {
				// 2017 capture format carries no column-name line
				cfg.Columns = []string{"scan#", "Conductivity (S_per_m)",
					"Temperature (degC)", "Pressure (decibar)"}
			}
			break
		}

		if strings.Contains(line, "*Lat") {
			if parts := strings.Fields(line); len(parts) >= 2 && len(parts[1]) > 2 {
				if v, err := parseDegMin(parts[1], 2); err == nil {
					cfg.Latitude = &v
				}
			}
		}
		if strings.Contains(line, "*Lon") {
			if parts := strings.Fields(line); len(parts) >= 2 && len(parts[1]) > 3 {
				if v, err := parseDegMin(parts[1], 3); err == nil {
					v = -v // underway survey longitudes are west
					cfg.Longitude = &v
				}
			}
		}

		if strings.Contains(line, "*Cast") && !strings.Contains(line, "start") {
			if parts := strings.Split(line, " "); len(parts) >= 6 {
				if t, err := time.Parse("2 Jan 2006 15:04:05",
					strings.Join(parts[2:6], " ")); err == nil {
					cfg.StartTime = t
				}
			}
		}

		if strings.Contains(line, "*DeviceType=") {
			cfg.DeviceType = strings.SplitN(line, "=", 2)[1]
		}
		if strings.Contains(line, "*Version=") {
			cfg.Version = strings.SplitN(line, "=", 2)[1]
		}
		if strings.Contains(line, "*SerialNumber=") {
			cfg.SerialNumber = strings.SplitN(line, "=", 2)[1]
		}
		if strings.Contains(line, "*sampling rate:") {
			v := strings.TrimSpace(strings.ReplaceAll(
				strings.SplitN(line, "rate:", 2)[1], "Hz", ""))
			if rate, err := strconv.ParseFloat(v, 64); err == nil {
				cfg.SamplingRate = rate
			}
		}

		if strings.Contains(line, "*CalibrationCoefficients:") {
			coefficientsFound = true
		}
		if coefficientsFound {
			for _, block := range []string{"Temperature", "Conductivity", "Pressure"} {
				if strings.Contains(line, "*"+block+":") {
					current = make(map[string]float64)
					cfg.Coefficients[block] = current
					accepted = underwayCoefficients[block]
				}
			}
			if current != nil {
				if parts := strings.SplitN(line, "=", 2); len(parts) == 2 {
					name := strings.TrimPrefix(parts[0], "*")
					if accepted[name] && name != "CalDate" && name != "SerialNumber" {
						if v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err == nil {
							current[name] = v
						}
					}
				}
			}
		}

		previous = line
	}

	// files captured in 2017 omit the sampling rate line
	if cfg.SamplingRate == 0 {
		cfg.SamplingRate = 16
	}

	return cfg, nil
}

// parseDegMin converts a compact ddmm.mm angle (degWidth degree digits
// followed by decimal minutes) to decimal degrees.
func parseDegMin(s string, degWidth int) (float64, error) {
	deg, err := strconv.ParseFloat(s[:degWidth], 64)
	if err != nil {
		return 0, err
	}
	min, err := strconv.ParseFloat(s[degWidth:], 64)
	if err != nil {
		return 0, err
	}
	return deg + min/60, nil
}
