package types

import (
	"math"
	"time"
)

// Model identifies a supported instrument model. The model is detected once
// from the cast file header and selects the field schema, the sampling
// frequency, and the raw-record encoding.
type Model int

const (
	ModelUnknown Model = iota
	ModelCTD9
	ModelCTD19plusV2
	ModelCTD39
	ModelUnderway
)

func (m Model) String() string {
	switch m {
	case ModelCTD9:
		return "SBE9plus"
	case ModelCTD19plusV2:
		return "SBE19plusV2"
	case ModelCTD39:
		return "SBE39"
	case ModelUnderway:
		return "UCTD"
	default:
		return "unknown"
	}
}

// SamplingFrequency returns the scan rate of the model in Hz
func (m Model) SamplingFrequency() float64 {
	switch m {
	case ModelCTD9:
		return 24
	case ModelCTD19plusV2:
		return 4
	case ModelCTD39:
		return 1
	case ModelUnderway:
		return 16
	default:
		return 0
	}
}

// Canonical column names shared by the converted, corrected, and binned outputs
const (
	ColScan                  = "Scan #"
	ColDepth                 = "Depth (m)"
	ColPressure              = "Pressure (decibar)"
	ColTemperature           = "Temperature (degC)"
	ColSalinity              = "Salinity (psu)"
	ColTemperatureSecondary  = "Temperature (degC) (Secondary)"
	ColSalinitySecondary     = "Salinity (psu) (Secondary)"
	ColConductivity          = "Conductivity (S_per_m)"
	ColConductivitySecondary = "Conductivity (S_per_m) (Secondary)"
	ColSoundVelocityCM       = "Sound Velocity (m_per_s) (cm)"
	ColSoundVelocityD        = "Sound Velocity (m_per_s) (d)"
	ColSoundVelocityW        = "Sound Velocity (m_per_s) (w)"
	ColOxygen                = "Oxygen (ml_per_l)"
	ColOxygenSecondary       = "Oxygen (ml_per_l) (Secondary)"
	ColFluorescence          = "Fluorescence (ug_per_l)"
	ColTurbidity             = "Turbidity (NTU)"
	ColAltimeterHeight       = "Altimeter Height (m)"
	ColLatitude              = "Latitude"
	ColLongitude             = "Longitude"
	ColDate                  = "Date (YYYY-MM-DD)"
	ColTime                  = "Time (HH:mm:ss)"

	// Columns added by the correction pipeline
	ColVerticalVelocity = "dPdt"
	ColIsDowncast       = "is_downcast"
	ColDensity          = "Seawater Density (kg/m3)"
	ColSigmaTheta       = "Sigma Theta"
	ColScansPerBin      = "Scans per bin"
)

// CTDHeader is the fixed 21-column output header for CTD casts, in order
var CTDHeader = []string{
	ColScan, ColDepth, ColPressure,
	ColTemperature, ColSalinity,
	ColTemperatureSecondary, ColSalinitySecondary,
	ColConductivity, ColConductivitySecondary,
	ColSoundVelocityCM, ColSoundVelocityD, ColSoundVelocityW,
	ColOxygen, ColOxygenSecondary,
	ColFluorescence, ColTurbidity, ColAltimeterHeight,
	ColLatitude, ColLongitude, ColDate, ColTime,
}

// UnderwayHeader is the output header for underway casts. The leading columns
// mirror the instrument's native scan/C/T/P record order.
var UnderwayHeader = []string{
	ColScan, ColConductivity, ColTemperature, ColPressure,
	ColDepth, ColSalinity,
	ColSoundVelocityCM, ColSoundVelocityD, ColSoundVelocityW,
	ColLatitude, ColLongitude, ColDate, ColTime,
}

// EngineeringSample is one converted scan. A nil field means the quantity
// could not be computed for that scan (missing sensor or failed prerequisite);
// sentinel numeric values are never used.
type EngineeringSample struct {
	Scan                  int
	Depth                 *float64
	Pressure              *float64
	Temperature           *float64
	Salinity              *float64
	TemperatureSecondary  *float64
	SalinitySecondary     *float64
	Conductivity          *float64
	ConductivitySecondary *float64
	SoundVelocityCM       *float64
	SoundVelocityD        *float64
	SoundVelocityW        *float64
	Oxygen                *float64
	OxygenSecondary       *float64
	Fluorescence          *float64
	Turbidity             *float64
	AltimeterHeight       *float64
	Latitude              *float64
	Longitude             *float64
}

// Value maps an output column name to the sample field holding it
func (s *EngineeringSample) Value(col string) *float64 {
	switch col {
	case ColDepth:
		return s.Depth
	case ColPressure:
		return s.Pressure
	case ColTemperature:
		return s.Temperature
	case ColSalinity:
		return s.Salinity
	case ColTemperatureSecondary:
		return s.TemperatureSecondary
	case ColSalinitySecondary:
		return s.SalinitySecondary
	case ColConductivity:
		return s.Conductivity
	case ColConductivitySecondary:
		return s.ConductivitySecondary
	case ColSoundVelocityCM:
		return s.SoundVelocityCM
	case ColSoundVelocityD:
		return s.SoundVelocityD
	case ColSoundVelocityW:
		return s.SoundVelocityW
	case ColOxygen:
		return s.Oxygen
	case ColOxygenSecondary:
		return s.OxygenSecondary
	case ColFluorescence:
		return s.Fluorescence
	case ColTurbidity:
		return s.Turbidity
	case ColAltimeterHeight:
		return s.AltimeterHeight
	case ColLatitude:
		return s.Latitude
	case ColLongitude:
		return s.Longitude
	default:
		return nil
	}
}

// Cast is the full ordered sample series for one deployment. Numeric columns
// are stored column-wise with NaN marking a missing value; the correction
// pipeline mutates columns in place and attaches invalidity flags without
// reordering rows. Row i carries the timestamp StartTime + i/SamplingFrequency.
type Cast struct {
	ID         string
	SourceFile string
	Model      Model

	StartTime         time.Time
	SamplingFrequency float64

	Header  []string             // ordered output columns
	columns map[string][]float64 // numeric data, NaN = missing
	invalid map[string][]bool    // per-column invalidity flags

	n int
}

// NewCast creates an empty cast with the given output header
func NewCast(model Model, header []string, start time.Time) *Cast {
	return &Cast{
		Model:             model,
		StartTime:         start,
		SamplingFrequency: model.SamplingFrequency(),
		Header:            append([]string(nil), header...),
		columns:           make(map[string][]float64),
		invalid:           make(map[string][]bool),
	}
}

// Len returns the number of rows in the cast
func (c *Cast) Len() int { return c.n }

// Append adds one converted sample as the next row
func (c *Cast) Append(s *EngineeringSample) {
	for _, col := range c.Header {
		switch col {
		case ColScan:
			c.columns[col] = append(c.columns[col], float64(s.Scan))
		case ColDate, ColTime:
			// derived from StartTime on output
		default:
			v := math.NaN()
			if p := s.Value(col); p != nil {
				v = *p
			}
			c.columns[col] = append(c.columns[col], v)
		}
	}
	c.n++
}

// HasColumn reports whether the named numeric column exists
func (c *Cast) HasColumn(name string) bool {
	_, ok := c.columns[name]
	return ok
}

// Column returns the backing slice of a numeric column, or nil when absent.
// Callers mutate the returned slice to update the cast in place.
func (c *Cast) Column(name string) []float64 {
	return c.columns[name]
}

// SetColumn stores a numeric column, appending it to the header when new
func (c *Cast) SetColumn(name string, values []float64) {
	if _, ok := c.columns[name]; !ok && !contains(c.Header, name) {
		c.Header = append(c.Header, name)
	}
	c.columns[name] = values
	if c.n == 0 {
		c.n = len(values)
	}
}

// DropColumn removes a numeric column, its flags, and its header entry
func (c *Cast) DropColumn(name string) {
	delete(c.columns, name)
	delete(c.invalid, name)
	for i, h := range c.Header {
		if h == name {
			c.Header = append(c.Header[:i], c.Header[i+1:]...)
			break
		}
	}
}

// Invalid returns the invalidity flags for a column, or nil when none were set
func (c *Cast) Invalid(name string) []bool {
	return c.invalid[name]
}

// SetInvalid stores per-row invalidity flags for a column
func (c *Cast) SetInvalid(name string, flags []bool) {
	c.invalid[name] = flags
}

// EnsureInvalid returns the invalidity flags for a column, allocating an
// all-valid slice on first use
func (c *Cast) EnsureInvalid(name string) []bool {
	if f, ok := c.invalid[name]; ok {
		return f
	}
	f := make([]bool, c.n)
	c.invalid[name] = f
	return f
}

// InvalidColumns lists the columns that carry invalidity flags, in header order
func (c *Cast) InvalidColumns() []string {
	var names []string
	for _, col := range c.Header {
		if _, ok := c.invalid[col]; ok {
			names = append(names, col)
		}
	}
	return names
}

// RowTime returns the derived timestamp of row i
func (c *Cast) RowTime(i int) time.Time {
	if c.StartTime.IsZero() || c.SamplingFrequency <= 0 {
		return c.StartTime
	}
	step := float64(time.Second) / c.SamplingFrequency
	return c.StartTime.Add(time.Duration(float64(i) * step))
}

// CastLocation is a per-cast deployment record from the cruise locations
// table: where and when the instrument went in the water. Header-derived
// values fill any nil field.
type CastLocation struct {
	StartTime time.Time `json:"start_time"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
}

// CastEvent announces a pipeline stage completing for one cast
type CastEvent struct {
	CastID     string    `json:"cast_id"`
	SourceFile string    `json:"source_file"`
	Model      string    `json:"model"`
	Path       string    `json:"path"`
	Scans      int       `json:"scans"`
	Bins       int       `json:"bins,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// DepthBin is one fixed-width depth interval of one cast leg, produced by the
// binning engine and immutable afterward.
type DepthBin struct {
	Label     float64 // bin floor in meters
	Downcast  bool
	Values    map[string]float64 // averaged numeric columns
	Date      string
	Time      string
	ScanCount int
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
