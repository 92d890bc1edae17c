// Package convert applies calibration equations to decoded raw samples and
// assembles converted casts. Conversion is stateful across consecutive scans:
// the oxygen tau correction needs the previous scan's raw voltage, a one-step
// lookback passed explicitly between calls.
package convert

import (
	"math"

	"github.com/oceandata/ctd-pipeline/internal/equations"
	"github.com/oceandata/ctd-pipeline/internal/types"
	"github.com/oceandata/ctd-pipeline/internal/xmlcon"
)

// Converter converts decoded raw samples of one hex CTD cast. Latitude and
// Longitude, when set, override the per-scan NMEA position for every sample.
type Converter struct {
	Config    *xmlcon.Config
	Schema    *types.FieldSchema
	Latitude  *float64
	Longitude *float64

	// scan interval in seconds, for the oxygen rate term
	Interval float64
}

// Convert produces the engineering sample for one raw sample. previous is
// the prior scan's raw sample or nil at the start of a cast. A quantity whose
// inputs are unavailable comes back nil; the sample itself is always returned.
func (c *Converter) Convert(raw, previous []float64) *types.EngineeringSample {
	pos := c.Schema.Positions
	s := &types.EngineeringSample{Scan: int(raw[len(raw)-1])}

	lat, lon := c.Latitude, c.Longitude
	if lat == nil {
		if p, ok := pos[xmlcon.FieldNameLatitude]; ok {
			lat = &raw[p]
		}
	}
	if lon == nil {
		if p, ok := pos[xmlcon.FieldNameLongitude]; ok {
			lon = &raw[p]
		}
	}

	if p, ok := pos["Pressure"]; ok {
		if coef, ok := pressureCoefficients(c.Config.Sensor("Pressure")); ok {
			ptComp := raw[pos[xmlcon.FieldNamePTComp]]
			s.Pressure = round(equations.Pressure(raw[p], ptComp, coef), 3)
		}
	}

	if s.Pressure != nil && lat != nil {
		s.Depth = round(equations.Depth(*s.Pressure, *lat), 3)
	}

	s.Temperature = c.temperature("Temperature", raw)
	s.TemperatureSecondary = c.temperature("SecondaryTemperature", raw)

	s.Conductivity = c.conductivity("Conductivity", s.Temperature, s.Pressure, raw)
	s.ConductivitySecondary = c.conductivity("SecondaryConductivity", s.TemperatureSecondary, s.Pressure, raw)

	if s.Conductivity != nil && s.Temperature != nil && s.Pressure != nil {
		s.Salinity = round(equations.Salinity(*s.Conductivity, *s.Temperature, *s.Pressure), 4)
	}
	if s.ConductivitySecondary != nil && s.TemperatureSecondary != nil && s.Pressure != nil {
		s.SalinitySecondary = round(equations.Salinity(*s.ConductivitySecondary, *s.TemperatureSecondary, *s.Pressure), 4)
	}

	if s.Salinity != nil && s.Temperature != nil && s.Pressure != nil {
		sal, t, p := *s.Salinity, *s.Temperature, *s.Pressure
		s.SoundVelocityCM = round(equations.SoundVelocityChenMillero(sal, t, p), 2)
		s.SoundVelocityD = round(equations.SoundVelocityDelGrosso(sal, t, p), 2)
		s.SoundVelocityW = round(equations.SoundVelocityWilson(sal, t, p), 2)
	}

	s.Oxygen = c.oxygen("Oxygen", s, raw, previous)
	s.OxygenSecondary = c.oxygen("SecondaryOxygen", s, raw, previous)

	if p, ok := pos["FluoroWetlabECO_AFL_FL_"]; ok {
		f := c.Config.Sensor("FluoroWetlabECO_AFL_FL_")
		if vblank, ok1 := f.Coef("Vblank"); ok1 {
			if scale, ok2 := f.Coef("ScaleFactor"); ok2 {
				s.Fluorescence = round(equations.Fluorescence(raw[p], vblank, scale), 4)
			}
		}
	}
	if p, ok := pos["TurbidityMeter"]; ok {
		t := c.Config.Sensor("TurbidityMeter")
		if dark, ok1 := t.Coef("DarkVoltage"); ok1 {
			if scale, ok2 := t.Coef("ScaleFactor"); ok2 {
				s.Turbidity = round(equations.Turbidity(raw[p], dark, scale), 4)
			}
		}
	}
	if p, ok := pos["Altimeter"]; ok {
		a := c.Config.Sensor("Altimeter")
		if scale, ok1 := a.Coef("ScaleFactor"); ok1 {
			if offset, ok2 := a.Coef("Offset"); ok2 {
				s.AltimeterHeight = round(equations.AltimeterHeight(raw[p], scale, offset), 4)
			}
		}
	}

	if lat != nil {
		s.Latitude = round(*lat, 6)
	}
	if lon != nil {
		s.Longitude = round(*lon, 6)
	}

	return s
}

func (c *Converter) temperature(name string, raw []float64) *float64 {
	p, ok := c.Schema.Positions[name]
	if !ok {
		return nil
	}
	sensor := c.Config.Sensor(name)
	if sensor == nil {
		return nil
	}
	g, ok1 := sensor.Coef("G")
	h, ok2 := sensor.Coef("H")
	i, ok3 := sensor.Coef("I")
	j, ok4 := sensor.Coef("J")
	f0, ok5 := sensor.Coef("F0")
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return nil
	}
	// a dead channel reports zero frequency
	f := raw[p]
	if f <= 0 {
		return nil
	}
	return round(equations.Temperature(f, equations.TemperatureCoefficients{
		G: g, H: h, I: i, J: j, F0: f0,
	}), 4)
}

func (c *Converter) conductivity(name string, t, p *float64, raw []float64) *float64 {
	pp, ok := c.Schema.Positions[name]
	if !ok || t == nil || p == nil {
		return nil
	}
	sensor := c.Config.Sensor(name)
	if sensor == nil {
		return nil
	}
	g, ok1 := sensor.Coef("G")
	h, ok2 := sensor.Coef("H")
	i, ok3 := sensor.Coef("I")
	j, ok4 := sensor.Coef("J")
	cpcor, ok5 := sensor.Coef("CPcor")
	ctcor, ok6 := sensor.Coef("CTcor")
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6) {
		return nil
	}
	return round(equations.Conductivity(raw[pp], *t, *p, equations.ConductivityCoefficients{
		G: g, H: h, I: i, J: j, CPcor: cpcor, CTcor: ctcor,
	}), 4)
}

func (c *Converter) oxygen(name string, s *types.EngineeringSample, raw, previous []float64) *float64 {
	p, ok := c.Schema.Positions[name]
	if !ok || s.Salinity == nil || s.Temperature == nil || s.Pressure == nil {
		return nil
	}
	sensor := c.Config.Sensor(name)
	if sensor == nil {
		return nil
	}
	coef, ok := oxygenCoefficients(sensor)
	if !ok {
		return nil
	}
	var prevVoltage *float64
	if previous != nil && p < len(previous) {
		prevVoltage = &previous[p]
	}
	return round(equations.Oxygen(raw[p], prevVoltage,
		*s.Temperature, *s.Pressure, *s.Salinity, c.Interval, coef), 4)
}

func pressureCoefficients(sensor *types.SensorDefinition) (equations.PressureCoefficients, bool) {
	if sensor == nil {
		return equations.PressureCoefficients{}, false
	}
	var coef equations.PressureCoefficients
	fields := []struct {
		dst  *float64
		name string
	}{
		{&coef.C1, "C1"}, {&coef.C2, "C2"}, {&coef.C3, "C3"},
		{&coef.D1, "D1"}, {&coef.D2, "D2"},
		{&coef.T1, "T1"}, {&coef.T2, "T2"}, {&coef.T3, "T3"}, {&coef.T4, "T4"}, {&coef.T5, "T5"},
		{&coef.AD590M, "AD590M"}, {&coef.AD590B, "AD590B"},
		{&coef.Slope, "Slope"}, {&coef.Offset, "Offset"},
	}
	for _, f := range fields {
		v, ok := sensor.Coef(f.name)
		if !ok {
			return coef, false
		}
		*f.dst = v
	}
	return coef, true
}

func oxygenCoefficients(sensor *types.SensorDefinition) (equations.OxygenCoefficients, bool) {
	var coef equations.OxygenCoefficients
	fields := []struct {
		dst  *float64
		name string
	}{
		{&coef.Soc, "Soc"}, {&coef.VOffset, "offset"},
		{&coef.A, "A"}, {&coef.B, "B"}, {&coef.C, "C"}, {&coef.E, "E"},
		{&coef.Tau20, "Tau20"}, {&coef.D1, "D1"}, {&coef.D2, "D2"},
		{&coef.H1, "H1"}, {&coef.H2, "H2"}, {&coef.H3, "H3"},
	}
	for _, f := range fields {
		v, ok := sensor.Coef(f.name)
		if !ok {
			return coef, false
		}
		*f.dst = v
	}
	return coef, true
}

// round returns v rounded to n decimal places, or nil for non-finite values
func round(v float64, n int) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	scale := math.Pow10(n)
	r := math.Round(v*scale) / scale
	return &r
}
