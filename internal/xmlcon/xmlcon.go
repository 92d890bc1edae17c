// Package xmlcon parses Seabird instrument configuration: the XMLCON
// calibration files that accompany hex casts, and the in-file header
// coefficient blocks of underway ASCII casts. From a parsed configuration it
// builds the field schema that drives raw-frame decoding.
package xmlcon

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/oceandata/ctd-pipeline/internal/types"
)

// ConfigError reports an unusable instrument configuration
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("instrument configuration: %s", e.Reason)
}

// Config is a parsed instrument configuration
type Config struct {
	Instrument      map[string]string // instrument-level settings, by element name
	SensorArraySize int
	Sensors         map[string]*types.SensorDefinition // by sensor name
}

// Sensor returns the named sensor, or nil when the configuration lacks it
func (c *Config) Sensor(name string) *types.SensorDefinition {
	return c.Sensors[name]
}

// element is a generic XML tree node, the configuration files carry
// model-dependent sensor blocks so the structure cannot be fixed up front
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []element  `xml:",any"`
}

func (e *element) attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Parse reads an XMLCON document
func Parse(raw []byte) (*Config, error) {
	var root element
	if err := xml.Unmarshal(raw, &root); err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("malformed xml: %v", err)}
	}

	var instr *element
	for i := range root.Children {
		if root.Children[i].XMLName.Local == "Instrument" {
			instr = &root.Children[i]
			break
		}
	}
	if root.XMLName.Local == "Instrument" {
		instr = &root
	}
	if instr == nil {
		return nil, &ConfigError{Reason: "no Instrument element"}
	}

	cfg := &Config{
		Instrument: make(map[string]string),
		Sensors:    make(map[string]*types.SensorDefinition),
	}

	var sensorArray *element
	for i := range instr.Children {
		item := &instr.Children[i]
		if strings.Contains(item.XMLName.Local, "SensorArray") {
			sensorArray = item
			if v, ok := item.attr("Size"); ok {
				n, err := strconv.Atoi(v)
				if err != nil {
					return nil, &ConfigError{Reason: fmt.Sprintf("bad SensorArray size %q", v)}
				}
				cfg.SensorArraySize = n
			}
		} else {
			cfg.Instrument[item.XMLName.Local] = strings.TrimSpace(item.Text)
		}
	}
	if sensorArray == nil {
		return nil, &ConfigError{Reason: "no SensorArray element"}
	}

	notInUse := 0
	for i := range sensorArray.Children {
		sensor := &sensorArray.Children[i]
		if sensor.XMLName.Local != "Sensor" {
			continue
		}
		idxStr, ok := sensor.attr("index")
		if !ok {
			return nil, &ConfigError{Reason: "Sensor element without index"}
		}
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("bad sensor index %q", idxStr)}
		}
		if len(sensor.Children) == 0 {
			continue
		}
		typeElem := &sensor.Children[0]
		def := parseSensor(typeElem, idx)

		if def.Type == types.SensorNotInUse {
			def.Name = fmt.Sprintf("NotInUse%d", notInUse)
			notInUse++
		} else {
			name := strings.ReplaceAll(string(def.Type), "Sensor", "")
			if _, exists := cfg.Sensors[name]; exists && idx > 2 {
				name = "Secondary" + name
			}
			def.Name = name
		}
		cfg.Sensors[def.Name] = def
	}

	return cfg, nil
}

// parseSensor flattens one sensor block into a coefficient map. Nested
// Coefficients / CalibrationCoefficients groups carry an equation attribute;
// the equation-1 group holds the coefficient set the conversion equations
// expect and overrides same-named values from other groups.
func parseSensor(typeElem *element, index int) *types.SensorDefinition {
	def := &types.SensorDefinition{
		Index:        index,
		Type:         types.SensorType(typeElem.XMLName.Local),
		Coefficients: make(map[string]float64),
	}
	if def.Type == types.SensorNotInUse {
		return def
	}

	var equation1 map[string]float64
	for i := range typeElem.Children {
		item := &typeElem.Children[i]
		tag := item.XMLName.Local
		switch {
		case tag == "Coefficients" || tag == "CalibrationCoefficients":
			group := make(map[string]float64)
			for j := range item.Children {
				coef := &item.Children[j]
				if strings.Contains(strings.ToLower(coef.XMLName.Local), "date") {
					continue
				}
				if v, err := strconv.ParseFloat(strings.TrimSpace(coef.Text), 64); err == nil {
					group[coef.XMLName.Local] = v
				}
			}
			if eq, _ := item.attr("equation"); eq == "1" {
				equation1 = group
			} else {
				for k, v := range group {
					if _, exists := def.Coefficients[k]; !exists {
						def.Coefficients[k] = v
					}
				}
			}
		case strings.Contains(strings.ToLower(tag), "date"):
			// calibration dates are informational only
		case strings.Contains(tag, "SerialNumber"):
			def.SerialNumber = strings.TrimSpace(item.Text)
		default:
			if v, err := strconv.ParseFloat(strings.TrimSpace(item.Text), 64); err == nil {
				def.Coefficients[tag] = v
			}
		}
	}
	for k, v := range equation1 {
		def.Coefficients[k] = v
	}
	return def
}

// Housekeeping field names appended after the sensor array of a hex frame
const (
	FieldNameLatitude   = "NMEA Latitude"
	FieldNameLongitude  = "NMEA Longitude"
	FieldNameLatLonSign = "NMEA Latitude/Longitude Parameters"
	FieldNamePTCompMSB  = "8MSB Pressure Sensor Temp Comp"
	FieldNamePTComp     = "Pressure Temp Comp"
	FieldNameModulo     = "Modulo Count"
)

// frequency-channel sensors, everything else in the array claims an A/D
// voltage channel
var frequencySensors = map[string]bool{
	"Temperature":           true,
	"Conductivity":          true,
	"Pressure":              true,
	"SecondaryTemperature":  true,
	"SecondaryConductivity": true,
}

// BuildSchema derives the hex-frame decode layout from a parsed
// configuration. Sensors are walked in array-index order: frequency channels
// first, then the A/D voltage channels grouped into word pairs, then the
// fixed NMEA position and pressure-compensation tail.
func (c *Config) BuildSchema() (*types.FieldSchema, error) {
	if c.SensorArraySize == 0 {
		return nil, &ConfigError{Reason: "sensor array size is zero"}
	}

	names := make([]string, 0, len(c.Sensors))
	for name := range c.Sensors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return c.Sensors[names[i]].Index < c.Sensors[names[j]].Index
	})

	schema := &types.FieldSchema{
		SensorArraySize: c.SensorArraySize,
		Positions:       make(map[string]int),
	}

	voltageStart := -1
	voltagePairs := make(map[int]bool)
	for _, name := range names {
		sensor := c.Sensors[name]
		schema.Positions[name] = sensor.Index

		if frequencySensors[name] {
			schema.Fields = append(schema.Fields, types.Field{Name: name, Kind: types.FieldFrequency})
			continue
		}
		if sensor.Index >= c.SensorArraySize {
			continue
		}
		if voltageStart < 0 {
			voltageStart = len(schema.Fields)
		}
		channel := sensor.Index - voltageStart
		if channel < 0 {
			return nil, &ConfigError{Reason: fmt.Sprintf("sensor %s at index %d precedes the voltage channels", name, sensor.Index)}
		}
		pair := channel / 2
		if !voltagePairs[pair] {
			voltagePairs[pair] = true
			schema.Fields = append(schema.Fields, types.Field{
				Name: fmt.Sprintf("Voltage Channels %d-%d", 2*pair, 2*pair+1),
				Kind: types.FieldVoltageWord,
			})
		}
	}

	tail := []types.Field{
		{Name: FieldNameLatitude, Kind: types.FieldLatitude},
		{Name: FieldNameLongitude, Kind: types.FieldLongitude},
		{Name: FieldNameLatLonSign, Kind: types.FieldSignByte},
		{Name: FieldNamePTCompMSB, Kind: types.FieldPTCompMSB},
		{Name: FieldNamePTComp, Kind: types.FieldPTCompLSB},
		{Name: FieldNameModulo, Kind: types.FieldModulo},
	}
	pos := c.SensorArraySize
	for _, f := range tail {
		schema.Fields = append(schema.Fields, f)
		schema.Positions[f.Name] = pos
		pos++
	}

	return schema, nil
}
