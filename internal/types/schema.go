package types

// SensorType names the calibration block kinds found in instrument
// configuration files. Values match the XMLCON element names.
type SensorType string

const (
	SensorTemperature  SensorType = "TemperatureSensor"
	SensorConductivity SensorType = "ConductivitySensor"
	SensorPressure     SensorType = "PressureSensor"
	SensorOxygen       SensorType = "OxygenSensor"
	SensorFluorometer  SensorType = "FluoroWetlabECO_AFL_FL_Sensor"
	SensorTurbidity    SensorType = "TurbidityMeter"
	SensorAltimeter    SensorType = "AltimeterSensor"
	SensorNotInUse     SensorType = "NotInUseSensor"
)

// SensorDefinition is one calibrated channel from the instrument
// configuration. Name is the sensor type stripped of its "Sensor" suffix,
// prefixed with "Secondary" for the second sensor of a duplicated type.
// Coefficients holds the calibration values keyed by the element names of the
// configuration file.
type SensorDefinition struct {
	Name         string
	Index        int // position in the instrument's sensor array
	Type         SensorType
	SerialNumber string
	Coefficients map[string]float64
}

// Coef returns a named calibration coefficient and whether it was present
func (s *SensorDefinition) Coef(name string) (float64, bool) {
	v, ok := s.Coefficients[name]
	return v, ok
}

// FieldKind selects the decode rule for one field of a raw hex frame
type FieldKind int

const (
	FieldFrequency  FieldKind = iota // 3 bytes, b0*256 + b1 + b2/256
	FieldVoltageWord                 // 3 bytes, two 12-bit ADC counts
	FieldLatitude                    // 3 bytes, (b0*65536+b1*256+b2)/50000
	FieldLongitude                   // 3 bytes, same encoding as latitude
	FieldSignByte                    // 1 byte, negates the two prior coordinates
	FieldPTCompMSB                   // 1 byte, high 8 bits of the 12-bit ptcomp word
	FieldPTCompLSB                   // 1 byte, top nibble completes the ptcomp word
	FieldModulo                      // 1 byte, frame sequence counter
)

// Field is one decodable region of a raw hex frame. Emitted values are
// appended in field order, so a sensor channel lands at its sensor array
// index and the housekeeping fields land after the array.
type Field struct {
	Name string
	Kind FieldKind
}

// Bytes returns the width of the field in frame bytes
func (f *Field) Bytes() int {
	switch f.Kind {
	case FieldFrequency, FieldVoltageWord, FieldLatitude, FieldLongitude:
		return 3
	default:
		return 1
	}
}

// ValueCount returns how many raw values the field emits
func (f *Field) ValueCount() int {
	if f.Kind == FieldVoltageWord {
		return 2
	}
	return 1
}

// FieldSchema is the complete decode layout of one instrument's hex frame.
// SensorArraySize is the number of raw positions reserved for sensor channels.
// Positions maps sensor and housekeeping field names to the raw sample slot
// their decoded value occupies.
type FieldSchema struct {
	Fields          []Field
	SensorArraySize int
	Positions       map[string]int
}

// LineBytes returns the expected frame width in bytes
func (s *FieldSchema) LineBytes() int {
	n := 0
	for i := range s.Fields {
		n += s.Fields[i].Bytes()
	}
	return n
}

// ValueCount returns the number of raw values one frame decodes to,
// excluding the appended scan counter
func (s *FieldSchema) ValueCount() int {
	n := 0
	for i := range s.Fields {
		n += s.Fields[i].ValueCount()
	}
	return n
}

// PosScan is the appended scan-counter position of a decoded raw sample
func (s *FieldSchema) PosScan() int { return s.ValueCount() }
