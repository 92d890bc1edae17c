// Package decode turns raw instrument records into numeric raw samples: hex
// frames for the frequency/voltage CTD models and whitespace-separated ASCII
// records for the underway and SBE 39 models. Decoding is deterministic and
// carries no calibration knowledge; engineering conversion happens downstream.
package decode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oceandata/ctd-pipeline/internal/types"
)

// DecodeError reports a single undecodable record. Records that fail decoding
// are skipped, never silently repaired.
type DecodeError struct {
	Line   int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// HexDecoder decodes fixed-layout hex frames per a field schema
type HexDecoder struct {
	schema *types.FieldSchema
}

// NewHexDecoder creates a decoder for the given schema
func NewHexDecoder(schema *types.FieldSchema) *HexDecoder {
	return &HexDecoder{schema: schema}
}

// DecodeLine decodes one hex frame into raw sensor values, appending the
// 1-based scan counter as the final value. The schema's byte width must
// divide the frame's byte length; a shorter or odd-length frame is an error.
func (d *HexDecoder) DecodeLine(line string, scan int) ([]float64, error) {
	line = strings.TrimSpace(line)
	if len(line)%2 != 0 {
		return nil, &DecodeError{Line: scan, Reason: fmt.Sprintf("odd hex length %d", len(line))}
	}
	buf := make([]byte, len(line)/2)
	for i := 0; i < len(buf); i++ {
		v, err := strconv.ParseUint(line[2*i:2*i+2], 16, 8)
		if err != nil {
			return nil, &DecodeError{Line: scan, Reason: fmt.Sprintf("bad hex byte at offset %d", 2*i)}
		}
		buf[i] = byte(v)
	}

	want := d.schema.LineBytes()
	if want == 0 || len(buf) < want || len(buf)%want != 0 {
		return nil, &DecodeError{Line: scan,
			Reason: fmt.Sprintf("frame is %d bytes, schema needs a multiple of %d", len(buf), want)}
	}

	raw := make([]float64, 0, d.schema.ValueCount()+1)
	pos := 0
	for _, field := range d.schema.Fields {
		switch field.Kind {
		case types.FieldFrequency:
			b0, b1, b2 := float64(buf[pos]), float64(buf[pos+1]), float64(buf[pos+2])
			raw = append(raw, b0*256+b1+b2/256)

		case types.FieldVoltageWord:
			// three bytes pack two 12-bit ADC counts
			word := uint32(buf[pos])<<16 | uint32(buf[pos+1])<<8 | uint32(buf[pos+2])
			first := float64(word >> 12)
			second := float64(word & 0xFFF)
			raw = append(raw, 5*(1-first/4095), 5*(1-second/4095))

		case types.FieldLatitude, types.FieldLongitude:
			b0, b1, b2 := float64(buf[pos]), float64(buf[pos+1]), float64(buf[pos+2])
			raw = append(raw, (b0*65536+b1*256+b2)/50000)

		case types.FieldSignByte:
			// top two bits flip the sign of the two preceding coordinates;
			// the field still occupies a raw slot
			if buf[pos]&0x80 != 0 {
				raw[len(raw)-2] = -raw[len(raw)-2]
			}
			if buf[pos]&0x40 != 0 {
				raw[len(raw)-1] = -raw[len(raw)-1]
			}
			raw = append(raw, 0)

		case types.FieldPTCompMSB:
			raw = append(raw, float64(buf[pos]))

		case types.FieldPTCompLSB:
			// high nibble completes the 12-bit compensation word started by
			// the preceding byte
			msb := raw[len(raw)-1]
			raw = append(raw, msb*16+float64(buf[pos]>>4))

		case types.FieldModulo:
			raw = append(raw, float64(buf[pos]))

		default:
			return nil, &DecodeError{Line: scan, Reason: fmt.Sprintf("unknown field kind %d", field.Kind)}
		}
		pos += field.Bytes()
	}

	raw = append(raw, float64(scan))
	return raw, nil
}

// DecodeASCIILine decodes one whitespace-separated record with the given
// number of expected leading numeric columns. Records with fewer columns are
// reported as errors and skipped by callers.
func DecodeASCIILine(line string, columns, scan int) ([]float64, error) {
	parts := strings.Fields(line)
	if len(parts) < columns {
		return nil, &DecodeError{Line: scan,
			Reason: fmt.Sprintf("record has %d columns, need %d", len(parts), columns)}
	}
	values := make([]float64, columns)
	for i := 0; i < columns; i++ {
		v, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return nil, &DecodeError{Line: scan,
				Reason: fmt.Sprintf("column %d is not numeric: %q", i, parts[i])}
		}
		values[i] = v
	}
	return values, nil
}
