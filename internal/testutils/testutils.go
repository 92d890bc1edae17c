package testutils

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oceandata/ctd-pipeline/internal/types"
)

// SampleXMLCON returns a minimal instrument configuration with calibrated
// temperature, conductivity, and pressure channels, usable for schema and
// conversion tests.
func SampleXMLCON() string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<SBE_InstrumentConfiguration SB_ConfigCTD_FileVersion="7.26.4.0">
  <Instrument Type="8">
    <Name>SBE 911plus/917plus CTD</Name>
    <FrequencyChannelsSuppressed>0</FrequencyChannelsSuppressed>
    <VoltageWordsSuppressed>0</VoltageWordsSuppressed>
    <SensorArray Size="3">
      <Sensor index="0" SensorID="55">
        <TemperatureSensor SensorID="55">
          <SerialNumber>4242</SerialNumber>
          <CalibrationDate>01-Jan-18</CalibrationDate>
          <G>4.37622768e-003</G>
          <H>6.45022712e-004</H>
          <I>2.34550236e-005</I>
          <J>2.21997383e-006</J>
          <F0>1000.000</F0>
        </TemperatureSensor>
      </Sensor>
      <Sensor index="1" SensorID="3">
        <ConductivitySensor SensorID="3">
          <SerialNumber>2923</SerialNumber>
          <CalibrationDate>01-Jan-18</CalibrationDate>
          <Coefficients equation="0">
            <A>0.0</A>
            <B>0.0</B>
            <C>0.0</C>
            <D>0.0</D>
            <M>0.0</M>
            <CPcor>-9.57000000e-008</CPcor>
          </Coefficients>
          <Coefficients equation="1">
            <G>-1.02142063e+001</G>
            <H>1.57670244e+000</H>
            <I>-1.15033410e-003</I>
            <J>2.02987624e-004</J>
            <CPcor>-9.57000000e-008</CPcor>
            <CTcor>3.2500e-006</CTcor>
          </Coefficients>
        </ConductivitySensor>
      </Sensor>
      <Sensor index="2" SensorID="45">
        <PressureSensor SensorID="45">
          <SerialNumber>0988</SerialNumber>
          <CalibrationDate>01-Jan-18</CalibrationDate>
          <C1>-4.955866e+004</C1>
          <C2>-4.195301e-001</C2>
          <C3>1.372090e-002</C3>
          <D1>3.625800e-002</D1>
          <D2>0.000000e+000</D2>
          <T1>2.997795e+001</T1>
          <T2>-3.788067e-004</T2>
          <T3>4.040360e-006</T3>
          <T4>2.880240e-009</T4>
          <T5>0.000000e+000</T5>
          <Slope>1.00000000</Slope>
          <Offset>0.00000</Offset>
          <AD590M>1.280700e-002</AD590M>
          <AD590B>-9.299640e+000</AD590B>
        </PressureSensor>
      </Sensor>
    </SensorArray>
  </Instrument>
</SBE_InstrumentConfiguration>`
}

// EncodeFrequency renders a sensor frequency as its 3-byte hex field
func EncodeFrequency(f float64) string {
	b0 := int(f / 256)
	rem := f - float64(b0)*256
	b1 := int(rem)
	b2 := int(math.Round((rem - float64(b1)) * 256))
	if b2 > 255 {
		b2 = 255
	}
	return fmt.Sprintf("%02X%02X%02X", b0, b1, b2)
}

// HexLine builds one raw data line from per-channel frequencies plus the
// 10-byte housekeeping tail (position, sign, compensation, modulo).
func HexLine(frequencies ...float64) string {
	var sb strings.Builder
	for _, f := range frequencies {
		sb.WriteString(EncodeFrequency(f))
	}
	// lat, lon, sign byte, 8MSB, pt comp low nibble, modulo
	sb.WriteString("0F4240")
	sb.WriteString("1E8480")
	sb.WriteString("00")
	sb.WriteString("80")
	sb.WriteString("50")
	sb.WriteString("00")
	return sb.String()
}

// VShapeCast builds a synthetic corrected cast descending to maxDepth and
// back, one meter per scan, with pressure tracking depth and constant water
// properties. Invalid flag slices are attached but left all-valid.
func VShapeCast(maxDepth int) *types.Cast {
	header := []string{
		types.ColScan, types.ColDepth, types.ColPressure,
		types.ColTemperature, types.ColSalinity, types.ColConductivity,
		types.ColDate, types.ColTime,
	}
	start := time.Date(2019, 3, 7, 20, 14, 0, 0, time.UTC)
	cast := types.NewCast(types.ModelCTD9, header, start)
	cast.SourceFile = "synthetic.hex"

	n := 2 * maxDepth
	scan := make([]float64, n)
	depth := make([]float64, n)
	pressure := make([]float64, n)
	temperature := make([]float64, n)
	salinity := make([]float64, n)
	conductivity := make([]float64, n)
	for i := 0; i < n; i++ {
		scan[i] = float64(i + 1)
		if i < maxDepth {
			depth[i] = float64(i)
		} else {
			depth[i] = float64(2*maxDepth - i - 1)
		}
		pressure[i] = depth[i] * 1.007
		temperature[i] = 12.5
		salinity[i] = 33.8
		conductivity[i] = 3.7
	}
	cast.SetColumn(types.ColScan, scan)
	cast.SetColumn(types.ColDepth, depth)
	cast.SetColumn(types.ColPressure, pressure)
	cast.SetColumn(types.ColTemperature, temperature)
	cast.SetColumn(types.ColSalinity, salinity)
	cast.SetColumn(types.ColConductivity, conductivity)

	down := make([]float64, n)
	for i := 0; i < maxDepth; i++ {
		down[i] = 1
	}
	cast.SetColumn(types.ColIsDowncast, down)

	for _, col := range []string{types.ColTemperature, types.ColConductivity, types.ColPressure} {
		cast.EnsureInvalid(col)
	}
	return cast
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(condition func() bool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for condition")
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}

// IsIntegrationTest returns true if integration tests are enabled
func IsIntegrationTest() bool {
	return true // This can be controlled by build tags
}
