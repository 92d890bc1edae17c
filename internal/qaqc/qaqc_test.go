package qaqc

import (
	"math"
	"testing"
	"time"

	"github.com/oceandata/ctd-pipeline/internal/seawater"
	"github.com/oceandata/ctd-pipeline/internal/testutils"
	"github.com/oceandata/ctd-pipeline/internal/types"
)

func newTestCast(model types.Model) *types.Cast {
	start := time.Date(2019, 3, 7, 20, 14, 0, 0, time.UTC)
	return types.NewCast(model, []string{types.ColScan}, start)
}

func TestSetDowncast(t *testing.T) {
	c := newTestCast(types.ModelCTD9)
	depth := make([]float64, 100)
	for i := 0; i < 50; i++ {
		depth[i] = float64(i)
	}
	for i := 50; i < 100; i++ {
		depth[i] = float64(99 - i)
	}
	c.SetColumn(types.ColDepth, depth)

	SetDowncast(c)

	flags := c.Column(types.ColIsDowncast)
	if flags == nil {
		t.Fatal("is_downcast column missing")
	}
	// the deepest reading repeats at the turn (rows 49 and 50); the split
	// takes its last occurrence, so row 50 still belongs to the descent
	for i := 0; i <= 50; i++ {
		if flags[i] != 1 {
			t.Errorf("row %d should be downcast", i)
		}
	}
	for i := 51; i < 100; i++ {
		if flags[i] != 0 {
			t.Errorf("row %d should be upcast", i)
		}
	}
}

func TestSetDowncast_IgnoresDepthSpikes(t *testing.T) {
	c := newTestCast(types.ModelCTD9)
	depth := []float64{0, 5, 10, 900, 15, 20, 15, 10, 5, 0}
	c.SetColumn(types.ColDepth, depth)

	SetDowncast(c)

	// 900 jumps by more than 100 m and is excluded, so the split lands on the
	// 20 m row
	flags := c.Column(types.ColIsDowncast)
	if flags[5] != 1 {
		t.Error("deepest plausible row should be downcast")
	}
	if flags[6] != 0 {
		t.Error("rows after the deepest plausible row should be upcast")
	}
}

func TestSetDowncast_NoUsableMaximum(t *testing.T) {
	c := newTestCast(types.ModelCTD9)
	c.SetColumn(types.ColDepth, []float64{math.NaN(), math.NaN(), math.NaN()})

	SetDowncast(c)

	for i, f := range c.Column(types.ColIsDowncast) {
		if f != 1 {
			t.Errorf("row %d should default to downcast", i)
		}
	}
}

func TestSetVerticalVelocity(t *testing.T) {
	c := newTestCast(types.ModelCTD9)
	p := make([]float64, 50)
	for i := range p {
		p[i] = float64(i) // 1 dbar per scan
	}
	c.SetColumn(types.ColPressure, p)

	SetVerticalVelocity(c)

	dpdt := c.Column(types.ColVerticalVelocity)
	if dpdt == nil {
		t.Fatal("dPdt column missing")
	}
	// at 24 Hz a 1 dbar/scan ramp is 24 dbar/s, edges copied from the interior
	for i := range dpdt {
		if math.Abs(dpdt[i]-24) > 1e-9 {
			t.Errorf("dPdt[%d] mismatch: got %v, want 24", i, dpdt[i])
		}
	}
}

func TestSetVerticalVelocity_TooShort(t *testing.T) {
	c := newTestCast(types.ModelCTD9)
	c.SetColumn(types.ColPressure, []float64{1, 2})

	SetVerticalVelocity(c)

	if c.HasColumn(types.ColVerticalVelocity) {
		t.Error("dPdt should not be computed for a two-scan cast")
	}
}

func TestCorrectTemperatureLag(t *testing.T) {
	c := newTestCast(types.ModelCTD9)
	n := 100
	temp := make([]float64, n)
	dpdt := make([]float64, n)
	for i := range temp {
		temp[i] = float64(i + 1) // linear in scan
		dpdt[i] = 1.0            // exactly the second lag bin
	}
	c.SetColumn(types.ColTemperature, temp)
	c.SetColumn(types.ColVerticalVelocity, dpdt)

	CorrectTemperatureLag(c)

	// at 1 dbar/s the lag table reads -0.190621 scans, and a linear series
	// resamples exactly
	shifted := c.Column(types.ColTemperature)
	for i := 1; i < n-1; i++ {
		want := float64(i+1) + lagTable[1]
		if math.Abs(shifted[i]-want) > 1e-9 {
			t.Errorf("shifted[%d] mismatch: got %v, want %v", i, shifted[i], want)
		}
	}
}

func TestCorrectViscousHeating(t *testing.T) {
	c := newTestCast(types.ModelCTD9)
	n := 10
	temp := make([]float64, n)
	cond := make([]float64, n)
	pres := make([]float64, n)
	dpdt := make([]float64, n)
	for i := range temp {
		temp[i] = 12.5
		cond[i] = 3.7
		pres[i] = 100
		dpdt[i] = 2
	}
	c.SetColumn(types.ColTemperature, temp)
	c.SetColumn(types.ColConductivity, cond)
	c.SetColumn(types.ColPressure, pres)
	c.SetColumn(types.ColVerticalVelocity, dpdt)

	CorrectViscousHeating(c)

	// frictional heating reads warm, so the correction cools every scan by a
	// sub-millidegree amount
	after := c.Column(types.ColTemperature)
	for i := range after {
		if after[i] >= 12.5 {
			t.Errorf("temperature[%d] not reduced: got %v", i, after[i])
		}
		if 12.5-after[i] > 0.01 {
			t.Errorf("correction too large at %d: got %v", i, 12.5-after[i])
		}
	}
}

func TestCellVelocity_Monotonic(t *testing.T) {
	// faster free-stream flow always means faster flow in the cell
	prev := cellVelocity(0.1)
	for _, dpdt := range []float64{0.5, 1, 2, 4} {
		v := cellVelocity(dpdt)
		if v <= prev {
			t.Errorf("cellVelocity(%v) not increasing: got %v after %v", dpdt, v, prev)
		}
		prev = v
	}
}

func TestThermalMassCoefficients_Floor(t *testing.T) {
	// below the velocity floor the coefficients stop changing
	a1, t1 := thermalMassCoefficients(0.01)
	a2, t2 := thermalMassCoefficients(0.125)
	if a1 != a2 || t1 != t2 {
		t.Errorf("floor not applied: got (%v, %v) and (%v, %v)", a1, t1, a2, t2)
	}

	a3, t3 := thermalMassCoefficients(1.0)
	if a3 >= a2 || t3 >= t2 {
		t.Error("alpha and tau should fall with velocity")
	}
}

func TestCorrectThermalMass_ConstantTemperature(t *testing.T) {
	c := newTestCast(types.ModelCTD9)
	n := 20
	temp := make([]float64, n)
	cond := make([]float64, n)
	pres := make([]float64, n)
	dpdt := make([]float64, n)
	for i := range temp {
		temp[i] = 12.5
		cond[i] = 3.7
		pres[i] = 100
		dpdt[i] = 1
	}
	c.SetColumn(types.ColTemperature, temp)
	c.SetColumn(types.ColConductivity, cond)
	c.SetColumn(types.ColPressure, pres)
	c.SetColumn(types.ColVerticalVelocity, dpdt)

	CorrectThermalMass(c)

	// with no temperature gradient the cell holds no heat to release
	for i, v := range c.Column(types.ColConductivity) {
		if v != 3.7 {
			t.Errorf("conductivity[%d] changed: got %v", i, v)
		}
	}
}

func TestCorrectThermalMass_GradientShiftsConductivity(t *testing.T) {
	c := newTestCast(types.ModelCTD9)
	n := 20
	temp := make([]float64, n)
	cond := make([]float64, n)
	pres := make([]float64, n)
	dpdt := make([]float64, n)
	for i := range temp {
		temp[i] = 15 - 0.1*float64(i) // cooling through the thermocline
		cond[i] = 3.7
		pres[i] = 100
		dpdt[i] = 1
	}
	c.SetColumn(types.ColTemperature, temp)
	c.SetColumn(types.ColConductivity, cond)
	c.SetColumn(types.ColPressure, pres)
	c.SetColumn(types.ColVerticalVelocity, dpdt)

	CorrectThermalMass(c)

	changed := false
	for _, v := range c.Column(types.ColConductivity)[1:] {
		if v != 3.7 {
			changed = true
		}
	}
	if !changed {
		t.Error("expected a correction through a temperature gradient")
	}
}

func TestRecomputeSalinity(t *testing.T) {
	c := newTestCast(types.ModelCTD9)
	ref := seawater.C3515 / 10
	t90 := 15 / 1.00024 // the 35 PSU definition point is at 15 degC IPTS-68
	c.SetColumn(types.ColSalinity, []float64{0, 0})
	c.SetColumn(types.ColConductivity, []float64{ref, ref})
	c.SetColumn(types.ColTemperature, []float64{t90, t90})
	c.SetColumn(types.ColPressure, []float64{0, 0})

	RecomputeSalinity(c)

	for i, s := range c.Column(types.ColSalinity) {
		if math.Abs(s-35) > 1e-6 {
			t.Errorf("salinity[%d] mismatch: got %v, want 35", i, s)
		}
	}
}

func TestSetDensity(t *testing.T) {
	c := newTestCast(types.ModelCTD9)
	c.SetColumn(types.ColSalinity, []float64{35})
	c.SetColumn(types.ColTemperature, []float64{10})
	c.SetColumn(types.ColPressure, []float64{0})

	SetDensity(c)

	dens := c.Column(types.ColDensity)
	sigma := c.Column(types.ColSigmaTheta)
	if dens == nil || sigma == nil {
		t.Fatal("density columns missing")
	}
	if dens[0] < 1020 || dens[0] > 1030 {
		t.Errorf("density out of range: got %v", dens[0])
	}
	// at the surface sigma theta is just density minus 1000
	if math.Abs(sigma[0]-(dens[0]-1000)) > 1e-9 {
		t.Errorf("sigma theta mismatch: got %v, want %v", sigma[0], dens[0]-1000)
	}
}

func TestCorrectLoopEdit_FlagsReversal(t *testing.T) {
	c := newTestCast(types.ModelCTD9)
	n := 2000
	dpdt := make([]float64, n)
	for i := range dpdt {
		dpdt[i] = 1.0
	}
	// a ten-scan heave reversal mid-descent
	for i := 1000; i < 1010; i++ {
		dpdt[i] = -0.5
	}
	c.SetColumn(types.ColVerticalVelocity, dpdt)

	CorrectLoopEdit(c, LoopEditWindowTime, LoopEditThreshold)

	flags := c.Invalid(types.ColVerticalVelocity)
	if flags == nil {
		t.Fatal("dPdt flags missing")
	}
	for i := range flags {
		want := i >= 1000 && i < 1010
		if flags[i] != want {
			t.Errorf("flag[%d] mismatch: got %v, want %v", i, flags[i], want)
		}
	}
}

func TestCorrectLoopEdit_ShortCastStaysValid(t *testing.T) {
	// the rolling window never fits, so nothing can be flagged
	c := newTestCast(types.ModelCTD9)
	c.SetColumn(types.ColVerticalVelocity, []float64{1, -1, 1, -1, 1})

	CorrectLoopEdit(c, LoopEditWindowTime, LoopEditThreshold)

	for i, bad := range c.Invalid(types.ColVerticalVelocity) {
		if bad {
			t.Errorf("flag[%d] should be valid when the window does not fit", i)
		}
	}
}

func TestRollingMean(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	mean := rollingMean(x, 4)

	// centered window of 4: positions without a full window are NaN
	if !math.IsNaN(mean[0]) {
		t.Errorf("leading position should be NaN: got %v", mean[0])
	}
	if !math.IsNaN(mean[4]) || !math.IsNaN(mean[5]) {
		t.Errorf("trailing positions should be NaN: got %v, %v", mean[4], mean[5])
	}
	if mean[1] != 2.5 {
		t.Errorf("mean[1] mismatch: got %v, want 2.5", mean[1])
	}
	if mean[2] != 3.5 {
		t.Errorf("mean[2] mismatch: got %v, want 3.5", mean[2])
	}
	if mean[3] != 4.5 {
		t.Errorf("mean[3] mismatch: got %v, want 4.5", mean[3])
	}
}

func TestFlagSoak(t *testing.T) {
	c := newTestCast(types.ModelUnderway)
	c.SetColumn(types.ColPressure, []float64{0.5, 1.8, 2.0, 3.5, 10})
	c.SetColumn(types.ColTemperature, []float64{22, 18, 14, 12, 11.5})

	flagSoak(c)

	flags := c.Invalid(types.ColTemperature)
	if flags == nil {
		t.Fatal("temperature flags missing")
	}
	want := []bool{true, true, true, false, false}
	for i := range want {
		if flags[i] != want[i] {
			t.Errorf("flag[%d] mismatch: got %v, want %v", i, flags[i], want[i])
		}
	}
}

func TestCorrect_FullSequence(t *testing.T) {
	c := testutils.VShapeCast(50)

	Correct(c)

	// the correction adds the derived columns
	for _, col := range []string{types.ColVerticalVelocity, types.ColDensity, types.ColSigmaTheta} {
		if !c.HasColumn(col) {
			t.Errorf("column %s missing after correction", col)
		}
	}
	// and every flagged column carries a full flag slice
	for _, col := range flaggedColumns {
		if !c.HasColumn(col) {
			continue
		}
		flags := c.Invalid(col)
		if flags == nil {
			t.Errorf("column %s has no flags after correction", col)
			continue
		}
		if len(flags) != c.Len() {
			t.Errorf("flag length mismatch for %s: got %v, want %v", col, len(flags), c.Len())
		}
	}

	// the downcast split survives on the V shape
	down := c.Column(types.ColIsDowncast)
	if down[0] != 1 || down[c.Len()-1] != 0 {
		t.Errorf("downcast split mismatch: got first %v, last %v", down[0], down[c.Len()-1])
	}
}

func TestInterpolate(t *testing.T) {
	xs := []float64{0, 1, 2}
	ys := []float64{0, 10, 40}

	tests := []struct {
		x, want float64
	}{
		{0.5, 5},
		{1, 10},
		{1.5, 25},
		{-1, -10}, // extrapolates the first segment
		{3, 70},   // extrapolates the last segment
	}
	for _, tt := range tests {
		if got := interpolate(xs, ys, tt.x); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("interpolate(%v) mismatch: got %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestCorrect_MissingColumnsNoOp(t *testing.T) {
	// a cast without pressure cannot crash the sequence
	c := newTestCast(types.ModelCTD9)
	c.SetColumn(types.ColTemperature, []float64{10, 11, 12})

	Correct(c)

	if c.HasColumn(types.ColVerticalVelocity) {
		t.Error("dPdt should not appear without pressure")
	}
	if c.HasColumn(types.ColDensity) {
		t.Error("density should not appear without salinity and pressure")
	}
}
