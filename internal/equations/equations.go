// Package equations implements the Seabird sensor calibration equations that
// turn raw frequencies, ADC voltages, and packed words into physical
// quantities. Coefficient struct fields mirror the element names of the
// instrument configuration files.
package equations

import (
	"math"

	"github.com/oceandata/ctd-pipeline/internal/seawater"
)

// PressureCoefficients is the Digiquartz calibration block
type PressureCoefficients struct {
	C1, C2, C3         float64
	D1, D2             float64
	T1, T2, T3, T4, T5 float64
	AD590M, AD590B     float64
	Slope, Offset      float64
}

// Pressure converts a Digiquartz frequency f (Hz) and the 12-bit
// pressure-temperature compensation word into decibars.
func Pressure(f, ptComp float64, c PressureCoefficients) float64 {
	td := c.AD590M*ptComp + c.AD590B

	cc := c.C1 + c.C2*td + c.C3*td*td
	dd := c.D1 + c.D2*td
	t0 := c.T1 + (c.T2+(c.T3+(c.T4+c.T5*td)*td)*td)*td

	// t0 is a period in microseconds
	tf := t0 * f / 1e6
	w := 1 - tf*tf
	psia := cc * w * (1 - dd*w)
	p := (psia - 14.7) * 0.689476
	return p*c.Slope + c.Offset
}

// TemperatureCoefficients is the SBE 3 calibration block
type TemperatureCoefficients struct {
	G, H, I, J float64
	F0         float64
}

// Temperature converts an SBE 3 frequency f (Hz) to degC (ITS-90)
func Temperature(f float64, c TemperatureCoefficients) float64 {
	lf := math.Log(c.F0 / f)
	return 1/(c.G+(c.H+(c.I+c.J*lf)*lf)*lf) - 273.15
}

// ConductivityCoefficients is the SBE 4 calibration block
type ConductivityCoefficients struct {
	G, H, I, J   float64
	CPcor, CTcor float64
}

// Conductivity converts an SBE 4 frequency f (Hz) to S/m, compensated by
// temperature t (degC) and pressure p (decibar).
func Conductivity(f, t, p float64, c ConductivityCoefficients) float64 {
	fk := f / 1000
	return (c.G + (c.H+(c.I+c.J*fk)*fk)*fk*fk) /
		(10 * (1 + c.CTcor*t + c.CPcor*p))
}

// Salinity computes practical salinity (PSU) from conductivity c (S/m),
// temperature t (degC) and pressure p (decibar).
func Salinity(c, t, p float64) float64 {
	return seawater.Salt(c*10/seawater.C3515, t, p)
}

// Depth converts pressure p (decibar) at a latitude (decimal degrees) to
// salt-water depth in meters, Fofonoff & Millard gravity variation formula.
func Depth(p, latitude float64) float64 {
	x := math.Sin(latitude / 57.29578)
	x = x * x
	gr := 9.780318*(1.0+(5.2788e-3+2.36e-5*x)*x) + 1.092e-6*p
	return ((((-1.82e-15*p+2.279e-10)*p-2.2512e-5)*p + 9.72659) * p) / gr
}

// SoundVelocityChenMillero computes sound velocity (m/s) from salinity s
// (PSU), temperature t (degC), pressure p (decibar). Chen & Millero 1977,
// UNESCO formulation.
func SoundVelocityChenMillero(s, t, p float64) float64 {
	p = p / 10 // decibar to bar
	sr := math.Sqrt(math.Abs(s))

	d := 1.727e-3 - 7.9836e-6*p

	b1 := 7.3637e-5 + 1.7945e-7*t
	b0 := -1.922e-2 - 4.42e-5*t
	b := b0 + b1*p

	a3 := (-3.389e-13*t+6.649e-12)*t + 1.100e-10
	a2 := ((7.988e-12*t-1.6002e-10)*t+9.1041e-9)*t - 3.9064e-7
	a1 := (((-2.0122e-10*t+1.0507e-8)*t-6.4885e-8)*t-1.2580e-5)*t + 9.4742e-5
	a0 := (((-3.21e-8*t+2.006e-6)*t+7.164e-5)*t-1.262e-2)*t + 1.389
	a := ((a3*p+a2)*p+a1)*p + a0

	c3 := (-2.3643e-12*t+3.8504e-10)*t - 9.7729e-9
	c2 := (((1.0405e-12*t-2.5335e-10)*t+2.5974e-8)*t-1.7107e-6)*t + 3.1260e-5
	c1 := (((-6.1185e-10*t+1.3621e-7)*t-8.1788e-6)*t+6.8982e-4)*t + 0.153563
	c0 := ((((3.1464e-9*t-1.47800e-6)*t+3.3420e-4)*t-5.80852e-2)*t+5.03711)*t + 1402.388
	c := ((c3*p+c2)*p+c1)*p + c0

	return c + (a+b*sr+d*s)*s
}

// SoundVelocityDelGrosso computes sound velocity (m/s), Del Grosso 1974
func SoundVelocityDelGrosso(s, t, p float64) float64 {
	p1 := p * 0.1019716 // decibar to kg/cm2

	c000 := 1402.392
	dct := (0.501109398873e1 - (0.550946843172e-1-0.221535969240e-3*t)*t) * t
	dcs := (0.132952290781e1 + 0.128955756844e-3*s) * s
	dcp := (0.156059257041e0 + (0.244998688441e-4-0.883392332513e-8*p1)*p1) * p1
	dcstp := -0.127562783426e-1*t*s + 0.635191613389e-2*t*p1 +
		0.265484716608e-7*t*t*p1*p1 - 0.159349479045e-5*t*p1*p1 +
		0.522116437235e-9*t*p1*p1*p1 - 0.438031096213e-6*t*t*t*p1 -
		0.161674495909e-8*s*s*p1*p1 + 0.968403156410e-4*t*t*s +
		0.485639620015e-5*t*s*s*p1 - 0.340597039004e-3*t*s*p1

	return c000 + dct + dcs + dcp + dcstp
}

// SoundVelocityWilson computes sound velocity (m/s), Wilson 1960
func SoundVelocityWilson(s, t, p float64) float64 {
	pr := 0.1019716 * (p + 10.1325) // absolute pressure, kg/cm2
	sd := s - 35.0

	a := (((7.9851e-6*t-2.6045e-4)*t-4.4532e-2)*t+4.5721)*t + 1449.14
	sv := (7.7711e-7*t-1.1244e-2)*t + 1.39799
	v0 := (1.69202e-3*sd+sv)*sd + a

	a = ((4.5283e-8*t+7.4812e-6)*t-1.8607e-4)*t + 0.16072
	sv = (1.579e-9*t+3.158e-8)*t + 7.7016e-5
	v1 := (sv*sd + a) * pr

	a = (1.8563e-9*t-2.5294e-7)*t + 1.0268e-5
	sv = -1.2943e-7*sd + a
	v2 := sv * pr * pr

	a = -1.9646e-10*t + 3.5216e-9
	v3 := (a - 3.3603e-12*pr) * pr * pr * pr

	return v0 + v1 + v2 + v3
}

// OxygenCoefficients is the SBE 43 calibration block. H1..H3 are the
// hysteresis coefficients; they are carried from the configuration but the
// conversion applies only the tau time-constant correction.
type OxygenCoefficients struct {
	Soc        float64
	VOffset    float64
	A, B, C    float64
	E          float64
	Tau20      float64
	D1, D2     float64
	H1, H2, H3 float64
}

// Oxygen converts an SBE 43 voltage to dissolved oxygen in ml/l. The tau
// correction needs the rate of voltage change, so the previous scan's voltage
// and the scan interval (seconds) are required; with no previous scan the
// rate term is zero.
func Oxygen(voltage float64, previousVoltage *float64, t, p, s, interval float64, c OxygenCoefficients) float64 {
	dVdt := 0.0
	if previousVoltage != nil && interval > 0 {
		dVdt = (voltage - *previousVoltage) / interval
	}
	tau := c.Tau20 * math.Exp(c.D1*p+c.D2*(t-20))

	return c.Soc * (voltage + c.VOffset + tau*dVdt) *
		OxygenSolubility(t, s) *
		(1 + c.A*t + c.B*t*t + c.C*t*t*t) *
		math.Exp(c.E*p/(t+273.15))
}

// OxygenSolubility is oxygen saturation in ml/l, Garcia & Gordon 1992
func OxygenSolubility(t, s float64) float64 {
	const (
		a0 = 2.00907
		a1 = 3.22014
		a2 = 4.05010
		a3 = 4.94457
		a4 = -0.256847
		a5 = 3.88767

		b0 = -6.24523e-3
		b1 = -7.37614e-3
		b2 = -1.03410e-2
		b3 = -8.17083e-3

		c0 = -4.88682e-7
	)
	ts := math.Log((298.15 - t) / (273.15 + t))

	return math.Exp(a0 + (a1+(a2+(a3+(a4+a5*ts)*ts)*ts)*ts)*ts +
		s*(b0+(b1+(b2+b3*ts)*ts)*ts) + c0*s*s)
}

// Fluorescence converts a WET Labs ECO-AFL voltage to ug/l
func Fluorescence(voltage, darkOutput, scaleFactor float64) float64 {
	return scaleFactor * (voltage - darkOutput)
}

// Turbidity converts a turbidity meter voltage to NTU
func Turbidity(voltage, darkOutput, scaleFactor float64) float64 {
	return scaleFactor * (voltage - darkOutput)
}

// AltimeterHeight converts an altimeter voltage to height above bottom in
// meters, 300 m full scale.
func AltimeterHeight(voltage, scaleFactor, offset float64) float64 {
	return 300*voltage/scaleFactor + offset
}
