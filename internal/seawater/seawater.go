// Package seawater implements the UNESCO 1983 (EOS-80) seawater property
// equations used by the conversion and correction pipelines: practical
// salinity from conductivity ratio and its inverse, density, potential
// temperature and density, and the transport properties needed for the
// viscous-heating correction. Temperatures are ITS-90 on input; the T68
// conversion factor 1.00024 is applied internally where the polynomials
// require it.
package seawater

import "math"

// C3515 is the conductivity of standard seawater, S=35 PSU, T=15 degC
// (IPTS-68), P=0 decibar, in mS/cm.
const C3515 = 42.914

// Salt computes practical salinity (PSS-78) from conductivity ratio r,
// temperature t (degC) and pressure p (decibar).
func Salt(r, t, p float64) float64 {
	rt := salRT(t)
	rp := salRP(r, t, p)
	return sals(r/(rp*rt), t)
}

// salRT is the conductivity ratio rt(T) = C(35,T,0)/C(35,15(IPTS-68),0)
func salRT(t float64) float64 {
	t68 := t * 1.00024

	const (
		c0 = 0.6766097
		c1 = 2.00564e-2
		c2 = 1.104259e-4
		c3 = -6.9698e-7
		c4 = 1.0031e-9
	)
	return c0 + (c1+(c2+(c3+c4*t68)*t68)*t68)*t68
}

// salRP is the pressure correction term Rp in R = Rp*rt*Rt
func salRP(r, t, p float64) float64 {
	t68 := t * 1.00024

	const (
		d1 = 3.426e-2
		d2 = 4.464e-4
		d3 = 4.215e-1
		d4 = -3.107e-3

		e1 = 2.070e-5
		e2 = -6.370e-10
		e3 = 3.989e-15
	)
	return 1 + (p*(e1+e2*p+e3*p*p))/
		(1+d1*t68+d2*t68*t68+(d3+d4*t68)*r)
}

// sals evaluates the UNESCO salinity polynomial in Rt at temperature t
func sals(rt, t float64) float64 {
	delT68 := t*1.00024 - 15

	const (
		a0 = 0.0080
		a1 = -0.1692
		a2 = 25.3851
		a3 = 14.0941
		a4 = -7.0261
		a5 = 2.7081

		b0 = 0.0005
		b1 = -0.0056
		b2 = -0.0066
		b3 = -0.0375
		b4 = 0.0636
		b5 = -0.0144

		k = 0.0162
	)

	rtx := math.Sqrt(rt)
	delS := (delT68 / (1 + k*delT68)) *
		(b0 + (b1+(b2+(b3+(b4+b5*rtx)*rtx)*rtx)*rtx)*rtx)

	return a0 + (a1+(a2+(a3+(a4+a5*rtx)*rtx)*rtx)*rtx)*rtx + delS
}

// salDS is dS/d(sqrt(Rt)) at constant temperature, delT = T68 - 15
func salDS(rtx, delT float64) float64 {
	const (
		a1 = -0.1692
		a2 = 25.3851
		a3 = 14.0941
		a4 = -7.0261
		a5 = 2.7081

		b1 = -0.0056
		b2 = -0.0066
		b3 = -0.0375
		b4 = 0.0636
		b5 = -0.0144

		k = 0.0162
	)

	return a1 + (2*a2+(3*a3+(4*a4+5*a5*rtx)*rtx)*rtx)*rtx +
		(delT/(1+k*delT))*
			(b1+(2*b2+(3*b3+(4*b4+5*b5*rtx)*rtx)*rtx)*rtx)
}

// Cndr inverts Salt: conductivity ratio from salinity s (PSU), temperature t
// (degC) and pressure p (decibar). Newton iteration on sqrt(Rt), then the
// closed-form pressure-term quadratic.
func Cndr(s, t, p float64) float64 {
	t68 := t * 1.00024

	rx := 0.0
	if s >= 0 {
		rx = math.Sqrt(s / 35.0)
	}
	sInc := sals(rx*rx, t)
	dels := 10000.0
	prev := rx
	for iter := 0; dels > 1.0e-10 && iter < 100 && rx >= 0.0005; iter++ {
		prev = rx
		rx += (s - sInc) / salDS(rx, t/1.00024-15)
		sInc = sals(rx*rx, t)
		dels = math.Abs(sInc - s)
	}
	// an iterate below the floor is unusable, keep the last good one
	if rx < 0.0005 {
		rx = prev
	}

	const (
		d1 = 3.426e-2
		d2 = 4.464e-4
		d3 = 4.215e-1
		d4 = -3.107e-3

		e1 = 2.070e-5
		e2 = -6.370e-10
		e3 = 3.989e-15
	)

	a := d3 + d4*t68
	b := 1 + d1*t68 + d2*t68*t68
	c := p * (e1 + e2*p + e3*p*p)

	rt := rx * rx
	rtT := salRT(t)
	d := b - a*rtT*rt
	e := rtT * rt * a * (b + c)
	return 0.5 * (math.Sqrt(math.Abs(d*d+4*e)) - d) / a
}

// Dens computes seawater density (kg/m3) at salinity s (PSU), temperature t
// (degC) and pressure p (decibar).
func Dens(s, t, p float64) float64 {
	densP0 := Dens0(s, t)
	k := Seck(s, t, p)
	p = p / 10 // decibar to bar
	return densP0 / (1 - p/k)
}

// Dens0 is density at atmospheric pressure
func Dens0(s, t float64) float64 {
	t68 := t * 1.00024

	const (
		b0 = 8.24493e-1
		b1 = -4.0899e-3
		b2 = 7.6438e-5
		b3 = -8.2467e-7
		b4 = 5.3875e-9

		c0 = -5.72466e-3
		c1 = 1.0227e-4
		c2 = -1.6546e-6

		d0 = 4.8314e-4
	)
	return SMOW(t) + (b0+(b1+(b2+(b3+b4*t68)*t68)*t68)*t68)*s +
		(c0+(c1+c2*t68)*t68)*s*math.Sqrt(s) + d0*s*s
}

// Seck is the secant bulk modulus of seawater
func Seck(s, t, p float64) float64 {
	p = p / 10 // decibar to bar
	t68 := t * 1.00024

	const (
		h3 = -5.77905e-7
		h2 = 1.16092e-4
		h1 = 1.43713e-3
		h0 = 3.239908
	)
	aw := h0 + (h1+(h2+h3*t68)*t68)*t68

	const (
		k2 = 5.2787e-8
		k1 = -6.12293e-6
		k0 = 8.50935e-5
	)
	bw := k0 + (k1+k2*t68)*t68

	const (
		e4 = -5.155288e-5
		e3 = 1.360477e-2
		e2 = -2.327105
		e1 = 148.4206
		e0 = 19652.21
	)
	kw := e0 + (e1+(e2+(e3+e4*t68)*t68)*t68)*t68

	const (
		j0 = 1.91075e-4

		i2 = -1.6078e-6
		i1 = -1.0981e-5
		i0 = 2.2838e-3
	)
	sr := math.Sqrt(s)
	a := aw + (i0+(i1+i2*t68)*t68+j0*sr)*s

	const (
		m2 = 9.1697e-10
		m1 = 2.0816e-8
		m0 = -9.9348e-7
	)
	b := bw + (m0+(m1+m2*t68)*t68)*s

	const (
		f3 = -6.1670e-5
		f2 = 1.09987e-2
		f1 = -0.603459
		f0 = 54.6746

		g2 = -5.3009e-4
		g1 = 1.6483e-2
		g0 = 7.944e-2
	)
	k0s := kw + (f0+(f1+(f2+f3*t68)*t68)*t68+(g0+(g1+g2*t68)*t68)*sr)*s

	return k0s + (a+b*p)*p
}

// SMOW is the density of standard mean ocean water at temperature t
func SMOW(t float64) float64 {
	const (
		a0 = 999.842594
		a1 = 6.793952e-2
		a2 = -9.095290e-3
		a3 = 1.001685e-4
		a4 = -1.120083e-6
		a5 = 6.536332e-9
	)
	t68 := t * 1.00024
	return a0 + (a1+(a2+(a3+(a4+a5*t68)*t68)*t68)*t68)*t68
}

// Pden is potential density referenced to pressure pr
func Pden(s, t, p, pr float64) float64 {
	return Dens(s, Ptmp(s, t, p, pr), pr)
}

// Ptmp is potential temperature at reference pressure pr, Runge-Kutta 4
// integration of the adiabatic gradient (Fofonoff & Millard).
func Ptmp(s, t, p, pr float64) float64 {
	sq2 := math.Sqrt2

	delP := pr - p
	delTh := delP * Adtg(s, t, p)
	th := t*1.00024 + 0.5*delTh
	q := delTh

	delTh = delP * Adtg(s, th/1.00024, p+0.5*delP)
	th += (1 - 1/sq2) * (delTh - q)
	q = (2-sq2)*delTh + (-2+3/sq2)*q

	delTh = delP * Adtg(s, th/1.00024, p+0.5*delP)
	th += (1 + 1/sq2) * (delTh - q)
	q = (2+sq2)*delTh + (-2-3/sq2)*q

	delTh = delP * Adtg(s, th/1.00024, p+delP)
	return (th + (delTh-2*q)/6) / 1.00024
}

// Adtg is the adiabatic temperature gradient (degC per decibar)
func Adtg(s, t, p float64) float64 {
	t68 := 1.00024 * t

	const (
		a0 = 3.5803e-5
		a1 = 8.5258e-6
		a2 = -6.836e-8
		a3 = 6.6228e-10

		b0 = 1.8932e-6
		b1 = -4.2393e-8

		c0 = 1.8741e-8
		c1 = -6.7795e-10
		c2 = 8.733e-12
		c3 = -5.4481e-14

		d0 = -1.1351e-10
		d1 = 2.7759e-12

		e0 = -4.6206e-13
		e1 = 1.8676e-14
		e2 = -2.1687e-16
	)

	return a0 + (a1+(a2+a3*t68)*t68)*t68 +
		(b0+b1*t68)*(s-35) +
		((c0+(c1+(c2+c3*t68)*t68)*t68)+(d0+d1*t68)*(s-35))*p +
		(e0+(e1+e2*t68)*t68)*p*p
}

// SpecificHeat is the specific heat of seawater at 0.1 MPa (J/kg K),
// Jamieson et al. 1969. Valid 0 < T < 180 degC, 0 < S < 180 g/kg.
func SpecificHeat(t, s float64) float64 {
	t = 1.00024 * t
	s = s / 1.00472

	a := 4206.8 - 6.6197*s + 1.2288e-2*s*s
	b := -1.1262 + 5.4178e-2*s - 2.2719e-4*s*s
	c := 1.2026e-2 - 5.3566e-4*s + 1.8906e-6*s*s
	d := 6.8777e-7 + 1.517e-6*s - 4.4268e-9*s*s
	return a + b*t + c*t*t + d*t*t*t
}

// Viscosity is the dynamic viscosity of seawater (kg/m s)
func Viscosity(t, s float64) float64 {
	s = s / 1000

	const (
		a1 = 1.5700386464e-01
		a2 = 6.4992620050e+01
		a3 = -9.1296496657e+01
		a4 = 4.2844324477e-05
	)
	muW := a4 + 1/(a1*(t+a2)*(t+a2)+a3)

	const (
		a5  = 1.5409136040e+00
		a6  = 1.9981117208e-02
		a7  = -9.5203865864e-05
		a8  = 7.9739318223e+00
		a9  = -7.5614568881e-02
		a10 = 4.7237011074e-04
	)
	a := a5 + a6*t + a7*t*t
	b := a8 + a9*t + a10*t*t
	return muW * (1 + a*s + b*s*s)
}

// ThermalConductivity is the thermal conductivity of seawater (W/m K)
func ThermalConductivity(t, s float64) float64 {
	t = 1.00024 * t
	s = s / 1.00472

	return 0.001 * math.Pow(10,
		math.Log10(240+0.0002*s)+
			0.434*(2.3-(343.5+0.037*s)/(t+273.15))*
				math.Cbrt(1-(t+273.15)/(647.3+0.03*s)))
}

// Prandtl is the Prandtl number, cp*mu/k
func Prandtl(t, s float64) float64 {
	return SpecificHeat(t, s) * Viscosity(t, s) / ThermalConductivity(t, s)
}
