// Package qaqc applies the per-cast correction sequence: downcast/upcast
// segmentation, vertical velocity, low-pass filtering, thermal lag
// realignment, viscous heating, conductivity-cell thermal mass, and loop-edit
// invalidity flagging. Stages run in a fixed order over the cast columns;
// a stage whose input column is missing is a no-op, never an error.
package qaqc

import (
	"math"

	"github.com/oceandata/ctd-pipeline/internal/seawater"
	"github.com/oceandata/ctd-pipeline/internal/types"
)

const (
	// maximum plausible depth change between consecutive scans, in meters
	maxDepthChange = 100

	// loop-edit defaults per the Seasoft data processing manual
	LoopEditWindowTime = 30 // seconds
	LoopEditThreshold  = 0.2

	// cutoff period in seconds for the pressure/velocity low-pass filter
	pressureVelocityCutoff = 2

	// underway sensors read garbage until they are a couple decibar under
	soakPressure = 2
)

// flaggedColumns are the columns that carry invalidity flags through
// correction and binning.
var flaggedColumns = []string{
	types.ColTemperature, types.ColConductivity, types.ColPressure,
	types.ColVerticalVelocity, types.ColDensity, types.ColSigmaTheta,
}

// Correct runs the full correction sequence over a converted cast, mutating
// it in place.
func Correct(c *types.Cast) {
	SetDowncast(c)
	SetVerticalVelocity(c)
	LowPassFilterPressureVelocity(c)
	LowPassFilterTemperatureConductivity(c)
	CorrectTemperatureLag(c)
	CorrectViscousHeating(c)
	CorrectThermalMass(c)
	RecomputeSalinity(c)
	SetDensity(c)
	CorrectLoopEdit(c, LoopEditWindowTime, LoopEditThreshold)

	for _, col := range flaggedColumns {
		if c.HasColumn(col) {
			c.EnsureInvalid(col)
		}
	}

	if c.Model == types.ModelUnderway {
		flagSoak(c)
	}
}

// SetDowncast splits the cast at its deepest point: rows up to and including
// the last occurrence of the maximum depth are the downcast. Depth jumps
// larger than 100 m between consecutive scans are outliers and are ignored
// when locating the maximum. A cast with no usable maximum is all downcast.
func SetDowncast(c *types.Cast) {
	depth := c.Column(types.ColDepth)
	if depth == nil {
		return
	}

	// NaN deltas fail the range test, which also drops the first row from
	// consideration the way a shifted difference would
	valid := func(i int) bool {
		if i == 0 {
			return false
		}
		delta := depth[i] - depth[i-1]
		return delta > -maxDepthChange && delta < maxDepthChange
	}

	maxDepth := math.NaN()
	for i := range depth {
		if valid(i) && (math.IsNaN(maxDepth) || depth[i] > maxDepth) {
			maxDepth = depth[i]
		}
	}
	deepest := -1
	for i := range depth {
		if valid(i) && depth[i] == maxDepth {
			deepest = i
		}
	}

	flags := make([]float64, len(depth))
	for i := range flags {
		if deepest < 0 || i <= deepest {
			flags[i] = 1
		}
	}
	c.SetColumn(types.ColIsDowncast, flags)
}

// SetVerticalVelocity computes dP/dt by central difference over a 3-scan
// window, copying the nearest interior value into the edges.
func SetVerticalVelocity(c *types.Cast) {
	p := c.Column(types.ColPressure)
	if p == nil || len(p) < 3 || c.SamplingFrequency <= 0 {
		return
	}
	n := len(p)

	dp := make([]float64, n)
	for i := 1; i < n-1; i++ {
		dp[i] = p[i+1] - p[i-1]
	}
	dp[0] = dp[1]
	dp[n-1] = dp[n-2]

	dt := 1 / c.SamplingFrequency
	dpdt := make([]float64, n)
	for i := range dp {
		dpdt[i] = dp[i] / (2 * dt)
	}
	dpdt[0] = dpdt[1]
	dpdt[n-1] = dpdt[n-2]

	c.SetColumn(types.ColVerticalVelocity, dpdt)
}

// LowPassFilterPressureVelocity zero-phase filters pressure and vertical
// velocity with a 2-second cutoff.
func LowPassFilterPressureVelocity(c *types.Cast) {
	p := c.Column(types.ColPressure)
	dpdt := c.Column(types.ColVerticalVelocity)
	if p == nil || dpdt == nil || c.SamplingFrequency <= 0 {
		return
	}
	b, a, ok := butterworth(pressureVelocityCutoff, 1/c.SamplingFrequency)
	if !ok {
		return
	}
	c.SetColumn(types.ColVerticalVelocity, filtFilt(b, a, dpdt))
	c.SetColumn(types.ColPressure, filtFilt(b, a, p))
}

// LowPassFilterTemperatureConductivity zero-phase filters temperature and
// conductivity with a cutoff of four sample intervals.
func LowPassFilterTemperatureConductivity(c *types.Cast) {
	t := c.Column(types.ColTemperature)
	cond := c.Column(types.ColConductivity)
	if t == nil || cond == nil || c.SamplingFrequency <= 0 {
		return
	}
	cutoff := 4 * (1 / c.SamplingFrequency)
	b, a, ok := butterworth(cutoff, 1/c.SamplingFrequency)
	if !ok {
		return
	}
	c.SetColumn(types.ColTemperature, filtFilt(b, a, t))
	c.SetColumn(types.ColConductivity, filtFilt(b, a, cond))
}

// Empirically fitted temperature sensor lag, in scans, over filtered vertical
// velocity bins of 0.75 to 4.0 dbar/s in 0.25 steps.
var (
	lagTable = []float64{
		-0.810183190037050, -0.190621249755835, 0.126805428457073,
		0.458221237250753, 0.715608325448966, 0.886935565443651,
		1.00134464049720, 1.08154805953019, 1.13757483933325,
		1.15449025724993, 1.21413817218518, 1.24662487047467,
		1.27898261283749, 1.29319799601310,
	}
	lagVelocityBins = func() []float64 {
		bins := make([]float64, len(lagTable))
		for i := range bins {
			bins[i] = 0.75 + 0.25*float64(i)
		}
		return bins
	}()
)

// CorrectTemperatureLag realigns temperature along the scan axis by the
// velocity-dependent sensor lag, resampling the series at shifted scan
// coordinates.
func CorrectTemperatureLag(c *types.Cast) {
	t := c.Column(types.ColTemperature)
	dpdt := c.Column(types.ColVerticalVelocity)
	if t == nil || dpdt == nil || len(t) < 2 {
		return
	}

	scans := make([]float64, len(t))
	for i := range scans {
		scans[i] = float64(i + 1)
	}

	shifted := make([]float64, len(t))
	for i := range t {
		lag := interpolate(lagVelocityBins, lagTable, dpdt[i])
		shifted[i] = interpolate(scans, t, scans[i]+lag)
	}
	c.SetColumn(types.ColTemperature, shifted)
}

// CorrectViscousHeating removes the frictional heating of the temperature
// sensor, dT = 0.8e-4 * sqrt(Pr) * (dP/dt)^2.
func CorrectViscousHeating(c *types.Cast) {
	t := c.Column(types.ColTemperature)
	cond := c.Column(types.ColConductivity)
	p := c.Column(types.ColPressure)
	dpdt := c.Column(types.ColVerticalVelocity)
	if t == nil || cond == nil || p == nil || dpdt == nil {
		return
	}

	ref := seawater.C3515 / 10
	for i := range t {
		s := seawater.Salt(cond[i]/ref, t[i], p[i])
		pr := seawater.Prandtl(t[i], s)
		t[i] -= 0.8e-04 * math.Sqrt(pr) * dpdt[i] * dpdt[i]
	}
}

// cellVelocity estimates the flow speed inside the conductivity cell from the
// free-stream vertical velocity using laminar tube flow.
func cellVelocity(dpdt float64) float64 {
	const (
		nu = 1.36e-06 // kinematic viscosity of water (m^2/s)
		dl = 0.1725   // distance between the inlet and outlet ports (m)
		a  = 2e-03    // radius of the conductivity cell tube (m)
	)
	return (-8*nu*dl + math.Sqrt(math.Pow(8*nu*dl, 2)+math.Pow(a, 4)*dpdt*dpdt)) / (a * a)
}

// thermalMassCoefficients derives the alpha/tau correction pair from the cell
// velocity, floored at 0.125 m/s.
func thermalMassCoefficients(v float64) (alpha, tau float64) {
	const minVelocity = 0.125
	v = math.Abs(v)
	if v < minVelocity {
		v = minVelocity
	}
	alpha = 0.0264/v + 0.0492
	tau = 2.7858/math.Sqrt(v) + 4.032
	return alpha, tau
}

// gamma estimates dC/dT at constant salinity and pressure by a centered
// finite difference of the conductivity ratio.
func gamma(cond, t, p float64) float64 {
	const deltaT = 0.1
	ref := seawater.C3515 / 10
	s := seawater.Salt(cond/ref, t, p)
	c1 := ref * seawater.Cndr(s, t+deltaT, p)
	c2 := ref * seawater.Cndr(s, t-deltaT, p)
	return (c1 - c2) / (2 * deltaT)
}

// CorrectThermalMass compensates the conductivity cell's thermal inertia with
// a first-order recursive filter. Each corrected value depends on the prior
// corrected value, so the scan order is load-bearing; a non-finite step holds
// the previous correction.
func CorrectThermalMass(c *types.Cast) {
	cond := c.Column(types.ColConductivity)
	t := c.Column(types.ColTemperature)
	p := c.Column(types.ColPressure)
	dpdt := c.Column(types.ColVerticalVelocity)
	if cond == nil || t == nil || p == nil || dpdt == nil || c.SamplingFrequency <= 0 {
		return
	}

	dt := 1 / c.SamplingFrequency
	corr := 0.0
	for i := 1; i < len(cond); i++ {
		alpha, tau := thermalMassCoefficients(cellVelocity(dpdt[i]))
		beta := 1 / tau
		a := 2 * alpha / (2 + beta*dt)
		b := 1 - 2*a/alpha

		next := -b*corr + a*gamma(cond[i], t[i], p[i])*(t[i]-t[i-1])
		if !math.IsNaN(next) {
			corr = next
		}
		cond[i] += corr
	}
}

// RecomputeSalinity rederives salinity from the corrected conductivity,
// temperature, and pressure columns.
func RecomputeSalinity(c *types.Cast) {
	s := c.Column(types.ColSalinity)
	cond := c.Column(types.ColConductivity)
	t := c.Column(types.ColTemperature)
	p := c.Column(types.ColPressure)
	if s == nil || cond == nil || t == nil || p == nil {
		return
	}
	ref := seawater.C3515 / 10
	for i := range s {
		s[i] = seawater.Salt(cond[i]/ref, t[i], p[i])
	}
}

// SetDensity adds the seawater density and sigma theta columns
func SetDensity(c *types.Cast) {
	s := c.Column(types.ColSalinity)
	t := c.Column(types.ColTemperature)
	p := c.Column(types.ColPressure)
	if s == nil || t == nil || p == nil {
		return
	}

	dens := make([]float64, len(s))
	sigma := make([]float64, len(s))
	for i := range s {
		dens[i] = seawater.Dens(s[i], t[i], p[i])
		sigma[i] = seawater.Pden(s[i], t[i], p[i], 0) - 1000
	}
	c.SetColumn(types.ColDensity, dens)
	c.SetColumn(types.ColSigmaTheta, sigma)
}

// CorrectLoopEdit flags scans where the descent rate drops below
// (1-threshold) times its centered rolling mean, the signature of ship heave
// stalling or reversing the package.
func CorrectLoopEdit(c *types.Cast, windowTime, threshold float64) {
	dpdt := c.Column(types.ColVerticalVelocity)
	if dpdt == nil || c.SamplingFrequency <= 0 {
		return
	}

	window := int(windowTime * c.SamplingFrequency)
	if window < 1 {
		window = 1
	}
	mean := rollingMean(dpdt, window)

	flags := c.EnsureInvalid(types.ColVerticalVelocity)
	for i := range dpdt {
		// NaN means the window did not fit, which leaves the scan valid
		flags[i] = dpdt[i] < (1-threshold)*mean[i]
	}
}

// rollingMean computes a centered rolling mean; positions where the full
// window does not fit are NaN.
func rollingMean(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	for i := range out {
		start := i - window + 1 + window/2
		end := i + window/2
		if start < 0 || end >= len(x) {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		for j := start; j <= end; j++ {
			sum += x[j]
		}
		out[i] = sum / float64(window)
	}
	return out
}

// flagSoak invalidates scans taken before the underway probe was properly
// submerged.
func flagSoak(c *types.Cast) {
	p := c.Column(types.ColPressure)
	if p == nil {
		return
	}
	for _, col := range flaggedColumns {
		if !c.HasColumn(col) {
			continue
		}
		flags := c.EnsureInvalid(col)
		for i := range p {
			if p[i] <= soakPressure {
				flags[i] = true
			}
		}
	}
}

// interpolate evaluates a piecewise-linear function given by ascending knots
// xs and values ys at x, extrapolating along the end segments.
func interpolate(xs, ys []float64, x float64) float64 {
	n := len(xs)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return ys[0]
	}
	j := n - 2
	for i := 1; i < n-1; i++ {
		if x < xs[i] {
			j = i - 1
			break
		}
	}
	frac := (x - xs[j]) / (xs[j+1] - xs[j])
	return ys[j] + frac*(ys[j+1]-ys[j])
}
