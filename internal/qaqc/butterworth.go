package qaqc

import (
	"math"
	"math/cmplx"
)

// butterworth designs a low-pass filter from a cutoff period and sample
// period, both in seconds. Returns ok=false for a degenerate sample period.
func butterworth(cutoffPer, sampPer float64) (b, a []float64, ok bool) {
	if sampPer == 0 {
		return nil, nil, false
	}
	nyquist := 1 / (2 * sampPer)
	wn := (1 / cutoffPer) / nyquist
	if wn <= 0 || wn >= 1 {
		return nil, nil, false
	}
	b, a = lowPass(wn)
	return b, a, true
}

const filterOrder = 4

// lowPass computes the transfer-function coefficients of a 4th-order digital
// Butterworth low-pass filter with normalized cutoff wn (1 = Nyquist). The
// analog prototype poles are frequency-warped and mapped through the bilinear
// transform.
func lowPass(wn float64) (b, a []float64) {
	warped := 4 * math.Tan(math.Pi*wn/2)

	poles := make([]complex128, filterOrder)
	for k := 0; k < filterOrder; k++ {
		theta := math.Pi * float64(2*(k+1)+filterOrder-1) / float64(2*filterOrder)
		poles[k] = complex(warped, 0) * cmplx.Exp(complex(0, theta))
	}
	gain := math.Pow(warped, filterOrder)

	const fs2 = 4.0
	zPoles := make([]complex128, filterOrder)
	zZeros := make([]complex128, filterOrder)
	den := complex(1, 0)
	for i, p := range poles {
		zPoles[i] = (fs2 + p) / (fs2 - p)
		zZeros[i] = -1
		den *= fs2 - p
	}
	k := gain * real(1/den)

	b = poly(zZeros)
	for i := range b {
		b[i] *= k
	}
	a = poly(zPoles)
	return b, a
}

// poly expands a monic polynomial from its roots, returning real coefficients
// in descending order.
func poly(roots []complex128) []float64 {
	coeffs := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(coeffs)+1)
		for i, c := range coeffs {
			next[i] += c
			next[i+1] -= c * r
		}
		coeffs = next
	}
	out := make([]float64, len(coeffs))
	for i, c := range coeffs {
		out[i] = real(c)
	}
	return out
}

// filtFilt applies the filter forward and backward for zero phase distortion,
// with odd-reflection padding and steady-state initial conditions at each end.
// Series too short to pad come back unchanged.
func filtFilt(b, a, x []float64) []float64 {
	n := len(b)
	if len(a) > n {
		n = len(a)
	}
	padlen := 3 * n
	if len(x) <= padlen {
		return append([]float64(nil), x...)
	}

	ext := make([]float64, 0, len(x)+2*padlen)
	for i := padlen; i > 0; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	last := len(x) - 1
	for i := 1; i <= padlen; i++ {
		ext = append(ext, 2*x[last]-x[last-i])
	}

	zi := steadyState(b, a)

	z0 := make([]float64, len(zi))
	for i := range zi {
		z0[i] = zi[i] * ext[0]
	}
	y := lfilter(b, a, ext, z0)

	reverse(y)
	for i := range zi {
		z0[i] = zi[i] * y[0]
	}
	y = lfilter(b, a, y, z0)
	reverse(y)

	return y[padlen : padlen+len(x)]
}

// lfilter runs a direct-form II transposed IIR filter with initial state z
func lfilter(b, a, x, z []float64) []float64 {
	y := make([]float64, len(x))
	for m, xn := range x {
		yn := b[0]*xn + z[0]
		for i := 0; i < len(z)-1; i++ {
			z[i] = b[i+1]*xn + z[i+1] - a[i+1]*yn
		}
		z[len(z)-1] = b[len(b)-1]*xn - a[len(a)-1]*yn
		y[m] = yn
	}
	return y
}

// steadyState computes the filter state that makes the step response start at
// its final value, so the forward-backward passes settle immediately.
func steadyState(b, a []float64) []float64 {
	n := len(a) - 1

	// (I - companion(a)^T) zi = b[1:] - a[1:]*b[0]
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	for j := 0; j < n; j++ {
		m[j][0] += a[j+1]
	}
	for i := 0; i < n-1; i++ {
		m[i][i+1] -= 1
	}

	rhs := make([]float64, n)
	for i := 0; i < n; i++ {
		rhs[i] = b[i+1] - a[i+1]*b[0]
	}
	return solve(m, rhs)
}

// solve performs Gaussian elimination with partial pivoting on a small system
func solve(m [][]float64, rhs []float64) []float64 {
	n := len(rhs)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		m[col], m[pivot] = m[pivot], m[col]
		rhs[col], rhs[pivot] = rhs[pivot], rhs[col]

		for r := col + 1; r < n; r++ {
			f := m[r][col] / m[col][col]
			for c := col; c < n; c++ {
				m[r][c] -= f * m[col][c]
			}
			rhs[r] -= f * rhs[col]
		}
	}
	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := rhs[r]
		for c := r + 1; c < n; c++ {
			sum -= m[r][c] * x[c]
		}
		x[r] = sum / m[r][r]
	}
	return x
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
