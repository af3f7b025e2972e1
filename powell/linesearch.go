// SPDX-License-Identifier: MIT

package powell

import (
	"errors"
	"math"
)

// Line-search constants.
const (
	Gold           = 1.618034 // default magnification of successive bracket intervals
	GrowLimit      = 100.0    // largest parabolic-fit magnification
	tiny           = 1e-20
	MaxExpansions  = 1000
	BrentTolerance = 2e-4
	BrentMaxIter   = 500
	cgold          = 0.3819660
	zeps           = 1e-10
)

var (
	// ErrBracketDiverged is returned when Bracket does not enclose a minimum
	// within MaxExpansions steps or meets non-finite values.
	ErrBracketDiverged = errors.New("powell: bracket diverged")

	// ErrBrentIterations is returned when Brent exceeds BrentMaxIter iterations.
	ErrBrentIterations = errors.New("powell: too many iterations in brent")
)

// Triplet is a bracketing triple a < b < c (or c < b < a) with f(b) ≤ f(a), f(c).
type Triplet struct {
	A, B, C    float64
	Fa, Fb, Fc float64
}

// Bracket searches downhill from the points a and b and returns a triple that
// brackets a minimum of f. Parabolic extrapolation accelerates the golden-ratio
// expansion, limited to GrowLimit magnification.
func Bracket(f func(float64) float64, a, b float64) (Triplet, error) {
	fa, fb := f(a), f(b)
	if fb > fa {
		a, b = b, a
		fa, fb = fb, fa
	}
	c := b + Gold*(b-a)
	fc := f(c)

	for k := 0; fb > fc; k++ {
		if k >= MaxExpansions || math.IsInf(c, 0) || math.IsNaN(c) {
			return Triplet{}, ErrBracketDiverged
		}
		r := (b - a) * (fb - fc)
		q := (b - c) * (fb - fa)
		u := b - ((b-c)*q-(b-a)*r)/(2*math.Copysign(math.Max(math.Abs(q-r), tiny), q-r))
		ulim := b + GrowLimit*(c-b)
		var fu float64

		switch {
		case (b-u)*(u-c) > 0:
			// parabolic u between b and c
			fu = f(u)
			if fu < fc {
				return Triplet{A: b, B: u, C: c, Fa: fb, Fb: fu, Fc: fc}, nil
			}
			if fu > fb {
				return Triplet{A: a, B: b, C: u, Fa: fa, Fb: fb, Fc: fu}, nil
			}
			u = c + Gold*(c-b)
			fu = f(u)
		case (c-u)*(u-ulim) > 0:
			// parabolic u between c and its limit
			fu = f(u)
			if fu < fc {
				b, c, u = c, u, u+Gold*(u-c)
				fb, fc, fu = fc, fu, f(u)
			}
		case (u-ulim)*(ulim-c) >= 0:
			u = ulim
			fu = f(u)
		default:
			u = c + Gold*(c-b)
			fu = f(u)
		}
		a, b, c = b, c, u
		fa, fb, fc = fb, fc, fu
	}
	if math.IsNaN(fb) || math.IsNaN(fc) {
		return Triplet{}, ErrBracketDiverged
	}

	return Triplet{A: a, B: b, C: c, Fa: fa, Fb: fb, Fc: fc}, nil
}

// Brent isolates the minimum of f inside the bracket t to fractional precision
// tol (BrentTolerance when tol ≤ 0) using parabolic interpolation with golden
// section fallback. It returns the abscissa and the function value there.
func Brent(f func(float64) float64, t Triplet, tol float64) (xmin, fmin float64, err error) {
	if tol <= 0 {
		tol = BrentTolerance
	}
	a, b := math.Min(t.A, t.C), math.Max(t.A, t.C)
	x, w, v := t.B, t.B, t.B
	fx := t.Fb
	fw, fv := fx, fx
	var d, e float64

	for it := 0; it < BrentMaxIter; it++ {
		xm := 0.5 * (a + b)
		tol1 := tol*math.Abs(x) + zeps
		tol2 := 2 * tol1
		if math.Abs(x-xm) <= tol2-0.5*(b-a) {
			return x, fx, nil
		}

		golden := true
		if math.Abs(e) > tol1 {
			r := (x - w) * (fx - fv)
			q := (x - v) * (fx - fw)
			p := (x-v)*q - (x-w)*r
			q = 2 * (q - r)
			if q > 0 {
				p = -p
			}
			q = math.Abs(q)
			etemp := e
			e = d
			if !(math.Abs(p) >= math.Abs(0.5*q*etemp) || p <= q*(a-x) || p >= q*(b-x)) {
				golden = false
				d = p / q
				if u := x + d; u-a < tol2 || b-u < tol2 {
					d = math.Copysign(tol1, xm-x)
				}
			}
		}
		if golden {
			if x >= xm {
				e = a - x
			} else {
				e = b - x
			}
			d = cgold * e
		}

		u := x + math.Copysign(tol1, d)
		if math.Abs(d) >= tol1 {
			u = x + d
		}
		fu := f(u)
		if fu <= fx {
			if u >= x {
				a = x
			} else {
				b = x
			}
			v, w, x = w, x, u
			fv, fw, fx = fw, fx, fu
			continue
		}
		if u < x {
			a = u
		} else {
			b = u
		}
		switch {
		case fu <= fw || w == x:
			v, w = w, u
			fv, fw = fw, fu
		case fu <= fv || v == x || v == w:
			v, fv = u, fu
		}
	}

	return x, fx, ErrBrentIterations
}
