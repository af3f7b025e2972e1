// SPDX-License-Identifier: MIT

package tube

import (
	"fmt"
	"strings"
)

// Param names one model parameter.
type Param uint8

const (
	Mu Param = iota
	Ex
	Kg1
	Kp
	Kvb
	Kg2
	A
	AlphaS
	Beta
	S
	AlphaP
	Lambda
	V
	W

	numParams
)

var paramNames = [numParams]string{
	Mu:     "mu",
	Ex:     "ex",
	Kg1:    "kg1",
	Kp:     "kp",
	Kvb:    "kvb",
	Kg2:    "kg2",
	A:      "a",
	AlphaS: "alphaS",
	Beta:   "beta",
	S:      "s",
	AlphaP: "alphaP",
	Lambda: "lambda",
	V:      "v",
	W:      "w",
}

// Params lists every parameter in declaration order.
func Params() []Param {
	out := make([]Param, numParams)
	for i := range out {
		out[i] = Param(i)
	}

	return out
}

// String returns the conventional lower-camel parameter name.
func (p Param) String() string {
	if p < numParams {
		return paramNames[p]
	}

	return fmt.Sprintf("Param(%d)", uint8(p))
}

// Initial is a sparse bag of parameter values built by the estimation
// pipeline. Each parameter is set at most once. The zero value is empty.
type Initial struct {
	values [numParams]float64
	set    uint32
}

// Has reports whether p has been set.
func (in *Initial) Has(p Param) bool {
	return p < numParams && in.set&(1<<p) != 0
}

// Get returns the value of p and whether it is set.
func (in *Initial) Get(p Param) (float64, bool) {
	if !in.Has(p) {
		return 0, false
	}

	return in.values[p], true
}

// Value returns the value of p, or 0 when unset.
func (in *Initial) Value(p Param) float64 {
	v, _ := in.Get(p)

	return v
}

// SetIfUnset stores v for p unless p already holds a value.
// It reports whether v was stored.
func (in *Initial) SetIfUnset(p Param, v float64) bool {
	if p >= numParams || in.Has(p) {
		return false
	}
	in.values[p] = v
	in.set |= 1 << p

	return true
}

// Require returns ErrInsufficientParameters, wrapped as
// "cannot estimate <target> without <missing>", when any of params is unset.
func (in *Initial) Require(target Param, params ...Param) error {
	var missing []string
	for _, p := range params {
		if !in.Has(p) {
			missing = append(missing, p.String())
		}
	}
	if len(missing) == 0 {
		return nil
	}

	return fmt.Errorf("cannot estimate %s without %s: %w", target, strings.Join(missing, ", "), ErrInsufficientParameters)
}

// Len returns the number of parameters set.
func (in *Initial) Len() int {
	n := 0
	for p := Param(0); p < numParams; p++ {
		if in.Has(p) {
			n++
		}
	}

	return n
}

// Map returns the set parameters keyed by name.
func (in *Initial) Map() map[string]float64 {
	out := make(map[string]float64, in.Len())
	for p := Param(0); p < numParams; p++ {
		if v, ok := in.Get(p); ok {
			out[p.String()] = v
		}
	}

	return out
}

// String renders the set parameters in declaration order.
func (in *Initial) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	for p := Param(0); p < numParams; p++ {
		v, ok := in.Get(p)
		if !ok {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&sb, "%s=%g", p, v)
	}
	sb.WriteByte('}')

	return sb.String()
}
