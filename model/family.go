// SPDX-License-Identifier: MIT

package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/katalvlaran/tubefit/tube"
)

var (
	// ErrUnknownFamily is returned for an unsupported model family.
	ErrUnknownFamily = errors.New("model: unknown model family")

	// ErrVectorLength is returned when a parameter vector does not match the family.
	ErrVectorLength = errors.New("model: parameter vector length mismatch")
)

// Family selects a device model.
type Family uint8

const (
	KorenTriode Family = iota
	KorenPentode
	Derk
	DerkE
)

// Families lists every supported family.
var Families = []Family{KorenTriode, KorenPentode, Derk, DerkE}

var familyParams = map[Family][]tube.Param{
	KorenTriode:  {tube.Mu, tube.Ex, tube.Kg1, tube.Kp, tube.Kvb},
	KorenPentode: {tube.Mu, tube.Ex, tube.Kg1, tube.Kp, tube.Kvb, tube.Kg2},
	Derk: {tube.Mu, tube.Ex, tube.Kg1, tube.Kp, tube.Kg2, tube.A,
		tube.AlphaS, tube.Beta, tube.S, tube.AlphaP, tube.Lambda, tube.V, tube.W},
}

func init() {
	familyParams[DerkE] = familyParams[Derk]
}

// String returns the family name used on the command line.
func (f Family) String() string {
	switch f {
	case KorenTriode:
		return "koren-triode"
	case KorenPentode:
		return "koren-pentode"
	case Derk:
		return "derk"
	case DerkE:
		return "derke"
	default:
		return fmt.Sprintf("Family(%d)", uint8(f))
	}
}

// ParseFamily maps a family name to a Family.
func ParseFamily(s string) (Family, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, f := range Families {
		if f.String() == name {
			return f, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownFamily, s)
}

// MarshalText implements encoding.TextMarshaler.
func (f Family) MarshalText() ([]byte, error) {
	if _, ok := familyParams[f]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFamily, uint8(f))
	}

	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Family) UnmarshalText(b []byte) error {
	v, err := ParseFamily(string(b))
	if err != nil {
		return err
	}
	*f = v

	return nil
}

// IsPentode reports whether the family models a screen current.
func (f Family) IsPentode() bool { return f != KorenTriode }

// Params returns the ordered parameters of the family's vector form.
func (f Family) Params() []tube.Param {
	return append([]tube.Param(nil), familyParams[f]...)
}

// Parameters is a complete parameter set of one family.
type Parameters interface {
	// Family identifies the model.
	Family() Family

	// Vector returns the values in Family().Params() order.
	Vector() []float64

	// Currents evaluates the model; is is zero for triodes.
	Currents(ep, eg, es float64) (ip, is float64)
}

// FromVector builds the parameter set of f from v (ordered as f.Params()).
func FromVector(f Family, v []float64) (Parameters, error) {
	params, ok := familyParams[f]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFamily, uint8(f))
	}
	if len(v) != len(params) {
		return nil, fmt.Errorf("%w: %s wants %d, got %d", ErrVectorLength, f, len(params), len(v))
	}
	switch f {
	case KorenTriode:
		return KorenTriodeParams{Mu: v[0], Ex: v[1], Kg1: v[2], Kp: v[3], Kvb: v[4]}, nil
	case KorenPentode:
		return KorenPentodeParams{Mu: v[0], Ex: v[1], Kg1: v[2], Kp: v[3], Kvb: v[4], Kg2: v[5]}, nil
	default:
		return DerkParams{
			Exponential: f == DerkE,
			Mu:          v[0], Ex: v[1], Kg1: v[2], Kp: v[3], Kg2: v[4], A: v[5],
			AlphaS: v[6], Beta: v[7], S: v[8], AlphaP: v[9], Lambda: v[10], V: v[11], W: v[12],
		}, nil
	}
}

// FromInitial builds the parameter set of f from in. Every family parameter
// must be set.
func FromInitial(f Family, in *tube.Initial) (Parameters, error) {
	params, ok := familyParams[f]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFamily, uint8(f))
	}
	v := make([]float64, len(params))
	for i, p := range params {
		val, ok := in.Get(p)
		if !ok {
			return nil, fmt.Errorf("model: %s: parameter %s not set: %w", f, p, tube.ErrInsufficientParameters)
		}
		v[i] = val
	}

	return FromVector(f, v)
}
