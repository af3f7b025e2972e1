// SPDX-License-Identifier: MIT

package tube

import (
	"fmt"
	"strings"
)

// MeasurementType classifies which voltage is swept and which are held.
// The first V-tag after the current tag is the swept axis.
type MeasurementType string

const (
	IP_VA_VG_VH      MeasurementType = "IP_VA_VG_VH"      // triode plate characteristics
	IP_VG_VA_VH      MeasurementType = "IP_VG_VA_VH"      // triode transfer characteristics
	IPIS_VA_VG_VS_VH MeasurementType = "IPIS_VA_VG_VS_VH" // pentode plate characteristics
	IPIS_VG_VA_VS_VH MeasurementType = "IPIS_VG_VA_VS_VH" // pentode transfer characteristics
	IPIS_VS_VG_VA_VH MeasurementType = "IPIS_VS_VG_VA_VH" // pentode screen sweep
	IPIS_VA_VS_VG_VH MeasurementType = "IPIS_VA_VS_VG_VH" // pentode plate characteristics, screen stepped
	IPIS_VG_VS_VA_VH MeasurementType = "IPIS_VG_VS_VA_VH" // pentode transfer characteristics, screen stepped
)

// MeasurementTypes lists every supported classification.
var MeasurementTypes = []MeasurementType{
	IP_VA_VG_VH,
	IP_VG_VA_VH,
	IPIS_VA_VG_VS_VH,
	IPIS_VG_VA_VS_VH,
	IPIS_VS_VG_VA_VH,
	IPIS_VA_VS_VG_VH,
	IPIS_VG_VS_VA_VH,
}

// ParseMeasurementType validates s (case-insensitive) as a MeasurementType.
func ParseMeasurementType(s string) (MeasurementType, error) {
	m := MeasurementType(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMeasurementType, s)
	}

	return m, nil
}

// Valid reports whether m is a supported classification.
func (m MeasurementType) Valid() bool {
	for _, t := range MeasurementTypes {
		if m == t {
			return true
		}
	}

	return false
}

// UnmarshalText implements encoding.TextUnmarshaler with validation.
func (m *MeasurementType) UnmarshalText(b []byte) error {
	v, err := ParseMeasurementType(string(b))
	if err != nil {
		return err
	}
	*m = v

	return nil
}

// Axes returns the voltage axes in tag order; the first is the swept one.
func (m MeasurementType) Axes() []Axis {
	var out []Axis
	for _, tok := range strings.Split(string(m), "_") {
		switch tok {
		case "VA":
			out = append(out, AxisEp)
		case "VG":
			out = append(out, AxisEg)
		case "VS":
			out = append(out, AxisEs)
		case "VH":
			out = append(out, AxisEh)
		}
	}

	return out
}

// Swept returns the swept axis; AxisEp for unknown tags.
func (m MeasurementType) Swept() Axis {
	if axes := m.Axes(); len(axes) > 0 {
		return axes[0]
	}

	return AxisEp
}

// HasScreenCurrent reports whether the measurement records Is.
func (m MeasurementType) HasScreenCurrent() bool {
	return strings.HasPrefix(string(m), "IPIS_")
}

// IsPentode reports whether m belongs to a screen-grid device.
func (m MeasurementType) IsPentode() bool {
	return m.Valid() && m.HasScreenCurrent()
}

// IsTriode reports whether m belongs to a triode.
func (m MeasurementType) IsTriode() bool {
	return m == IP_VA_VG_VH || m == IP_VG_VA_VH
}
