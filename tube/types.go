// Package tube defines the measurement data model consumed by the estimators
// and the device-model error functions: Point, Series, File and the
// MeasurementType classification, plus the sparse parameter bag Initial.
//
// This file declares Point, Series, File, Axis and the SortSeries helper.
//
// Errors:
//
//	ErrUnknownMeasurementType - measurement-type tag is not one of the supported classes.
//	ErrInsufficientParameters - an estimator prerequisite is missing from Initial.
package tube

import (
	"errors"
	"fmt"
	"slices"
)

// Sentinel errors for the data model.
var (
	// ErrUnknownMeasurementType indicates an unsupported measurement-type tag.
	ErrUnknownMeasurementType = errors.New("tube: unknown measurement type")

	// ErrInsufficientParameters indicates that a parameter required to estimate
	// another one has not been set.
	ErrInsufficientParameters = errors.New("tube: insufficient parameters")
)

// Axis names one of the four electrode voltages.
type Axis uint8

const (
	AxisEp Axis = iota // plate (anode) voltage
	AxisEg             // control-grid voltage
	AxisEs             // screen-grid voltage
	AxisEh             // heater voltage
)

// String returns the short axis name.
func (a Axis) String() string {
	switch a {
	case AxisEp:
		return "ep"
	case AxisEg:
		return "eg"
	case AxisEs:
		return "es"
	case AxisEh:
		return "eh"
	default:
		return fmt.Sprintf("Axis(%d)", uint8(a))
	}
}

// Point is one measurement sample. Voltages are in volts, currents in mA.
type Point struct {
	// Index is the optional position of the sample in its source file.
	Index int `yaml:"index,omitempty" json:"index,omitempty"`

	Ep float64 `yaml:"ep" json:"ep"`
	Eg float64 `yaml:"eg" json:"eg"`
	Es float64 `yaml:"es,omitempty" json:"es,omitempty"`
	Eh float64 `yaml:"eh,omitempty" json:"eh,omitempty"`

	// Ip is the plate current.
	Ip float64 `yaml:"ip" json:"ip"`

	// Is is the screen current; zero when the measurement does not record it.
	Is float64 `yaml:"is,omitempty" json:"is,omitempty"`
}

// Value returns the voltage on axis a.
func (p Point) Value(a Axis) float64 {
	switch a {
	case AxisEg:
		return p.Eg
	case AxisEs:
		return p.Es
	case AxisEh:
		return p.Eh
	default:
		return p.Ep
	}
}

// Series is a set of points sharing approximately constant held voltages.
// It owns its points.
type Series struct {
	Ep     float64 `yaml:"ep,omitempty" json:"ep,omitempty"`
	Eg     float64 `yaml:"eg,omitempty" json:"eg,omitempty"`
	Es     float64 `yaml:"es,omitempty" json:"es,omitempty"`
	Eh     float64 `yaml:"eh,omitempty" json:"eh,omitempty"`
	Points []Point `yaml:"points" json:"points"`
}

// Sort orders the points ascending by axis a, in place.
func (s *Series) Sort(a Axis) {
	slices.SortStableFunc(s.Points, func(x, y Point) int {
		vx, vy := x.Value(a), y.Value(a)
		switch {
		case vx < vy:
			return -1
		case vx > vy:
			return 1
		default:
			return 0
		}
	})
}

// File is a named, classified collection of series.
type File struct {
	Name            string          `yaml:"name" json:"name"`
	MeasurementType MeasurementType `yaml:"measurementType" json:"measurementType"`

	// EgOffset is added to every grid voltage of the file.
	EgOffset float64 `yaml:"egOffset,omitempty" json:"egOffset,omitempty"`

	Series []Series `yaml:"series" json:"series"`
}

// PointCount returns the number of points across all series of f.
func (f File) PointCount() int {
	n := 0
	for _, s := range f.Series {
		n += len(s.Points)
	}

	return n
}

// SortSeries sorts every series of every file ascending by the file's swept axis.
// Files are reordered in place; callers must not rely on the original point order.
func SortSeries(files []File) {
	for i := range files {
		axis := files[i].MeasurementType.Swept()
		for j := range files[i].Series {
			files[i].Series[j].Sort(axis)
		}
	}
}
