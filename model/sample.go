// SPDX-License-Identifier: MIT

package model

import (
	"fmt"

	"github.com/katalvlaran/tubefit/tube"
)

// Grid holds the voltages at which Sample evaluates a model. Axes that the
// measurement type does not use are ignored.
type Grid struct {
	Ep []float64
	Eg []float64
	Es []float64
	Eh float64
}

func (g Grid) values(a tube.Axis) []float64 {
	switch a {
	case tube.AxisEp:
		return g.Ep
	case tube.AxisEg:
		return g.Eg
	case tube.AxisEs:
		return g.Es
	default:
		return []float64{g.Eh}
	}
}

// Sample evaluates p on grid and lays the currents out as a File of
// measurement type m: one series per combination of held voltages, swept
// along m's first axis.
func Sample(p Parameters, m tube.MeasurementType, grid Grid) tube.File {
	var held []tube.Axis
	axes := m.Axes()
	for _, a := range axes[1:] {
		if a != tube.AxisEh {
			held = append(held, a)
		}
	}
	swept := axes[0]

	file := tube.File{Name: fmt.Sprintf("%s-%s", p.Family(), m), MeasurementType: m}
	combos := [][]float64{{}}
	for _, a := range held {
		var next [][]float64
		for _, c := range combos {
			for _, v := range grid.values(a) {
				next = append(next, append(append([]float64(nil), c...), v))
			}
		}
		combos = next
	}

	for _, c := range combos {
		var pt tube.Point
		pt.Eh = grid.Eh
		set := func(a tube.Axis, v float64) {
			switch a {
			case tube.AxisEp:
				pt.Ep = v
			case tube.AxisEg:
				pt.Eg = v
			case tube.AxisEs:
				pt.Es = v
			}
		}
		for i, a := range held {
			set(a, c[i])
		}
		s := tube.Series{Ep: pt.Ep, Eg: pt.Eg, Es: pt.Es, Eh: pt.Eh}
		for i, v := range grid.values(swept) {
			set(swept, v)
			q := pt
			q.Index = i
			q.Ip, q.Is = p.Currents(q.Ep, q.Eg, q.Es)
			s.Points = append(s.Points, q)
		}
		file.Series = append(file.Series, s)
	}

	return file
}
