// SPDX-License-Identifier: MIT

package fit

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/katalvlaran/tubefit/model"
	"github.com/katalvlaran/tubefit/trace"
	"github.com/katalvlaran/tubefit/tube"
)

// FittedParameters is the outcome of a converged fit. Exactly one of the
// parameter pointers is set, matching Model. Every value is ≥ 0.
type FittedParameters struct {
	Model        model.Family              `json:"model"`
	KorenTriode  *model.KorenTriodeParams  `json:"korenTriode,omitempty"`
	KorenPentode *model.KorenPentodeParams `json:"korenPentode,omitempty"`
	Derk         *model.DerkParams         `json:"derk,omitempty"`
	RMSE         float64                   `json:"rmse"`
	Completed    time.Time                 `json:"completed"`
}

// Params returns the populated parameter set.
func (fp FittedParameters) Params() model.Parameters {
	switch {
	case fp.KorenTriode != nil:
		return *fp.KorenTriode
	case fp.KorenPentode != nil:
		return *fp.KorenPentode
	case fp.Derk != nil:
		return *fp.Derk
	default:
		return nil
	}
}

func newFitted(p model.Parameters, rmse float64, completed time.Time) FittedParameters {
	fp := FittedParameters{Model: p.Family(), RMSE: rmse, Completed: completed}
	switch v := p.(type) {
	case model.KorenTriodeParams:
		fp.KorenTriode = &v
	case model.KorenPentodeParams:
		fp.KorenPentode = &v
	case model.DerkParams:
		fp.Derk = &v
	}

	return fp
}

// Result is returned by a successful fit.
type Result struct {
	ID          string             `json:"id"`
	Fingerprint uint64             `json:"fingerprint"`
	Parameters  FittedParameters   `json:"parameters"`
	Initial     map[string]float64 `json:"initial"`
	Iterations  int                `json:"iterations"`
	Trace       *trace.Trace       `json:"trace,omitempty"`
}

// Fingerprint hashes the measurement content of files (type, offset and every
// point) so identical inputs can be recognized across runs. Names are ignored.
func Fingerprint(files []tube.File) uint64 {
	d := xxhash.New()
	var buf [8]byte
	put := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = d.Write(buf[:])
	}
	for _, f := range files {
		_, _ = d.WriteString(string(f.MeasurementType))
		put(f.EgOffset)
		for _, s := range f.Series {
			for _, pt := range s.Points {
				put(pt.Ep)
				put(pt.Eg)
				put(pt.Es)
				put(pt.Eh)
				put(pt.Ip)
				put(pt.Is)
			}
		}
	}

	return d.Sum64()
}
