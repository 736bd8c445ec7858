// Public domain.

// Package coadd sequences per-group flux calibration, resampling and
// weighted combination into one combined spectrum per source group.
//
// The orchestrator owns the sequencing and the failure bookkeeping
// only; the numeric work is behind the FluxCalibrator and Coadder
// interfaces.  Groups are independent: processing order has no effect
// on any group's combined spectrum, and one group's failure never
// aborts the run.
package coadd

import (
	"errors"
	"fmt"

	"github.com/kmaclean/collate1d/internal/cluster"
	"github.com/kmaclean/collate1d/internal/report"
	"github.com/kmaclean/collate1d/spec1d"
)

// CalibratedSpectrum is one member spectrum in physical flux units,
// ready for combination.
type CalibratedSpectrum struct {
	Key        string
	Wave       []float64
	Flux, Ivar []float64
}

// CombinedSpectrum is the write-once product of coadding one group.
type CombinedSpectrum struct {
	GroupID    string
	Desig      string
	Wave       []float64
	Flux, Ivar []float64
	Provenance []Contribution
}

// Contribution records one member's share of the combination.
type Contribution struct {
	Key    string
	Weight float64 // fraction of total statistical weight
}

// FluxCalibrator converts an extracted object's counts to physical
// flux units.  A no-op for objects the pipeline already calibrated.
type FluxCalibrator interface {
	Calibrate(o *spec1d.ExtractedObject) (*CalibratedSpectrum, error)
}

// Coadder resamples calibrated spectra onto a common wavelength grid
// and combines them under its own weighting policy.
type Coadder interface {
	Coadd(specs []*CalibratedSpectrum) (*CombinedSpectrum, error)
}

// Orchestrator drives calibration and coaddition for source groups.
type Orchestrator struct {
	cal FluxCalibrator
	cmb Coadder
}

// New returns an orchestrator using the given collaborators.
func New(cal FluxCalibrator, cmb Coadder) *Orchestrator {
	return &Orchestrator{cal: cal, cmb: cmb}
}

// Process combines one group.
//
// Members whose calibration fails are excluded with a recorded
// CalibrationError and the group proceeds with whoever remains.  With
// no calibrated members left the group fails with
// no-calibrated-members; a numeric combination failure fails the group
// with a CombinationError.  The returned failure list holds per-member
// exclusions whether or not the group succeeded.
func (x *Orchestrator) Process(g *cluster.Group) (*CombinedSpectrum, []report.Failure, error) {
	var fails []report.Failure
	var specs []*CalibratedSpectrum
	for _, m := range g.Members { // members are in key order
		cs, err := x.cal.Calibrate(m.Obj)
		if err != nil {
			fails = append(fails, report.Failure{
				Kind:   report.CalibrationError,
				Object: m.Key,
				Detail: err.Error(),
			})
			continue
		}
		cs.Key = m.Key
		specs = append(specs, cs)
	}
	if len(specs) == 0 {
		return nil, fails, &report.Failure{
			Kind:   report.CombinationError,
			Detail: "no-calibrated-members",
		}
	}
	comb, err := x.cmb.Coadd(specs)
	if err != nil {
		return nil, fails, &report.Failure{
			Kind:   report.CombinationError,
			Detail: err.Error(),
		}
	}
	comb.GroupID = g.ID
	comb.Desig = g.Desig
	return comb, fails, nil
}

// errNoSens reports a member that cannot be flux calibrated because no
// sensitivity function applies.
var errNoSens = errors.New("not flux calibrated and no sensitivity function available")

// SensCalibrator is the reference FluxCalibrator: it multiplies counts
// by a sensitivity curve interpolated onto the object's wavelength
// grid.  Objects the pipeline already calibrated pass through
// untouched.  With a nil sensitivity function only such pass-throughs
// succeed.
type SensCalibrator struct {
	Sens *spec1d.SensFunc
}

func (c *SensCalibrator) Calibrate(o *spec1d.ExtractedObject) (*CalibratedSpectrum, error) {
	if len(o.Wave) == 0 {
		return nil, errors.New("empty spectrum")
	}
	if len(o.Counts) != len(o.Wave) || len(o.CountsIvar) != len(o.Wave) {
		return nil, errors.New("spectrum array lengths disagree")
	}
	cs := &CalibratedSpectrum{
		Wave: append([]float64(nil), o.Wave...),
		Flux: make([]float64, len(o.Wave)),
		Ivar: make([]float64, len(o.Wave)),
	}
	if o.FluxCalibrated {
		for i := range o.Wave {
			if o.Mask == nil || o.Mask[i] {
				cs.Flux[i] = o.Counts[i]
				cs.Ivar[i] = o.CountsIvar[i]
			}
		}
		return cs, nil
	}
	if c.Sens == nil {
		return nil, errNoSens
	}
	if o.Wave[0] < c.Sens.Wave[0] || o.Wave[len(o.Wave)-1] > c.Sens.Wave[len(c.Sens.Wave)-1] {
		return nil, fmt.Errorf(
			"object wavelengths [%.1f, %.1f] outside sensitivity coverage [%.1f, %.1f]",
			o.Wave[0], o.Wave[len(o.Wave)-1], c.Sens.Wave[0], c.Sens.Wave[len(c.Sens.Wave)-1])
	}
	for i, w := range o.Wave {
		if o.Mask != nil && !o.Mask[i] {
			continue // bad pixel carries zero weight
		}
		s := interp(c.Sens.Wave, c.Sens.Sens, w)
		cs.Flux[i] = o.Counts[i] * s
		cs.Ivar[i] = o.CountsIvar[i] / (s * s)
	}
	return cs, nil
}
