// Public domain.

// Package policy applies the configured acceptance rules: quality cuts
// on individual objects before clustering, and validity rules on the
// groups the clusterer produced.
package policy

import (
	"fmt"

	"github.com/kmaclean/collate1d/internal/catalog"
	"github.com/kmaclean/collate1d/internal/cluster"
	"github.com/kmaclean/collate1d/internal/report"
)

// Config holds the rule thresholds.
type Config struct {
	// MinExposures is the minimum group size eligible for coaddition.
	// 1 accepts singletons.
	MinExposures int

	// SlitTol is the maximum spread in member slit identifiers before
	// a group is flagged.  Negative disables the check.
	SlitTol int

	// ExcludeSerendip cuts detections the reducer did not match to a
	// slit target.
	ExcludeSerendip bool

	// WaveRMSThresh cuts objects whose wavelength-fit RMS exceeds the
	// threshold, in pixels.  Zero disables the cut.
	WaveRMSThresh float64
}

// ExcludeObjects applies the per-object quality cuts ahead of
// clustering.  Cut objects are returned as manifest notes; they are
// reported, never silently dropped.
func ExcludeObjects(objs []catalog.Object, cfg Config) (kept []catalog.Object, cut []report.ObjectNote) {
	for i := range objs {
		o := &objs[i]
		switch {
		case cfg.ExcludeSerendip && o.Obj.Serendip:
			cut = append(cut, note(o, "serendipitous detection excluded"))
		case cfg.WaveRMSThresh > 0 && o.Obj.WaveRMS > cfg.WaveRMSThresh:
			cut = append(cut, note(o, fmt.Sprintf(
				"wavelength RMS %.3f above threshold %.3f",
				o.Obj.WaveRMS, cfg.WaveRMSThresh)))
		default:
			kept = append(kept, *o)
		}
	}
	return
}

func note(o *catalog.Object, detail string) report.ObjectNote {
	return report.ObjectNote{
		Key:    o.Key,
		Status: report.StatusExcluded,
		Failure: report.Failure{
			Kind:   report.QualityError,
			Object: o.Key,
			Detail: detail,
		},
	}
}

// Verdict is the validator's disposition of one group.
type Verdict struct {
	Status report.Status // StatusValid, StatusInsufficient or StatusFlagged

	// Reason is the first failing rule's message; empty for valid
	// groups.  Failures records every failing rule, so the manifest
	// can explain the full picture even though only the first failure
	// determines the status.
	Reason   string
	Failures []report.Failure
}

// Eligible reports whether a group with this verdict goes on to
// coaddition.  Flagged groups are surfaced but still coadded;
// undersized groups are not.
func (v Verdict) Eligible() bool {
	return v.Status != report.StatusInsufficient
}

// Validate evaluates the rules against one group.  Rules are
// independent checks on group-level aggregates, evaluated in a fixed
// order; the first failure determines the status.
func Validate(g *cluster.Group, cfg Config) Verdict {
	v := Verdict{Status: report.StatusValid}
	rules := []struct {
		status report.Status
		check  func(*cluster.Group, Config) (bool, string)
	}{
		{report.StatusInsufficient, checkMinExposures},
		{report.StatusFlagged, checkSlitCoherence},
	}
	for _, r := range rules {
		ok, msg := r.check(g, cfg)
		if ok {
			continue
		}
		if v.Status == report.StatusValid {
			v.Status = r.status
			v.Reason = msg
		}
		v.Failures = append(v.Failures, report.Failure{
			Kind:   report.QualityError,
			Detail: msg,
		})
	}
	return v
}

func checkMinExposures(g *cluster.Group, cfg Config) (bool, string) {
	min := cfg.MinExposures
	if min < 1 {
		min = 1
	}
	if len(g.Members) >= min {
		return true, ""
	}
	return false, fmt.Sprintf("%d members, %d required", len(g.Members), min)
}

// checkSlitCoherence flags groups whose members disagree in slit
// identifier beyond the configured spread.  Disagreement suggests the
// match chained across unrelated slits; the group is surfaced to the
// user but not excluded.
func checkSlitCoherence(g *cluster.Group, cfg Config) (bool, string) {
	if cfg.SlitTol < 0 || len(g.Members) < 2 {
		return true, ""
	}
	lo := g.Members[0].Obj.SlitID
	hi := lo
	for _, m := range g.Members[1:] {
		if s := m.Obj.SlitID; s < lo {
			lo = s
		} else if s > hi {
			hi = s
		}
	}
	if hi-lo <= cfg.SlitTol {
		return true, ""
	}
	return false, fmt.Sprintf("slit ids spread %d exceeds %d", hi-lo, cfg.SlitTol)
}
