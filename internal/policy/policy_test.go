// Public domain.

package policy_test

import (
	"strings"
	"testing"

	"github.com/kmaclean/collate1d/internal/catalog"
	"github.com/kmaclean/collate1d/internal/cluster"
	"github.com/kmaclean/collate1d/internal/policy"
	"github.com/kmaclean/collate1d/internal/report"
	"github.com/kmaclean/collate1d/spec1d"
)

func member(key string, slit int) *catalog.Object {
	return &catalog.Object{
		Key: key,
		Obj: &spec1d.ExtractedObject{SlitID: slit},
	}
}

func group(members ...*catalog.Object) *cluster.Group {
	return &cluster.Group{ID: "abcd1234abcd1234", Members: members}
}

func TestExcludeObjects(t *testing.T) {
	objs := []catalog.Object{
		{Key: "a:0000", Obj: &spec1d.ExtractedObject{}},
		{Key: "a:0001", Obj: &spec1d.ExtractedObject{Serendip: true}},
		{Key: "a:0002", Obj: &spec1d.ExtractedObject{WaveRMS: 0.8}},
	}

	// no cuts configured: everything kept
	kept, cut := policy.ExcludeObjects(objs, policy.Config{})
	if len(kept) != 3 || len(cut) != 0 {
		t.Errorf("no cuts: kept %d cut %d", len(kept), len(cut))
	}

	kept, cut = policy.ExcludeObjects(objs, policy.Config{
		ExcludeSerendip: true,
		WaveRMSThresh:   0.5,
	})
	if len(kept) != 1 || kept[0].Key != "a:0000" {
		t.Fatalf("kept = %v", kept)
	}
	if len(cut) != 2 {
		t.Fatalf("cut %d objects, want 2", len(cut))
	}
	for _, n := range cut {
		if n.Status != report.StatusExcluded || n.Failure.Kind != report.QualityError {
			t.Errorf("cut note = %+v", n)
		}
	}
	if !strings.Contains(cut[0].Failure.Detail, "serendipitous") {
		t.Errorf("serendip detail = %q", cut[0].Failure.Detail)
	}
	if !strings.Contains(cut[1].Failure.Detail, "wavelength RMS") {
		t.Errorf("wave RMS detail = %q", cut[1].Failure.Detail)
	}
}

var validateTestCases = []struct {
	name   string
	g      *cluster.Group
	cfg    policy.Config
	status report.Status
	nFail  int
}{
	{
		"singleton accepted by default",
		group(member("a:0000", 10)),
		policy.Config{MinExposures: 1, SlitTol: -1},
		report.StatusValid, 0,
	},
	{
		"undersized",
		group(member("a:0000", 10)),
		policy.Config{MinExposures: 2, SlitTol: -1},
		report.StatusInsufficient, 1,
	},
	{
		"slit disagreement flags",
		group(member("a:0000", 10), member("b:0000", 40)),
		policy.Config{MinExposures: 1, SlitTol: 5},
		report.StatusFlagged, 1,
	},
	{
		"slit spread within tolerance",
		group(member("a:0000", 10), member("b:0000", 12)),
		policy.Config{MinExposures: 1, SlitTol: 5},
		report.StatusValid, 0,
	},
	{
		// first failing rule determines status, both failures recorded
		"undersized and incoherent",
		group(member("a:0000", 10), member("b:0000", 40)),
		policy.Config{MinExposures: 3, SlitTol: 5},
		report.StatusInsufficient, 2,
	},
}

func TestValidate(t *testing.T) {
	for _, c := range validateTestCases {
		v := policy.Validate(c.g, c.cfg)
		if v.Status != c.status {
			t.Errorf("%s: status %v, want %v", c.name, v.Status, c.status)
		}
		if len(v.Failures) != c.nFail {
			t.Errorf("%s: %d failures recorded, want %d",
				c.name, len(v.Failures), c.nFail)
		}
		if c.status == report.StatusValid && v.Reason != "" {
			t.Errorf("%s: valid group has reason %q", c.name, v.Reason)
		}
		if c.status != report.StatusValid && v.Reason == "" {
			t.Errorf("%s: no reason recorded", c.name)
		}
	}
}

func TestEligible(t *testing.T) {
	for _, c := range []struct {
		status report.Status
		want   bool
	}{
		{report.StatusValid, true},
		{report.StatusFlagged, true}, // flagged is surfaced, not excluded
		{report.StatusInsufficient, false},
	} {
		if got := (policy.Verdict{Status: c.status}).Eligible(); got != c.want {
			t.Errorf("Eligible(%v) = %t, want %t", c.status, got, c.want)
		}
	}
}
