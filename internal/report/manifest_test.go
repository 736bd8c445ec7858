// Public domain.

package report_test

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/kmaclean/collate1d/internal/report"
)

func TestKindNames(t *testing.T) {
	for k, want := range map[report.Kind]string{
		report.InputError:         "InputError",
		report.PositionError:      "PositionError",
		report.CalibrationError:   "CalibrationError",
		report.CombinationError:   "CombinationError",
		report.ConfigurationError: "ConfigurationError",
		report.QualityError:       "QualityError",
	} {
		if got := k.String(); got != want {
			t.Errorf("Kind %d = %q, want %q", int(k), got, want)
		}
	}
}

func TestStatusNames(t *testing.T) {
	for s, want := range map[report.Status]string{
		report.StatusCoadded:      "coadded",
		report.StatusInsufficient: "insufficient-exposures",
		report.StatusFlagged:      "flagged",
		report.StatusUnresolved:   "unresolved",
	} {
		if got := s.String(); got != want {
			t.Errorf("Status %d = %q, want %q", int(s), got, want)
		}
	}
}

func TestCollector(t *testing.T) {
	m := report.NewManifest("test")
	if m.RunID == "" {
		t.Error("no run id")
	}
	col := report.NewCollector(m)

	// concurrent appends from many workers
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			col.Add(&report.GroupRow{
				GroupID: fmt.Sprintf("%04x000000000000", i),
				Members: 2,
				Status:  report.StatusCoadded,
			}, []report.ObjectNote{{
				Key:    fmt.Sprintf("f%02d:0000", i),
				Status: report.StatusExcluded,
			}})
		}(i)
	}
	wg.Wait()
	col.Close()

	if len(m.Groups) != 16 || len(m.Objects) != 16 {
		t.Fatalf("%d groups %d notes, want 16 each", len(m.Groups), len(m.Objects))
	}
	for i := 1; i < len(m.Groups); i++ {
		if m.Groups[i-1].GroupID >= m.Groups[i].GroupID {
			t.Fatal("groups not sorted by id")
		}
	}
	for i := 1; i < len(m.Objects); i++ {
		if m.Objects[i-1].Key >= m.Objects[i].Key {
			t.Fatal("object notes not sorted by key")
		}
	}
}

func TestWrite(t *testing.T) {
	m := report.NewManifest("collate1d test")
	m.Files = []report.FileNote{
		{Path: "spec1d_a.gz", Objects: 3},
		{Path: "spec1d_bad.gz", Err: &report.Failure{
			Kind: report.InputError, Detail: "unexpected EOF"}},
	}
	m.Groups = []report.GroupRow{
		{
			GroupID: "0123456789abcdef",
			Desig:   "J100000.00+200000.0",
			Members: 2,
			Status:  report.StatusCoadded,
			Output:  "J100000.00+200000.0_0123456789abcdef.spec1d.gz",
		},
		{
			GroupID: "fedcba9876543210",
			Members: 1,
			Status:  report.StatusInsufficient,
			Reason:  "1 members, 2 required",
		},
	}
	m.Objects = []report.ObjectNote{{
		Key:     "spec1d_a.gz:0002",
		GroupID: "0123456789abcdef",
		Status:  report.StatusExcluded,
		Failure: report.Failure{
			Kind:   report.CalibrationError,
			Object: "spec1d_a.gz:0002",
			Detail: "no sensitivity function",
		},
	}}

	var buf bytes.Buffer
	if err := m.Write(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		m.RunID,
		"SKIPPED InputError: unexpected EOF",
		"J100000.00+200000.0_0123456789abcdef.spec1d.gz",
		"insufficient-exposures",
		"1 members, 2 required",
		"CalibrationError: spec1d_a.gz:0002: no sensitivity function",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("manifest missing %q\n%s", want, out)
		}
	}
}
