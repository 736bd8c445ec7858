// Public domain.

package catalog_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/soniakeys/unit"

	"github.com/kmaclean/collate1d/internal/catalog"
	"github.com/kmaclean/collate1d/spec1d"
)

func writeExposure(t *testing.T, fn, inst string, objs ...spec1d.ExtractedObject) {
	t.Helper()
	if err := spec1d.WriteFile(fn, &spec1d.ExposureFile{
		Instrument: inst,
		Objects:    objs,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	fnA := filepath.Join(dir, "spec1d_a.gz")
	fnB := filepath.Join(dir, "spec1d_b.gz")
	writeExposure(t, fnA, "keck_deimos",
		spec1d.ExtractedObject{RA: 10, Dec: 20, PosErr: 0.4},
		spec1d.ExtractedObject{RA: 11, Dec: 21},
	)
	writeExposure(t, fnB, "shane_kast",
		spec1d.ExtractedObject{RA: math.NaN(), Dec: math.NaN()},
	)

	cat := catalog.Build([]string{fnB, fnA}, catalog.Options{
		DefaultPosErr: unit.AngleFromSec(1),
		InstPosErr:    map[string]unit.Angle{"keck_deimos": unit.AngleFromSec(0.3)},
	})

	if len(cat.Files) != 2 {
		t.Fatalf("%d file notes, want 2", len(cat.Files))
	}
	if cat.Files[0].Path != fnB || cat.Files[0].Objects != 1 {
		t.Errorf("file note 0 = %+v", cat.Files[0])
	}
	if len(cat.Objects) != 3 {
		t.Fatalf("%d objects, want 3", len(cat.Objects))
	}
	// sorted by key, not by input order
	for i := 1; i < len(cat.Objects); i++ {
		if cat.Objects[i-1].Key >= cat.Objects[i].Key {
			t.Fatal("objects not sorted by key")
		}
	}

	byKey := make(map[string]*catalog.Object)
	for i := range cat.Objects {
		byKey[cat.Objects[i].Key] = &cat.Objects[i]
	}
	// file's own uncertainty wins
	if o := byKey["spec1d_a.gz:0000"]; !o.PosOK || math.Abs(o.PosErr.Sec()-0.4) > 1e-12 {
		t.Errorf("object a:0 = %+v", o)
	}
	// instrument override applies when the file has none
	if o := byKey["spec1d_a.gz:0001"]; math.Abs(o.PosErr.Sec()-0.3) > 1e-12 {
		t.Errorf("object a:1 poserr = %v", o.PosErr.Sec())
	}
	// default for unknown instruments, and NaN positions are unusable
	if o := byKey["spec1d_b.gz:0000"]; o.PosOK || math.Abs(o.PosErr.Sec()-1) > 1e-12 {
		t.Errorf("object b:0 = %+v", o)
	}
}

func TestBuildSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "spec1d_good.gz")
	bad := filepath.Join(dir, "spec1d_bad.gz")
	writeExposure(t, good, "keck_deimos",
		spec1d.ExtractedObject{RA: 10, Dec: 20})
	if err := os.WriteFile(bad, []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	cat := catalog.Build([]string{good, bad}, catalog.Options{})
	if len(cat.Objects) != 1 {
		t.Errorf("%d objects, want 1", len(cat.Objects))
	}
	var skipped int
	for _, f := range cat.Files {
		if f.Err != nil {
			skipped++
			if f.Path != bad {
				t.Errorf("skipped %s, want %s", f.Path, bad)
			}
		}
	}
	if skipped != 1 {
		t.Errorf("%d files skipped, want 1", skipped)
	}
}
