// Public domain.

// Package catalog builds the flat cross-file object catalog that the
// clustering pass operates on.
//
// The catalog is built once, before clustering begins, and is read-only
// for the remainder of the run.
package catalog

import (
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/soniakeys/unit"

	"github.com/kmaclean/collate1d/internal/report"
	"github.com/kmaclean/collate1d/spec1d"
)

// Object is one extracted object in the catalog, with its identity key
// and its position promoted to angle types.
type Object struct {
	// Key identifies the object across runs: originating file label
	// and intra-file index.  Group identity is derived from keys,
	// never from catalog order.
	Key string

	File  *spec1d.ExposureFile
	Index int
	Obj   *spec1d.ExtractedObject

	RA, Dec unit.Angle
	PosOK   bool
	PosErr  unit.Angle
}

// Catalog is the immutable catalog of all objects from all readable
// input files, plus the read outcome of every input file.
type Catalog struct {
	Objects []Object // sorted by Key
	Files   []report.FileNote
}

// Options configures catalog building.
type Options struct {
	Workers int // <=0 means GOMAXPROCS

	// Default 1-sigma position uncertainty applied to objects whose
	// file carries none, with per-instrument overrides.  Mirrors the
	// per-site observational-error configuration of astrometry tools.
	DefaultPosErr unit.Angle
	InstPosErr    map[string]unit.Angle
}

// Build reads all input files on a worker pool and assembles the
// catalog.  Unreadable files are skipped with a warning and an
// InputError note; they never abort the run.
func Build(paths []string, opt Options) *Catalog {
	workers := opt.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	files := make([]*spec1d.ExposureFile, len(paths))
	errs := make([]error, len(paths))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				files[i], errs[i] = spec1d.ReadFile(paths[i])
			}
		}()
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	// Assemble in input order for the file notes, then sort objects by
	// key so nothing downstream can see input order.
	c := &Catalog{}
	labels := fileLabels(paths)
	for i, ef := range files {
		if errs[i] != nil {
			log.Println("skipping input:", errs[i])
			c.Files = append(c.Files, report.FileNote{
				Path: paths[i],
				Err: &report.Failure{
					Kind:   report.InputError,
					Detail: errs[i].Error(),
				},
			})
			continue
		}
		c.Files = append(c.Files, report.FileNote{
			Path:    paths[i],
			Objects: len(ef.Objects),
		})
		for j := range ef.Objects {
			o := &ef.Objects[j]
			co := Object{
				Key:   fmt.Sprintf("%s:%04d", labels[i], j),
				File:  ef,
				Index: j,
				Obj:   o,
			}
			if o.HasPosition() {
				co.PosOK = true
				co.RA = unit.AngleFromDeg(o.RA)
				co.Dec = unit.AngleFromDeg(o.Dec)
			}
			co.PosErr = posErr(o, ef.Instrument, opt)
			c.Objects = append(c.Objects, co)
		}
	}
	sort.Slice(c.Objects, func(i, j int) bool {
		return c.Objects[i].Key < c.Objects[j].Key
	})
	return c
}

// posErr resolves the position uncertainty for an object: the file's
// own estimate if present, else the configured per-instrument value,
// else the configured default.
func posErr(o *spec1d.ExtractedObject, inst string, opt Options) unit.Angle {
	if o.PosErr > 0 {
		return unit.AngleFromSec(o.PosErr)
	}
	if e, ok := opt.InstPosErr[inst]; ok {
		return e
	}
	return opt.DefaultPosErr
}

// fileLabels returns a short stable label per input path: the base
// file name, or the cleaned full path where base names collide.
func fileLabels(paths []string) []string {
	count := make(map[string]int)
	for _, p := range paths {
		count[filepath.Base(p)]++
	}
	labels := make([]string, len(paths))
	for i, p := range paths {
		if b := filepath.Base(p); count[b] == 1 {
			labels[i] = b
		} else {
			labels[i] = filepath.Clean(p)
		}
	}
	return labels
}
