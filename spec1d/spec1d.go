// Public domain.

// Package spec1d defines the single-exposure spectral extraction file
// used by the collation tool, and reads and writes it.
//
// An extraction file is the per-exposure output of the upstream
// reduction pipeline: zero or more extracted objects, each with a sky
// position, a wavelength grid, and flux and inverse-variance arrays.
// Files are gob encoded and gzip compressed.
package spec1d

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"math"
	"os"
)

// fileVersion is written ahead of the payload so a reader can reject
// files from an incompatible writer.
const fileVersion = 2

// ExposureFile is the parsed content of one extraction file.  It is
// immutable once read.
type ExposureFile struct {
	Path       string // set by ReadFile, not stored in the file
	Instrument string
	Detector   string
	MJD        float64
	Objects    []ExtractedObject
}

// ExtractedObject is one object extracted from an exposure.
//
// RA and Dec are degrees.  An exposure without a sky solution carries
// NaN in both; such objects can only be collated in pixel mode.
// PosErr is the 1-sigma position uncertainty in arc seconds, zero if
// the reducer did not estimate one.
type ExtractedObject struct {
	Name      string // reducer's extraction name, e.g. SPAT0242-SLIT0241
	SlitID    int
	Det       int
	SpatPixel float64 // spatial pixel position along the slit
	Serendip  bool    // detection not matched to a slit target

	RA, Dec float64
	PosErr  float64
	WaveRMS float64 // wavelength-fit RMS in pixels

	Wave       []float64 // Angstroms
	Counts     []float64
	CountsIvar []float64
	Mask       []bool // true = good pixel

	FluxCalibrated bool
}

// HasPosition reports whether the object carries a usable sky position.
func (o *ExtractedObject) HasPosition() bool {
	return !math.IsNaN(o.RA) && !math.IsNaN(o.Dec) &&
		o.Dec >= -90 && o.Dec <= 90
}

// ReadFile reads one extraction file.
func ReadFile(fn string) (*ExposureFile, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn, err)
	}
	defer gz.Close()
	dec := gob.NewDecoder(gz)
	var v int
	if err = dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%s: %v", fn, err)
	}
	if v != fileVersion {
		return nil, fmt.Errorf("%s: extraction file version %d, want %d",
			fn, v, fileVersion)
	}
	var ef ExposureFile
	if err = dec.Decode(&ef); err != nil {
		return nil, fmt.Errorf("%s: %v", fn, err)
	}
	ef.Path = fn
	return &ef, nil
}

// WriteFile writes one extraction file.  It exists for the upstream
// reducer and for tests; the collation tool itself only reads.
func WriteFile(fn string, ef *ExposureFile) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	w := *ef
	w.Path = "" // path is a property of where the file sits, not of its content
	gz := gzip.NewWriter(f)
	enc := gob.NewEncoder(gz)
	if err = enc.Encode(fileVersion); err == nil {
		err = enc.Encode(&w)
	}
	if e := gz.Close(); err == nil {
		err = e
	}
	if e := f.Close(); err == nil {
		err = e
	}
	return err
}
