// Public domain.

package coadd

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
)

const fileVersion = 1

// WriteFile persists one combined spectrum.  Artifacts are gob
// encoded and gzip compressed, like the extraction files they are
// built from.
func WriteFile(fn string, cs *CombinedSpectrum) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(f)
	enc := gob.NewEncoder(gz)
	if err = enc.Encode(fileVersion); err == nil {
		err = enc.Encode(cs)
	}
	if e := gz.Close(); err == nil {
		err = e
	}
	if e := f.Close(); err == nil {
		err = e
	}
	return err
}

// ReadFile reads a combined spectrum written by WriteFile.
func ReadFile(fn string) (*CombinedSpectrum, error) {
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
		return nil, fmt.Errorf("%s: combined spectrum version %d, want %d",
			fn, v, fileVersion)
	}
	var cs CombinedSpectrum
	if err = dec.Decode(&cs); err != nil {
		return nil, fmt.Errorf("%s: %v", fn, err)
	}
	return &cs, nil
}
