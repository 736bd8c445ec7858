// Public domain.

package spec1d

import (
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
)

const sensVersion = 1

// SensFunc is a sensitivity function: the factor converting instrument
// counts to physical flux units as a function of wavelength.  Produced
// by the upstream pipeline from a standard-star exposure.
type SensFunc struct {
	Instrument string
	Wave       []float64 // Angstroms, ascending
	Sens       []float64 // flux per count at Wave
}

// ReadSensFile reads a sensitivity-function reference file.
func ReadSensFile(fn string) (*SensFunc, error) {
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
	if v != sensVersion {
		return nil, fmt.Errorf("%s: sensitivity file version %d, want %d",
			fn, v, sensVersion)
	}
	var s SensFunc
	if err = dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%s: %v", fn, err)
	}
	if len(s.Wave) < 2 || len(s.Wave) != len(s.Sens) {
		return nil, errors.New(fn + ": sensitivity function malformed")
	}
	return &s, nil
}

// WriteSensFile writes a sensitivity-function reference file.
func WriteSensFile(fn string, s *SensFunc) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(f)
	enc := gob.NewEncoder(gz)
	if err = enc.Encode(sensVersion); err == nil {
		err = enc.Encode(s)
	}
	if e := gz.Close(); err == nil {
		err = e
	}
	if e := f.Close(); err == nil {
		err = e
	}
	return err
}
