// Public domain.

package coadd

import (
	"errors"
	"math"
	"sort"
)

// IvarCoadder is the reference Coadder: linear resampling onto a
// common wavelength grid, then a per-pixel inverse-variance weighted
// mean.  The common grid spans the union of member coverage at the
// finest member sampling, so the grid depends only on the member set,
// not on the order the members arrive in.
type IvarCoadder struct{}

func (IvarCoadder) Coadd(specs []*CalibratedSpectrum) (*CombinedSpectrum, error) {
	if len(specs) == 0 {
		return nil, errors.New("no spectra to combine")
	}
	grid, err := commonGrid(specs)
	if err != nil {
		return nil, err
	}

	n := len(grid)
	flux := make([]float64, n)
	ivar := make([]float64, n)
	wsum := make([]float64, n)
	prov := make([]Contribution, len(specs))
	var wtotal float64
	for si, s := range specs {
		var wspec float64
		for i, w := range grid {
			f, iv := sample(s, w)
			if iv <= 0 {
				continue
			}
			flux[i] += f * iv
			wsum[i] += iv
			wspec += iv
		}
		prov[si] = Contribution{Key: s.Key, Weight: wspec}
		wtotal += wspec
	}
	for i := range grid {
		if wsum[i] > 0 {
			flux[i] /= wsum[i]
			ivar[i] = wsum[i]
		}
	}
	if wtotal == 0 {
		return nil, errors.New("all member pixels carry zero weight")
	}
	for i := range prov {
		prov[i].Weight /= wtotal
	}
	return &CombinedSpectrum{
		Wave:       grid,
		Flux:       flux,
		Ivar:       ivar,
		Provenance: prov,
	}, nil
}

// commonGrid builds a uniform grid covering the union of member
// wavelength ranges at the smallest mean member step.
func commonGrid(specs []*CalibratedSpectrum) ([]float64, error) {
	lo := math.Inf(1)
	hi := math.Inf(-1)
	dw := math.Inf(1)
	for _, s := range specs {
		if len(s.Wave) < 2 || !sort.Float64sAreSorted(s.Wave) {
			return nil, errors.New("member wavelength grid not ascending")
		}
		w0, w1 := s.Wave[0], s.Wave[len(s.Wave)-1]
		if w0 < lo {
			lo = w0
		}
		if w1 > hi {
			hi = w1
		}
		if d := (w1 - w0) / float64(len(s.Wave)-1); d < dw {
			dw = d
		}
	}
	if dw <= 0 || math.IsInf(dw, 1) {
		return nil, errors.New("cannot derive a common wavelength step")
	}
	n := int(math.Round((hi-lo)/dw)) + 1
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = lo + float64(i)*dw
	}
	return grid, nil
}

// sample linearly interpolates a spectrum at wavelength w.  Outside
// the spectrum's coverage the returned inverse variance is zero, so
// the pixel contributes nothing.  The interpolated inverse variance is
// the more conservative of the two bracketing pixels.
func sample(s *CalibratedSpectrum, w float64) (f, iv float64) {
	wv := s.Wave
	if w < wv[0] || w > wv[len(wv)-1] {
		return 0, 0
	}
	j := sort.SearchFloat64s(wv, w)
	if j < len(wv) && wv[j] == w {
		return s.Flux[j], s.Ivar[j]
	}
	// wv[j-1] < w < wv[j]
	t := (w - wv[j-1]) / (wv[j] - wv[j-1])
	f = s.Flux[j-1] + t*(s.Flux[j]-s.Flux[j-1])
	iv = math.Min(s.Ivar[j-1], s.Ivar[j])
	return f, iv
}

// interp linearly interpolates y(x) at xq, clamping outside the range.
// x must be ascending.
func interp(x, y []float64, xq float64) float64 {
	switch {
	case xq <= x[0]:
		return y[0]
	case xq >= x[len(x)-1]:
		return y[len(y)-1]
	}
	j := sort.SearchFloat64s(x, xq)
	if x[j] == xq {
		return y[j]
	}
	t := (xq - x[j-1]) / (x[j] - x[j-1])
	return y[j-1] + t*(y[j]-y[j-1])
}
