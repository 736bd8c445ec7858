// Public domain.

// Package astro, spherical geometry for catalog positions.
package astro

import (
	"math"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"
)

// Unit returns the unit vector of the sky position ra, dec.
func Unit(ra, dec unit.Angle) coord.Cart {
	sdec, cdec := math.Sincos(dec.Rad())
	sra, cra := math.Sincos(ra.Rad())
	return coord.Cart{
		X: cra * cdec,
		Y: sra * cdec,
		Z: sdec,
	}
}

// Sep returns the great-circle angular separation between two sky
// positions.
//
// The atan2 form is stable for both very small and near-antipodal
// separations, unlike the plain arccosine of the dot product.
func Sep(ra1, dec1, ra2, dec2 unit.Angle) unit.Angle {
	u1 := Unit(ra1, dec1)
	u2 := Unit(ra2, dec2)
	var x coord.Cart
	x.Cross(&u1, &u2)
	return unit.Angle(math.Atan2(math.Sqrt(x.Square()), u1.Dot(&u2)))
}

// MeanPos returns the mean sky position of a set of positions, computed
// as the direction of the vector sum of member unit vectors.
//
// Averaging vectors rather than raw coordinates keeps the result
// correct across the RA 0/360 wrap and near the poles.  The position
// slices must be the same length and non-empty.
func MeanPos(ra, dec []unit.Angle) (mra, mdec unit.Angle) {
	var sum coord.Cart
	for i := range ra {
		u := Unit(ra[i], dec[i])
		sum.Add(&sum, &u)
	}
	r := math.Sqrt(sum.Square())
	mra = unit.Angle(math.Atan2(sum.Y, sum.X))
	if mra < 0 {
		mra += unit.Angle(2 * math.Pi)
	}
	mdec = unit.Angle(math.Asin(sum.Z / r))
	return
}
