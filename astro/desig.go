// Public domain.

package astro

import (
	"fmt"

	"github.com/soniakeys/unit"
)

// Designation formats a J2000 source designation, JHHMMSS.SS±DDMMSS.S,
// from a sky position.
//
// The position is rounded to the displayed precision before being
// decomposed into sexagesimal fields, so a value like 9.9999 seconds
// rolls over cleanly rather than printing as 60.00.
func Designation(ra, dec unit.Angle) string {
	// RA in centiseconds of time
	cs := int64(ra.Sec()/15*100 + .5)
	const raWrap = 24 * 3600 * 100
	cs %= raWrap
	if cs < 0 {
		cs += raWrap
	}
	rh := cs / 360000
	cs %= 360000
	rm := cs / 6000
	cs %= 6000

	// Dec in tenths of arc seconds
	sign := byte('+')
	ds := int64(dec.Sec()*10 + .5)
	if dec < 0 {
		sign = '-'
		ds = int64(-dec.Sec()*10 + .5)
	}
	dd := ds / 36000
	ds %= 36000
	dm := ds / 600
	ds %= 600

	return fmt.Sprintf("J%02d%02d%02d.%02d%c%02d%02d%02d.%d",
		rh, rm, cs/100, cs%100, sign, dd, dm, ds/10, ds%10)
}
