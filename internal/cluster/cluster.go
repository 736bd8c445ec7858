// Public domain.

// Package cluster partitions the object catalog into source groups by
// single-linkage spatial matching.
//
// Any two objects within the matching tolerance of each other end up
// in the same group, transitively.  The partition is exact: every
// catalog object lands in exactly one group or, lacking a usable
// position, in the unresolved list.  Group identifiers depend only on
// the identities of the members, never on processing order, so a rerun
// with input files listed in a different order produces identical
// groups and identifiers.
package cluster

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"

	"github.com/soniakeys/unit"

	"github.com/kmaclean/collate1d/astro"
	"github.com/kmaclean/collate1d/internal/catalog"
	"github.com/kmaclean/collate1d/internal/report"
)

// Mode selects the position space used for matching.
type Mode int

const (
	// MatchRADec matches on great-circle angular separation.
	MatchRADec Mode = iota
	// MatchPixel matches on spatial-pixel distance within a detector,
	// for exposures without a sky solution.
	MatchPixel
)

// Config holds the matching parameters.
type Config struct {
	Mode      Mode
	Tolerance unit.Angle // MatchRADec
	PixelTol  float64    // MatchPixel, pixels
}

// Group is a set of objects believed to be the same physical source.
// Membership is fixed once clustering completes.
type Group struct {
	// ID is a hash of the sorted member keys, 16 hex characters.
	ID      string
	Members []*catalog.Object // sorted by Key

	// Mean sky position of members that have one, and its J2000
	// designation.  PosOK is false when no member has a position
	// (pixel-mode groups from uncalibrated exposures).
	RA, Dec unit.Angle
	PosOK   bool
	Desig   string
}

// Result is the partition: groups sorted by ID, plus objects that
// could not enter matching at all.
type Result struct {
	Groups     []Group
	Unresolved []report.ObjectNote
}

// Cluster partitions the catalog.
func Cluster(cat *catalog.Catalog, cfg Config) Result {
	var res Result

	// Objects without a usable position for the active mode go to the
	// unresolved bucket.  They are reported, never silently dropped.
	var use []*catalog.Object
	for i := range cat.Objects {
		o := &cat.Objects[i]
		if matchable(o, cfg.Mode) {
			use = append(use, o)
			continue
		}
		res.Unresolved = append(res.Unresolved, report.ObjectNote{
			Key:    o.Key,
			Status: report.StatusUnresolved,
			Failure: report.Failure{
				Kind:   report.PositionError,
				Object: o.Key,
				Detail: positionDetail(cfg.Mode),
			},
		})
	}

	uf := newUnionFind(len(use))
	switch cfg.Mode {
	case MatchPixel:
		linkPixel(use, uf, cfg.PixelTol)
	default:
		linkRADec(use, uf, cfg.Tolerance)
	}

	// Collect components and finalize groups.  Identifiers are
	// computed only now, from sorted member keys; union-find roots are
	// an implementation accident and never escape this function.
	comp := make(map[int][]*catalog.Object)
	for i, o := range use {
		r := uf.find(i)
		comp[r] = append(comp[r], o)
	}
	for _, members := range comp {
		sort.Slice(members, func(i, j int) bool {
			return members[i].Key < members[j].Key
		})
		g := Group{Members: members}
		keys := make([]string, len(members))
		for i, m := range members {
			keys[i] = m.Key
		}
		g.ID = groupID(keys)
		var ra, dec []unit.Angle
		for _, m := range members {
			if m.PosOK {
				ra = append(ra, m.RA)
				dec = append(dec, m.Dec)
			}
		}
		if len(ra) > 0 {
			g.RA, g.Dec = astro.MeanPos(ra, dec)
			g.PosOK = true
			g.Desig = astro.Designation(g.RA, g.Dec)
		}
		res.Groups = append(res.Groups, g)
	}
	sort.Slice(res.Groups, func(i, j int) bool {
		return res.Groups[i].ID < res.Groups[j].ID
	})
	return res
}

func matchable(o *catalog.Object, m Mode) bool {
	if m == MatchPixel {
		return o.Obj.Det > 0 && !math.IsNaN(o.Obj.SpatPixel)
	}
	return o.PosOK
}

func positionDetail(m Mode) string {
	if m == MatchPixel {
		return "no usable detector/pixel position"
	}
	return "no usable sky position"
}

// linkRADec unions every pair within the angular tolerance.  A sort by
// declination prefilters candidates: a pair differing in declination
// by more than the tolerance cannot be within it, so only a sliding
// declination window needs the exact separation check.
func linkRADec(use []*catalog.Object, uf *unionFind, tol unit.Angle) {
	order := make([]int, len(use))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return use[order[i]].Dec < use[order[j]].Dec
	})
	for a := 0; a < len(order); a++ {
		oa := use[order[a]]
		for b := a + 1; b < len(order); b++ {
			ob := use[order[b]]
			if ob.Dec-oa.Dec > tol {
				break
			}
			if astro.Sep(oa.RA, oa.Dec, ob.RA, ob.Dec) <= tol {
				uf.union(order[a], order[b])
			}
		}
	}
}

// linkPixel unions pairs on the same detector within the pixel
// tolerance along the spatial axis.  Objects on different detectors
// never match.
func linkPixel(use []*catalog.Object, uf *unionFind, tol float64) {
	order := make([]int, len(use))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		oi, oj := use[order[i]].Obj, use[order[j]].Obj
		if oi.Det != oj.Det {
			return oi.Det < oj.Det
		}
		return oi.SpatPixel < oj.SpatPixel
	})
	for a := 0; a < len(order); a++ {
		oa := use[order[a]].Obj
		for b := a + 1; b < len(order); b++ {
			ob := use[order[b]].Obj
			if ob.Det != oa.Det || ob.SpatPixel-oa.SpatPixel > tol {
				break
			}
			uf.union(order[a], order[b])
		}
	}
}

// groupID hashes sorted member keys into a stable group identifier.
// Keys are length-prefixed so no two member sets can collide by
// concatenation.
func groupID(sortedKeys []string) string {
	h := sha256.New()
	var lp [8]byte
	for _, k := range sortedKeys {
		binary.BigEndian.PutUint64(lp[:], uint64(len(k)))
		h.Write(lp[:])
		h.Write([]byte(k))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
