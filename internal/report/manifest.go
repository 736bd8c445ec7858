// Public domain.

package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
)

// FileNote records the read outcome for one input file.
type FileNote struct {
	Path    string
	Objects int
	Err     *Failure // nil if the file read cleanly
}

// ObjectNote records an object set aside before coaddition: unresolved
// position, quality exclusion, or per-member calibration exclusion.
type ObjectNote struct {
	Key     string
	GroupID string // empty if the object never joined a group
	Status  Status
	Failure Failure
}

// GroupRow is one group's line in the manifest.
type GroupRow struct {
	GroupID  string
	Desig    string // J2000 designation of the mean position
	Members  int
	Status   Status
	Reason   string    // first failing rule or failure, empty if none
	Failures []Failure // everything recorded, not just the first
	Output   string    // path of the combined spectrum, if written
}

// Manifest is the final report artifact.
type Manifest struct {
	RunID   string
	Version string
	Started time.Time

	Files   []FileNote
	Groups  []GroupRow // sorted by GroupID
	Objects []ObjectNote
}

// NewManifest allocates a manifest stamped with a fresh run id.
func NewManifest(version string) *Manifest {
	return &Manifest{
		RunID:   uuid.New().String(),
		Version: version,
		Started: time.Now().UTC(),
	}
}

// Collector accumulates group rows and object notes from concurrent
// group-processing workers.  A single goroutine owns the manifest and
// drains the channel, so workers never share mutable state.
type Collector struct {
	m    *Manifest
	ch   chan collected
	done chan struct{}
}

type collected struct {
	row   *GroupRow
	notes []ObjectNote
}

// NewCollector starts the drain goroutine for m.
func NewCollector(m *Manifest) *Collector {
	c := &Collector{m: m, ch: make(chan collected), done: make(chan struct{})}
	go func() {
		for r := range c.ch {
			if r.row != nil {
				m.Groups = append(m.Groups, *r.row)
			}
			m.Objects = append(m.Objects, r.notes...)
		}
		close(c.done)
	}()
	return c
}

// Add records a group row and any object notes attached to it.
// Safe for concurrent use.
func (c *Collector) Add(row *GroupRow, notes []ObjectNote) {
	c.ch <- collected{row, notes}
}

// AddNotes records object notes with no group row.
func (c *Collector) AddNotes(notes []ObjectNote) {
	if len(notes) > 0 {
		c.ch <- collected{nil, notes}
	}
}

// Close stops the collector and sorts the manifest into its
// deterministic order.  Call after all workers are finished.
func (c *Collector) Close() {
	close(c.ch)
	<-c.done
	sort.Slice(c.m.Groups, func(i, j int) bool {
		return c.m.Groups[i].GroupID < c.m.Groups[j].GroupID
	})
	sort.Slice(c.m.Objects, func(i, j int) bool {
		return c.m.Objects[i].Key < c.m.Objects[j].Key
	})
}

// Write renders the manifest as a fixed-width text report.
func (m *Manifest) Write(w io.Writer) error {
	bw := &errWriter{w: w}
	bw.printf("# %s\n", m.Version)
	bw.printf("# run %s  started %s\n",
		m.RunID, m.Started.Format("2006-01-02 15:04:05 MST"))
	bw.printf("#\n# input files\n")
	for _, f := range m.Files {
		if f.Err != nil {
			bw.printf("# %-40s SKIPPED %s\n", f.Path, f.Err.Error())
		} else {
			bw.printf("# %-40s %3d objects\n", f.Path, f.Objects)
		}
	}

	bw.printf("#\n%-16s %-19s %7s %-22s %-28s %s\n",
		"group", "designation", "members", "status", "reason", "output")
	for _, g := range m.Groups {
		desig := g.Desig
		if desig == "" {
			desig = "-"
		}
		reason := g.Reason
		if reason == "" {
			reason = "-"
		}
		out := g.Output
		if out == "" {
			out = "-"
		}
		bw.printf("%-16s %-19s %7d %-22s %-28s %s\n",
			g.GroupID, desig, g.Members, g.Status, reason, out)
		for _, f := range g.Failures {
			if f.Detail != g.Reason {
				bw.printf("%-16s %-19s %7s %-22s %s\n",
					"", "", "", "", f.Error())
			}
		}
	}

	if len(m.Objects) > 0 {
		bw.printf("#\n# objects set aside\n%-26s %-16s %-12s %s\n",
			"object", "group", "status", "reason")
		for _, o := range m.Objects {
			gid := o.GroupID
			if gid == "" {
				gid = "-"
			}
			bw.printf("%-26s %-16s %-12s %s\n",
				o.Key, gid, o.Status, o.Failure.Error())
		}
	}
	return bw.err
}

// errWriter, sticky-error printf.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err == nil {
		_, e.err = fmt.Fprintf(e.w, format, args...)
	}
}
