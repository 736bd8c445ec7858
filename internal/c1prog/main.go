// Public domain.

// Package c1prog is the collate1d program: command line and config
// handling, and the wiring of the collation pipeline phases.
package c1prog

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/soniakeys/exit"
	"github.com/soniakeys/unit"
	"gopkg.in/yaml.v3"

	"github.com/kmaclean/collate1d/internal/catalog"
	"github.com/kmaclean/collate1d/internal/cluster"
	"github.com/kmaclean/collate1d/internal/coadd"
	"github.com/kmaclean/collate1d/internal/policy"
	"github.com/kmaclean/collate1d/internal/report"
	"github.com/kmaclean/collate1d/spec1d"
)

const versionString = "collate1d version 1.2 Go source."
const copyrightString = "Public domain."

const manifestName = "collate_manifest.txt"

func Main() {
	defer exit.Handler()

	cl := parseCommandLine()
	cfg := readConfig(cl)
	paths := collectInputs(flag.Args())
	if len(paths) == 0 {
		exit.Log("no input extraction files")
	}

	var sens *spec1d.SensFunc
	if cfg.FluxFile != "" && !cfg.NoFlux {
		var err error
		if sens, err = spec1d.ReadSensFile(cfg.FluxFile); err != nil {
			exit.Log(err)
		}
	}

	m, nCoadd, err := run(paths, cfg, sens)
	if err != nil {
		exit.Log(err)
	}
	fmt.Printf("%d input files, %d groups, %d combined spectra written, %d objects set aside\n",
		len(m.Files), len(m.Groups), nCoadd, len(m.Objects))
	fmt.Println("manifest:", filepath.Join(cfg.OutDir, manifestName))
}

// config is the merged command line + config file configuration.
// Zero thresholds take the documented defaults in validate.
type config struct {
	Tolerance       float64            `yaml:"tolerance"` // arcsec, or pixels in pixel mode
	MinExposures    int                `yaml:"min_exposures"`
	Match           string             `yaml:"match"` // radec or pixel
	SlitTol         int                `yaml:"slit_tolerance"`
	ExcludeSerendip bool               `yaml:"exclude_serendip"`
	WaveRMSThresh   float64            `yaml:"wv_rms_thresh"`
	FluxFile        string             `yaml:"flux_file"`
	OutDir          string             `yaml:"outdir"`
	PosErrDefault   float64            `yaml:"pos_err_default"` // arcsec
	PosErr          map[string]float64 `yaml:"pos_err"`         // per instrument, arcsec

	NoFlux bool `yaml:"-"`
	DryRun bool `yaml:"-"`
}

type commandLine struct {
	cfgFile string
	cfg     config
	setFlag map[string]bool
}

func parseCommandLine() *commandLine {
	var cl commandLine
	dh := flag.Bool("h", false, "")
	dv := flag.Bool("v", false, "")
	flag.StringVar(&cl.cfgFile, "c", "", "")
	flag.Float64Var(&cl.cfg.Tolerance, "t", 0, "")
	flag.IntVar(&cl.cfg.MinExposures, "e", 0, "")
	flag.StringVar(&cl.cfg.Match, "match", "", "")
	flag.StringVar(&cl.cfg.FluxFile, "f", "", "")
	flag.BoolVar(&cl.cfg.NoFlux, "noflux", false, "")
	flag.StringVar(&cl.cfg.OutDir, "d", "", "")
	flag.IntVar(&cl.cfg.SlitTol, "slit-tol", 0, "")
	flag.BoolVar(&cl.cfg.ExcludeSerendip, "exclude-serendip", false, "")
	flag.Float64Var(&cl.cfg.WaveRMSThresh, "wv-rms", 0, "")
	flag.BoolVar(&cl.cfg.DryRun, "n", false, "")
	flag.Usage = func() {
		os.Stderr.WriteString(`
Usage: collate1d [options] <spec1d files>   collate extraction files
       collate1d [options] @<list-file>     read file names from a list
       collate1d -h                         display help and quick reference
       collate1d -v                         display version and copyright

Options:
       -c <config-file>         YAML configuration
       -t <tolerance>           match tolerance, arcsec (pixels with -match pixel)
       -e <n>                   minimum exposures per group
       -match <radec|pixel>     matching mode
       -f <sens-file>           sensitivity function for flux calibration
       -noflux                  skip flux calibration of uncalibrated members
       -d <outdir>              output directory
       -slit-tol <n>            flag groups with slit id spread > n (-1 disables)
       -exclude-serendip        drop serendipitous detections
       -wv-rms <thresh>         drop objects with wavelength RMS above thresh
       -n                       dry run: group and report, write no spectra
`)
	}
	flag.Parse()
	switch {
	case *dh:
		printHelp()
		os.Exit(0)
	case *dv:
		fmt.Println(versionString)
		fmt.Println(copyrightString)
		os.Exit(0)
	case flag.NArg() == 0:
		flag.Usage()
		os.Exit(1)
	}
	cl.setFlag = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { cl.setFlag[f.Name] = true })
	return &cl
}

// readConfig loads the config file if any, lets set flags win over
// file values, and validates.  Configuration problems are fatal before
// any processing begins.
func readConfig(cl *commandLine) *config {
	cfg := config{
		Tolerance:     1,
		MinExposures:  1,
		Match:         "radec",
		SlitTol:       -1,
		OutDir:        ".",
		PosErrDefault: 1,
	}
	if cl.cfgFile != "" {
		b, err := os.ReadFile(cl.cfgFile)
		if err != nil {
			exit.Log(err)
		}
		if err = yaml.Unmarshal(b, &cfg); err != nil {
			exit.Log(fmt.Sprintf("%s: %v", cl.cfgFile, err))
		}
	}
	// flags win over file values
	if cl.setFlag["t"] {
		cfg.Tolerance = cl.cfg.Tolerance
	}
	if cl.setFlag["e"] {
		cfg.MinExposures = cl.cfg.MinExposures
	}
	if cl.setFlag["match"] {
		cfg.Match = cl.cfg.Match
	}
	if cl.setFlag["f"] {
		cfg.FluxFile = cl.cfg.FluxFile
	}
	if cl.setFlag["d"] {
		cfg.OutDir = cl.cfg.OutDir
	}
	if cl.setFlag["slit-tol"] {
		cfg.SlitTol = cl.cfg.SlitTol
	}
	if cl.setFlag["exclude-serendip"] {
		cfg.ExcludeSerendip = cl.cfg.ExcludeSerendip
	}
	if cl.setFlag["wv-rms"] {
		cfg.WaveRMSThresh = cl.cfg.WaveRMSThresh
	}
	cfg.NoFlux = cl.cfg.NoFlux
	cfg.DryRun = cl.cfg.DryRun
	if err := cfg.validate(); err != nil {
		exit.Log(err)
	}
	return &cfg
}

func (c *config) validate() error {
	fail := func(detail string) error {
		return &report.Failure{Kind: report.ConfigurationError, Detail: detail}
	}
	if c.Tolerance <= 0 {
		return fail(fmt.Sprintf("tolerance %g, must be positive", c.Tolerance))
	}
	if c.MinExposures < 1 {
		return fail(fmt.Sprintf("min exposures %d, must be at least 1", c.MinExposures))
	}
	if c.Match != "radec" && c.Match != "pixel" {
		return fail(fmt.Sprintf("match mode %q, want radec or pixel", c.Match))
	}
	if c.WaveRMSThresh < 0 {
		return fail(fmt.Sprintf("wavelength RMS threshold %g, must not be negative", c.WaveRMSThresh))
	}
	if c.PosErrDefault < 0 {
		return fail(fmt.Sprintf("default position error %g, must not be negative", c.PosErrDefault))
	}
	if c.FluxFile != "" && c.NoFlux {
		return fail("-f and -noflux are mutually exclusive")
	}
	return nil
}

// collectInputs expands the file arguments: globs are expanded, an
// argument of the form @file names a listing file with one path per
// line.
func collectInputs(args []string) []string {
	var paths []string
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "@"):
			f, err := os.Open(a[1:])
			if err != nil {
				exit.Log(err)
			}
			for sc := bufio.NewScanner(f); sc.Scan(); {
				if l := strings.TrimSpace(sc.Text()); l != "" && l[0] != '#' {
					paths = append(paths, l)
				}
			}
			f.Close()
		case strings.ContainsAny(a, "*?["):
			m, err := filepath.Glob(a)
			if err != nil {
				exit.Log(err)
			}
			paths = append(paths, m...)
		default:
			paths = append(paths, a)
		}
	}
	return paths
}

// run executes the pipeline phases: read, cluster, validate, coadd,
// report.  Per-file and per-group failures are recovered and recorded
// in the manifest; only an unusable environment returns an error.
func run(paths []string, cfg *config, sens *spec1d.SensFunc) (*report.Manifest, int, error) {
	if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
		return nil, 0, err
	}

	// read phase, parallel across files
	instErr := make(map[string]unit.Angle, len(cfg.PosErr))
	for inst, e := range cfg.PosErr {
		instErr[inst] = unit.AngleFromSec(e)
	}
	cat := catalog.Build(paths, catalog.Options{
		DefaultPosErr: unit.AngleFromSec(cfg.PosErrDefault),
		InstPosErr:    instErr,
	})
	m := report.NewManifest(versionString)
	m.Files = cat.Files
	if !anyReadable(cat.Files) {
		return nil, 0, fmt.Errorf("none of %d input files readable", len(paths))
	}

	pcfg := policy.Config{
		MinExposures:    cfg.MinExposures,
		SlitTol:         cfg.SlitTol,
		ExcludeSerendip: cfg.ExcludeSerendip,
		WaveRMSThresh:   cfg.WaveRMSThresh,
	}
	kept, cut := policy.ExcludeObjects(cat.Objects, pcfg)

	// cluster and validate, sequential over the whole catalog
	ccfg := cluster.Config{
		Tolerance: unit.AngleFromSec(cfg.Tolerance),
		PixelTol:  cfg.Tolerance,
	}
	if cfg.Match == "pixel" {
		ccfg.Mode = cluster.MatchPixel
	}
	res := cluster.Cluster(&catalog.Catalog{Objects: kept}, ccfg)

	col := report.NewCollector(m)
	col.AddNotes(cut)
	col.AddNotes(res.Unresolved)

	// coadd phase, parallel across groups.  Workers append results
	// through the collector, whose single drain goroutine owns the
	// manifest.
	orch := coadd.New(&coadd.SensCalibrator{Sens: sens}, coadd.IvarCoadder{})
	workCh := make(chan workItem)
	var wg sync.WaitGroup
	var nCoadd int
	var mu sync.Mutex
	for w := 0; w < runtime.GOMAXPROCS(0); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range workCh {
				if processGroup(it, cfg, orch, col) {
					mu.Lock()
					nCoadd++
					mu.Unlock()
				}
			}
		}()
	}
	for i := range res.Groups {
		g := &res.Groups[i]
		workCh <- workItem{g, policy.Validate(g, pcfg)}
	}
	close(workCh)
	wg.Wait()
	col.Close()

	mf, err := os.Create(filepath.Join(cfg.OutDir, manifestName))
	if err != nil {
		return nil, 0, err
	}
	err = m.Write(mf)
	if e := mf.Close(); err == nil {
		err = e
	}
	return m, nCoadd, err
}

type workItem struct {
	g *cluster.Group
	v policy.Verdict
}

// processGroup handles one group end to end and records its manifest
// row.  Returns true if a combined spectrum was written.
func processGroup(it workItem, cfg *config, orch *coadd.Orchestrator, col *report.Collector) bool {
	g, v := it.g, it.v
	row := report.GroupRow{
		GroupID:  g.ID,
		Desig:    g.Desig,
		Members:  len(g.Members),
		Status:   v.Status,
		Reason:   v.Reason,
		Failures: v.Failures,
	}
	if !v.Eligible() || cfg.DryRun {
		col.Add(&row, nil)
		return false
	}

	comb, memberFails, err := orch.Process(g)
	var notes []report.ObjectNote
	for _, f := range memberFails {
		notes = append(notes, report.ObjectNote{
			Key:     f.Object,
			GroupID: g.ID,
			Status:  report.StatusExcluded,
			Failure: f,
		})
	}
	if err != nil {
		row.Status = report.StatusFailed
		row.Reason = err.Error()
		if f, ok := err.(*report.Failure); ok {
			row.Reason = f.Detail
			row.Failures = append(row.Failures, *f)
		}
		col.Add(&row, notes)
		return false
	}

	fn := artifactName(g)
	path := filepath.Join(cfg.OutDir, fn)
	if werr := coadd.WriteFile(path, comb); werr != nil {
		row.Status = report.StatusFailed
		row.Reason = werr.Error()
		col.Add(&row, notes)
		return false
	}
	if row.Status == report.StatusValid {
		row.Status = report.StatusCoadded
	}
	row.Output = fn
	col.Add(&row, notes)
	return true
}

// artifactName names a combined-spectrum file from the group's
// designation and identifier.
func artifactName(g *cluster.Group) string {
	if g.Desig != "" {
		return fmt.Sprintf("%s_%s.spec1d.gz", g.Desig, g.ID)
	}
	return fmt.Sprintf("GRP_%s.spec1d.gz", g.ID)
}

func anyReadable(files []report.FileNote) bool {
	for _, f := range files {
		if f.Err == nil {
			return true
		}
	}
	return false
}

func printHelp() {
	fmt.Println(`
Collate1d groups the objects extracted from independently reduced
exposures by sky position, then flux calibrates and coadds each group
into one combined spectrum per source.  Input is one or more spec1d
extraction files.  Output is one combined-spectrum file per group and
a manifest recording the disposition of every input object.

Config file keys (YAML):
   tolerance          match tolerance, arcsec (pixels in pixel mode)
   min_exposures      minimum group size eligible for coaddition
   match              radec or pixel
   slit_tolerance     flag groups with slit id spread above this
   exclude_serendip   drop serendipitous detections
   wv_rms_thresh      drop objects with wavelength RMS above this
   flux_file          sensitivity function reference
   outdir             output directory
   pos_err_default    assumed position error when a file has none, arcsec
   pos_err            per-instrument position error map, arcsec

Command line flags override config file values.

Exit status is 0 when the run completes, even if individual groups
failed; failures are reported in the manifest.  Nonzero status means
the configuration was invalid or no input could be read.

For full documentation:
   go doc github.com/kmaclean/collate1d`)
}
