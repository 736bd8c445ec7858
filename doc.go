/*
Command collate1d collates the outputs of a spectroscopic data-reduction
pipeline: it determines which objects extracted from independently
reduced exposures are the same physical source, groups them, and flux
calibrates and coadds each group into one combined spectrum.

Contents

  Program overview
  Command line usage
  Matching and grouping
  Flux calibration and coaddition
  The manifest
  Configuration file
  File formats

Program overview

Input is one or more spec1d extraction files, the per-exposure product
of the upstream reduction.  Each file holds zero or more extracted
objects with sky positions, wavelength grids, and flux and
inverse-variance arrays.  Output is one combined-spectrum file per
source group, plus a manifest recording what happened to every input
object.

Sample run:

  collate1d -t 1.0 -f sens_std.fits.gz -d Coadded 'Science/spec1d_*.gz'

  3 input files, 2 groups, 2 combined spectra written, 0 objects set aside
  manifest: Coadded/collate_manifest.txt

Command line usage

  collate1d [options] <spec1d files>   collate extraction files
  collate1d [options] @<list-file>     read file names from a list
  collate1d -h                         help and quick reference
  collate1d -v                         version and copyright

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

Matching and grouping

Objects across all input files are partitioned into source groups by
single-linkage clustering: any two objects whose great-circle angular
separation is within the tolerance are placed in the same group,
transitively.  The default tolerance is 1 arc second.  With
-match pixel, exposures lacking a sky solution are matched instead on
spatial-pixel distance within a detector.

Group identifiers are a hash of the sorted identities of the member
objects, so rerunning with input files listed in a different order
produces identical groups and identifiers.  An object matching nothing
forms a singleton group.  An object without a usable position is
reported as unresolved, never matched and never silently dropped.

Groups smaller than the -e minimum are reported as
insufficient-exposures and not coadded.  Groups whose members disagree
in slit identifier beyond -slit-tol are flagged in the manifest but
still coadded.

Flux calibration and coaddition

For each eligible group, member spectra are flux calibrated with the
sensitivity function (a no-op for members the pipeline already
calibrated), resampled onto a common wavelength grid, and combined
with inverse-variance weights.  A member that cannot be calibrated is
excluded from the combination with a recorded reason; the group still
produces a combined spectrum if any member remains, and otherwise
fails with reason no-calibrated-members.  One group's failure never
aborts the run.

The manifest

The manifest is the audit trail of the run.  It lists every input
file with its read outcome, every group with its member count, status,
reason, and output file, and every object set aside, with the reason
it was set aside.  From the manifest alone an operator can reconstruct
why any input object did or did not end up in a combined spectrum.

Exit status is 0 when the run completes, even if individual groups
failed.  Nonzero status means the configuration was invalid or no
input could be read.

Configuration file

An optional YAML file, given with -c, holds the same settings as the
command line plus assumed position errors:

  tolerance: 1.0
  min_exposures: 2
  exclude_serendip: true
  pos_err_default: 1.0
  pos_err:
    keck_deimos: 0.3

Command line flags override config file values.

File formats

Extraction files, sensitivity files, and combined-spectrum files are
gob encoded and gzip compressed; see package spec1d and go doc on the
internal coadd package for their contents.

-------------
Public domain.
*/
package main
