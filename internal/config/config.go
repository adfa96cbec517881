// Package config holds cmd/tscc's CLI-facing configuration: which
// WebAssembly proposals the emitted module targets, the build-cache
// directory, and the worker count for parallel compilation (spec §4.10,
// §4.11, §6.7).
package config

import (
	"fmt"

	"github.com/coreos/go-semver/semver"
	modsemver "golang.org/x/mod/semver"
)

// DefaultTarget is the version tag naming the feature set this compiler
// targets by default: typed GC, reference types, and exception handling
// all enabled, per spec §1.
const DefaultTarget = "v1.0.0"

// Target describes which WebAssembly proposals an emitted module may use.
// It is derived from a validated version string (ParseTarget) so that
// future proposal flags can be gated on target version without plumbing
// new CLI flags through every call site.
type Target struct {
	Version           semver.Version
	TypedGC           bool
	ReferenceTypes    bool
	ExceptionHandling bool
}

// ParseTarget validates raw (e.g. "v1.0.0") against the semver grammar
// using golang.org/x/mod/semver, then parses it into a structured
// [semver.Version] with github.com/coreos/go-semver. The two-step
// validation exists because go-semver.NewVersion is lenient about leading
// "v" and pre-release metadata in ways that would let malformed
// --target= flags silently fall back to zero values; x/mod/semver.IsValid
// rejects those up front.
func ParseTarget(raw string) (Target, error) {
	if !modsemver.IsValid(raw) {
		return Target{}, fmt.Errorf("config: invalid target version %q", raw)
	}
	v, err := semver.NewVersion(raw[1:]) // go-semver doesn't want the leading "v"
	if err != nil {
		return Target{}, fmt.Errorf("config: %w", err)
	}
	return Target{
		Version:           *v,
		TypedGC:           true,
		ReferenceTypes:    true,
		ExceptionHandling: true,
	}, nil
}

// Options is the full set of build-time configuration cmd/tscc assembles
// from flags before invoking the compiler.
type Options struct {
	Target Target

	// CacheDir is where compiled-module bytes are persisted, keyed by
	// content digest (spec §4.11). Empty disables the cache.
	CacheDir string

	// Jobs is the number of source files compiled concurrently (spec
	// §4.10). 0 or 1 means sequential, matching spec §5's default
	// single-threaded model.
	Jobs int

	// StdlibRef is an optional "oci://" reference to a prelude module
	// fetched via package stdlib (spec §6.6). Empty means none.
	StdlibRef string
}

// Option mutates Options, following the teacher's functional-options
// convention (wit/bindgen's Option/options pair).
type Option func(*Options) error

// WithTarget sets the compilation target from a raw version string.
func WithTarget(raw string) Option {
	return func(o *Options) error {
		t, err := ParseTarget(raw)
		if err != nil {
			return err
		}
		o.Target = t
		return nil
	}
}

// WithCacheDir sets the build-cache directory.
func WithCacheDir(dir string) Option {
	return func(o *Options) error {
		o.CacheDir = dir
		return nil
	}
}

// WithJobs sets the parallel compilation worker count.
func WithJobs(n int) Option {
	return func(o *Options) error {
		if n < 0 {
			return fmt.Errorf("config: jobs must be >= 0, got %d", n)
		}
		o.Jobs = n
		return nil
	}
}

// WithStdlibRef sets the OCI reference for the optional prelude module.
func WithStdlibRef(ref string) Option {
	return func(o *Options) error {
		o.StdlibRef = ref
		return nil
	}
}

// New builds Options from opts, defaulting the target to DefaultTarget
// when no WithTarget option was supplied.
func New(opts ...Option) (Options, error) {
	o := Options{Jobs: 1}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return Options{}, err
		}
	}
	if o.Target.Version == (semver.Version{}) {
		t, err := ParseTarget(DefaultTarget)
		if err != nil {
			return Options{}, err
		}
		o.Target = t
	}
	return o, nil
}
