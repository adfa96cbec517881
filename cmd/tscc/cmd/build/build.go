// Package build implements the `tscc build` subcommand: compile one or
// more source files to WebAssembly modules, optionally in parallel and
// through an on-disk build cache.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wasmlang/tscc/cmd/tscc/internal/pipeline"
	"github.com/wasmlang/tscc/internal/config"
	"github.com/wasmlang/tscc/stdlib"
)

// Command is the CLI command for `tscc build`.
var Command = &cli.Command{
	Name:      "build",
	Usage:     "compile source files to WebAssembly GC modules",
	ArgsUsage: "<file>...",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "target",
			Value:    config.DefaultTarget,
			OnlyOnce: true,
			Config:   cli.StringConfig{TrimSpace: true},
			Usage:    "WebAssembly proposal target version",
		},
		&cli.StringFlag{
			Name:     "out",
			Aliases:  []string{"o"},
			Value:    ".",
			OnlyOnce: true,
			Config:   cli.StringConfig{TrimSpace: true},
			Usage:    "output directory",
		},
		&cli.StringFlag{
			Name:     "cache-dir",
			OnlyOnce: true,
			Config:   cli.StringConfig{TrimSpace: true},
			Usage:    "build cache directory; empty disables caching",
		},
		&cli.StringFlag{
			Name:     "stdlib",
			OnlyOnce: true,
			Config:   cli.StringConfig{TrimSpace: true},
			Usage:    "oci:// reference to a prelude module providing dyntype_*",
		},
		&cli.IntFlag{
			Name:     "jobs",
			Aliases:  []string{"j"},
			Value:    1,
			OnlyOnce: true,
			Usage:    "number of source files compiled concurrently",
		},
	},
	Action: action,
}

func action(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("build: at least one source file is required")
	}

	opts, err := config.New(
		config.WithTarget(cmd.String("target")),
		config.WithCacheDir(cmd.String("cache-dir")),
		config.WithJobs(int(cmd.Int("jobs"))),
		config.WithStdlibRef(cmd.String("stdlib")),
	)
	if err != nil {
		return err
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)

	if opts.StdlibRef != "" {
		prelude, err := stdlib.Fetch(ctx, opts.StdlibRef)
		if err != nil {
			return fmt.Errorf("build: %w", err)
		}
		log.WithField("bytes", len(prelude)).Info("fetched stdlib prelude")
	}

	out := cmd.String("out")
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}

	jobs := opts.Jobs
	if jobs < 1 {
		jobs = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			return compileOne(gctx, log, opts, out, path)
		})
	}
	return g.Wait()
}

func compileOne(ctx context.Context, log *logrus.Logger, opts config.Options, out, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("build: %s: %w", path, err)
	}

	res, err := pipeline.Compile(ctx, opts, src)
	if err != nil {
		return fmt.Errorf("build: %s: %w", path, err)
	}

	res.BuildWarn.Flush(log, "build")
	res.CodegenWarn.Flush(log, "codegen")

	dst := filepath.Join(out, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".wasm")
	if err := os.WriteFile(dst, res.Module, 0o644); err != nil {
		return fmt.Errorf("build: %s: write %s: %w", path, dst, err)
	}

	entry := log.WithField("out", dst)
	if res.CacheHit {
		entry = entry.WithField("cache", "hit")
	}
	entry.Info("compiled")
	return nil
}
