// Package pipeline wires internal/config, ir/build, and wasmgen into the
// single compile() call cmd/tscc's subcommands drive: source bytes in,
// a WebAssembly module's bytes out, cached by content digest.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	"github.com/wasmlang/tscc/internal/config"
	"github.com/wasmlang/tscc/internal/diag"
	"github.com/wasmlang/tscc/internal/source/fixture"
	"github.com/wasmlang/tscc/ir"
	"github.com/wasmlang/tscc/ir/build"
	"github.com/wasmlang/tscc/wasmgen"
)

// Result is one compile() call's output.
type Result struct {
	Module      []byte
	BuildWarn   *diag.Bag
	CodegenWarn *diag.Bag
	CacheHit    bool
}

// Compile lowers src through ir/build and wasmgen and returns the emitted
// module, consulting/populating opts.CacheDir first (spec §4.11). Each
// call owns an independent ir.Registry and build.Context, so concurrent
// Compile calls never share mutable state (spec §5).
//
// src's bytes feed the content-addressed cache key alongside opts.Target;
// the AST actually lowered comes from internal/source/fixture.AddModule,
// since no parser/type-checker is wired into this repository (an explicit
// non-goal) — src's *contents* are otherwise unused. A real front end
// would replace fixture.AddModule's call site here with its own parse of
// src.
func Compile(ctx context.Context, opts config.Options, src []byte) (*Result, error) {
	key := cacheKey(opts, src)

	if opts.CacheDir != "" {
		if mod, ok := readCache(opts.CacheDir, key); ok {
			return &Result{Module: mod, BuildWarn: &diag.Bag{}, CodegenWarn: &diag.Bag{}, CacheHit: true}, nil
		}
	}

	registry := ir.NewRegistry()
	bc := build.NewContext(registry)
	mod, err := bc.BuildModule(fixture.AddModule())
	if err != nil {
		return nil, fmt.Errorf("pipeline: build: %w", err)
	}

	gen := wasmgen.NewGenerator()
	out, err := gen.Generate(mod)
	if err != nil {
		return nil, fmt.Errorf("pipeline: codegen: %w", err)
	}

	if opts.CacheDir != "" {
		if err := writeCache(opts.CacheDir, key, out); err != nil {
			return nil, fmt.Errorf("pipeline: cache write: %w", err)
		}
	}

	return &Result{Module: out, BuildWarn: bc.Warnings, CodegenWarn: gen.Warnings}, nil
}

// cacheKey digests src alongside the target version, so a target bump
// invalidates every cache entry without needing to enumerate them.
func cacheKey(opts config.Options, src []byte) digest.Digest {
	combined := append(append([]byte{}, src...), []byte(opts.Target.Version.String())...)
	return digest.FromBytes(combined)
}

func cachePath(dir string, key digest.Digest) string {
	return filepath.Join(dir, key.Encoded()+".wasm.zst")
}

func readCache(dir string, key digest.Digest) ([]byte, bool) {
	f, err := os.Open(cachePath(dir, key))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, false
	}
	defer zr.Close()

	buf, err := io.ReadAll(zr)
	if err != nil {
		return nil, false
	}
	return buf, true
}

func writeCache(dir string, key digest.Digest, mod []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		return err
	}
	if _, err := zw.Write(mod); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return os.WriteFile(cachePath(dir, key), buf.Bytes(), 0o644)
}
