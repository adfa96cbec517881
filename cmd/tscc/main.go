package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/urfave/cli/v3"

	"github.com/wasmlang/tscc/cmd/tscc/cmd/build"
	"github.com/wasmlang/tscc/cmd/tscc/cmd/diff"
)

var (
	version  = ""
	revision = ""
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			revision = s.Value
		}
	}
	if version == "" {
		version = revision
	}
	if version == "" {
		version = "(none)"
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "tscc",
		Usage: "compile a typed AST to a WebAssembly GC module",
		Commands: []*cli.Command{
			build.Command,
			diff.Command,
		},
		Version: version,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
