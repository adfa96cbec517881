// Package diff implements the `tscc diff` subcommand: compile two source
// files and render a readable diff of their emitted module bytes, the
// same comparison wasmgen's golden tests perform against a recorded
// fixture.
package diff

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/urfave/cli/v3"

	"github.com/wasmlang/tscc/cmd/tscc/internal/pipeline"
	"github.com/wasmlang/tscc/internal/config"
)

// Command is the CLI command for `tscc diff`.
var Command = &cli.Command{
	Name:      "diff",
	Usage:     "compile two source files and diff their emitted modules",
	ArgsUsage: "<file-a> <file-b>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "target",
			Value:    config.DefaultTarget,
			OnlyOnce: true,
			Config:   cli.StringConfig{TrimSpace: true},
			Usage:    "WebAssembly proposal target version",
		},
	},
	Action: action,
}

func action(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) != 2 {
		return fmt.Errorf("diff: exactly two files are required, got %d", len(args))
	}

	opts, err := config.New(config.WithTarget(cmd.String("target")))
	if err != nil {
		return err
	}

	a, err := compileHex(ctx, opts, args[0])
	if err != nil {
		return err
	}
	b, err := compileHex(ctx, opts, args[1])
	if err != nil {
		return err
	}

	if a == b {
		fmt.Fprintln(os.Stdout, "modules are byte-identical")
		return nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	fmt.Fprintln(os.Stdout, dmp.DiffPrettyText(diffs))
	return nil
}

// compileHex compiles path and renders its module bytes as a newline-per-
// line hex dump, which diffmatchpatch diffs far more readably than a raw
// byte string.
func compileHex(ctx context.Context, opts config.Options, path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("diff: %s: %w", path, err)
	}
	res, err := pipeline.Compile(ctx, opts, src)
	if err != nil {
		return "", fmt.Errorf("diff: %s: %w", path, err)
	}

	var b strings.Builder
	const width = 16
	for i := 0; i < len(res.Module); i += width {
		end := i + width
		if end > len(res.Module) {
			end = len(res.Module)
		}
		b.WriteString(hex.EncodeToString(res.Module[i:end]))
		b.WriteByte('\n')
	}
	return b.String(), nil
}
