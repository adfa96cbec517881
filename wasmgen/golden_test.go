package wasmgen

import (
	"encoding/hex"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/wasmlang/tscc/internal/source"
	"github.com/wasmlang/tscc/internal/source/fixture"
	"github.com/wasmlang/tscc/internal/testutil"
	"github.com/wasmlang/tscc/ir"
	"github.com/wasmlang/tscc/ir/build"
)

var update = flag.Bool("update", false, "update golden files")

// TestGoldenModules builds each fixture program through ir/build and
// wasmgen and compares the emitted module's bytes, rendered as a hex
// dump, against a recorded golden file. This is the acceptance test for
// byte-identical re-emission: re-running go test twice without -update
// must produce the same dump both times, since Generate has no source
// of nondeterminism (map iteration never reaches encoding order; see
// TypeGen/Generator's ordered bookkeeping).
func TestGoldenModules(t *testing.T) {
	programs := map[string]func() []source.Node{
		"add": fixture.AddModule,
	}
	for name, program := range programs {
		name, program := name, program
		t.Run(name, func(t *testing.T) {
			registry := ir.NewRegistry()
			bc := build.NewContext(registry)
			mod, err := bc.BuildModule(program())
			if err != nil {
				t.Fatalf("BuildModule: %v", err)
			}
			gen := NewGenerator()
			out, err := gen.Generate(mod)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			compareOrWrite(t, testutil.Path(filepath.Join("testdata", name+".golden")), hexDump(out))
		})
	}
}

func hexDump(b []byte) string {
	var sb strings.Builder
	const width = 16
	for i := 0; i < len(b); i += width {
		end := i + width
		if end > len(b) {
			end = len(b)
		}
		sb.WriteString(hex.EncodeToString(b[i:end]))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func compareOrWrite(t *testing.T, path, data string) {
	t.Helper()
	if *update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		return
	}
	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden %s (run with -update to create it): %v", path, err)
	}
	if string(want) != data {
		dmp := diffmatchpatch.New()
		dmp.PatchMargin = 3
		diffs := dmp.DiffMain(string(want), data, false)
		t.Errorf("module for %s did not match golden %s:\n%s", path, path, dmp.DiffPrettyText(diffs))
	}
}
