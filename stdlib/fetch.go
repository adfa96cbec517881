// Package stdlib pulls the optional precompiled prelude module (reference
// dyntype_* implementations usable for local interpretation/testing
// without a real host, see the host dynamic-value library) from an OCI
// registry. Fetching it is never required for a correct compile: by
// default tscc emits bare host import declarations and lets the embedder
// supply them.
package stdlib

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/regclient/regclient"
	"github.com/regclient/regclient/types/manifest"
	"github.com/regclient/regclient/types/ref"
)

// IsRef reports whether path names an OCI artifact reference rather than
// a local file.
func IsRef(path string) bool {
	if _, err := os.Stat(path); err == nil {
		return false
	}
	_, err := ref.New(path)
	return err == nil
}

// Fetch pulls the single-layer OCI artifact at ref and returns its raw
// bytes: a precompiled WebAssembly prelude module implementing the host
// dynamic-value API locally. ref is stripped of any "oci://" scheme
// prefix before being handed to regclient, which parses bare
// registry/repo:tag or registry/repo@digest forms.
func Fetch(ctx context.Context, refStr string) ([]byte, error) {
	refStr = trimScheme(refStr)

	r, err := ref.New(refStr)
	if err != nil {
		return nil, fmt.Errorf("stdlib: parse ref %q: %w", refStr, err)
	}

	rc := regclient.New()
	defer rc.Close(ctx, r)

	m, err := rc.ManifestGet(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("stdlib: get manifest: %w", err)
	}

	mi, ok := m.(manifest.Imager)
	if !ok {
		return nil, fmt.Errorf("stdlib: manifest %q is not image-shaped", refStr)
	}

	layers, err := mi.GetLayers()
	if err != nil {
		return nil, fmt.Errorf("stdlib: get layers: %w", err)
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("stdlib: artifact %q has no layers", refStr)
	}

	layer := layers[0] // the prelude .wasm is published as the artifact's sole layer
	if err := layer.Digest.Validate(); err != nil {
		return nil, fmt.Errorf("stdlib: layer has invalid digest: %w", err)
	}

	rdr, err := rc.BlobGet(ctx, r, layer)
	if err != nil {
		return nil, fmt.Errorf("stdlib: fetch blob: %w", err)
	}
	defer rdr.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rdr); err != nil {
		return nil, fmt.Errorf("stdlib: read blob: %w", err)
	}
	return buf.Bytes(), nil
}

func trimScheme(s string) string {
	const scheme = "oci://"
	if len(s) >= len(scheme) && s[:len(scheme)] == scheme {
		return s[len(scheme):]
	}
	return s
}
