package script

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/stepandel/clawup/internal/synth"
)

// gzipBase64 compresses and base64-encodes content for inline embedding.
// Inline gzip keeps multi-megabyte workspace files inside provider
// user-data size ceilings.
func gzipBase64(content []byte) (string, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(content); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// workspaceStep builds the single step that materializes every workspace
// file under root. Paths are re-validated here: no file-write shell is
// generated for a path that could escape the workspace.
func workspaceStep(files map[string]string, root string) (Step, error) {
	paths := make([]string, 0, len(files))
	for p := range files {
		if err := synth.ValidateWorkspacePath(p); err != nil {
			return Step{}, err
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, rel := range paths {
		encoded, err := gzipBase64([]byte(files[rel]))
		if err != nil {
			return Step{}, fmt.Errorf("encode workspace file %s: %w", rel, err)
		}
		target := path.Join(root, rel)
		if dir := path.Dir(target); dir != "." {
			fmt.Fprintf(&b, "mkdir -p %q\n", dir)
		}
		fmt.Fprintf(&b, "echo %s | base64 -d | gunzip > %q\n", encoded, target)
	}
	return Step{
		Label: "inject workspace files",
		Shell: strings.TrimRight(b.String(), "\n"),
		Phase: PhaseInstall,
	}, nil
}
