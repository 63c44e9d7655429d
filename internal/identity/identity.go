// Package identity loads agent identity bundles: a git repo holding an
// identity.yaml manifest, a files/ tree staged into the agent workspace,
// and optional plugin manifest overrides.
package identity

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/stepandel/clawup/pkg/manifest"
)

// Manifest is the identity.yaml document.
type Manifest struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"displayName"`
	Role        string `yaml:"role"`
	Emoji       string `yaml:"emoji"`
	VolumeSize  int    `yaml:"volumeSize"`

	Model       string `yaml:"model"`
	BackupModel string `yaml:"backupModel"`
	CodingAgent string `yaml:"codingAgent"`

	Skills  []string `yaml:"skills"`
	Plugins []string `yaml:"plugins"`
	Deps    []string `yaml:"deps"`

	// PluginDefaults is non-secret per-plugin config merged into each
	// plugin entry at request-build time.
	PluginDefaults map[string]map[string]any `yaml:"pluginDefaults"`

	// TemplateVars name ${VAR} placeholders the bundle's files expect.
	TemplateVars []string `yaml:"templateVars"`
}

// Bundle is one fully loaded identity.
type Bundle struct {
	Manifest Manifest

	// Files maps workspace-relative paths to content, from the bundle's
	// files/ directory.
	Files map[string]string

	// PluginManifests are per-plugin overrides from plugins/*.json,
	// keyed by plugin name. They win over the built-in registry.
	PluginManifests map[string]*manifest.PluginManifest
}

// Fetcher clones or refreshes identity repos into a local cache and loads
// bundles from the working tree.
type Fetcher struct {
	Fs       afero.Fs
	CacheDir string
}

func NewFetcher(cacheDir string) *Fetcher {
	return &Fetcher{Fs: afero.NewOsFs(), CacheDir: cacheDir}
}

// Fetch returns the bundle for repoURL, cloning on first use and pulling
// on subsequent ones. A failed fast-forward pull discards the cached copy
// and re-clones rather than reporting a dirty cache to the user.
func (f *Fetcher) Fetch(ctx context.Context, repoURL string) (*Bundle, error) {
	dir := filepath.Join(f.CacheDir, cacheKey(repoURL))

	exists, err := afero.DirExists(f.Fs, filepath.Join(dir, ".git"))
	if err != nil {
		return nil, err
	}
	if exists {
		if err := runGit(ctx, dir, "pull", "--ff-only"); err != nil {
			if rmErr := f.Fs.RemoveAll(dir); rmErr != nil {
				return nil, fmt.Errorf("refresh identity cache: %w", rmErr)
			}
			exists = false
		}
	}
	if !exists {
		if err := f.Fs.MkdirAll(f.CacheDir, 0755); err != nil {
			return nil, err
		}
		if err := runGit(ctx, f.CacheDir, "clone", repoURL, dir); err != nil {
			return nil, err
		}
	}

	return Load(f.Fs, dir)
}

// Load reads a bundle from an identity working tree.
func Load(fs afero.Fs, dir string) (*Bundle, error) {
	raw, err := afero.ReadFile(fs, filepath.Join(dir, "identity.yaml"))
	if err != nil {
		return nil, fmt.Errorf("read identity.yaml: %w", err)
	}
	bundle := &Bundle{
		Files:           map[string]string{},
		PluginManifests: map[string]*manifest.PluginManifest{},
	}
	if err := yaml.Unmarshal(raw, &bundle.Manifest); err != nil {
		return nil, fmt.Errorf("parse identity.yaml: %w", err)
	}
	if bundle.Manifest.Name == "" {
		return nil, fmt.Errorf("identity.yaml: name is required")
	}

	filesDir := filepath.Join(dir, "files")
	if exists, _ := afero.DirExists(fs, filesDir); exists {
		err := afero.Walk(fs, filesDir, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return err
			}
			content, err := afero.ReadFile(fs, path)
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(filesDir, path)
			if err != nil {
				return err
			}
			bundle.Files[filepath.ToSlash(rel)] = string(content)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("read identity files: %w", err)
		}
	}

	pluginsDir := filepath.Join(dir, "plugins")
	if exists, _ := afero.DirExists(fs, pluginsDir); exists {
		entries, err := afero.ReadDir(fs, pluginsDir)
		if err != nil {
			return nil, fmt.Errorf("read plugin overrides: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			raw, err := afero.ReadFile(fs, filepath.Join(pluginsDir, entry.Name()))
			if err != nil {
				return nil, err
			}
			m, err := manifest.ParseJSON(raw)
			if err != nil {
				return nil, fmt.Errorf("plugin override %s: %w", entry.Name(), err)
			}
			bundle.PluginManifests[m.Name] = m
		}
	}

	return bundle, nil
}

// cacheKey derives a stable directory name from a repo URL. The whole
// host/owner/name path participates so same-named repos under different
// owners or hosts never share a clone. The https and ssh forms of one
// repo map to the same key.
func cacheKey(repoURL string) string {
	key := strings.TrimSuffix(repoURL, ".git")
	key = strings.TrimSuffix(key, "/")
	if idx := strings.Index(key, "://"); idx != -1 {
		key = key[idx+3:]
	}
	key = strings.TrimPrefix(key, "git@")
	key = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, key)
	key = strings.Trim(key, "-")
	if key == "" {
		key = "identity"
	}
	return key
}

func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(stderr.String()))
	}
	return nil
}
