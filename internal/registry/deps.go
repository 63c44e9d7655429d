package registry

import (
	"sort"

	"github.com/stepandel/clawup/pkg/manifest"
)

var deps = map[string]manifest.DepSpec{
	"gh": {
		Name:        "gh",
		DisplayName: "GitHub CLI",
		InstallScript: `type -p gh >/dev/null || (curl -fsSL https://cli.github.com/packages/githubcli-archive-keyring.gpg | dd of=/usr/share/keyrings/githubcli-archive-keyring.gpg \
  && echo "deb [arch=$(dpkg --print-architecture) signed-by=/usr/share/keyrings/githubcli-archive-keyring.gpg] https://cli.github.com/packages stable main" > /etc/apt/sources.list.d/github-cli.list \
  && apt-get update && apt-get install -y gh)`,
		PostInstallScript: `echo "${GH_TOKEN}" | gh auth login --with-token`,
		Secrets: map[string]manifest.DepSecret{
			"token": {
				EnvVar:       "GH_TOKEN",
				Scope:        manifest.ScopeAgent,
				CheckCommand: "gh auth status",
			},
		},
	},
	"clawhub": {
		Name:              "clawhub",
		DisplayName:       "ClawHub skill installer",
		InstallScript:     `npm install -g clawhub`,
		PostInstallScript: `clawhub login --token "${CLAWHUB_TOKEN}"`,
		Secrets: map[string]manifest.DepSecret{
			"token": {
				EnvVar:       "CLAWHUB_TOKEN",
				Scope:        manifest.ScopeGlobal,
				CheckCommand: "clawhub whoami",
			},
		},
	},
	"ripgrep": {
		Name:          "ripgrep",
		DisplayName:   "ripgrep",
		InstallScript: `apt-get install -y ripgrep`,
	},
}

// GetDep returns the built-in dep spec for name.
func GetDep(name string) (manifest.DepSpec, bool) {
	d, ok := deps[name]
	return d, ok
}

// DepNames returns the known dep names, sorted.
func DepNames() []string {
	names := make([]string, 0, len(deps))
	for n := range deps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
