package deploy

import (
	"context"
	"fmt"
	"os"

	"github.com/stepandel/clawup/internal/config"
	"github.com/stepandel/clawup/internal/hooks"
	"github.com/stepandel/clawup/internal/logging"
	"github.com/stepandel/clawup/internal/resolver"
	"github.com/stepandel/clawup/pkg/manifest"
)

// HandleOnboard runs the one-time onboard hooks for an agent's plugins.
// Plugins come from the identity bundle plus any --plugin flags; plugins
// without an onboard hook are skipped silently, and hooks marked runOnce
// are skipped when their required secrets are already present.
func HandleOnboard(ctx context.Context, opts *Options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	bundle, err := fetchIdentity(ctx, opts, cfg)
	if err != nil {
		return err
	}
	merged := mergeOptions(opts, bundle)
	if len(merged.Plugins) == 0 {
		return fmt.Errorf("no plugins to onboard: set --plugin or an identity with plugins")
	}

	var overrides map[string]*manifest.PluginManifest
	if bundle != nil {
		overrides = bundle.PluginManifests
	}

	executor := &hooks.Executor{}
	ran := 0
	for _, m := range resolver.ResolveAll(merged.Plugins, overrides) {
		if m.Hooks == nil || m.Hooks.Onboard == nil {
			logging.Debug("plugin %s has no onboard hook", m.Name)
			continue
		}

		env := map[string]string{}
		for _, spec := range m.Secrets {
			if value := os.Getenv(spec.EnvVar); value != "" {
				env[spec.EnvVar] = value
			}
		}

		fmt.Printf("🔧 Onboarding plugin '%s'\n", m.Name)
		if m.Hooks.Onboard.Description != "" {
			fmt.Printf("   %s\n", m.Hooks.Onboard.Description)
		}
		res := executor.RunOnboard(ctx, m, env)
		if res.Err != nil {
			return res.Err
		}
		if res.Output != "" {
			fmt.Printf("\n%s\n", res.Output)
		}
		fmt.Printf("   ✓ %s onboarded\n\n", m.Name)
		ran++
	}

	if ran == 0 {
		fmt.Println("Nothing to onboard.")
	}
	return nil
}
