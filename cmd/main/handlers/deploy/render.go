package deploy

import (
	"context"
	"fmt"
	"os"

	"github.com/stepandel/clawup/internal/config"
	"github.com/stepandel/clawup/internal/deployment"
	"github.com/stepandel/clawup/internal/script"
	"github.com/stepandel/clawup/internal/synth"
)

// HandleScript prints the assembled bootstrap script for an agent without
// provisioning anything. format selects the transport envelope.
func HandleScript(ctx context.Context, opts *Options, format string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyConfigDefaults(opts, cfg)

	bundle, err := fetchIdentity(ctx, opts, cfg)
	if err != nil {
		return err
	}
	req, err := BuildRequest(ctx, opts, bundle)
	if err != nil {
		return err
	}

	variant := deployment.VariantForTarget(opts.Target)
	if opts.NixOS {
		variant = deployment.VariantNixOS
	}
	appCfg, err := synth.Synthesize(req)
	if err != nil {
		return err
	}
	bootstrap, err := deployment.Assemble(req, appCfg, variant, script.Options{UseOps: opts.UseOps})
	if err != nil {
		return err
	}
	// Deferred secrets that were given are substituted; the rest stay as
	// ${NAME} placeholders since this is a preview, not a deploy.
	bootstrap = script.Interpolate(bootstrap, deferredSecrets(opts))

	out := bootstrap
	switch format {
	case "", "plain":
	case "gzip":
		out, err = script.GzipBase64Wrapper(bootstrap)
	case "multipart":
		var wrapped string
		wrapped, err = script.GzipBase64Wrapper(bootstrap)
		if err == nil {
			out, err = script.MIMEMultipart(wrapped)
		}
	default:
		return fmt.Errorf("unknown script format %q (plain, gzip, multipart)", format)
	}
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

// HandleConfig prints the synthesized openclaw.json, the equivalent
// config-set operations with --ops, or the merge against an existing
// config file with --patch.
func HandleConfig(ctx context.Context, opts *Options, patchPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyConfigDefaults(opts, cfg)

	bundle, err := fetchIdentity(ctx, opts, cfg)
	if err != nil {
		return err
	}
	req, err := BuildRequest(ctx, opts, bundle)
	if err != nil {
		return err
	}
	appCfg, err := synth.Synthesize(req)
	if err != nil {
		return err
	}

	if opts.UseOps {
		rendered, err := synth.RenderOps(synth.ConfigOps(appCfg))
		if err != nil {
			return err
		}
		fmt.Print(rendered)
		return nil
	}

	var existing []byte
	if patchPath != "" {
		existing, err = os.ReadFile(patchPath)
		if err != nil {
			return fmt.Errorf("read existing config: %w", err)
		}
	}
	data, err := synth.PatchConfig(existing, appCfg)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
