// Package hooks runs the shell hooks plugins declare: resolve hooks that
// produce secret values, lifecycle hooks that run around the config write,
// and one-time onboarding hooks. All three share one execution primitive:
// bash -c with a merged environment, a deadline, and captured output.
//
// Hooks spawn external processes that may call networks or mutate external
// state; nothing here retries automatically, callers must surface failures.
package hooks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/stepandel/clawup/pkg/manifest"
)

const (
	// DefaultResolveTimeout bounds secret-resolution hooks.
	DefaultResolveTimeout = 30 * time.Second
	// DefaultLifecycleTimeout bounds postProvision/preStart/onboard hooks.
	DefaultLifecycleTimeout = 120 * time.Second
)

// Result is the outcome of one hook invocation. External-process failures
// are carried here rather than as bare errors so callers must handle them.
type Result struct {
	Ok     bool
	Output string
	Stderr string
	Err    error
}

// Executor runs hook scripts. The zero value is usable; Stdout/Stderr
// default to the process streams and timeouts to the package defaults.
type Executor struct {
	ResolveTimeout   time.Duration
	LifecycleTimeout time.Duration
	// Stdout/Stderr receive live lifecycle output for operator visibility.
	Stdout io.Writer
	Stderr io.Writer
	// BaseEnv is the ambient environment; caller vars are layered on top.
	// Nil means the current process environment.
	BaseEnv []string
}

func (e *Executor) resolveTimeout() time.Duration {
	if e.ResolveTimeout > 0 {
		return e.ResolveTimeout
	}
	return DefaultResolveTimeout
}

func (e *Executor) lifecycleTimeout() time.Duration {
	if e.LifecycleTimeout > 0 {
		return e.LifecycleTimeout
	}
	return DefaultLifecycleTimeout
}

func (e *Executor) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e *Executor) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}

// mergedEnv layers extra over the base environment. Later entries win for
// duplicate names, so extras override ambient values.
func (e *Executor) mergedEnv(extra map[string]string) []string {
	base := e.BaseEnv
	if base == nil {
		base = os.Environ()
	}
	env := append([]string(nil), base...)
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}

func (e *Executor) command(ctx context.Context, script string, extra map[string]string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "bash", "-c", script)
	cmd.Env = e.mergedEnv(extra)
	return cmd
}

// RunResolve runs a resolve hook. Success requires exit 0 and non-empty
// trimmed stdout; the trimmed stdout is the resolved secret value.
func (e *Executor) RunResolve(ctx context.Context, script string, env map[string]string) (string, error) {
	timeout := e.resolveTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := e.command(ctx, script, env)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("resolve hook timed out after %dms", timeout.Milliseconds())
	}
	if err != nil {
		return "", fmt.Errorf("resolve hook failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	value := strings.TrimSpace(stdout.String())
	if value == "" {
		return "", fmt.Errorf("resolve hook exited 0 but produced no output")
	}
	return value, nil
}

// ResolvePluginSecrets runs every resolve hook a manifest declares, sorted
// by secret key so the run order is deterministic, failing fast on the
// first failure. Returned map: secret key -> resolved value.
func (e *Executor) ResolvePluginSecrets(ctx context.Context, m *manifest.PluginManifest, env map[string]string) (map[string]string, error) {
	if m.Hooks == nil || len(m.Hooks.Resolve) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(m.Hooks.Resolve))
	for k := range m.Hooks.Resolve {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make(map[string]string, len(keys))
	for _, key := range keys {
		value, err := e.RunResolve(ctx, m.Hooks.Resolve[key], env)
		if err != nil {
			spec := m.Secrets[key]
			return nil, fmt.Errorf("plugin %s: resolving secret %q (%s): %w", m.Name, key, spec.EnvVar, err)
		}
		values[key] = value
	}
	return values, nil
}

// RunLifecycle runs a postProvision or preStart hook. Output streams live to
// the executor's writers so the operator can watch provisioning; stderr is
// additionally buffered for the error message.
func (e *Executor) RunLifecycle(ctx context.Context, label, script string, env map[string]string) Result {
	timeout := e.lifecycleTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderrBuf bytes.Buffer
	cmd := e.command(ctx, script, env)
	cmd.Stdout = e.stdout()
	cmd.Stderr = io.MultiWriter(e.stderr(), &stderrBuf)

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return Result{Err: fmt.Errorf("%s hook timed out after %dms", label, timeout.Milliseconds())}
	}
	if err != nil {
		return Result{
			Stderr: stderrBuf.String(),
			Err:    fmt.Errorf("%s hook failed: %w (stderr: %s)", label, err, strings.TrimSpace(stderrBuf.String())),
		}
	}
	return Result{Ok: true, Stderr: stderrBuf.String()}
}

// RunOnboard runs a one-time onboarding hook. Unlike lifecycle hooks, stdout
// is captured: on success it carries follow-up instructions for the
// operator. With RunOnce set, the hook is skipped when every required secret
// already has a value.
func (e *Executor) RunOnboard(ctx context.Context, m *manifest.PluginManifest, env map[string]string) Result {
	if m.Hooks == nil || m.Hooks.Onboard == nil {
		return Result{Ok: true}
	}
	spec := m.Hooks.Onboard
	if spec.RunOnce && requiredSecretsPresent(m, env) {
		return Result{Ok: true, Output: fmt.Sprintf("%s: already onboarded, skipping", m.Name)}
	}

	timeout := e.lifecycleTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderrBuf bytes.Buffer
	cmd := e.command(ctx, spec.Script, env)
	cmd.Stdout = &stdout
	cmd.Stderr = io.MultiWriter(e.stderr(), &stderrBuf)

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return Result{Err: fmt.Errorf("onboard hook for %s timed out after %dms", m.Name, timeout.Milliseconds())}
	}
	if err != nil {
		return Result{
			Stderr: stderrBuf.String(),
			Err:    fmt.Errorf("onboard hook for %s failed: %w (stderr: %s)", m.Name, err, strings.TrimSpace(stderrBuf.String())),
		}
	}
	return Result{Ok: true, Output: strings.TrimSpace(stdout.String()), Stderr: stderrBuf.String()}
}

func requiredSecretsPresent(m *manifest.PluginManifest, env map[string]string) bool {
	for _, spec := range m.Secrets {
		if !spec.Required {
			continue
		}
		if env[spec.EnvVar] == "" {
			return false
		}
	}
	return true
}
