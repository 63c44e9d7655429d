package targets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/stepandel/clawup/internal/deployment"
	"github.com/stepandel/clawup/internal/synth"
)

// DockerTarget runs an agent as a local container. There is no cloud-init
// on this path: the entrypoint variant of the bootstrap script is
// bind-mounted in and exec'd as PID 1.
type DockerTarget struct {
	cli *client.Client
}

func NewDockerTarget() *DockerTarget {
	return &DockerTarget{}
}

func (t *DockerTarget) Name() string {
	return "docker"
}

func (t *DockerTarget) ensureClient() (*client.Client, error) {
	if t.cli != nil {
		return t.cli, nil
	}
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	t.cli = cli
	return cli, nil
}

func (t *DockerTarget) Validate(ctx context.Context) error {
	cli, err := t.ensureClient()
	if err != nil {
		return err
	}
	if _, err := cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker not available: %w", err)
	}
	return nil
}

func (t *DockerTarget) Provision(ctx context.Context, machine *deployment.Machine, input *deployment.ProvisionInput, options deployment.ProvisionOptions) (*deployment.ProvisionResult, error) {
	outputDir := options.OutputDir
	if outputDir == "" {
		outputDir = fmt.Sprintf("docker-%s", machine.Name)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	entrypointPath, err := filepath.Abs(filepath.Join(outputDir, "entrypoint.sh"))
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(entrypointPath, []byte(input.Script), 0700); err != nil {
		return nil, fmt.Errorf("failed to write entrypoint: %w", err)
	}
	fmt.Printf("   ✓ Generated %s\n", entrypointPath)

	result := &deployment.ProvisionResult{
		Artifacts: map[string]string{"entrypoint.sh": input.Script},
	}
	if options.DryRun {
		fmt.Printf("\n📄 Dry run - entrypoint generated in %s/\n", outputDir)
		return result, nil
	}

	cli, err := t.ensureClient()
	if err != nil {
		return nil, err
	}
	if err := t.ensureImage(ctx, cli, machine.Image); err != nil {
		return nil, err
	}

	fmt.Printf("\n🚀 Starting container...\n")

	env := make([]string, 0, len(input.Env))
	for _, k := range sortedEnvKeys(input.Env) {
		env = append(env, fmt.Sprintf("%s=%s", k, input.Env[k]))
	}

	port := synth.DefaultGatewayPort
	if input.Request != nil && input.Request.GatewayPort != 0 {
		port = input.Request.GatewayPort
	}
	env = append(env, fmt.Sprintf("GATEWAY_PORT=%d", port))

	containerName := "openclaw-" + machine.Name
	containerConfig := &container.Config{
		Image:      machine.Image,
		Env:        env,
		Entrypoint: []string{"/bin/bash", "/entrypoint.sh"},
		Labels: map[string]string{
			"clawup-agent": machine.Name,
		},
	}
	hostConfig := &container.HostConfig{
		Mounts: []mount.Mount{
			{
				Type:     mount.TypeBind,
				Source:   entrypointPath,
				Target:   "/entrypoint.sh",
				ReadOnly: true,
			},
		},
		NetworkMode: "bridge",
		RestartPolicy: container.RestartPolicy{
			Name: container.RestartPolicyUnlessStopped,
		},
	}

	resp, err := cli.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, containerName)
	if err != nil {
		return nil, fmt.Errorf("create container: %w", err)
	}
	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return nil, fmt.Errorf("start container: %w", err)
	}
	result.MachineID = resp.ID

	fmt.Printf("\n✅ Container %s started\n", containerName)

	if options.Attach {
		if err := t.streamLogs(ctx, cli, resp.ID); err != nil {
			return result, fmt.Errorf("attach to container logs: %w", err)
		}
	}
	return result, nil
}

func (t *DockerTarget) Destroy(ctx context.Context, machine *deployment.Machine) error {
	cli, err := t.ensureClient()
	if err != nil {
		return err
	}
	containerName := "openclaw-" + machine.Name

	fmt.Printf("🗑️  Removing container %s...\n", containerName)

	if err := cli.ContainerRemove(ctx, containerName, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("remove container: %w", err)
	}

	fmt.Printf("✅ Container removed\n")
	return nil
}

func (t *DockerTarget) Status(ctx context.Context, machine *deployment.Machine) (*deployment.MachineStatus, error) {
	cli, err := t.ensureClient()
	if err != nil {
		return nil, err
	}
	inspect, err := cli.ContainerInspect(ctx, "openclaw-"+machine.Name)
	if err != nil {
		return &deployment.MachineStatus{State: "absent", Message: err.Error()}, nil
	}

	state := "stopped"
	if inspect.State != nil && inspect.State.Running {
		state = "running"
	}
	status := &deployment.MachineStatus{
		State: state,
		Metadata: map[string]string{
			"containerId": inspect.ID,
		},
	}
	if inspect.NetworkSettings != nil {
		status.Address = inspect.NetworkSettings.IPAddress
	}
	return status, nil
}

func (t *DockerTarget) ensureImage(ctx context.Context, cli *client.Client, imageName string) error {
	_, _, err := cli.ImageInspectWithRaw(ctx, imageName)
	if err == nil {
		return nil
	}

	fmt.Printf("   ⬇ Pulling image %s...\n", imageName)

	reader, err := cli.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", imageName, err)
	}
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	for {
		var msg map[string]interface{}
		if err := decoder.Decode(&msg); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read pull response: %w", err)
		}
	}
	return nil
}

func (t *DockerTarget) streamLogs(ctx context.Context, cli *client.Client, containerID string) error {
	logs, err := cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return err
	}
	defer logs.Close()
	_, err = stdcopy.StdCopy(os.Stdout, os.Stderr, logs)
	return err
}

func sortedEnvKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	deployment.RegisterProvisionTarget(NewDockerTarget())
}
