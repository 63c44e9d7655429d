package targets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/stepandel/clawup/internal/deployment"
	"github.com/stepandel/clawup/internal/script"
)

// Hetzner accepts plain shell user-data but caps it at 32 KiB, so the
// bootstrap ships as a self-extracting gzip wrapper.
type HetznerTarget struct{}

func NewHetznerTarget() *HetznerTarget {
	return &HetznerTarget{}
}

func (t *HetznerTarget) Name() string {
	return "hetzner"
}

func (t *HetznerTarget) Validate(ctx context.Context) error {
	if _, err := exec.LookPath("hcloud"); err != nil {
		return fmt.Errorf("hcloud CLI not found: install from https://github.com/hetznercloud/cli")
	}
	if os.Getenv("HCLOUD_TOKEN") == "" {
		cmd := exec.CommandContext(ctx, "hcloud", "context", "active")
		if output, err := cmd.Output(); err != nil || strings.TrimSpace(string(output)) == "" {
			return fmt.Errorf("hcloud not configured: set HCLOUD_TOKEN or run 'hcloud context create'")
		}
	}
	return nil
}

func (t *HetznerTarget) Provision(ctx context.Context, machine *deployment.Machine, input *deployment.ProvisionInput, options deployment.ProvisionOptions) (*deployment.ProvisionResult, error) {
	userData, err := script.GzipBase64Wrapper(input.Script)
	if err != nil {
		return nil, fmt.Errorf("failed to build user-data: %w", err)
	}

	outputDir := options.OutputDir
	if outputDir == "" {
		outputDir = fmt.Sprintf("hetzner-%s", machine.Name)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	userDataPath := filepath.Join(outputDir, "user-data.sh")
	if err := os.WriteFile(userDataPath, []byte(userData), 0600); err != nil {
		return nil, fmt.Errorf("failed to write user-data: %w", err)
	}
	fmt.Printf("   ✓ Generated %s\n", userDataPath)

	result := &deployment.ProvisionResult{
		Artifacts: map[string]string{"user-data.sh": userData},
	}
	if options.DryRun {
		fmt.Printf("\n📄 Dry run - user-data generated in %s/\n", outputDir)
		return result, nil
	}

	fmt.Printf("\n🚀 Creating Hetzner server...\n")

	serverName := "openclaw-" + machine.Name
	args := []string{
		"server", "create",
		"--name", serverName,
		"--type", machine.InstanceType,
		"--image", machine.Image,
		"--user-data-from-file", userDataPath,
		"--label", "clawup-agent=" + machine.Name,
	}
	if machine.Region != "" {
		args = append(args, "--location", machine.Region)
	}
	if machine.SSHKeyName != "" {
		args = append(args, "--ssh-key", machine.SSHKeyName)
	}

	cmd := exec.CommandContext(ctx, "hcloud", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("hcloud server create failed: %w", err)
	}
	result.MachineID = serverName

	if status, err := t.Status(ctx, machine); err == nil {
		result.Address = status.Address
	}

	fmt.Printf("\n✅ Server %s created\n", serverName)
	return result, nil
}

func (t *HetznerTarget) Destroy(ctx context.Context, machine *deployment.Machine) error {
	serverName := "openclaw-" + machine.Name

	fmt.Printf("🗑️  Deleting server %s...\n", serverName)

	cmd := exec.CommandContext(ctx, "hcloud", "server", "delete", serverName)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("hcloud server delete failed: %w", err)
	}

	fmt.Printf("✅ Server deleted\n")
	return nil
}

func (t *HetznerTarget) Status(ctx context.Context, machine *deployment.Machine) (*deployment.MachineStatus, error) {
	serverName := "openclaw-" + machine.Name
	cmd := exec.CommandContext(ctx, "hcloud", "server", "describe", serverName, "--output", "json")
	output, err := cmd.Output()
	if err != nil {
		return &deployment.MachineStatus{State: "absent", Message: err.Error()}, nil
	}

	var info struct {
		ID        int    `json:"id"`
		Status    string `json:"status"`
		PublicNet struct {
			IPv4 struct {
				IP string `json:"ip"`
			} `json:"ipv4"`
		} `json:"public_net"`
	}
	if err := json.Unmarshal(output, &info); err != nil {
		return &deployment.MachineStatus{State: "unknown", Message: err.Error()}, nil
	}

	return &deployment.MachineStatus{
		State:   info.Status,
		Address: info.PublicNet.IPv4.IP,
		Metadata: map[string]string{
			"serverId": fmt.Sprintf("%d", info.ID),
		},
	}, nil
}

func init() {
	deployment.RegisterProvisionTarget(NewHetznerTarget())
}
