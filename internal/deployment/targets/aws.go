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

// EC2 caps user-data at 16 KiB, so the bootstrap script always ships as a
// gzip-compressed cloud-init multipart document.
type AWSTarget struct{}

func NewAWSTarget() *AWSTarget {
	return &AWSTarget{}
}

func (t *AWSTarget) Name() string {
	return "aws"
}

func (t *AWSTarget) Validate(ctx context.Context) error {
	if _, err := exec.LookPath("aws"); err != nil {
		return fmt.Errorf("aws CLI not found: install from https://aws.amazon.com/cli/")
	}
	cmd := exec.CommandContext(ctx, "aws", "sts", "get-caller-identity")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("AWS credentials not configured: run 'aws configure' or set AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY")
	}
	return nil
}

// UserData builds the complete user-data document for a machine: the
// bootstrap script compressed into a self-extracting wrapper, framed as a
// cloud-init multipart attachment.
func (t *AWSTarget) UserData(bootstrap string) (string, error) {
	wrapped, err := script.GzipBase64Wrapper(bootstrap)
	if err != nil {
		return "", err
	}
	return script.MIMEMultipart(wrapped)
}

func (t *AWSTarget) Provision(ctx context.Context, machine *deployment.Machine, input *deployment.ProvisionInput, options deployment.ProvisionOptions) (*deployment.ProvisionResult, error) {
	userData, err := t.UserData(input.Script)
	if err != nil {
		return nil, fmt.Errorf("failed to build user-data: %w", err)
	}

	outputDir := options.OutputDir
	if outputDir == "" {
		outputDir = fmt.Sprintf("aws-%s", machine.Name)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	userDataPath := filepath.Join(outputDir, "user-data.mime")
	if err := os.WriteFile(userDataPath, []byte(userData), 0600); err != nil {
		return nil, fmt.Errorf("failed to write user-data: %w", err)
	}
	fmt.Printf("   ✓ Generated %s\n", userDataPath)

	result := &deployment.ProvisionResult{
		Artifacts: map[string]string{"user-data.mime": userData},
	}
	if options.DryRun {
		fmt.Printf("\n📄 Dry run - user-data generated in %s/\n", outputDir)
		return result, nil
	}

	fmt.Printf("\n🚀 Launching EC2 instance...\n")

	args := []string{
		"ec2", "run-instances",
		"--image-id", machine.Image,
		"--instance-type", machine.InstanceType,
		"--user-data", "file://" + userDataPath,
		"--tag-specifications", t.tagSpec(machine.Name),
		"--query", "Instances[0].InstanceId",
		"--output", "text",
	}
	if machine.Region != "" {
		args = append(args, "--region", machine.Region)
	}
	if machine.SSHKeyName != "" {
		args = append(args, "--key-name", machine.SSHKeyName)
	}

	cmd := exec.CommandContext(ctx, "aws", args...)
	cmd.Stderr = os.Stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("aws ec2 run-instances failed: %w", err)
	}
	result.MachineID = strings.TrimSpace(string(output))

	fmt.Printf("\n✅ Instance %s launched\n", result.MachineID)
	return result, nil
}

func (t *AWSTarget) Destroy(ctx context.Context, machine *deployment.Machine) error {
	instanceID, err := t.findInstance(ctx, machine)
	if err != nil {
		return err
	}
	if instanceID == "" {
		return fmt.Errorf("no running instance found for agent %s", machine.Name)
	}

	fmt.Printf("🗑️  Terminating instance %s...\n", instanceID)

	args := []string{"ec2", "terminate-instances", "--instance-ids", instanceID}
	if machine.Region != "" {
		args = append(args, "--region", machine.Region)
	}
	cmd := exec.CommandContext(ctx, "aws", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("aws ec2 terminate-instances failed: %w", err)
	}

	fmt.Printf("✅ Instance terminated\n")
	return nil
}

func (t *AWSTarget) Status(ctx context.Context, machine *deployment.Machine) (*deployment.MachineStatus, error) {
	args := []string{
		"ec2", "describe-instances",
		"--filters",
		fmt.Sprintf("Name=tag:clawup-agent,Values=%s", machine.Name),
		"Name=instance-state-name,Values=pending,running,stopping,stopped",
		"--query", "Reservations[0].Instances[0].{id:InstanceId,state:State.Name,ip:PublicIpAddress}",
		"--output", "json",
	}
	if machine.Region != "" {
		args = append(args, "--region", machine.Region)
	}
	cmd := exec.CommandContext(ctx, "aws", args...)
	output, err := cmd.Output()
	if err != nil {
		return &deployment.MachineStatus{State: "unknown", Message: err.Error()}, nil
	}

	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" || trimmed == "null" {
		return &deployment.MachineStatus{State: "absent", Message: "no instance found"}, nil
	}

	var info struct {
		ID    string `json:"id"`
		State string `json:"state"`
		IP    string `json:"ip"`
	}
	if err := json.Unmarshal([]byte(trimmed), &info); err != nil {
		return &deployment.MachineStatus{State: "unknown", Message: err.Error()}, nil
	}

	return &deployment.MachineStatus{
		State:   info.State,
		Address: info.IP,
		Metadata: map[string]string{
			"instanceId": info.ID,
		},
	}, nil
}

func (t *AWSTarget) findInstance(ctx context.Context, machine *deployment.Machine) (string, error) {
	status, err := t.Status(ctx, machine)
	if err != nil {
		return "", err
	}
	return status.Metadata["instanceId"], nil
}

func (t *AWSTarget) tagSpec(agentName string) string {
	return fmt.Sprintf("ResourceType=instance,Tags=[{Key=Name,Value=openclaw-%s},{Key=clawup-agent,Value=%s}]", agentName, agentName)
}

func init() {
	deployment.RegisterProvisionTarget(NewAWSTarget())
}
