package targets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stepandel/clawup/internal/deployment"
)

func TestAWSTarget_Name(t *testing.T) {
	target := NewAWSTarget()
	if target.Name() != "aws" {
		t.Errorf("expected name 'aws', got '%s'", target.Name())
	}
}

func TestAWSTarget_UserData(t *testing.T) {
	target := NewAWSTarget()

	userData, err := target.UserData("#!/bin/bash\necho boot\n")
	if err != nil {
		t.Fatalf("UserData failed: %v", err)
	}
	if !strings.Contains(userData, "multipart/mixed") {
		t.Error("user-data should be a cloud-init multipart document")
	}
	if !strings.Contains(userData, "text/x-shellscript") {
		t.Error("user-data should carry a shellscript attachment")
	}
	if strings.Contains(userData, "echo boot") {
		t.Error("the bootstrap script should travel compressed, not verbatim")
	}
}

func TestAWSTarget_ProvisionDryRun(t *testing.T) {
	target := NewAWSTarget()
	ctx := context.Background()
	outputDir := t.TempDir()

	machine := &deployment.Machine{
		Name:         "lobster",
		Region:       "us-east-1",
		InstanceType: "t3.medium",
		Image:        "ami-12345678",
	}
	input := &deployment.ProvisionInput{Script: "#!/bin/bash\necho boot\n"}

	result, err := target.Provision(ctx, machine, input, deployment.ProvisionOptions{
		DryRun:    true,
		OutputDir: outputDir,
	})
	if err != nil {
		t.Fatalf("Provision dry run failed: %v", err)
	}
	if result.MachineID != "" {
		t.Error("dry run should not report a machine ID")
	}
	if _, ok := result.Artifacts["user-data.mime"]; !ok {
		t.Error("dry run should still produce the user-data artifact")
	}
	if _, err := os.Stat(filepath.Join(outputDir, "user-data.mime")); err != nil {
		t.Errorf("user-data file not written: %v", err)
	}
}

func TestHetznerTarget_Name(t *testing.T) {
	target := NewHetznerTarget()
	if target.Name() != "hetzner" {
		t.Errorf("expected name 'hetzner', got '%s'", target.Name())
	}
}

func TestHetznerTarget_ProvisionDryRun(t *testing.T) {
	target := NewHetznerTarget()
	ctx := context.Background()
	outputDir := t.TempDir()

	machine := &deployment.Machine{
		Name:         "lobster",
		Region:       "fsn1",
		InstanceType: "cx22",
		Image:        "ubuntu-24.04",
	}
	input := &deployment.ProvisionInput{Script: "#!/bin/bash\necho boot\n"}

	result, err := target.Provision(ctx, machine, input, deployment.ProvisionOptions{
		DryRun:    true,
		OutputDir: outputDir,
	})
	if err != nil {
		t.Fatalf("Provision dry run failed: %v", err)
	}

	userData := result.Artifacts["user-data.sh"]
	if !strings.HasPrefix(userData, "#!/bin/bash") {
		t.Error("hetzner user-data should be a plain bash script")
	}
	if !strings.Contains(userData, "| base64 -d | gunzip | bash") {
		t.Error("hetzner user-data should be the self-extracting wrapper")
	}
	if _, err := os.Stat(filepath.Join(outputDir, "user-data.sh")); err != nil {
		t.Errorf("user-data file not written: %v", err)
	}
}

func TestDockerTarget_Name(t *testing.T) {
	target := NewDockerTarget()
	if target.Name() != "docker" {
		t.Errorf("expected name 'docker', got '%s'", target.Name())
	}
}

func TestDockerTarget_ProvisionDryRun(t *testing.T) {
	target := NewDockerTarget()
	ctx := context.Background()
	outputDir := t.TempDir()

	machine := &deployment.Machine{Name: "lobster", Image: "openclaw/agent:latest"}
	input := &deployment.ProvisionInput{Script: "#!/bin/bash\nexec openclaw gateway\n"}

	result, err := target.Provision(ctx, machine, input, deployment.ProvisionOptions{
		DryRun:    true,
		OutputDir: outputDir,
	})
	if err != nil {
		t.Fatalf("Provision dry run failed: %v", err)
	}
	if result.Artifacts["entrypoint.sh"] != input.Script {
		t.Error("entrypoint artifact should be the script verbatim")
	}
	if _, err := os.Stat(filepath.Join(outputDir, "entrypoint.sh")); err != nil {
		t.Errorf("entrypoint file not written: %v", err)
	}
}

func TestTarget_Registration(t *testing.T) {
	for _, name := range []string{"aws", "hetzner", "docker"} {
		target, ok := deployment.GetProvisionTarget(name)
		if !ok {
			t.Fatalf("%s target not registered", name)
		}
		if target.Name() != name {
			t.Errorf("expected name '%s', got '%s'", name, target.Name())
		}
	}
}
