package config

import (
	"testing"

	"github.com/stepandel/clawup/internal/synth"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DefaultTarget != "hetzner" {
		t.Errorf("DefaultTarget = %q, want hetzner", cfg.DefaultTarget)
	}
	if cfg.GatewayPort != synth.DefaultGatewayPort {
		t.Errorf("GatewayPort = %d, want %d", cfg.GatewayPort, synth.DefaultGatewayPort)
	}
	if cfg.CacheDir == "" {
		t.Error("CacheDir should have a default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CLAWUP_TARGET", "docker")
	t.Setenv("CLAWUP_GATEWAY_PORT", "9000")
	t.Setenv("CLAWUP_DEBUG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DefaultTarget != "docker" {
		t.Errorf("DefaultTarget = %q, want docker", cfg.DefaultTarget)
	}
	if cfg.GatewayPort != 9000 {
		t.Errorf("GatewayPort = %d, want 9000", cfg.GatewayPort)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
}

func TestMachineImage(t *testing.T) {
	cfg := &Config{AWSImage: "ami-1", HetznerImage: "ubuntu-24.04", DockerImage: "node:22"}
	if got := cfg.MachineImage("hetzner"); got != "ubuntu-24.04" {
		t.Errorf("MachineImage(hetzner) = %q", got)
	}
	if got := cfg.MachineImage("mystery"); got != "" {
		t.Errorf("MachineImage(mystery) = %q, want empty", got)
	}
}
