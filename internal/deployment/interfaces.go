package deployment

import (
	"context"
	"sort"

	"github.com/stepandel/clawup/internal/synth"
)

// ProvisionTarget defines the interface for provision targets
type ProvisionTarget interface {
	// Name returns the target identifier (e.g., "aws", "hetzner", "docker")
	Name() string

	// Validate checks if the target can be used (CLI tools installed,
	// credentials configured, daemon reachable)
	Validate(ctx context.Context) error

	// Provision brings up one machine running the given bootstrap script
	Provision(ctx context.Context, machine *Machine, input *ProvisionInput, options ProvisionOptions) (*ProvisionResult, error)

	// Destroy tears down the machine
	Destroy(ctx context.Context, machine *Machine) error

	// Status returns the machine's current state
	Status(ctx context.Context, machine *Machine) (*MachineStatus, error)
}

// Machine identifies one provisioned agent machine on a target.
type Machine struct {
	// Name is the agent name; targets derive their resource names from it.
	Name string

	// Region is the cloud region or Hetzner location. Ignored by docker.
	Region string

	// InstanceType is the provider machine size (EC2 instance type,
	// Hetzner server type). Ignored by docker.
	InstanceType string

	// Image is the boot image: an AMI ID, a Hetzner image name, or a
	// container image reference.
	Image string

	// SSHKeyName is the provider-registered key pair to attach, if any.
	SSHKeyName string
}

// ProvisionInput carries the generated bootstrap material.
type ProvisionInput struct {
	// Script is the fully interpolated bootstrap script for this machine.
	Script string

	// Request is the deployment request the script was assembled from.
	// Targets read toggles from it (Foreground) but never mutate it.
	Request *synth.DeploymentRequest

	// Env is extra process environment for targets that inject env
	// directly instead of through the script (docker).
	Env map[string]string
}

// ProvisionOptions contains options for provisioning
type ProvisionOptions struct {
	DryRun    bool   // Generate artifacts only, don't provision
	OutputDir string // Directory to write generated artifacts
	Attach    bool   // Stream machine output after start (docker)
}

// ProvisionResult reports what a successful provision created.
type ProvisionResult struct {
	// MachineID is the provider resource ID (instance ID, server ID,
	// container ID).
	MachineID string

	// Address is the machine's reachable address, when known at
	// provision time.
	Address string

	// Artifacts maps filename to content for anything written to disk
	// during provisioning (user-data files, container specs).
	Artifacts map[string]string
}

// MachineStatus represents the current state of a provisioned machine
type MachineStatus struct {
	State     string            // running, stopped, pending, absent, unknown
	Address   string            // public address, when assigned
	Message   string            // status message
	Metadata  map[string]string // target-specific metadata
}

// Registry for provision targets
var provisionTargets = make(map[string]ProvisionTarget)

// RegisterProvisionTarget registers a provision target
func RegisterProvisionTarget(target ProvisionTarget) {
	provisionTargets[target.Name()] = target
}

// GetProvisionTarget returns a provision target by name
func GetProvisionTarget(name string) (ProvisionTarget, bool) {
	target, ok := provisionTargets[name]
	return target, ok
}

// ListProvisionTargets returns all registered provision target names, sorted
func ListProvisionTargets() []string {
	names := make([]string, 0, len(provisionTargets))
	for name := range provisionTargets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
