package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/stepandel/clawup/internal/synth"
)

// Config holds clawup's own settings, as opposed to the configuration it
// synthesizes for agents. Everything is overridable by environment
// variable; flags bound through viper win over both.
type Config struct {
	// CacheDir holds cloned identity repos.
	CacheDir string

	// DefaultTarget is the provision target used when none is given.
	DefaultTarget string

	GatewayPort int

	AWSRegion       string
	AWSInstanceType string
	AWSImage        string

	HetznerLocation   string
	HetznerServerType string
	HetznerImage      string

	DockerImage string

	SSHKeyName string

	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		CacheDir:      getEnvOrDefault("CLAWUP_CACHE_DIR", defaultCacheDir()),
		DefaultTarget: getEnvOrDefault("CLAWUP_TARGET", "hetzner"),
		GatewayPort:   getEnvIntOrDefault("CLAWUP_GATEWAY_PORT", synth.DefaultGatewayPort),

		AWSRegion:       getEnvOrDefault("CLAWUP_AWS_REGION", "us-east-1"),
		AWSInstanceType: getEnvOrDefault("CLAWUP_AWS_INSTANCE_TYPE", "t3.medium"),
		AWSImage:        getEnvOrDefault("CLAWUP_AWS_IMAGE", ""),

		HetznerLocation:   getEnvOrDefault("CLAWUP_HETZNER_LOCATION", "fsn1"),
		HetznerServerType: getEnvOrDefault("CLAWUP_HETZNER_SERVER_TYPE", "cx22"),
		HetznerImage:      getEnvOrDefault("CLAWUP_HETZNER_IMAGE", "ubuntu-24.04"),

		DockerImage: getEnvOrDefault("CLAWUP_DOCKER_IMAGE", "node:22-bookworm"),

		SSHKeyName: getEnvOrDefault("CLAWUP_SSH_KEY", ""),

		Debug: getEnvBoolOrDefault("CLAWUP_DEBUG", false),
	}

	return cfg, nil
}

// MachineImage returns the configured boot image for a target.
func (c *Config) MachineImage(target string) string {
	switch target {
	case "aws":
		return c.AWSImage
	case "hetzner":
		return c.HetznerImage
	case "docker":
		return c.DockerImage
	}
	return ""
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clawup/cache"
	}
	return filepath.Join(home, ".clawup", "cache")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
