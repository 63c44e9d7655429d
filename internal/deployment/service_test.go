package deployment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepandel/clawup/internal/registry"
	"github.com/stepandel/clawup/internal/synth"
)

func testRequest() *synth.DeploymentRequest {
	return &synth.DeploymentRequest{
		AgentName:       "lobster",
		Model:           "anthropic/claude-opus-4",
		ModelCredential: "sk-ant-api-test",
		CodingAgent:     "claude-code",
		GatewayToken:    "tok-abc",
		SkipTailscale:   true,
	}
}

func TestServicePrepare_CloudInit(t *testing.T) {
	svc := &Service{}
	plan, err := svc.Prepare(testRequest(), VariantCloudInit)
	require.NoError(t, err)
	require.NotNil(t, plan.Config)
	assert.Contains(t, plan.Script, "npm install -g openclaw")
	assert.Equal(t, synth.DefaultGatewayPort, plan.Config.Gateway.Port)
}

func TestServicePrepare_InterpolatesSecrets(t *testing.T) {
	req := testRequest()
	req.GatewayToken = ""
	svc := &Service{Secrets: map[string]string{"GATEWAY_TOKEN": "tok-deferred"}}

	plan, err := svc.Prepare(req, VariantEntrypoint)
	require.NoError(t, err)
	assert.Contains(t, plan.Script, "tok-deferred")
	assert.NotContains(t, plan.Script, "${GATEWAY_TOKEN}")
}

func TestServicePrepare_FailsOnLeftoverPlaceholder(t *testing.T) {
	req := testRequest()
	req.GatewayToken = ""
	svc := &Service{}

	_, err := svc.Prepare(req, VariantEntrypoint)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "GATEWAY_TOKEN"), "error should name the missing placeholder: %v", err)
}

func webhookRequest(t *testing.T) *synth.DeploymentRequest {
	t.Helper()
	telegram, ok := registry.GetPlugin("telegram")
	require.True(t, ok)

	req := testRequest()
	req.Plugins = []synth.PluginEntry{{
		Manifest: telegram,
		SecretValues: map[string]string{
			"botToken":      "123:tg-token",
			"webhookSecret": "hook-secret",
		},
	}}
	return req
}

func TestServicePrepare_EntrypointNeedsBaseURL(t *testing.T) {
	svc := &Service{}
	_, err := svc.Prepare(webhookRequest(t), VariantEntrypoint)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGENT_BASE_URL")
	assert.Contains(t, err.Error(), "--base-url")
}

func TestServicePrepare_EntrypointWithSuppliedBaseURL(t *testing.T) {
	svc := &Service{Secrets: map[string]string{"AGENT_BASE_URL": "https://lobster.example.ts.net"}}
	plan, err := svc.Prepare(webhookRequest(t), VariantEntrypoint)
	require.NoError(t, err)
	assert.Contains(t, plan.Script, "https://lobster.example.ts.net/hooks/telegram")
	assert.NotContains(t, plan.Script, "${AGENT_BASE_URL}")
}

func TestServicePrepare_UnknownVariant(t *testing.T) {
	svc := &Service{}
	_, err := svc.Prepare(testRequest(), ScriptVariant("vhs"))
	require.Error(t, err)
}

func TestVariantForTarget(t *testing.T) {
	assert.Equal(t, VariantEntrypoint, VariantForTarget("docker"))
	assert.Equal(t, VariantCloudInit, VariantForTarget("aws"))
	assert.Equal(t, VariantCloudInit, VariantForTarget("hetzner"))
}
