package script

import (
	"reflect"
	"strings"
	"testing"
)

func TestInterpolate_Literal(t *testing.T) {
	in := `export GATEWAY_TOKEN="${GATEWAY_TOKEN}"`
	got := Interpolate(in, map[string]string{"GATEWAY_TOKEN": "tok-1"})
	if got != `export GATEWAY_TOKEN="tok-1"` {
		t.Errorf("Interpolate = %q", got)
	}
}

func TestInterpolate_DollarInSecretSurvives(t *testing.T) {
	secret := `pa$$word${HOME}literal`
	// A placeholder-shaped substring inside the value must not itself be
	// substituted in the same pass.
	got := Interpolate(`key="${API_SECRET}"`, map[string]string{
		"API_SECRET": secret,
		"HOME":       "/root",
	})
	if !strings.Contains(got, secret) {
		t.Errorf("secret with $ was mangled: %q", got)
	}
}

func TestInterpolate_Empty(t *testing.T) {
	in := "no placeholders here"
	if got := Interpolate(in, nil); got != in {
		t.Errorf("Interpolate with no values changed text: %q", got)
	}
}

func TestUnresolvedPlaceholders(t *testing.T) {
	text := `a ${GATEWAY_TOKEN} b ${HOME} c ${GATEWAY_TOKEN} d ${SLACK_BOT_TOKEN} e ${lower_case} f $NOBRACE`
	got := UnresolvedPlaceholders(text, RuntimeAllowlist)
	want := []string{"GATEWAY_TOKEN", "SLACK_BOT_TOKEN"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UnresolvedPlaceholders = %v, want %v", got, want)
	}
}

func TestUnresolvedPlaceholders_CleanAfterInterpolation(t *testing.T) {
	req := hookedRequest(t)
	req.GatewayToken = ""
	script := assemble(t, req, AssembleCloudInit, Options{})

	resolved := Interpolate(script, map[string]string{
		"GATEWAY_TOKEN":           "tok-2",
		"TAILSCALE_AUTH_KEY":      "tskey-x",
		"TELEGRAM_BOT_TOKEN":      "12345:tok",
		"TELEGRAM_WEBHOOK_SECRET": "hook",
		"AGENT_BASE_URL":          "https://lobster.example.ts.net",
	})
	leftover := UnresolvedPlaceholders(resolved, RuntimeAllowlist)
	if len(leftover) != 0 {
		t.Errorf("placeholders survived interpolation: %v", leftover)
	}
}
