package deploy

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Options collects everything the up/script/config commands accept. Flag
// values override the identity bundle's manifest where both are set.
type Options struct {
	// IdentityRepo is a git URL to an identity bundle. Optional; with no
	// repo the agent is described entirely by flags.
	IdentityRepo string

	// IdentityRepos lets up deploy several agents in one run, one machine
	// per identity. Each deploy is independent; a failure stops the run at
	// that agent.
	IdentityRepos []string

	AgentName  string
	AgentEmoji string

	// AgentBaseURL is the public URL webhook plugins register against.
	// Tailscale variants derive it on the machine; docker deploys must
	// pass it when a plugin needs one.
	AgentBaseURL string

	Model            string
	BackupModel      string
	CodingAgent      string
	Plugins          []string
	Deps             []string
	Skills           []string
	Env              map[string]string
	GatewayPort      int
	GatewayToken     string
	TailscaleAuthKey string
	WebSearchKey     string

	Target string
	NixOS  bool

	Region       string
	InstanceType string
	Image        string
	SSHKeyName   string

	DryRun     bool
	OutputDir  string
	UseOps     bool
	Attach     bool
	Foreground bool
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newRunID generates the ULID that tags one deploy run in logs and
// generated artifact directories.
func newRunID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
