// Package script assembles bootstrap scripts for freshly provisioned
// machines. The assembler builds an ordered list of typed steps, checks the
// hook-ordering invariant once on that structured form, and only then
// renders shell text, so no script variant can re-derive the ordering rules
// on its own.
package script

import (
	"fmt"
	"strings"
)

// Phase orders steps within a plan. The post-provision / config-write /
// pre-start ordering is load-bearing: hooks routinely create resources
// whose IDs the config embeds, or read the config they expect written.
type Phase int

const (
	PhaseInstall Phase = iota
	PhasePostProvision
	PhaseConfigWrite
	PhasePreStart
	PhaseStart
)

func (p Phase) String() string {
	switch p {
	case PhaseInstall:
		return "install"
	case PhasePostProvision:
		return "postProvision"
	case PhaseConfigWrite:
		return "configWrite"
	case PhasePreStart:
		return "preStart"
	case PhaseStart:
		return "start"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Step is one shell step of a bootstrap plan.
type Step struct {
	Label string
	Shell string
	Phase Phase
	// BestEffort steps degrade to a logged warning instead of aborting the
	// script: by the time they run the machine is already provisioned, and
	// a reachable, diagnosable host beats a script that died halfway.
	BestEffort bool
}

// Rendered returns the shell text with the best-effort guard applied.
func (s Step) Rendered() string {
	if !s.BestEffort {
		return s.Shell
	}
	return fmt.Sprintf("{ %s ; } || echo \"warning: %s failed (continuing)\"", strings.TrimRight(s.Shell, "\n"), s.Label)
}

// Plan is an ordered bootstrap step list for one script variant.
type Plan struct {
	Variant string
	Steps   []Step
}

// Add appends a step.
func (p *Plan) Add(step Step) {
	p.Steps = append(p.Steps, step)
}

// validate checks that phases never run backwards, which is the structured
// form of the hook ordering contract: every postProvision step precedes the
// config write, every preStart step follows it.
func (p *Plan) validate() error {
	last := PhaseInstall
	for i, step := range p.Steps {
		if step.Phase < last {
			return fmt.Errorf("plan %s: step %d (%s) in phase %s appears after phase %s",
				p.Variant, i, step.Label, step.Phase, last)
		}
		last = step.Phase
	}
	return nil
}
