package script

import (
	"regexp"
	"sort"
	"strings"
)

// Scripts are generated with ${NAME} placeholders for values that are not
// safely embeddable at generation time, notably raw auth keys that travel
// through a separate secrets channel. Interpolate is the second pass that
// substitutes concrete values.

var placeholderPattern = regexp.MustCompile(`\$\{([A-Z][A-Z0-9_]*)\}`)

// RuntimeAllowlist names placeholders the generated script resolves itself
// at runtime; they legitimately survive interpolation.
var RuntimeAllowlist = []string{
	"GATEWAY_PORT",
	"HOME",
	"HOSTNAME",
	"MODEL",
	"PATH",
	"USER",
}

// Interpolate substitutes ${NAME} placeholders with concrete values. The
// replacement is literal: a `$` inside a secret value is never treated as a
// pattern back-reference or re-expanded.
func Interpolate(text string, values map[string]string) string {
	if len(values) == 0 {
		return text
	}
	pairs := make([]string, 0, len(values)*2)
	for name, value := range values {
		pairs = append(pairs, "${"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// UnresolvedPlaceholders reports ${SCREAMING_SNAKE} tokens that survived
// interpolation and are not in the allow-list, sorted and deduplicated.
// A non-empty result means a secret never made it into the script.
func UnresolvedPlaceholders(text string, allowlist []string) []string {
	allowed := make(map[string]bool, len(allowlist))
	for _, name := range allowlist {
		allowed[name] = true
	}
	seen := map[string]bool{}
	for _, match := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		name := match[1]
		if !allowed[name] && !seen[name] {
			seen[name] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
