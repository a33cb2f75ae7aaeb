// Package routing resolves model tiers to provider chains and validates
// tier configurations before they are persisted or activated.
package routing

import (
	"fmt"

	"ccswitch/internal/models"
	"ccswitch/internal/tunnel"
)

const (
	// maxChainDepth bounds the fallback walk so a corrupt config cannot
	// loop forever even if cycle detection is bypassed.
	maxChainDepth = 10

	// advisoryChainLength is the chain length above which a warning is
	// surfaced to the caller. Long chains are legal but usually a mistake.
	advisoryChainLength = 5
)

// Step is one provider/model pair on a tier's fallback chain.
type Step struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Chain returns the ordered steps for a tier: the primary entry first, then
// fallback[0], then fallback[0].fallback[0], and so on. Entries beyond index
// zero at any level are same-level alternatives tried by the dispatcher when
// the chain entry itself fails; they do not extend the chain.
func Chain(tier *models.TierConfig) []Step {
	var steps []Step
	node := tier
	for node != nil && len(steps) < maxChainDepth {
		steps = append(steps, Step{Provider: node.Provider, Model: node.Model})
		if len(node.Fallback) == 0 {
			break
		}
		node = node.Fallback[0]
	}
	return steps
}

// Validate walks a tier's fallback chain and reports a cycle as an error.
// A provider repeating anywhere on the chain, or the chain failing to
// terminate within the depth bound, is a cycle. Chains longer than the
// advisory limit produce warnings but are accepted.
//
// Validation runs at configuration-save time so a bad config is rejected
// deterministically instead of causing a retry storm at dispatch time.
func Validate(name string, tier *models.TierConfig) ([]string, error) {
	if tier == nil {
		return nil, fmt.Errorf("tier %q: empty configuration", name)
	}

	var warnings []string
	visited := make(map[string]bool)
	node := tier
	depth := 0

	for node != nil {
		if node.Provider == "" {
			return nil, fmt.Errorf("tier %q: chain entry %d has no provider", name, depth)
		}
		if visited[node.Provider] {
			return nil, fmt.Errorf("tier %q: cyclic fallback chain, provider %q repeats", name, node.Provider)
		}
		visited[node.Provider] = true

		depth++
		if depth > maxChainDepth {
			return nil, fmt.Errorf("tier %q: fallback chain exceeds depth bound %d without terminating", name, maxChainDepth)
		}

		if len(node.Fallback) == 0 {
			break
		}
		node = node.Fallback[0]
	}

	if depth > advisoryChainLength {
		warnings = append(warnings, fmt.Sprintf("tier %q: fallback chain has %d entries; chains longer than %d are usually a misconfiguration", name, depth, advisoryChainLength))
	}

	return warnings, nil
}

// ValidateFile validates every tier in a tier file: provider hosts must be
// usable tunnel targets and each chain step must reference a declared
// provider. It aggregates warnings across tiers and fails on the first hard
// error, so a bad host is rejected at save time instead of surfacing as a
// tunnel failure at dispatch time.
func ValidateFile(file *models.TierFile) ([]string, error) {
	if file == nil {
		return nil, fmt.Errorf("empty tier file")
	}

	known := make(map[string]bool, len(file.Providers))
	for _, p := range file.Providers {
		if err := tunnel.ValidateHostname(p.Host); err != nil {
			return nil, fmt.Errorf("provider %q: %w", p.Name, err)
		}
		known[p.Name] = true
	}

	var warnings []string
	for name, tier := range file.Tiers {
		tierWarnings, err := Validate(name, tier)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, tierWarnings...)

		for _, step := range Chain(tier) {
			if !known[step.Provider] {
				return nil, fmt.Errorf("tier %q: unknown provider %q", name, step.Provider)
			}
		}
	}

	return warnings, nil
}
