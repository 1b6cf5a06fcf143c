package anthropic

import (
	"slices"
	"strings"
)

// Known anthropic-beta header values.
const (
	BetaInterleavedThinking = "interleaved-thinking-2025-05-14"
	BetaContextManagement   = "context-management-2025-06-27"
)

// Capabilities holds opt-in features sent as request headers.
type Capabilities struct {
	PromptCaching bool     // mark the system prompt as an ephemeral cache block
	BetaFeatures  []string // anthropic-beta header values
}

// betaHeaderValue returns the comma-joined, de-duplicated beta list.
func (capabilities Capabilities) betaHeaderValue() string {
	features := make([]string, 0, len(capabilities.BetaFeatures))
	for _, feature := range capabilities.BetaFeatures {
		if feature != "" && !slices.Contains(features, feature) {
			features = append(features, feature)
		}
	}
	return strings.Join(features, ",")
}
