package models

import "sort"

// ProviderTag routes a model to its adapter.
type ProviderTag string

const (
	ProviderBedrock ProviderTag = "bedrock"
	ProviderGemini  ProviderTag = "gemini"
)

// Pricing is expressed in USD per one million tokens.
type Pricing struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// ModelInfo describes one registry entry. The registry is the single source
// of truth for both dispatch (Provider) and cost (Pricing); prices must not
// change without a release note.
type ModelInfo struct {
	ModelID        string      `json:"modelId"`
	Provider       ProviderTag `json:"provider"`
	DisplayName    string      `json:"displayName"`
	Description    string      `json:"description"`
	Category       string      `json:"category"`
	SupportsImages bool        `json:"supportsImages"`
	MaxTokens      int         `json:"maxTokens"`
	Pricing        Pricing     `json:"pricing"`
}

// Cost computes the USD cost of a turn from token counts.
func (m ModelInfo) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1e6*m.Pricing.Input + float64(outputTokens)/1e6*m.Pricing.Output
}

var modelRegistry = map[string]ModelInfo{
	"us.anthropic.claude-sonnet-4-5-20250929-v1:0": {
		ModelID:        "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		Provider:       ProviderBedrock,
		DisplayName:    "Claude Sonnet 4.5",
		Description:    "Balanced quality and latency for everyday work",
		Category:       "standard",
		SupportsImages: true,
		MaxTokens:      4096,
		Pricing:        Pricing{Input: 3.0, Output: 15.0},
	},
	"us.anthropic.claude-haiku-4-5-20251001-v1:0": {
		ModelID:        "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		Provider:       ProviderBedrock,
		DisplayName:    "Claude Haiku 4.5",
		Description:    "Fast, low-cost responses",
		Category:       "fast",
		SupportsImages: true,
		MaxTokens:      4096,
		Pricing:        Pricing{Input: 1.0, Output: 5.0},
	},
	"us.anthropic.claude-opus-4-1-20250805-v1:0": {
		ModelID:        "us.anthropic.claude-opus-4-1-20250805-v1:0",
		Provider:       ProviderBedrock,
		DisplayName:    "Claude Opus 4.1",
		Description:    "Highest quality for complex reasoning",
		Category:       "premium",
		SupportsImages: true,
		MaxTokens:      4096,
		Pricing:        Pricing{Input: 15.0, Output: 75.0},
	},
	"gemini-3-flash-preview": {
		ModelID:        "gemini-3-flash-preview",
		Provider:       ProviderGemini,
		DisplayName:    "Gemini 3 Flash",
		Description:    "Fast multimodal responses",
		Category:       "fast",
		SupportsImages: true,
		MaxTokens:      8192,
		Pricing:        Pricing{Input: 0.5, Output: 3.0},
	},
	"gemini-2.5-pro": {
		ModelID:        "gemini-2.5-pro",
		Provider:       ProviderGemini,
		DisplayName:    "Gemini 2.5 Pro",
		Description:    "High quality multimodal reasoning",
		Category:       "premium",
		SupportsImages: true,
		MaxTokens:      8192,
		Pricing:        Pricing{Input: 1.25, Output: 10.0},
	},
}

// LookupModel returns the registry entry for a model id.
func LookupModel(modelID string) (ModelInfo, bool) {
	m, ok := modelRegistry[modelID]
	return m, ok
}

// ListModels returns all registry entries sorted by id, for the /models
// endpoint.
func ListModels() []ModelInfo {
	out := make([]ModelInfo, 0, len(modelRegistry))
	for _, m := range modelRegistry {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelID < out[j].ModelID })
	return out
}
