package llm

import "slices"

// Supported generator provider names.
const (
	Ollama    = "ollama"
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Groq      = "groq"
	Gemini    = "gemini"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// SupportedProviders returns the names accepted by the generator factory.
func SupportedProviders() []string {
	return []string{Anthropic, Gemini, Groq, Ollama, OpenAI}
}

// IsSupportedProvider reports whether name is a known generator provider.
func IsSupportedProvider(name string) bool {
	return slices.Contains(SupportedProviders(), name)
}

var modelAliases = map[string]map[string]string{
	Groq: {
		"llama3-8b":  "llama3-8b-8192",
		"llama3-70b": "llama3-70b-8192",
		"mixtral":    "mixtral-8x7b-32768",
		"gemma-7b":   "gemma-7b-it",
		"gemma2-9b":  "gemma2-9b-it",
	},
}

var defaultModels = map[string]string{
	Ollama:    "llama3.2",
	OpenAI:    "gpt-4o-mini",
	Anthropic: "claude-3-5-haiku-latest",
	Groq:      "llama3-70b-8192",
	Gemini:    "gemini-1.5-flash",
}

// ResolveModel maps a short alias to the provider's model ID. An empty name
// resolves to the provider default; unknown names pass through unchanged.
func ResolveModel(provider, name string) string {
	if name == "" {
		return defaultModels[provider]
	}
	if id, ok := modelAliases[provider][name]; ok {
		return id
	}
	return name
}

// Aliases returns the short model names known for provider.
func Aliases(provider string) []string {
	names := make([]string, 0, len(modelAliases[provider]))
	for k := range modelAliases[provider] {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
