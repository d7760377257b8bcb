package gateway

// ModelConfig describes one logical model id exposed to clients.
type ModelConfig struct {
	Name         string `json:"name"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	ContextLimit int    `json:"contextLimit"`
	MaxTokens    int    `json:"maxTokens"`
}

// Models maps logical model ids to provider configurations.
// Groq models are primary (fastest), OpenAI and Anthropic are fallbacks.
var Models = map[string]ModelConfig{
	"llama3-8b":     {Name: "LLaMA 3 8B", Provider: "groq", Model: "llama3-8b-8192", ContextLimit: 8192, MaxTokens: 1500},
	"llama3-70b":    {Name: "LLaMA 3 70B", Provider: "groq", Model: "llama3-70b-8192", ContextLimit: 8192, MaxTokens: 2000},
	"mixtral-8x7b":  {Name: "Mixtral 8x7B", Provider: "groq", Model: "mixtral-8x7b-32768", ContextLimit: 32768, MaxTokens: 2000},
	"gemma2-9b":     {Name: "Gemma2 9B", Provider: "groq", Model: "gemma2-9b-it", ContextLimit: 8192, MaxTokens: 1500},
	"gpt-4":         {Name: "GPT-4", Provider: "openai", Model: "gpt-4", ContextLimit: 8000, MaxTokens: 2000},
	"gpt-4-turbo":   {Name: "GPT-4 Turbo", Provider: "openai", Model: "gpt-4-turbo-preview", ContextLimit: 128000, MaxTokens: 2000},
	"gpt-3.5-turbo": {Name: "GPT-3.5 Turbo", Provider: "openai", Model: "gpt-3.5-turbo", ContextLimit: 4000, MaxTokens: 1500},
	"claude-3-opus":   {Name: "Claude 3 Opus", Provider: "anthropic", Model: "claude-3-opus-20240229", ContextLimit: 200000, MaxTokens: 2000},
	"claude-3-sonnet": {Name: "Claude 3 Sonnet", Provider: "anthropic", Model: "claude-3-sonnet-20240229", ContextLimit: 200000, MaxTokens: 2000},
	"claude-3-haiku":  {Name: "Claude 3 Haiku", Provider: "anthropic", Model: "claude-3-haiku-20240307", ContextLimit: 200000, MaxTokens: 1500},
}

const defaultModelID = "llama3-8b"

// GetModelConfig resolves a logical model id, falling back to the default
// when the id is unknown.
func GetModelConfig(modelID string) ModelConfig {
	if m, ok := Models[modelID]; ok {
		return m
	}
	return Models[defaultModelID]
}
