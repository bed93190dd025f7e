// Package gateway talks to LLM providers: it builds the prompt, selects
// a provider call path, and decodes the free-text reply into a
// structured response via the marker protocol.
package gateway

// Provider identifies an LLM backend.
type Provider string

const (
	// ProviderOllama is the local generate endpoint, and the fallback
	// for unrecognized provider names.
	ProviderOllama Provider = "ollama"
	// ProviderOpenAI is the hosted chat-completions endpoint.
	ProviderOpenAI Provider = "openai"
	// ProviderAnthropic is the hosted messages endpoint.
	ProviderAnthropic Provider = "anthropic"
)

// ParseProvider maps a configured name to a Provider, falling back to
// the local endpoint for unknown values.
func ParseProvider(name string) Provider {
	switch Provider(name) {
	case ProviderOpenAI:
		return ProviderOpenAI
	case ProviderAnthropic:
		return ProviderAnthropic
	default:
		return ProviderOllama
	}
}

// ToolAction is a model-issued instruction naming a tool, one of its
// commands, and positional parameters.
type ToolAction struct {
	Tool    string `json:"tool"`
	Command string `json:"command"`
	Params  []any  `json:"params"`
}

// Question is a clarifying question the model wants answered before
// proceeding.
type Question struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Type string `json:"type"`
}

// Response is the decoded provider reply. Malformed provider output
// degrades to a narrative-only response; it never escapes the gateway
// as an error.
type Response struct {
	Narrative         string
	Actions           []ToolAction
	Questions         []Question
	RequiresUserInput bool
}

// wirePayload is the JSON body between the response markers.
type wirePayload struct {
	Chat      string       `json:"chat"`
	Actions   []ToolAction `json:"actions"`
	Questions []Question   `json:"questions"`
}

// CommandSpec describes one invocable command on a tool.
type CommandSpec struct {
	Name        string
	Signature   string
	Description string
}

// ToolSpec describes a tool for the prompt's tool catalogue.
type ToolSpec struct {
	Name     string
	Commands []CommandSpec
}
