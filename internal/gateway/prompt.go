package gateway

import (
	"fmt"
	"strings"

	"koda/internal/chat"
)

// Request carries everything one model turn is built from.
type Request struct {
	// Prompt is the user's request, already combined with any editor
	// selection or active-file framing by the caller.
	Prompt string
	// Context is the assembled workspace context block (project
	// summary plus retrieved file excerpts). May be empty.
	Context string
	// History is the bounded conversation tail, oldest first.
	History []chat.Turn
	// Tools is the catalogue the model may issue actions against.
	Tools []ToolSpec
}

const systemPreamble = `You are a coding assistant working inside the user's project. You read and modify files, run commands, and answer questions about the codebase. Prefer acting through the tools below over describing what the user should do by hand.`

const protocolInstructions = `Reply with your answer wrapped in response markers:

<RESPONSE_START>
{"chat": "your message to the user", "actions": [{"tool": "ToolName", "command": "commandName", "params": ["arg1"]}], "questions": []}
<RESPONSE_END>

The body between the markers must be a single JSON object with exactly the keys "chat", "actions" and "questions". Use an empty array when you have no actions or questions. Do not put anything else between the markers.`

const questionGuidance = `Only ask a question when you genuinely cannot proceed without an answer. Each question needs a non-empty "id", "text" and "type". Never emit a question with type "none"; prefer acting on a reasonable assumption and saying so in "chat".`

// Prompt is the rendered model input. Providers with a dedicated
// system channel send System there; the rest prepend it to User.
type Prompt struct {
	System string
	User   string
}

// Flat joins both parts into a single string for providers without a
// system channel.
func (p Prompt) Flat() string {
	if p.System == "" {
		return p.User
	}
	return p.System + "\n\n" + p.User
}

// BuildPrompt renders a Request. Section order is fixed: preamble and
// tool catalogue, protocol instructions, question guidance, then
// context, history and the user request.
func BuildPrompt(req Request) Prompt {
	var sys strings.Builder
	sys.WriteString(systemPreamble)
	sys.WriteString("\n\n")
	writeToolCatalogue(&sys, req.Tools)
	sys.WriteString(protocolInstructions)
	sys.WriteString("\n\n")
	sys.WriteString(questionGuidance)

	var user strings.Builder
	if req.Context != "" {
		user.WriteString(req.Context)
		user.WriteString("\n\n")
	}
	if len(req.History) > 0 {
		user.WriteString("CONVERSATION SO FAR:\n")
		for _, turn := range req.History {
			fmt.Fprintf(&user, "%s: %s\n", strings.ToUpper(turn.Role), turn.Content)
		}
		user.WriteString("\n")
	}
	user.WriteString("USER REQUEST:\n")
	user.WriteString(req.Prompt)

	return Prompt{System: sys.String(), User: user.String()}
}

func writeToolCatalogue(b *strings.Builder, tools []ToolSpec) {
	if len(tools) == 0 {
		return
	}

	b.WriteString("AVAILABLE TOOLS:\n")
	for _, tool := range tools {
		fmt.Fprintf(b, "- %s\n", tool.Name)
		for _, cmd := range tool.Commands {
			fmt.Fprintf(b, "    %s%s", cmd.Name, cmd.Signature)
			if cmd.Description != "" {
				fmt.Fprintf(b, "  %s", cmd.Description)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
}
