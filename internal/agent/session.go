// Package agent drives one user turn: assemble context, call the
// model, execute any requested actions, and fold the results back into
// the conversation.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"koda/internal/chat"
	"koda/internal/editor"
	"koda/internal/errs"
	"koda/internal/gateway"
	"koda/internal/logging"
	"koda/internal/tools"
)

// State names the loop's current phase, for logging and tests.
type State string

const (
	StateIdle               State = "idle"
	StateAssemblingContext  State = "assembling_context"
	StateAwaitingModel      State = "awaiting_model"
	StateDispatchingActions State = "dispatching_actions"
	StateUpdatingHistory    State = "updating_history"
)

// ErrBusy is returned when a turn is requested while another is in
// flight. The session never interleaves turns.
var ErrBusy = errors.New("a turn is already in progress")

// Generator is the model call surface the session depends on.
type Generator interface {
	Generate(ctx context.Context, req gateway.Request) (gateway.Response, error)
}

// Assembler supplies workspace context for a query.
type Assembler interface {
	RelevantContext(ctx context.Context, query string) []string
}

// ActionOutcome records one dispatched action and what came of it.
type ActionOutcome struct {
	Action gateway.ToolAction
	Output string
	Err    error
}

// TurnResult is what one completed turn hands back to the caller.
type TurnResult struct {
	Narrative         string
	Actions           []ActionOutcome
	Questions         []gateway.Question
	RequiresUserInput bool
}

// Session owns the per-project conversation state and orchestrates
// turns. One session serves one workspace; turns run strictly one at a
// time.
type Session struct {
	editor     editor.Editor
	assembler  Assembler
	generator  Generator
	dispatcher *tools.Dispatcher
	history    *chat.History

	mu    sync.Mutex
	busy  bool
	state State
}

// NewSession wires a session from its collaborators.
func NewSession(ed editor.Editor, asm Assembler, gen Generator, disp *tools.Dispatcher, history *chat.History) *Session {
	if history == nil {
		history = chat.NewHistory(chat.DefaultHistoryLimit)
	}
	return &Session{
		editor:     ed,
		assembler:  asm,
		generator:  gen,
		dispatcher: disp,
		history:    history,
		state:      StateIdle,
	}
}

// State reports the loop's current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History exposes the session transcript.
func (s *Session) History() *chat.History { return s.history }

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// HandleRequest runs one turn. It always reaches idle with a usable
// TurnResult: model and tool failures degrade into the narrative
// rather than escaping. A second call while a turn is in flight fails
// fast with ErrBusy.
func (s *Session) HandleRequest(ctx context.Context, prompt string) (TurnResult, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return TurnResult{}, ErrBusy
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.state = StateIdle
		s.mu.Unlock()
	}()

	s.setState(StateAssemblingContext)
	query := s.combinedQuery(prompt)
	contextBlock := strings.Join(s.assembler.RelevantContext(ctx, query), "\n\n")

	s.setState(StateAwaitingModel)
	req := gateway.Request{
		Prompt:  query,
		Context: contextBlock,
		History: s.history.Recent(),
		Tools:   s.dispatcher.Catalogue(),
	}
	resp, err := s.generator.Generate(ctx, req)
	if err != nil {
		s.reportFailure(err)
	}

	result := TurnResult{Narrative: resp.Narrative}

	// unanswered questions go back to the user before any action runs
	if resp.RequiresUserInput {
		result.Questions = resp.Questions
		result.RequiresUserInput = true
		s.recordTurn(prompt, result.Narrative)
		return result, nil
	}

	if len(resp.Actions) > 0 && err == nil {
		s.setState(StateDispatchingActions)
		outcomes, followUp := s.dispatchActions(ctx, resp.Actions)
		result.Actions = outcomes

		if followUp != nil {
			followResp := s.followUpRound(ctx, req, followUp)
			if followResp.Narrative != "" {
				result.Narrative = joinNarratives(result.Narrative, followResp.Narrative)
			}
			if len(followResp.Actions) > 0 {
				// follow-up actions run too, but trigger no further rounds
				more, _ := s.dispatchActions(ctx, followResp.Actions)
				result.Actions = append(result.Actions, more...)
			}
		}

		for _, outcome := range outcomes {
			if outcome.Err != nil {
				result.Narrative = joinNarratives(result.Narrative,
					fmt.Sprintf("Action %s.%s failed: %v", outcome.Action.Tool, outcome.Action.Command, outcome.Err))
			}
		}
	}

	s.setState(StateUpdatingHistory)
	s.recordTurn(prompt, result.Narrative)
	return result, nil
}

// Resume re-enters the loop after the user answered the previous
// turn's questions; the answers travel inside the prompt, never as
// held state.
func (s *Session) Resume(ctx context.Context, prompt string, answers map[string]string) (TurnResult, error) {
	if len(answers) > 0 {
		var b strings.Builder
		b.WriteString(prompt)
		b.WriteString("\n\nANSWERS TO YOUR QUESTIONS:\n")
		for id, answer := range answers {
			fmt.Fprintf(&b, "%s: %s\n", id, answer)
		}
		prompt = b.String()
	}
	return s.HandleRequest(ctx, prompt)
}

// combinedQuery folds the editor's selection and active file into the
// user's request so retrieval and the model see what the user sees.
func (s *Session) combinedQuery(prompt string) string {
	var b strings.Builder
	b.WriteString(prompt)

	if sel := s.editor.Selection(); sel != "" {
		b.WriteString("\n\nSELECTED TEXT:\n")
		b.WriteString(sel)
	}
	if path, content := s.editor.ActiveFile(); path != "" {
		fmt.Fprintf(&b, "\n\nACTIVE FILE %s:\n%s", path, content)
	}
	return b.String()
}

// readFileResult is carried from the dispatch pass into the follow-up
// round.
type readFileResult struct {
	path    string
	content string
}

// dispatchActions runs the model's actions in order. A failure stops
// nothing: later actions still run and the failure is reported in the
// outcome. The first successful file read is returned for the bounded
// follow-up round.
func (s *Session) dispatchActions(ctx context.Context, actions []gateway.ToolAction) ([]ActionOutcome, *readFileResult) {
	outcomes := make([]ActionOutcome, 0, len(actions))
	var followUp *readFileResult

	for _, action := range actions {
		s.editor.Notify(fmt.Sprintf("running %s.%s", action.Tool, action.Command))
		res, err := s.dispatcher.Execute(ctx, action)
		outcomes = append(outcomes, ActionOutcome{Action: action, Output: res.Content, Err: err})
		if err != nil {
			logging.Warn("action failed", "tool", action.Tool, "command", action.Command, "error", err)
			s.editor.NotifyError(fmt.Sprintf("%s.%s failed: %v", action.Tool, action.Command, err))
			continue
		}

		if followUp == nil && action.Tool == tools.FileManagerName && action.Command == "readFile" {
			path := ""
			if len(action.Params) > 0 {
				path = fmt.Sprint(action.Params[0])
			}
			followUp = &readFileResult{path: path, content: res.Content}
		}
	}
	return outcomes, followUp
}

// followUpRound issues the single automatic gateway call that supplies
// freshly read file content back to the model. Failures degrade to an
// empty response; the turn still completes.
func (s *Session) followUpRound(ctx context.Context, orig gateway.Request, read *readFileResult) gateway.Response {
	s.setState(StateAwaitingModel)

	req := orig
	req.Prompt = fmt.Sprintf("%s\n\nCONTENT OF %s:\n%s\n\nPropose any edits against this actual content.",
		orig.Prompt, read.path, read.content)

	resp, err := s.generator.Generate(ctx, req)
	if err != nil {
		logging.Warn("follow-up call failed", "error", err)
		return gateway.Response{}
	}
	return resp
}

// reportFailure turns a typed error into the affordance the user
// needs.
func (s *Session) reportFailure(err error) {
	switch errs.KindOf(err) {
	case errs.KindConfiguration:
		s.editor.NotifyError(fmt.Sprintf("%v. Check the provider settings in your config file.", err))
	case errs.KindAPI:
		var apiErr *errs.APIError
		if errors.As(err, &apiErr) && apiErr.Reason == errs.ReasonAuth {
			s.editor.NotifyError(fmt.Sprintf("%v. Check your API credentials.", err))
			return
		}
		s.editor.NotifyError(fmt.Sprintf("%v. Is the provider reachable?", err))
	default:
		s.editor.NotifyError(err.Error())
	}
}

func (s *Session) recordTurn(prompt, narrative string) {
	s.history.Add(chat.RoleUser, prompt)
	s.history.Add(chat.RoleAssistant, narrative)
}

func joinNarratives(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "\n\n" + b
}
