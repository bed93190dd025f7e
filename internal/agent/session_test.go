package agent

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koda/internal/chat"
	"koda/internal/editor"
	"koda/internal/errs"
	"koda/internal/gateway"
	"koda/internal/tools"
)

type fakeGenerator struct {
	responses []gateway.Response
	errs      []error
	requests  []gateway.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req gateway.Request) (gateway.Response, error) {
	i := len(f.requests)
	f.requests = append(f.requests, req)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	resp := gateway.DefaultResponse
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, err
}

type fakeAssembler struct{ blocks []string }

func (f *fakeAssembler) RelevantContext(_ context.Context, _ string) []string { return f.blocks }

func newTestSession(t *testing.T, gen *fakeGenerator) (*Session, string) {
	t.Helper()
	root := t.TempDir()
	ed := editor.NewHeadless(root, io.Discard)

	disp := tools.NewDispatcher()
	require.NoError(t, disp.Register(tools.NewFileManager(ed)))

	s := NewSession(ed, &fakeAssembler{blocks: []string{"PROJECT SUMMARY:\ntest project"}}, gen, disp, chat.NewHistory(10))
	return s, root
}

func TestTurnNarrativeOnly(t *testing.T) {
	gen := &fakeGenerator{responses: []gateway.Response{{Narrative: "all done"}}}
	s, _ := newTestSession(t, gen)

	result, err := s.HandleRequest(t.Context(), "explain the project")
	require.NoError(t, err)
	assert.Equal(t, "all done", result.Narrative)
	assert.Empty(t, result.Actions)
	assert.Equal(t, StateIdle, s.State())

	turns := s.History().Recent()
	require.Len(t, turns, 2)
	assert.Equal(t, chat.RoleUser, turns[0].Role)
	assert.Equal(t, "all done", turns[1].Content)
}

func TestTurnDispatchesActions(t *testing.T) {
	gen := &fakeGenerator{responses: []gateway.Response{{
		Narrative: "creating the file",
		Actions: []gateway.ToolAction{
			{Tool: "FileManager", Command: "createFile", Params: []any{"hello.txt", "hi"}},
		},
	}}}
	s, root := newTestSession(t, gen)

	result, err := s.HandleRequest(t.Context(), "make hello.txt")
	require.NoError(t, err)
	require.Len(t, result.Actions, 1)
	assert.NoError(t, result.Actions[0].Err)

	data, err := os.ReadFile(filepath.Join(root, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestReadFileTriggersSingleFollowUp(t *testing.T) {
	gen := &fakeGenerator{responses: []gateway.Response{
		{
			Narrative: "let me look",
			Actions: []gateway.ToolAction{
				{Tool: "FileManager", Command: "readFile", Params: []any{"main.go"}},
			},
		},
		{
			Narrative: "here is the fix",
			Actions: []gateway.ToolAction{
				// a second read must NOT trigger another round
				{Tool: "FileManager", Command: "readFile", Params: []any{"main.go"}},
			},
		},
	}}
	s, root := newTestSession(t, gen)
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0644))

	result, err := s.HandleRequest(t.Context(), "fix main.go")
	require.NoError(t, err)

	require.Len(t, gen.requests, 2, "exactly one follow-up round")
	assert.Contains(t, gen.requests[1].Prompt, "CONTENT OF main.go")
	assert.Contains(t, gen.requests[1].Prompt, "package main")
	assert.Contains(t, result.Narrative, "let me look")
	assert.Contains(t, result.Narrative, "here is the fix")
	assert.Len(t, result.Actions, 2)
}

func TestQuestionsShortCircuitBeforeActions(t *testing.T) {
	gen := &fakeGenerator{responses: []gateway.Response{{
		Narrative: "which one?",
		Actions: []gateway.ToolAction{
			{Tool: "FileManager", Command: "createFile", Params: []any{"x.txt", "x"}},
		},
		Questions:         []gateway.Question{{ID: "q1", Text: "Which file?", Type: "choice"}},
		RequiresUserInput: true,
	}}}
	s, root := newTestSession(t, gen)

	result, err := s.HandleRequest(t.Context(), "do something ambiguous")
	require.NoError(t, err)
	assert.True(t, result.RequiresUserInput)
	require.Len(t, result.Questions, 1)
	assert.Empty(t, result.Actions)

	_, statErr := os.Stat(filepath.Join(root, "x.txt"))
	assert.True(t, os.IsNotExist(statErr), "no action may run before the question is answered")
}

func TestResumeCarriesAnswersInPrompt(t *testing.T) {
	gen := &fakeGenerator{responses: []gateway.Response{{Narrative: "ok"}}}
	s, _ := newTestSession(t, gen)

	_, err := s.Resume(t.Context(), "do something ambiguous", map[string]string{"q1": "the second one"})
	require.NoError(t, err)
	require.Len(t, gen.requests, 1)
	assert.Contains(t, gen.requests[0].Prompt, "ANSWERS TO YOUR QUESTIONS:")
	assert.Contains(t, gen.requests[0].Prompt, "q1: the second one")
}

func TestGatewayFailureDegradesToNarrative(t *testing.T) {
	gen := &fakeGenerator{
		responses: []gateway.Response{gateway.DefaultResponse},
		errs:      []error{errs.Configuration("openai selected but no API key configured")},
	}
	s, _ := newTestSession(t, gen)

	result, err := s.HandleRequest(t.Context(), "hello")
	require.NoError(t, err, "failures degrade, the turn still completes")
	assert.Equal(t, gateway.DefaultResponse.Narrative, result.Narrative)
	assert.Equal(t, StateIdle, s.State())
}

func TestActionFailureReportedInNarrative(t *testing.T) {
	gen := &fakeGenerator{responses: []gateway.Response{{
		Narrative: "reading",
		Actions: []gateway.ToolAction{
			{Tool: "FileManager", Command: "readFile", Params: []any{"missing.txt"}},
		},
	}}}
	s, _ := newTestSession(t, gen)

	result, err := s.HandleRequest(t.Context(), "read missing.txt")
	require.NoError(t, err)
	require.Len(t, result.Actions, 1)
	assert.Error(t, result.Actions[0].Err)
	assert.Contains(t, result.Narrative, "FileManager.readFile failed")
	require.Len(t, gen.requests, 1, "failed read triggers no follow-up")
}

func TestBusySessionRejectsSecondTurn(t *testing.T) {
	s, _ := newTestSession(t, &fakeGenerator{})
	s.busy = true

	_, err := s.HandleRequest(t.Context(), "hello")
	assert.ErrorIs(t, err, ErrBusy)
}

func TestCombinedQueryIncludesEditorContext(t *testing.T) {
	gen := &fakeGenerator{responses: []gateway.Response{{Narrative: "ok"}}}
	root := t.TempDir()
	ed := &scriptedEditor{
		Headless:  editor.NewHeadless(root, io.Discard),
		selection: "func broken() {}",
		filePath:  "main.go",
		fileText:  "package main",
	}
	disp := tools.NewDispatcher()
	require.NoError(t, disp.Register(tools.NewFileManager(ed)))
	s := NewSession(ed, &fakeAssembler{}, gen, disp, nil)

	_, err := s.HandleRequest(t.Context(), "fix this")
	require.NoError(t, err)
	require.Len(t, gen.requests, 1)
	assert.Contains(t, gen.requests[0].Prompt, "SELECTED TEXT:\nfunc broken() {}")
	assert.Contains(t, gen.requests[0].Prompt, "ACTIVE FILE main.go")
}

type scriptedEditor struct {
	*editor.Headless
	selection string
	filePath  string
	fileText  string
}

func (s *scriptedEditor) Selection() string            { return s.selection }
func (s *scriptedEditor) ActiveFile() (string, string) { return s.filePath, s.fileText }
