// Copyright © 2024 The ELPS authors

package formatter

import (
	"context"
	"testing"

	"github.com/luthersystems/prettylua/diagnostic"
	"github.com/luthersystems/prettylua/logtest"
	"github.com/luthersystems/prettylua/settings"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// fakeRunner records requests and replies with a canned result.
type fakeRunner struct {
	result   RunResult
	requests []RunRequest
	dirs     []string
}

func (r *fakeRunner) Run(_ context.Context, req RunRequest, dir string) RunResult {
	r.requests = append(r.requests, req)
	r.dirs = append(r.dirs, dir)
	return r.result
}

// fakeView is an in-memory buffer that records every host call.
type fakeView struct {
	id       string
	text     string
	vars     Variables
	viewport Point

	calls       []string
	alerts      []string
	annotations []Annotation
	selection   *diagnostic.Position
	centered    *diagnostic.Position
	viewports   []Point
}

func newFakeView(text string) *fakeView {
	return &fakeView{id: "view-1", text: text, viewport: Point{X: 3, Y: 120}}
}

func (v *fakeView) ID() string           { return v.id }
func (v *fakeView) Text() string         { return v.text }
func (v *fakeView) Variables() Variables { return v.vars }
func (v *fakeView) Viewport() Point      { return v.viewport }

func (v *fakeView) Replace(text string) {
	v.calls = append(v.calls, "replace")
	v.text = text
}

func (v *fakeView) SetViewport(p Point) {
	v.calls = append(v.calls, "viewport")
	v.viewports = append(v.viewports, p)
	v.viewport = p
}

func (v *fakeView) SetSelection(pos diagnostic.Position) {
	v.calls = append(v.calls, "select")
	v.selection = &pos
}

func (v *fakeView) ShowAtCenter(pos diagnostic.Position) {
	v.calls = append(v.calls, "center")
	v.centered = &pos
}

func (v *fakeView) ShowAnnotation(a Annotation) {
	v.calls = append(v.calls, "annotate")
	v.annotations = append(v.annotations, a)
}

func (v *fakeView) EraseAnnotations() {
	v.calls = append(v.calls, "erase")
	v.annotations = nil
}

func (v *fakeView) Alert(message string) {
	v.calls = append(v.calls, "alert")
	v.alerts = append(v.alerts, message)
}

func testSettings() *settings.Settings {
	s := settings.Default()
	s.ConfigPaths = nil
	return s
}

func TestFormatAppliesText(t *testing.T) {
	runner := &fakeRunner{result: RunResult{Stdout: "local x = 1\n"}}
	svc := New(testSettings(), WithRunner(runner))
	view := newFakeView("local  x=1")

	out := svc.Format(context.Background(), view)

	assert.Equal(t, ApplyText, out.Kind)
	assert.Equal(t, "local x = 1\n", view.text)
	require.Len(t, runner.requests, 1)
	assert.Equal(t, RunRequest{CommandLine: "stylua -", Stdin: "local  x=1"}, runner.requests[0])
	assert.Equal(t, []string{"replace", "erase", "viewport"}, view.calls)
	assert.Equal(t, []Point{{X: 3, Y: 120}}, view.viewports, "viewport restored exactly once")
}

func TestFormatEmptyBufferDoesNothing(t *testing.T) {
	runner := &fakeRunner{}
	svc := New(testSettings(), WithRunner(runner))
	view := newFakeView("")

	out := svc.Format(context.Background(), view)

	assert.Equal(t, Noop, out.Kind)
	assert.Empty(t, runner.requests)
	assert.Empty(t, view.calls)
}

func TestFormatParseErrorScrolls(t *testing.T) {
	runner := &fakeRunner{result: RunResult{
		Stderr: "failed to format from stdin: error: error parsing: unexpected end of file (starting from line 2, character 5 and ending on line 2, character 10)\nadditional information: expected an expression\n",
	}}
	svc := New(testSettings(), WithRunner(runner))
	view := newFakeView("local x = ")
	hook := logtest.Capture(t, log.InfoLevel)

	out := svc.Format(context.Background(), view)

	require.NotNil(t, hook.LastEntry(), "parse errors are logged")
	assert.Equal(t, log.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, view.ID(), hook.LastEntry().Data["view"])
	require.Equal(t, AnnotateAndScroll, out.Kind)
	assert.Equal(t, diagnostic.Position{Line: 1, Column: 9}, out.Position)
	assert.Equal(t, "local x = ", view.text, "buffer must not change on error")
	require.Len(t, view.annotations, 1)
	assert.Equal(t, Annotation{
		Start:   diagnostic.Position{Line: 1, Column: 4},
		End:     diagnostic.Position{Line: 1, Column: 9},
		Message: "Unexpected end of file  (expected an expression)",
	}, view.annotations[0])
	assert.Equal(t, &diagnostic.Position{Line: 1, Column: 9}, view.selection)
	assert.Equal(t, &diagnostic.Position{Line: 1, Column: 9}, view.centered)
	assert.Equal(t, []string{"erase", "annotate", "select", "center"}, view.calls)
	assert.Equal(t, view.annotations, svc.Annotations().Get(view.ID()))
}

func TestFormatParseErrorWithoutScroll(t *testing.T) {
	st := testSettings()
	st.ScrollToErrorPoint = false
	runner := &fakeRunner{result: RunResult{Stderr: "error: error parsing: oops line 2, character 5 to line 2, character 10"}}
	svc := New(st, WithRunner(runner))
	view := newFakeView("local x = ")

	out := svc.Format(context.Background(), view)

	assert.Equal(t, Annotate, out.Kind)
	assert.Nil(t, view.selection)
	assert.Nil(t, view.centered)
	assert.Equal(t, []string{"erase", "annotate", "viewport"}, view.calls)
	assert.Equal(t, Point{X: 3, Y: 120}, view.viewport)
}

func TestFormatParseErrorInlineDisabled(t *testing.T) {
	st := testSettings()
	st.ShowErrorInline = false
	runner := &fakeRunner{result: RunResult{Stderr: "line 2, character 5 to line 2, character 10"}}
	svc := New(st, WithRunner(runner))
	view := newFakeView("local x = ")
	view.annotations = []Annotation{{Message: "stale"}}

	out := svc.Format(context.Background(), view)

	assert.Equal(t, Noop, out.Kind)
	assert.Empty(t, view.annotations, "stale annotation cleared")
	assert.Equal(t, []string{"erase", "viewport"}, view.calls)
}

func TestFormatCommandNotFound(t *testing.T) {
	runner := &fakeRunner{result: RunResult{Stderr: "bash: line 1: stylua: command not found\n"}}
	svc := New(testSettings(), WithRunner(runner))
	view := newFakeView("print(1)")

	out := svc.Format(context.Background(), view)

	assert.Equal(t, Alert, out.Kind)
	require.Len(t, view.alerts, 1)
	assert.Equal(t, "Pretty Lua\nbash: line 1: stylua: command not found", view.alerts[0])
	assert.Equal(t, "print(1)", view.text)
	assert.Equal(t, []string{"erase", "alert"}, view.calls)
}

func TestFormatUnparseableError(t *testing.T) {
	runner := &fakeRunner{result: RunResult{Stderr: "error: unknown flag --bogus"}}
	svc := New(testSettings(), WithRunner(runner))
	view := newFakeView("print(1)")

	out := svc.Format(context.Background(), view)

	assert.Equal(t, Alert, out.Kind)
	assert.Equal(t, "Error: unknown flag --bogus)", out.Message)
}

func TestFormatSpawnFailureIsNoop(t *testing.T) {
	svc := New(testSettings(), WithRunner(&fakeRunner{}))
	view := newFakeView("print(1)")

	out := svc.Format(context.Background(), view)

	assert.Equal(t, Noop, out.Kind)
	assert.Empty(t, view.alerts)
	assert.Equal(t, "print(1)", view.text)
}

func TestFormatUsesConfigPath(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "stylua.toml", "indent_type = \"Spaces\"\n")

	st := testSettings()
	st.ConfigPaths = []string{"${project_path}/stylua.toml"}
	runner := &fakeRunner{result: RunResult{Stdout: "x"}}
	svc := New(st, WithRunner(runner))
	view := newFakeView("x")
	view.vars = FileVariables(dir+"/init.lua", dir)

	svc.Format(context.Background(), view)

	require.Len(t, runner.requests, 1)
	assert.Equal(t, `stylua --config-path "`+cfgPath+`" -`, runner.requests[0].CommandLine)
	assert.Equal(t, dir, runner.dirs[0], "runs in the buffer's directory")
	assert.Equal(t, cfgPath, svc.Config().LastValidConfigPath())
}

func TestReloadResetsCache(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "stylua.toml", "")

	st := testSettings()
	st.ConfigPaths = []string{cfgPath}
	svc := New(st, WithRunner(&fakeRunner{}))
	svc.Config().ResolveConfigFlag(nil)
	require.Equal(t, cfgPath, svc.Config().LastValidConfigPath())

	svc.Reload(st)
	assert.Empty(t, svc.Config().LastValidConfigPath())
}

func TestWorkingDirSetting(t *testing.T) {
	st := testSettings()
	st.WorkingDir = "/srv/lua"
	runner := &fakeRunner{}
	svc := New(st, WithRunner(runner))

	svc.Format(context.Background(), newFakeView("x"))
	assert.Equal(t, []string{"/srv/lua"}, runner.dirs)
}

func TestFormatOnSave(t *testing.T) {
	runner := &fakeRunner{result: RunResult{Stdout: "y"}}
	svc := New(testSettings(), WithRunner(runner))

	_, ran := svc.FormatOnSave(context.Background(), newFakeView("x"), "/src/main.py")
	assert.False(t, ran)

	out, ran := svc.FormatOnSave(context.Background(), newFakeView("x"), "/src/main.lua")
	assert.True(t, ran)
	assert.Equal(t, ApplyText, out.Kind)

	st := testSettings()
	st.FormatOnSave = false
	svc.Reload(st)
	_, ran = svc.FormatOnSave(context.Background(), newFakeView("x"), "/src/main.lua")
	assert.False(t, ran)
	assert.Len(t, runner.requests, 1)
}

func TestCloseForgetsAnnotations(t *testing.T) {
	runner := &fakeRunner{result: RunResult{Stderr: "1 1 1 2"}}
	svc := New(testSettings(), WithRunner(runner))
	view := newFakeView("x")

	svc.Format(context.Background(), view)
	require.True(t, svc.Annotations().Tracked(view.ID()))

	svc.Close(view.ID())
	assert.False(t, svc.Annotations().Tracked(view.ID()))
}

func TestFormatTracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	runner := &fakeRunner{result: RunResult{Stdout: "x"}}
	svc := New(testSettings(), WithRunner(runner), WithTracerProvider(tp))

	svc.Format(context.Background(), newFakeView("x"))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "prettylua.format", spans[0].Name())
	var outcome string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "prettylua.outcome" {
			outcome = kv.Value.AsString()
		}
	}
	assert.Equal(t, "apply-text", outcome)
}
