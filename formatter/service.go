// Copyright © 2024 The ELPS authors

// Package formatter pipes editor buffers through an external Lua
// formatter and turns its output into a single editor action: replace the
// buffer, show an alert, or annotate the error location.
package formatter

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/luthersystems/prettylua/diagnostic"
	"github.com/luthersystems/prettylua/settings"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/luthersystems/prettylua/formatter"

	// AlertTitle heads every alert.
	AlertTitle = "Pretty Lua"
)

// snapshot pairs a settings value with the Config built from it so that
// one invocation never observes half of a reload.
type snapshot struct {
	settings *settings.Settings
	config   *Config
}

// Service is the long-lived formatter integration shared by all buffers of
// a host.
type Service struct {
	runner      Runner
	annotations *Annotations
	tracer      trace.Tracer
	current     atomic.Pointer[snapshot]
}

// Option configures a Service.
type Option func(*Service)

// WithRunner replaces the shell runner, mostly for tests.
func WithRunner(r Runner) Option {
	return func(s *Service) { s.runner = r }
}

// WithTracerProvider sets the provider of the invocation spans. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(tracerName) }
}

// New creates a Service for the given settings. A nil snapshot means
// settings.Default().
func New(st *settings.Settings, opts ...Option) *Service {
	s := &Service{
		runner:      NewShellRunner(),
		annotations: NewAnnotations(),
		tracer:      otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(s)
	}
	s.Reload(st)
	return s
}

// Reload swaps in a new settings snapshot. The cached config file path is
// reset with it. Invocations already running finish with the old snapshot.
func (s *Service) Reload(st *settings.Settings) {
	if st == nil {
		st = settings.Default()
	}
	s.current.Store(&snapshot{settings: st, config: NewConfig(st)})
}

// Settings returns the snapshot currently in effect.
func (s *Service) Settings() *settings.Settings {
	return s.current.Load().settings
}

// Config returns the invocation config currently in effect.
func (s *Service) Config() *Config {
	return s.current.Load().config
}

// Annotations returns the per-buffer annotation registry.
func (s *Service) Annotations() *Annotations {
	return s.annotations
}

// Close forgets the annotation state of a buffer that was closed.
func (s *Service) Close(viewID string) {
	s.annotations.Close(viewID)
}

// ShouldFormatOnSave reports whether saving filename triggers a format.
func (s *Service) ShouldFormatOnSave(filename string) bool {
	st := s.Settings()
	if !st.FormatOnSave || filename == "" {
		return false
	}
	return slices.Contains(st.Extensions, filepath.Ext(filename))
}

// FormatOnSave formats view if saving filename should trigger it. The
// boolean reports whether a format was attempted.
func (s *Service) FormatOnSave(ctx context.Context, view View, filename string) (Outcome, bool) {
	if !s.ShouldFormatOnSave(filename) {
		return Outcome{Kind: Noop}, false
	}
	return s.Format(ctx, view), true
}

// Format runs the formatter over the whole buffer of view and presents
// the result. An empty buffer is left alone without running anything.
func (s *Service) Format(ctx context.Context, view View) Outcome {
	snap := s.current.Load()

	ctx, span := s.tracer.Start(ctx, "prettylua.format",
		trace.WithAttributes(attribute.String("prettylua.view", view.ID())))
	defer span.End()

	text := view.Text()
	if text == "" {
		span.SetAttributes(attribute.String("prettylua.outcome", Noop.String()))
		return Outcome{Kind: Noop}
	}

	vars := view.Variables()
	commandLine := snap.config.CommandLine(snap.config.ResolveConfigFlag(vars))
	res := s.runner.Run(ctx, RunRequest{CommandLine: commandLine, Stdin: text}, workingDir(snap.config, vars))

	stderr := diagnostic.NormalizeStderr(res.Stderr)
	var pos *diagnostic.Position
	if p, ok := diagnostic.ParsePosition(stderr); ok {
		pos = &p
		log.WithField("view", view.ID()).Info(stderr)
	}

	opts := Options{
		ShowInline: snap.settings.ShowErrorInline,
		Scroll:     snap.settings.ScrollToErrorPoint,
	}
	out := Decide(res.Stdout, stderr, pos, opts)

	span.SetAttributes(attribute.String("prettylua.outcome", out.Kind.String()))
	if stderr != "" {
		span.SetStatus(codes.Error, stderr)
	}

	s.Present(view, out, annotationStart(stderr, out))
	return out
}

// Present applies out to view. Annotations from an earlier run are always
// erased first. Outcomes that do not scroll leave the viewport where it
// was. start is the beginning of the error range for annotations.
func (s *Service) Present(view View, out Outcome, start diagnostic.Position) {
	viewport := view.Viewport()

	if out.Kind == ApplyText {
		view.Replace(out.Text)
	}

	view.EraseAnnotations()
	s.annotations.Erase(view.ID())

	switch out.Kind {
	case Alert:
		view.Alert(AlertTitle + "\n" + out.Message)
		return
	case Annotate, AnnotateAndScroll:
		ann := Annotation{Start: start, End: out.Position, Message: out.Message}
		s.annotations.Set(view.ID(), ann)
		view.ShowAnnotation(ann)
	}

	if out.Kind == AnnotateAndScroll {
		view.SetSelection(out.Position)
		view.ShowAtCenter(out.Position)
		return
	}
	view.SetViewport(viewport)
}

func annotationStart(stderr string, out Outcome) diagnostic.Position {
	if !out.HasPosition() {
		return diagnostic.Position{}
	}
	start, _, ok := diagnostic.ParseRange(stderr)
	if !ok {
		return out.Position
	}
	return start
}

// workingDir picks the directory the formatter runs in: the configured
// one, else the buffer's directory when it is local, else the temp dir.
func workingDir(cfg *Config, vars Variables) string {
	if cfg.WorkingDir != "" {
		return cfg.WorkingDir
	}
	if dir := vars["file_path"]; isLocalDir(dir) {
		return dir
	}
	return os.TempDir()
}

func isLocalDir(dir string) bool {
	if dir == "" || strings.HasPrefix(dir, `\\`) || strings.HasPrefix(dir, "//") {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
