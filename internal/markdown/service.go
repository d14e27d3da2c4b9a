package markdown

import (
	"errors"
	"html"
	"time"

	"github.com/goliatone/go-press/internal/logging"
	"github.com/goliatone/go-press/pkg/interfaces"
)

// RenderObserver receives timing information for each conversion.
type RenderObserver interface {
	ObserveRender(duration time.Duration, fallback bool)
}

// ServiceOption configures the Markdown service.
type ServiceOption func(*Service)

// WithLogger attaches a logger used to report conversion failures.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver records render durations.
func WithObserver(observer RenderObserver) ServiceOption {
	return func(s *Service) {
		s.observer = observer
	}
}

// WithEngineOptions overrides the default engine configuration.
func WithEngineOptions(opts EngineOptions) ServiceOption {
	return func(s *Service) {
		s.parser = NewGoldmarkParser(opts)
	}
}

// WithClock overrides the time source used for duration measurement.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service is the sanitization pipeline. Public pages and the staff preview
// share one instance, so both produce byte-identical output for the same
// input.
type Service struct {
	parser   *GoldmarkParser
	logger   interfaces.Logger
	observer RenderObserver
	now      func() time.Time
}

var _ interfaces.MarkdownRenderer = (*Service)(nil)

// NewService builds the pipeline.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		logger: logging.NoOp(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.parser == nil {
		s.parser = NewGoldmarkParser(DefaultEngineOptions())
	}
	return s
}

// Render converts raw Markdown into sanitized HTML. It never fails: when the
// engine returns an error the text is escaped and wrapped in a paragraph.
func (s *Service) Render(raw string) string {
	if raw == "" {
		return ""
	}

	start := s.now()
	fallback := false
	out, err := s.parser.Parse([]byte(raw))
	if err != nil {
		fallback = true
		s.logger.Warn("markdown.render.fallback", "error", err, "length", len(raw))
		out = []byte("<p>" + html.EscapeString(raw) + "</p>")
	}

	safe := Sanitize(string(out))
	if s.observer != nil {
		s.observer.ObserveRender(s.now().Sub(start), fallback)
	}
	return safe
}

// Preview backs the staff live preview endpoint.
func (s *Service) Preview(raw string) string {
	return s.Render(raw)
}

// RenderDocument renders the Markdown body of a parsed document.
func (s *Service) RenderDocument(doc *interfaces.Document) (string, error) {
	if doc == nil {
		return "", errors.New("markdown service: document is nil")
	}
	return s.Render(string(doc.Body)), nil
}
