// Package supervisor routes chat messages: classify, dispatch to the handler
// bound to the intent, and wrap the outcome in an Envelope.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kalambet/jobpilot/internal/agent"
	"github.com/kalambet/jobpilot/internal/intent"
	"github.com/kalambet/jobpilot/internal/logger"
	"github.com/kalambet/jobpilot/internal/resume"
)

// maxMessageRunes bounds a single chat message.
const maxMessageRunes = 4000

const (
	msgEmpty       = "Please enter a message."
	msgTooLong     = "That message is too long. Please keep it under 4000 characters."
	msgUnavailable = "A service needed for this request is unavailable right now. Please try again later."
	msgInternal    = "Something went wrong while handling your request. Please try again."
)

// Classifier maps message text to an intent. Implemented by intent.Classifier.
type Classifier interface {
	Classify(text string, hasResume bool) intent.Intent
}

// SessionContext is the read-only view of a session the supervisor needs.
// Implemented by session.Session.
type SessionContext interface {
	ID() string
	ResumeInsights() *resume.Insights
}

// Recorder receives every routed message and its envelope. Failures are
// logged and never change the envelope.
type Recorder interface {
	Record(ctx context.Context, sessionID, message string, in intent.Intent, env Envelope) error
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithRecorder stores every routed turn with r.
func WithRecorder(r Recorder) Option {
	return func(s *Supervisor) { s.recorder = r }
}

// Supervisor holds only immutable wiring; Route is safe for concurrent use.
type Supervisor struct {
	classifier Classifier
	handlers   map[intent.Kind]agent.Handler
	recorder   Recorder
}

// New binds a handler to every routable intent kind. It fails when a kind has
// no handler or a handler is bound to UNKNOWN.
func New(classifier Classifier, handlers map[intent.Kind]agent.Handler, opts ...Option) (*Supervisor, error) {
	if classifier == nil {
		return nil, errors.New("supervisor: nil classifier")
	}
	if _, ok := handlers[intent.Unknown]; ok {
		return nil, errors.New("supervisor: UNKNOWN cannot have a handler")
	}

	bound := make(map[intent.Kind]agent.Handler, len(handlers))
	for _, k := range intent.Kinds() {
		h, ok := handlers[k]
		if !ok || h == nil {
			return nil, fmt.Errorf("supervisor: no handler for %s", k)
		}
		bound[k] = h
	}
	if len(bound) != len(handlers) {
		return nil, errors.New("supervisor: handler bound to an unknown intent kind")
	}

	s := &Supervisor{classifier: classifier, handlers: bound}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Route handles one message. It always returns a well-formed envelope.
func (s *Supervisor) Route(ctx context.Context, message string, sess SessionContext) Envelope {
	start := time.Now()
	message = strings.TrimSpace(message)

	in, env := s.route(ctx, message, sess)

	sessionID := ""
	if sess != nil {
		sessionID = sess.ID()
	}
	slog.Info("message routed",
		"session_id", sessionID,
		"intent", in.Kind,
		"confidence", in.Confidence,
		"agent", env.Agent,
		"ok", env.OK(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if s.recorder != nil && message != "" && sessionID != "" {
		if err := s.recorder.Record(ctx, sessionID, message, in, env); err != nil {
			slog.Warn("recording interaction failed", "session_id", sessionID, "error", err)
		}
	}
	return env
}

func (s *Supervisor) route(ctx context.Context, message string, sess SessionContext) (intent.Intent, Envelope) {
	none := intent.Intent{Kind: intent.Unknown}
	if message == "" {
		return none, errorEnvelope(msgEmpty)
	}
	if utf8.RuneCountInString(message) > maxMessageRunes {
		return none, errorEnvelope(msgTooLong)
	}

	// One snapshot per message: a resume replaced mid-turn is seen next turn.
	var insights *resume.Insights
	if sess != nil {
		insights = sess.ResumeInsights()
	}

	in := s.classifier.Classify(message, insights != nil)
	slog.Debug("message classified", "intent", in.Kind, "confidence", in.Confidence,
		"params", in.Params, "message", logger.TruncateForLog(message, 80))

	if in.Kind == intent.Unknown {
		return in, Envelope{Response: clarify(in)}
	}

	h, ok := s.handlers[in.Kind]
	if !ok {
		// Unreachable after New; kept so a bad classifier cannot panic Route.
		return in, Envelope{Response: clarify(intent.Intent{Kind: intent.Unknown})}
	}

	req := agent.Request{Query: message, Params: copyParams(in.Params), Resume: insights}
	payload, err := invoke(ctx, h, req)
	if err != nil {
		slog.Warn("handler failed", "agent", h.Name(), "intent", in.Kind, "error", err)
		return in, errorEnvelope(failureMessage(err))
	}
	if payload == nil {
		slog.Error("handler returned no result", "agent", h.Name())
		return in, errorEnvelope(msgInternal)
	}

	return in, Envelope{
		Response: format(payload, insights != nil),
		Agent:    h.Name(),
		Intent:   string(in.Kind),
		Data:     payload,
	}
}

// invoke calls h and converts a panic into an error.
func invoke(ctx context.Context, h agent.Handler, req agent.Request) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("handler panicked", "agent", h.Name(), "panic", r)
			payload, err = nil, fmt.Errorf("handler %s panicked: %v", h.Name(), r)
		}
	}()
	return h.Handle(ctx, req)
}

func copyParams(p map[string]string) map[string]string {
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// failureMessage turns a handler error into text safe to show the user.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, agent.ErrServiceUnavailable):
		return msgUnavailable
	case errors.Is(err, agent.ErrNotFound):
		return "I couldn't find anything for that request: " + detail(err, agent.ErrNotFound) + "."
	case errors.Is(err, agent.ErrInvalidParameters):
		return "I couldn't process that request: " + detail(err, agent.ErrInvalidParameters) + "."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	default:
		return msgInternal
	}
}

// detail strips the sentinel's own text from a wrapped error.
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	return strings.TrimRight(msg, ". ")
}

// clarify builds the reply for a message that could not be routed.
func clarify(in intent.Intent) string {
	if in.Params[intent.ParamMissingPrecondition] == intent.PreconditionResume {
		what := "that"
		switch intent.Kind(in.Params[intent.ParamRequestedIntent]) {
		case intent.CoverLetter:
			what = "a cover letter"
		case intent.ResumeAnalysis:
			what = "resume feedback"
		}
		return fmt.Sprintf("I need your resume before I can help with %s. Please upload it first, then ask again.", what)
	}
	return "I'm not sure what you'd like to do. I can search for jobs, review your resume, " +
		"write a cover letter, or research a company or topic. Could you rephrase your request?"
}
