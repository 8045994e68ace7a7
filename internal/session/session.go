// Package session implements the conversation state machine sequencing the
// receptionist, gate, summarizer, search and recommender into one flow.
package session

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/chat"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/metrics"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/search"
)

// Phase is the session's position in the conversation flow. Transitions are
// one-directional; Recommending loops until the surface shuts down.
type Phase string

const (
	PhaseGathering    Phase = "gathering"
	PhaseSummarizing  Phase = "summarizing"
	PhaseSearching    Phase = "searching"
	PhaseRecommending Phase = "recommending"
)

// Event roles presented to the interactive surface.
const (
	EventAssistant = "assistant"
	EventSummary   = "summary"
)

// Event is one rendered turn for the surface.
type Event struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Searcher is the retrieval contract the session depends on.
type Searcher interface {
	FindSimilar(ctx context.Context, query string, n int) ([]search.Result, error)
}

// Options tune a session.
type Options struct {
	TopN             int
	MaxCaptionLength int
	Metrics          *metrics.Collector
	Logger           *slog.Logger
}

// Session owns the per-conversation state: the agents, the gate, the phase
// and the eventual summary and search results. Sessions are not safe for
// concurrent use; each user conversation gets its own.
type Session struct {
	id     string
	logger *slog.Logger

	model      chat.ChatModel
	gate       chat.Gate
	summarizer *chat.Summarizer
	searcher   Searcher
	collector  *metrics.Collector

	receptionist *chat.Agent
	recommender  *chat.Agent

	phase   Phase
	summary string
	results []search.Result

	topN          int
	maxCaptionLen int
}

// New creates a session starting in the Gathering phase.
func New(model chat.ChatModel, gate chat.Gate, summarizer *chat.Summarizer, searcher Searcher, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	topN := opts.TopN
	if topN <= 0 {
		topN = 5
	}

	id := uuid.New().String()[:8]
	return &Session{
		id:            id,
		logger:        logger.With("session", id),
		model:         model,
		gate:          gate,
		summarizer:    summarizer,
		searcher:      searcher,
		collector:     opts.Metrics,
		receptionist:  chat.NewReceptionist(model),
		phase:         PhaseGathering,
		topN:          topN,
		maxCaptionLen: opts.MaxCaptionLength,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Phase returns the current phase.
func (s *Session) Phase() Phase { return s.phase }

// Summary returns the condensed request, set once gathering has ended.
func (s *Session) Summary() string { return s.summary }

// Results returns the retrieved candidates, set once search has run.
func (s *Session) Results() []search.Result { return s.results }

// HandleMessage drives one user turn through the state machine and returns
// the turns to present. Empty or whitespace-only input is silently ignored.
//
// Remote failures during Gathering and Recommending roll back the appended
// user turn and surface the error so the same turn can be retried. Failures
// in the atomic Summarizing/Searching pipeline park the session in the
// failed phase; the next message (its text ignored) resumes the pipeline.
func (s *Session) HandleMessage(ctx context.Context, input string) ([]Event, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}

	switch s.phase {
	case PhaseGathering:
		return s.gather(ctx, input)
	case PhaseSummarizing, PhaseSearching:
		return s.advance(ctx)
	default: // PhaseRecommending
		return s.recommend(ctx, input)
	}
}

func (s *Session) gather(ctx context.Context, input string) ([]Event, error) {
	if err := s.receptionist.AppendUser(input); err != nil {
		return nil, err
	}

	s.gate.ReadConversation(s.receptionist.Transcript())
	done, err := s.gate.JobDone(ctx)
	if err != nil {
		s.receptionist.DiscardLastUser()
		return nil, err
	}

	if !done {
		start := time.Now()
		reply, err := s.receptionist.Respond(ctx)
		if err != nil {
			s.receptionist.DiscardLastUser()
			return nil, err
		}
		s.record(metrics.OpChat, start)
		return []Event{{Role: EventAssistant, Content: reply}}, nil
	}

	s.logger.Info("gathering phase closed by gate")
	s.phase = PhaseSummarizing
	return s.advance(ctx)
}

// advance runs the atomic Summarizing and Searching phases, constructing the
// recommender and emitting its opening reply.
func (s *Session) advance(ctx context.Context) ([]Event, error) {
	var events []Event

	if s.phase == PhaseSummarizing {
		s.summarizer.ReadConversation(s.receptionist.Transcript())

		start := time.Now()
		summary, err := s.summarizer.Summarize(ctx)
		if err != nil {
			return events, err
		}
		s.record(metrics.OpCompletion, start)

		s.summary = summary
		s.logger.Info("conversation summarized", "summary", summary)
		events = append(events, Event{Role: EventSummary, Content: summary})
		s.phase = PhaseSearching
	}

	if s.phase == PhaseSearching {
		start := time.Now()
		results, err := s.searcher.FindSimilar(ctx, s.summary, s.topN)
		if err != nil {
			return events, err
		}
		s.record(metrics.OpSearch, start)

		s.results = results
		s.logger.Info("search complete", "results", len(results))
		s.recommender = chat.NewRecommender(s.model, results, s.summary, s.maxCaptionLen)
		s.phase = PhaseRecommending

		start = time.Now()
		reply, err := s.recommender.Respond(ctx)
		if err != nil {
			return events, err
		}
		s.record(metrics.OpChat, start)
		events = append(events, Event{Role: EventAssistant, Content: reply})
	}

	return events, nil
}

func (s *Session) recommend(ctx context.Context, input string) ([]Event, error) {
	if err := s.recommender.AppendUser(input); err != nil {
		return nil, err
	}

	start := time.Now()
	reply, err := s.recommender.Respond(ctx)
	if err != nil {
		s.recommender.DiscardLastUser()
		return nil, err
	}
	s.record(metrics.OpChat, start)

	return []Event{{Role: EventAssistant, Content: reply}}, nil
}

func (s *Session) record(op string, start time.Time) {
	if s.collector != nil {
		s.collector.RecordTiming(op, time.Since(start))
	}
}
