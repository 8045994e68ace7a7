package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxHilsdorf/music-search-chatbot/internal/chat"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/llm"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/metrics"
	"github.com/MaxHilsdorf/music-search-chatbot/internal/search"
)

type fakeModel struct {
	replies []string
	calls   [][]llm.Message
	err     error
}

func (m *fakeModel) Chat(_ context.Context, messages []llm.Message, _ llm.Options) (string, error) {
	m.calls = append(m.calls, messages)
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return "ok", nil
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply, nil
}

type fakeCompleter struct {
	response string
	calls    int
	err      error
}

func (c *fakeCompleter) Complete(_ context.Context, _ string, _ llm.Options) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

type fakeSearcher struct {
	results []search.Result
	queries []string
	ns      []int
	err     error
}

func (s *fakeSearcher) FindSimilar(_ context.Context, query string, n int) ([]search.Result, error) {
	s.queries = append(s.queries, query)
	s.ns = append(s.ns, n)
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func newTestSession(model *fakeModel, completer *fakeCompleter, searcher *fakeSearcher, opts Options) *Session {
	return New(model, chat.NewKeywordGate("start search"), chat.NewSummarizer(completer), searcher, opts)
}

func TestSession_FullFlow(t *testing.T) {
	model := &fakeModel{replies: []string{
		"you want jazz, anything to add? type 'start search' to begin",
		"trackA fits your request best",
		"trackB is the more upbeat one",
	}}
	completer := &fakeCompleter{response: "slow jazz with saxophone"}
	searcher := &fakeSearcher{results: []search.Result{
		{Index: 0, TrackID: "trackA", Caption: "slow jazz", Score: 0.9},
		{Index: 3, TrackID: "trackB", Caption: "upbeat jazz", Score: 0.8},
	}}

	sess := newTestSession(model, completer, searcher, Options{TopN: 2})
	require.NotEmpty(t, sess.ID())
	assert.Equal(t, PhaseGathering, sess.Phase())

	// First turn: gathering, receptionist replies.
	events, err := sess.HandleMessage(context.Background(), "I like jazz")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventAssistant, events[0].Role)
	assert.Contains(t, events[0].Content, "start search")
	assert.Equal(t, PhaseGathering, sess.Phase())

	// Stop phrase: summary, search and the recommender's opening reply
	// arrive in one batch.
	events, err = sess.HandleMessage(context.Background(), "ok, start search")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventSummary, events[0].Role)
	assert.Equal(t, "slow jazz with saxophone", events[0].Content)
	assert.Equal(t, EventAssistant, events[1].Role)
	assert.Equal(t, "trackA fits your request best", events[1].Content)

	assert.Equal(t, PhaseRecommending, sess.Phase())
	assert.Equal(t, "slow jazz with saxophone", sess.Summary())
	require.Len(t, sess.Results(), 2)

	// The summary is what gets searched, with the configured top-n.
	assert.Equal(t, []string{"slow jazz with saxophone"}, searcher.queries)
	assert.Equal(t, []int{2}, searcher.ns)

	// Follow-up goes to the recommender.
	events, err = sess.HandleMessage(context.Background(), "which one is more upbeat?")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "trackB is the more upbeat one", events[0].Content)
}

func TestSession_EmptyInputIsIgnored(t *testing.T) {
	model := &fakeModel{}
	sess := newTestSession(model, &fakeCompleter{}, &fakeSearcher{}, Options{})

	for _, input := range []string{"", "   ", "\n\t"} {
		events, err := sess.HandleMessage(context.Background(), input)
		require.NoError(t, err)
		assert.Nil(t, events)
	}
	assert.Empty(t, model.calls, "blank input must never reach the model")
}

func TestSession_DefaultTopN(t *testing.T) {
	model := &fakeModel{}
	searcher := &fakeSearcher{}
	sess := newTestSession(model, &fakeCompleter{response: "anything"}, searcher, Options{})

	_, err := sess.HandleMessage(context.Background(), "start search")
	require.NoError(t, err)
	assert.Equal(t, []int{5}, searcher.ns)
}

func TestSession_GatheringFailureIsRetryable(t *testing.T) {
	model := &fakeModel{err: llm.ErrCompletionService}
	sess := newTestSession(model, &fakeCompleter{}, &fakeSearcher{}, Options{})

	_, err := sess.HandleMessage(context.Background(), "I like jazz")
	require.ErrorIs(t, err, llm.ErrCompletionService)
	assert.Equal(t, PhaseGathering, sess.Phase())

	// Retrying the same turn must not duplicate the user message.
	model.err = nil
	_, err = sess.HandleMessage(context.Background(), "I like jazz")
	require.NoError(t, err)

	require.Len(t, model.calls, 2)
	last := model.calls[1]
	require.Len(t, last, 2, "system turn plus a single user turn")
	assert.Equal(t, llm.RoleUser, last[1].Role)
	assert.Equal(t, "I like jazz", last[1].Content)
}

func TestSession_SummarizeFailureParksAndResumes(t *testing.T) {
	model := &fakeModel{replies: []string{"here are your tracks"}}
	completer := &fakeCompleter{err: llm.ErrCompletionService}
	searcher := &fakeSearcher{results: []search.Result{{TrackID: "trackA"}}}
	sess := newTestSession(model, completer, searcher, Options{})

	events, err := sess.HandleMessage(context.Background(), "start search")
	require.ErrorIs(t, err, llm.ErrCompletionService)
	assert.Empty(t, events)
	assert.Equal(t, PhaseSummarizing, sess.Phase())

	// Any next message resumes the pipeline once the service recovers.
	completer.err = nil
	completer.response = "jazz"
	events, err = sess.HandleMessage(context.Background(), "hello?")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventSummary, events[0].Role)
	assert.Equal(t, EventAssistant, events[1].Role)
	assert.Equal(t, PhaseRecommending, sess.Phase())
}

func TestSession_SearchFailureParksAfterSummary(t *testing.T) {
	model := &fakeModel{replies: []string{"recommendations below"}}
	completer := &fakeCompleter{response: "jazz"}
	searcher := &fakeSearcher{err: search.ErrInvalidArgument}
	sess := newTestSession(model, completer, searcher, Options{})

	events, err := sess.HandleMessage(context.Background(), "start search")
	require.ErrorIs(t, err, search.ErrInvalidArgument)
	require.Len(t, events, 1, "the summary event still arrives")
	assert.Equal(t, EventSummary, events[0].Role)
	assert.Equal(t, PhaseSearching, sess.Phase())

	// Resume: the summary is not recomputed or re-emitted.
	searcher.err = nil
	searcher.results = []search.Result{{TrackID: "trackA"}}
	events, err = sess.HandleMessage(context.Background(), "resume")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventAssistant, events[0].Role)
	assert.Equal(t, 1, completer.calls, "summarizer must run exactly once")
}

func TestSession_RecommendFailureIsRetryable(t *testing.T) {
	model := &fakeModel{replies: []string{"opening reply"}}
	completer := &fakeCompleter{response: "jazz"}
	searcher := &fakeSearcher{results: []search.Result{{TrackID: "trackA"}}}
	sess := newTestSession(model, completer, searcher, Options{})

	_, err := sess.HandleMessage(context.Background(), "start search")
	require.NoError(t, err)
	require.Equal(t, PhaseRecommending, sess.Phase())

	model.err = llm.ErrCompletionService
	_, err = sess.HandleMessage(context.Background(), "tell me more")
	require.ErrorIs(t, err, llm.ErrCompletionService)

	model.err = nil
	_, err = sess.HandleMessage(context.Background(), "tell me more")
	require.NoError(t, err)

	// Rollback means both attempts send the identical transcript.
	n := len(model.calls)
	assert.Equal(t, len(model.calls[n-2]), len(model.calls[n-1]))
}

func TestSession_MetricsRecorded(t *testing.T) {
	collector := metrics.NewCollector()
	model := &fakeModel{}
	completer := &fakeCompleter{response: "jazz"}
	searcher := &fakeSearcher{results: []search.Result{{TrackID: "trackA"}}}
	sess := newTestSession(model, completer, searcher, Options{Metrics: collector})

	_, err := sess.HandleMessage(context.Background(), "I like jazz")
	require.NoError(t, err)
	_, err = sess.HandleMessage(context.Background(), "start search")
	require.NoError(t, err)

	snap := collector.Snapshot()
	require.NotNil(t, snap.Chat)
	assert.Equal(t, int64(2), snap.Chat.Count, "receptionist reply plus recommender opening")
	require.NotNil(t, snap.Completion)
	assert.Equal(t, int64(1), snap.Completion.Count)
	require.NotNil(t, snap.Search)
	assert.Equal(t, int64(1), snap.Search.Count)
}
