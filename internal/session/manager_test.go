package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/jobpilot/internal/resume"
	"github.com/kalambet/jobpilot/internal/storage"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestManager(t *testing.T, store Store) *Manager {
	t.Helper()
	m := NewManagerWithClock(store, fixedClock{now: time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)})
	t.Cleanup(m.Shutdown)
	return m
}

func insights(title string) *resume.Insights {
	return &resume.Insights{
		CareerRecommendations: []resume.Recommendation{{JobTitle: title, MatchScore: 75, RequiredSkills: []string{"Go"}}},
		CurrentProfile:        resume.CurrentProfile{KeySkills: []string{"Go", "SQL"}, ExperienceSummary: "Backend engineer."},
		DevelopmentAreas:      resume.DevelopmentAreas{ImprovementAreas: []string{"Kubernetes"}},
		CareerContext:         resume.CareerContext{Objectives: "Platform work"},
	}
}

func TestCreateStartsEmpty(t *testing.T) {
	m := newTestManager(t, openStore(t))

	s, err := m.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Nil(t, s.ResumeInsights())
	assert.False(t, s.HasResume())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestGetUnknown(t *testing.T) {
	m := newTestManager(t, openStore(t))
	_, err := m.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	mem := newTestManager(t, nil)
	_, err = mem.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplaceInsights_FinalizesAndIsolates(t *testing.T) {
	m := newTestManager(t, openStore(t))
	s, err := m.Create()
	require.NoError(t, err)

	in := insights("Backend Engineer")
	require.NoError(t, m.ReplaceInsights(s.ID(), "r1", in))

	got := s.ResumeInsights()
	require.NotNil(t, got)
	assert.Equal(t, resume.QualityComplete, got.Metadata.AnalysisQuality)
	assert.Equal(t, time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC), got.Metadata.LastUpdated)

	// Neither the caller's value nor a reader's copy can reach the stored one.
	in.CareerRecommendations[0].JobTitle = "mutated"
	got.CurrentProfile.KeySkills[0] = "mutated"
	again := s.ResumeInsights()
	assert.Equal(t, "Backend Engineer", again.CareerRecommendations[0].JobTitle)
	assert.Equal(t, "Go", again.CurrentProfile.KeySkills[0])
}

func TestReplaceInsights_InvalidKeepsPrevious(t *testing.T) {
	m := newTestManager(t, openStore(t))
	s, err := m.Create()
	require.NoError(t, err)
	require.NoError(t, m.ReplaceInsights(s.ID(), "r1", insights("First")))

	bad := insights("Second")
	bad.CareerRecommendations[0].MatchScore = 140
	err = m.ReplaceInsights(s.ID(), "r2", bad)
	assert.ErrorIs(t, err, resume.ErrInvalid)

	inconsistent := insights("Third")
	inconsistent.CareerContext = resume.CareerContext{}
	inconsistent.Metadata = resume.Metadata{AnalysisQuality: resume.QualityComplete, LastUpdated: time.Now()}
	assert.ErrorIs(t, m.ReplaceInsights(s.ID(), "r3", inconsistent), resume.ErrInvalid)

	assert.Equal(t, "First", s.ResumeInsights().CareerRecommendations[0].JobTitle)
	assert.ErrorIs(t, m.ReplaceInsights(s.ID(), "r4", nil), resume.ErrInvalid)
}

func TestReplaceInsights_UnknownSession(t *testing.T) {
	m := newTestManager(t, openStore(t))
	assert.ErrorIs(t, m.ReplaceInsights("missing", "r1", insights("X")), ErrNotFound)
}

func TestRehydrateFromStore(t *testing.T) {
	store := openStore(t)
	first := NewManager(store)
	s, err := first.Create()
	require.NoError(t, err)
	require.NoError(t, first.ReplaceInsights(s.ID(), "r1", insights("Data Engineer")))
	first.Shutdown()

	second := newTestManager(t, store)
	got, err := second.Get(s.ID())
	require.NoError(t, err)
	require.True(t, got.HasResume())
	assert.Equal(t, "Data Engineer", got.ResumeInsights().CareerRecommendations[0].JobTitle)
}

func TestClose(t *testing.T) {
	store := openStore(t)
	m := newTestManager(t, store)
	s, err := m.Create()
	require.NoError(t, err)

	require.NoError(t, m.Close(s.ID()))
	_, err = m.Get(s.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Close(s.ID()), ErrNotFound)

	err = s.Do(context.Background(), func(context.Context) {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDo_RunsInArrivalOrder(t *testing.T) {
	m := newTestManager(t, nil)
	s, err := m.Create()
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	var order []int
	var mu sync.Mutex

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Do(context.Background(), func(context.Context) {
			close(started)
			<-release
			mu.Lock()
			order = append(order, 0)
			mu.Unlock()
		})
	}()
	<-started

	// Enqueue the rest one by one so arrival order is well defined.
	for i := 1; i <= 5; i++ {
		i := i
		queued := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			close(queued)
			_ = s.Do(context.Background(), func(context.Context) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
			})
		}()
		<-queued
		time.Sleep(10 * time.Millisecond)
	}

	close(release)
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, order)
}

func TestDo_CancelledBeforeRun(t *testing.T) {
	m := newTestManager(t, nil)
	s, err := m.Create()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	err = s.Do(ctx, func(context.Context) { ran = true })
	assert.ErrorIs(t, err, context.Canceled)

	// A later turn still runs, proving the worker is alive.
	require.NoError(t, s.Do(context.Background(), func(context.Context) {}))
	assert.False(t, ran)
}

func TestDo_RecoversPanic(t *testing.T) {
	m := newTestManager(t, nil)
	s, err := m.Create()
	require.NoError(t, err)

	require.NoError(t, s.Do(context.Background(), func(context.Context) { panic("boom") }))
	require.NoError(t, s.Do(context.Background(), func(context.Context) {}))
}

func TestConcurrentReadersSeeWholeValues(t *testing.T) {
	m := newTestManager(t, nil)
	s, err := m.Create()
	require.NoError(t, err)
	require.NoError(t, m.ReplaceInsights(s.ID(), "", insights("A")))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				in := s.ResumeInsights()
				title := in.CareerRecommendations[0].JobTitle
				if title != "A" && title != "B" {
					t.Errorf("unexpected title %q", title)
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		title := "A"
		if i%2 == 0 {
			title = "B"
		}
		require.NoError(t, m.ReplaceInsights(s.ID(), "", insights(title)))
	}
	close(stop)
	wg.Wait()
}
