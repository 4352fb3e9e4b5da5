package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raine/ecg-analyzer/internal/capture"
	"github.com/raine/ecg-analyzer/internal/ecg"
	"github.com/raine/ecg-analyzer/internal/llm"
	"github.com/rs/zerolog/log"
)

// DefaultTTL is how long an idle session is kept before the janitor evicts it.
const DefaultTTL = 30 * time.Minute

// Store owns all live sessions, their preview handles and the analyzer the
// session workers call.
type Store struct {
	analyzer llm.Analyzer
	previews *PreviewRegistry
	ttl      time.Duration
	now      func() time.Time

	// syncDispatch makes StartAnalysis wait for the job to finish.
	syncDispatch bool

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates a store. A zero ttl means DefaultTTL.
func NewStore(analyzer llm.Analyzer, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		analyzer: analyzer,
		previews: NewPreviewRegistry(),
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// SetSyncDispatch makes StartAnalysis block until the analysis has finished.
// Used by tests, where there is nothing to poll.
func (st *Store) SetSyncDispatch(enabled bool) {
	st.syncDispatch = enabled
}

// Previews returns the preview handle registry.
func (st *Store) Previews() *PreviewRegistry {
	return st.previews
}

// TTL returns the idle timeout for sessions.
func (st *Store) TTL() time.Duration {
	return st.ttl
}

// Get returns the session for id if it exists, marking it as active.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	session, ok := st.sessions[id]
	st.mu.Unlock()
	if ok {
		session.touch()
	}
	return session, ok
}

// GetOrCreate returns the session for id, creating it if needed. An empty
// id gets a fresh random one.
func (st *Store) GetOrCreate(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if session, ok := st.sessions[id]; ok {
		session.touch()
		return session
	}

	session := newSession(id, st.previews, st.now)
	session.SetHandler(st)
	session.StartWorker()
	st.sessions[id] = session
	log.Info().Str("session", id).Int("sessions", len(st.sessions)).Msg("new session created")
	return session
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// StartAnalysis begins an analysis for the session and queues the job on its
// worker. ErrMissingInput and ErrAnalysisInProgress are returned without
// queuing anything.
func (st *Store) StartAnalysis(s *Session) error {
	epoch, img, err := s.BeginAnalysis()
	if err != nil {
		if errors.Is(err, ErrMissingInput) {
			log.Info().Str("session", s.id).Msg("analysis requested without image")
		}
		return err
	}

	msg := Message{Type: MsgAnalyze, Epoch: epoch, Image: img}
	if st.syncDispatch {
		s.SendSync(msg)
	} else {
		s.Send(msg)
	}
	return nil
}

// HandleSessionMessage implements MessageHandler. It runs on the session's
// worker goroutine.
func (st *Store) HandleSessionMessage(ctx context.Context, s *Session, msg Message) {
	switch msg.Type {
	case MsgAnalyze:
		st.runAnalysis(ctx, s, msg)
	default:
		log.Warn().Str("session", s.id).Str("type", msg.Type).Msg("unknown session message")
	}
}

func (st *Store) runAnalysis(ctx context.Context, s *Session, msg Message) {
	start := st.now()
	b64, err := msg.Image.Base64()
	if err != nil {
		log.Error().Err(err).Str("session", s.id).Msg("failed to encode image")
		s.finish(msg.Epoch, nil, err)
		return
	}

	result, err := st.analyzer.Analyze(ctx, b64, msg.Image.MIMEType)
	applied := s.finish(msg.Epoch, result, err)

	event := log.Info()
	if err != nil {
		event = log.Warn().Err(err)
	}
	event.
		Str("session", s.id).
		Dur("duration", st.now().Sub(start)).
		Bool("applied", applied).
		Msg("analysis finished")
}

// Analyze runs a one-off analysis outside of any session. Used by the JSON
// API.
func (st *Store) Analyze(ctx context.Context, img *capture.Image) (*ecg.AnalysisResult, error) {
	b64, err := img.Base64()
	if err != nil {
		return nil, err
	}
	return st.analyzer.Analyze(ctx, b64, img.MIMEType)
}

// Sweep evicts sessions idle for longer than the TTL. Sessions with an
// analysis in flight are kept. It returns the number of evicted sessions.
func (st *Store) Sweep() int {
	cutoff := st.now().Add(-st.ttl)

	st.mu.Lock()
	var evicted []*Session
	for id, session := range st.sessions {
		lastSeen, loading := session.idleSince()
		if loading || lastSeen.After(cutoff) {
			continue
		}
		delete(st.sessions, id)
		evicted = append(evicted, session)
	}
	remaining := len(st.sessions)
	st.mu.Unlock()

	// Stop workers outside the lock to avoid blocking
	for _, session := range evicted {
		session.release()
		session.Stop()
	}
	if len(evicted) > 0 {
		log.Info().Int("evicted", len(evicted)).Int("remaining", remaining).Msg("evicted idle sessions")
	}
	return len(evicted)
}

// Shutdown stops all session workers gracefully.
func (st *Store) Shutdown() {
	st.mu.Lock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, session := range st.sessions {
		sessions = append(sessions, session)
	}
	st.mu.Unlock()

	for _, session := range sessions {
		session.Stop()
	}
	log.Info().Int("count", len(sessions)).Msg("stopped all session workers")
}
