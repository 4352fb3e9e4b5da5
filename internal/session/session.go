package session

import (
	"context"
	"sync"
	"time"

	"github.com/raine/ecg-analyzer/internal/capture"
	"github.com/raine/ecg-analyzer/internal/ecg"
	"github.com/rs/zerolog/log"
)

// Message types handled by the session worker.
const (
	MsgAnalyze = "analyze"
)

// Message represents a job to be processed by the session worker.
type Message struct {
	Type string
	Ctx  context.Context
	Done chan struct{} // Closed when processing is complete (for synchronous dispatch)

	// Analysis job data
	Epoch uint64
	Image *capture.Image
}

// MessageHandler processes session messages on the worker goroutine.
type MessageHandler interface {
	HandleSessionMessage(ctx context.Context, session *Session, msg Message)
}

// View is an immutable snapshot of a session, safe to use without locks.
type View struct {
	ID            string
	Image         *capture.Image
	PreviewHandle string
	State         State
	Epoch         uint64
}

// Phase derives the UI phase from the snapshot.
func (v View) Phase() Phase {
	switch v.State.(type) {
	case Loading:
		return PhaseAnalyzing
	case Present:
		return PhaseSucceeded
	case Failed:
		return PhaseFailed
	}
	if v.Image != nil {
		return PhaseFileSelected
	}
	return PhaseIdle
}

// Loading reports whether an analysis is in flight.
func (v View) Loading() bool {
	_, ok := v.State.(Loading)
	return ok
}

// Result returns the analysis result, or nil unless the state is Present.
func (v View) Result() *ecg.AnalysisResult {
	if p, ok := v.State.(Present); ok {
		return p.Result
	}
	return nil
}

// Err returns the failure, or nil unless the state is Failed.
func (v View) Err() error {
	if f, ok := v.State.(Failed); ok {
		return f.Err
	}
	return nil
}

// Session is the per-browser UI state.
//
// Threading model:
//   - HTTP handlers mutate state through the locked methods below
//   - Analysis jobs run sequentially on a dedicated worker goroutine and
//     report back through finish, which drops results from a stale epoch
//   - The epoch is bumped on every selection and reset, so a completion can
//     never resurrect state the user has already moved past
type Session struct {
	id       string
	previews *PreviewRegistry
	now      func() time.Time

	mu       sync.Mutex
	image    *capture.Image
	preview  string
	state    State
	epoch    uint64
	lastSeen time.Time

	// Worker channel for sequential job processing
	inbox   chan Message
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	handler MessageHandler
}

func newSession(id string, previews *PreviewRegistry, now func() time.Time) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:       id,
		previews: previews,
		now:      now,
		state:    Absent{},
		lastSeen: now(),
		inbox:    make(chan Message, 10),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// View returns a snapshot of the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		ID:            s.id,
		Image:         s.image,
		PreviewHandle: s.preview,
		State:         s.state,
		Epoch:         s.epoch,
	}
}

// SelectImage makes img the current image. The previous preview handle is
// revoked and any result or error is cleared.
func (s *Session) SelectImage(img *capture.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews.Revoke(s.preview)
	s.preview = s.previews.Create(s.id, img)
	s.image = img
	s.state = Absent{}
	s.epoch++
	s.lastSeen = s.now()

	log.Info().
		Str("session", s.id).
		Str("name", img.Name).
		Str("mimeType", img.MIMEType).
		Int64("size", img.Size()).
		Msg("image selected")
}

// BeginAnalysis moves the session into Loading and returns the epoch and
// image the job must be run with. Without an image the session moves into
// Failed with ErrMissingInput.
func (s *Session) BeginAnalysis() (uint64, *capture.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()

	if _, ok := s.state.(Loading); ok {
		return 0, nil, ErrAnalysisInProgress
	}
	if s.image == nil {
		s.state = Failed{Err: ErrMissingInput}
		return 0, nil, ErrMissingInput
	}
	s.state = Loading{Since: s.now()}
	return s.epoch, s.image, nil
}

// Reset clears the image, its preview and any result or error.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews.Revoke(s.preview)
	s.preview = ""
	s.image = nil
	s.state = Absent{}
	s.epoch++
	s.lastSeen = s.now()
	log.Info().Str("session", s.id).Msg("reset session")
}

// finish records the outcome of the job started at epoch. It reports
// whether the outcome was applied.
func (s *Session) finish(epoch uint64, result *ecg.AnalysisResult, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		log.Info().
			Str("session", s.id).
			Uint64("jobEpoch", epoch).
			Uint64("epoch", s.epoch).
			Msg("discarding stale analysis result")
		return false
	}
	if _, ok := s.state.(Loading); !ok {
		return false
	}

	if err != nil {
		s.state = Failed{Err: err}
	} else {
		s.state = Present{Result: result}
	}
	return true
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()
}

// idleSince returns the last activity time and whether a job is in flight.
func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, loading := s.state.(Loading)
	return s.lastSeen, loading
}

// release revokes the preview handle. Called when the session is evicted.
func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews.Revoke(s.preview)
	s.preview = ""
	s.image = nil
}

// --- Worker methods ---

// StartWorker starts the session's job processing goroutine.
// Must be called after setting the handler.
func (s *Session) StartWorker() {
	s.wg.Add(1)
	go s.runWorker()
}

// SetHandler sets the message handler for this session.
func (s *Session) SetHandler(handler MessageHandler) {
	s.handler = handler
}

func (s *Session) runWorker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			// Drain any remaining messages and signal completion
			for {
				select {
				case msg := <-s.inbox:
					if msg.Done != nil {
						close(msg.Done)
					}
				default:
					return
				}
			}
		case msg := <-s.inbox:
			s.processMessage(msg)
		}
	}
}

func (s *Session) processMessage(msg Message) {
	defer func() {
		// Recover from any panics to keep the worker running
		if r := recover(); r != nil {
			log.Error().
				Str("session", s.id).
				Interface("panic", r).
				Msg("recovered from panic in session worker")
			if msg.Type == MsgAnalyze {
				s.finish(msg.Epoch, nil, ErrInternal)
			}
		}
		if msg.Done != nil {
			close(msg.Done)
		}
	}()

	if s.handler == nil {
		log.Error().Str("session", s.id).Msg("session handler not set")
		if msg.Type == MsgAnalyze {
			s.finish(msg.Epoch, nil, ErrInternal)
		}
		return
	}

	ctx := msg.Ctx
	if ctx == nil {
		ctx = s.ctx
	}
	s.handler.HandleSessionMessage(ctx, s, msg)
}

// Send queues a message for processing by the worker.
// This is non-blocking - it returns immediately after queuing.
func (s *Session) Send(msg Message) {
	select {
	case s.inbox <- msg:
	case <-s.ctx.Done():
		if msg.Done != nil {
			close(msg.Done)
		}
	}
}

// SendSync queues a message and waits for it to be processed.
func (s *Session) SendSync(msg Message) {
	msg.Done = make(chan struct{})
	s.Send(msg)
	<-msg.Done
}

// Stop stops the worker and waits for it to finish. Any in-flight job's
// context is canceled.
func (s *Session) Stop() {
	s.cancel()
	s.wg.Wait()
}
