package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/examcfg"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/proctor"
	"github.com/prepdesk/prepdesk-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Focus-loss signals accepted from the client. A browser reports one real
// event as blur and/or a visibility change; fullscreen_denied is recorded
// for the audit trail but never counted.
const (
	SignalBlur             = "blur"
	SignalVisibilityHidden = "visibility_hidden"
	SignalFullscreenDenied = "fullscreen_denied"
)

// ErrUnknownSignal is returned for unrecognized focus-loss signals.
var ErrUnknownSignal = errors.New("unknown proctoring signal")

// FocusLossResult is returned to the client after each reported signal so
// it can show the blocking warning or the termination screen.
type FocusLossResult struct {
	Counted    bool `json:"counted"`
	Count      int  `json:"count"`
	Remaining  int  `json:"remaining"`
	Terminated bool `json:"terminated"`
}

// MonitorEvent is published on the exam's monitor channel for the admin
// live feed.
type MonitorEvent struct {
	Type      string    `json:"type"`
	SessionID uuid.UUID `json:"session_id"`
	StudentID int       `json:"student_id"`
	Signal    string    `json:"signal,omitempty"`
	Count     int       `json:"count,omitempty"`
	At        time.Time `json:"at"`
}

// ProctorService maintains one proctoring monitor per in-progress session.
// Counts are persisted on every increment and restored from the session
// row, so reconnects and restarts cannot reset the infraction budget.
type ProctorService struct {
	cfg         *config.Config
	sessionRepo *repository.SessionRepository
	sessions    *SessionService
	rdb         *redis.Client

	mu       sync.Mutex
	monitors map[uuid.UUID]*proctor.Monitor
}

// NewProctorService creates a new ProctorService.
func NewProctorService(
	cfg *config.Config,
	sessionRepo *repository.SessionRepository,
	sessions *SessionService,
	rdb *redis.Client,
) *ProctorService {
	return &ProctorService{
		cfg:         cfg,
		sessionRepo: sessionRepo,
		sessions:    sessions,
		rdb:         rdb,
		monitors:    make(map[uuid.UUID]*proctor.Monitor),
	}
}

// RecordFocusLoss processes one focus-loss signal for a session. Signals
// on non-proctored exams and on finished sessions are ignored. When the
// infraction limit is reached the session is force-finalized exactly once.
func (s *ProctorService) RecordFocusLoss(ctx context.Context, sessionID uuid.UUID, studentID int, signal string) (*FocusLossResult, error) {
	switch signal {
	case SignalBlur, SignalVisibilityHidden, SignalFullscreenDenied:
	default:
		return nil, ErrUnknownSignal
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.StudentID != studentID {
		return nil, ErrNotSessionOwner
	}

	cfg, err := examcfg.Get(session.ExamID)
	if err != nil {
		return nil, ErrUnknownExam
	}
	if !cfg.Proctored || !session.InProgress() {
		return &FocusLossResult{Count: session.InfractionCount}, nil
	}

	now := time.Now()

	// Audit-only signal: queued, never counted.
	if signal == SignalFullscreenDenied {
		s.enqueueEvent(ctx, sessionID, signal, now)
		return &FocusLossResult{Count: session.InfractionCount, Remaining: s.remaining(session.InfractionCount)}, nil
	}

	monitor := s.monitorFor(sessionID, session.InfractionCount)
	res := monitor.RecordFocusLoss(now)

	if res.Counted {
		if count, err := s.sessionRepo.IncrementInfractions(ctx, sessionID); err != nil {
			log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Infraction persist failed")
		} else {
			res.Count = count
		}
		s.enqueueEvent(ctx, sessionID, signal, now)
		s.publishMonitor(ctx, session, MonitorEvent{
			Type:      "infraction",
			SessionID: sessionID,
			StudentID: session.StudentID,
			Signal:    signal,
			Count:     res.Count,
			At:        now,
		})
	}

	if res.Terminated {
		s.publishMonitor(ctx, session, MonitorEvent{
			Type:      "terminated",
			SessionID: sessionID,
			StudentID: session.StudentID,
			Count:     res.Count,
			At:        now,
		})
		if _, err := s.sessions.Terminate(ctx, sessionID); err != nil {
			log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Forced finalize failed")
		}
	}

	return &FocusLossResult{
		Counted:    res.Counted,
		Count:      res.Count,
		Remaining:  res.Remaining,
		Terminated: res.Terminated,
	}, nil
}

// Forget drops the in-memory monitor for a finished session.
func (s *ProctorService) Forget(sessionID uuid.UUID) {
	s.mu.Lock()
	delete(s.monitors, sessionID)
	s.mu.Unlock()
}

// monitorFor returns the session's monitor, creating and seeding it from
// the persisted count on first use.
func (s *ProctorService) monitorFor(sessionID uuid.UUID, persistedCount int) *proctor.Monitor {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.monitors[sessionID]
	if !ok {
		m = proctor.NewMonitor(s.cfg.InfractionLimit, s.cfg.InfractionDebounce)
		m.Restore(persistedCount)
		s.monitors[sessionID] = m
	}
	return m
}

func (s *ProctorService) remaining(count int) int {
	remaining := s.cfg.InfractionLimit - count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// enqueueEvent pushes the raw event onto the infraction queue for the
// batch worker. Best-effort: the counter on the session row is the source
// of truth, the audit table is advisory.
func (s *ProctorService) enqueueEvent(ctx context.Context, sessionID uuid.UUID, signal string, at time.Time) {
	payload, _ := json.Marshal(model.PersistInfractionPayload{
		SessionID: sessionID.String(),
		Signal:    signal,
		Timestamp: at.Unix(),
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistInfractionsQueue, payload).Err(); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Infraction enqueue failed")
	}
}

// publishMonitor fans the event out to the exam's admin live feed.
func (s *ProctorService) publishMonitor(ctx context.Context, session *model.ExamSession, ev MonitorEvent) {
	data, _ := json.Marshal(ev)
	channel := config.CacheKey.ExamMonitorChannel(session.ExamID)
	if err := s.rdb.Publish(ctx, channel, data).Err(); err != nil {
		log.Warn().Err(err).Str("exam_id", session.ExamID).Msg("Monitor publish failed")
	}
}
