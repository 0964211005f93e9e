package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/examcfg"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/repository"
	"github.com/prepdesk/prepdesk-backend/internal/scoring"
	"github.com/prepdesk/prepdesk-backend/internal/timer"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Session lifecycle errors.
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrNotSessionOwner    = errors.New("session belongs to another student")
	ErrSessionCompleted   = errors.New("session is already completed")
	ErrSectionLocked      = errors.New("section already completed")
	ErrSectionMismatch    = errors.New("question is not in the current section")
	ErrQuestionNotInExam  = errors.New("question does not belong to this exam")
	ErrFinalizeInProgress = errors.New("finalize already in progress")
)

// SessionEvent is pushed to stream subscribers when server-side state
// changes without a client request: timer warnings, forced section
// advances, grading, and proctoring termination.
type SessionEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Session event types.
const (
	EventWarning    = "warning"
	EventSection    = "section"
	EventGraded     = "graded"
	EventTerminated = "terminated"
)

// SectionAdvance is the payload of a section event.
type SectionAdvance struct {
	CompletedSection int `json:"completed_section"`
	CurrentSection   int `json:"current_section"`
	RemainingSeconds int `json:"remaining_seconds"`
}

// LobbyExam is an exam type as shown in the student lobby, overlaid with
// the student's own session if one exists.
type LobbyExam struct {
	examcfg.ExamConfig
	SessionID     *uuid.UUID           `json:"session_id,omitempty"`
	SessionStatus *model.SessionStatus `json:"session_status,omitempty"`
	Score         *float64             `json:"score,omitempty"`
	Percentage    *int                 `json:"percentage,omitempty"`
}

// SessionService is the server-side exam session state machine. It owns
// session creation and resume, the per-session section timers, the answer
// path, the irreversible section advance and the exactly-once finalize.
type SessionService struct {
	cfg          *config.Config
	sessionRepo  *repository.SessionRepository
	questionRepo *repository.QuestionRepository
	responseRepo *repository.ResponseRepository
	rdb          *redis.Client

	mu     sync.Mutex
	timers map[uuid.UUID]*timer.SectionTimer

	subMu       sync.Mutex
	subscribers map[uuid.UUID]map[chan SessionEvent]struct{}

	// finalizeHook runs after a session reaches its final state, letting
	// the proctoring layer release per-session resources without a
	// package cycle. Set once during wiring.
	finalizeHook func(uuid.UUID)
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	cfg *config.Config,
	sessionRepo *repository.SessionRepository,
	questionRepo *repository.QuestionRepository,
	responseRepo *repository.ResponseRepository,
	rdb *redis.Client,
) *SessionService {
	return &SessionService{
		cfg:          cfg,
		sessionRepo:  sessionRepo,
		questionRepo: questionRepo,
		responseRepo: responseRepo,
		rdb:          rdb,
		timers:       make(map[uuid.UUID]*timer.SectionTimer),
		subscribers:  make(map[uuid.UUID]map[chan SessionEvent]struct{}),
	}
}

// SetFinalizeHook registers the post-finalize cleanup callback.
func (s *SessionService) SetFinalizeHook(hook func(uuid.UUID)) {
	s.finalizeHook = hook
}

// Lobby lists every exam type overlaid with the student's session status.
func (s *SessionService) Lobby(ctx context.Context, studentID int) ([]LobbyExam, error) {
	sessions, err := s.sessionRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessionMap := make(map[string]*model.ExamSession, len(sessions))
	for i := range sessions {
		sessionMap[sessions[i].ExamID] = &sessions[i]
	}

	var lobby []LobbyExam
	for _, cfg := range examcfg.All() {
		entry := LobbyExam{ExamConfig: cfg}
		if sess, ok := sessionMap[cfg.ID]; ok {
			entry.SessionID = &sess.ID
			entry.SessionStatus = &sess.Status
			entry.Score = sess.Score
			entry.Percentage = sess.Percentage
		}
		lobby = append(lobby, entry)
	}
	return lobby, nil
}

// Start creates a session for the exam type, or resumes the existing one.
// Idempotent: concurrent starts converge on a single row. Resume backfills
// the hot answer cache from persisted responses and re-arms the section
// timer with the remaining wall-clock time.
func (s *SessionService) Start(ctx context.Context, studentID int, examID string) (*model.ExamSession, error) {
	cfg, err := examcfg.Get(examID)
	if err != nil {
		return nil, ErrUnknownExam
	}

	existing, err := s.sessionRepo.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing session: %w", err)
	}
	if existing != nil {
		if existing.InProgress() {
			if err := s.backfillAnswers(ctx, existing.ID); err != nil {
				log.Warn().Err(err).Str("session_id", existing.ID.String()).Msg("Answer backfill failed")
			}
			s.armTimer(existing, cfg)
		}
		return existing, nil
	}

	session := &model.ExamSession{
		ExamID:    examID,
		StudentID: studentID,
		Status:    model.SessionStatusInProgress,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent start: another request created the row first.
			winner, fetchErr := s.sessionRepo.GetByExamAndStudent(ctx, examID, studentID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent start detected, fetch failed: %w", fetchErr)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.armTimer(session, cfg)
	return session, nil
}

// Paper returns the questions of the session's current section, stripped
// of grading data. Completed sections are never served again.
func (s *SessionService) Paper(ctx context.Context, sessionID uuid.UUID, studentID int) ([]model.QuestionForStudent, error) {
	session, err := s.ownedSession(ctx, sessionID, studentID)
	if err != nil {
		return nil, err
	}
	if !session.InProgress() {
		return nil, ErrSessionCompleted
	}

	questions, err := s.questionRepo.ListBySection(ctx, session.ExamID, session.CurrentSection)
	if err != nil {
		return nil, fmt.Errorf("list section questions: %w", err)
	}

	paper := make([]model.QuestionForStudent, 0, len(questions))
	for _, q := range questions {
		paper = append(paper, q.ForStudent())
	}
	return paper, nil
}

// State is the reload/resume endpoint: session row, server-computed
// remaining section seconds, and the full answer map. A deadline that
// already passed is settled here before the state is returned, so a
// client that slept through expiry still sees consistent state.
func (s *SessionService) State(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.SessionState, error) {
	session, err := s.ownedSession(ctx, sessionID, studentID)
	if err != nil {
		return nil, err
	}

	remaining := 0
	if session.InProgress() {
		cfg, err := examcfg.Get(session.ExamID)
		if err != nil {
			return nil, ErrUnknownExam
		}
		left := s.sectionRemaining(session, cfg)
		if left <= 0 {
			s.settleExpiredSection(ctx, session.ID)
			session, err = s.ownedSession(ctx, sessionID, studentID)
			if err != nil {
				return nil, err
			}
			if session.InProgress() {
				left = s.sectionRemaining(session, cfg)
			} else {
				left = 0
			}
		}
		remaining = int(left.Seconds())
	}

	answers, err := s.answerMap(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	stringMap := make(map[string]int, len(answers))
	for qid, idx := range answers {
		stringMap[qid.String()] = idx
	}

	return &model.SessionState{
		Session:          session,
		RemainingSeconds: remaining,
		Answers:          stringMap,
	}, nil
}

// SaveAnswer records one answer. The question must belong to the exam and
// to the current, not-yet-completed section. The hot write goes to Redis
// (immediately visible on reload); durable persistence is queued for the
// answer worker. Last write wins.
func (s *SessionService) SaveAnswer(ctx context.Context, sessionID uuid.UUID, studentID int, req *model.SaveAnswerRequest) error {
	session, err := s.ownedSession(ctx, sessionID, studentID)
	if err != nil {
		return err
	}
	if !session.InProgress() {
		return ErrSessionCompleted
	}

	question, err := s.questionRepo.GetByID(ctx, req.QuestionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQuestionNotInExam
		}
		return fmt.Errorf("get question: %w", err)
	}
	if question.ExamID != session.ExamID {
		return ErrQuestionNotInExam
	}
	if session.SectionCompleted(question.SectionNumber) {
		return ErrSectionLocked
	}
	if !session.CanAnswer(question.SectionNumber) {
		return ErrSectionMismatch
	}

	// Reject writes past the section deadline even if the timer callback
	// has not landed yet.
	cfg, err := examcfg.Get(session.ExamID)
	if err != nil {
		return ErrUnknownExam
	}
	if s.sectionRemaining(session, cfg) <= 0 {
		s.settleExpiredSection(ctx, session.ID)
		return ErrSectionLocked
	}

	answersKey := config.CacheKey.SessionAnswersKey(sessionID.String())
	if err := s.rdb.HSet(ctx, answersKey, req.QuestionID.String(), *req.SelectedIndex).Err(); err != nil {
		return fmt.Errorf("cache answer: %w", err)
	}

	payload, _ := json.Marshal(model.PersistAnswerPayload{
		SessionID:     sessionID.String(),
		QuestionID:    req.QuestionID.String(),
		SelectedIndex: *req.SelectedIndex,
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResponsesQueue, payload).Err(); err != nil {
		// The answer is already in the hash; grading reads from there.
		log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Answer persist enqueue failed")
	}
	return nil
}

// SectionSummary returns the confirmation ticket shown before the
// irreversible section advance: how many current-section questions are
// still unanswered, and whether this is the final section.
func (s *SessionService) SectionSummary(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.SectionSummary, error) {
	session, err := s.ownedSession(ctx, sessionID, studentID)
	if err != nil {
		return nil, err
	}
	if !session.InProgress() {
		return nil, ErrSessionCompleted
	}

	cfg, err := examcfg.Get(session.ExamID)
	if err != nil {
		return nil, ErrUnknownExam
	}
	section, err := cfg.Section(session.CurrentSection)
	if err != nil {
		return nil, fmt.Errorf("section lookup: %w", err)
	}

	questions, err := s.questionRepo.ListBySection(ctx, session.ExamID, session.CurrentSection)
	if err != nil {
		return nil, fmt.Errorf("list section questions: %w", err)
	}
	answers, err := s.answerMap(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	answered := 0
	for _, q := range questions {
		if _, ok := answers[q.ID]; ok {
			answered++
		}
	}

	return &model.SectionSummary{
		SectionNumber: section.Number,
		SectionName:   section.Name,
		QuestionCount: section.QuestionCount,
		Answered:      answered,
		Unanswered:    section.QuestionCount - answered,
		LastSection:   cfg.LastSection(section.Number),
	}, nil
}

// CompleteSection irreversibly closes the current section. Mid-exam it
// advances the forward-only pointer and re-arms the timer; on the last
// section it finalizes. The same path serves user confirmation and timer
// expiry.
func (s *SessionService) CompleteSection(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.ExamSession, error) {
	session, err := s.ownedSession(ctx, sessionID, studentID)
	if err != nil {
		return nil, err
	}
	return s.completeSection(ctx, session)
}

func (s *SessionService) completeSection(ctx context.Context, session *model.ExamSession) (*model.ExamSession, error) {
	if !session.InProgress() {
		return nil, ErrSessionCompleted
	}

	cfg, err := examcfg.Get(session.ExamID)
	if err != nil {
		return nil, ErrUnknownExam
	}

	if cfg.LastSection(session.CurrentSection) {
		return s.Finalize(ctx, session.ID)
	}

	now := time.Now()
	advanced, err := s.sessionRepo.AdvanceSection(ctx, session.ID, session.CurrentSection, now)
	if err != nil {
		return nil, fmt.Errorf("advance section: %w", err)
	}

	refreshed, err := s.sessionRepo.GetByID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("reload session: %w", err)
	}

	if advanced && refreshed.InProgress() {
		s.armTimer(refreshed, cfg)
		section, secErr := cfg.Section(refreshed.CurrentSection)
		if secErr == nil {
			s.publish(session.ID, SessionEvent{Type: EventSection, Payload: SectionAdvance{
				CompletedSection: session.CurrentSection,
				CurrentSection:   refreshed.CurrentSection,
				RemainingSeconds: section.DurationMinutes * 60,
			}})
		}
	}
	return refreshed, nil
}

// Finalize grades the session and flips it to COMPLETED exactly once.
// A Redis SETNX lock keeps concurrent submits from grading twice; the
// conditional UPDATE in the repository is the final arbiter. Losers read
// and return the winner's persisted result.
func (s *SessionService) Finalize(ctx context.Context, sessionID uuid.UUID) (*model.ExamSession, error) {
	lockKey := config.CacheKey.SessionFinalizeLockKey(sessionID.String())
	locked, err := s.rdb.SetNX(ctx, lockKey, "1", 30*time.Second).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire finalize lock: %w", err)
	}
	if !locked {
		session, fetchErr := s.sessionRepo.GetByID(ctx, sessionID)
		if fetchErr != nil {
			return nil, fmt.Errorf("reload session: %w", fetchErr)
		}
		if !session.InProgress() {
			return session, nil
		}
		return nil, ErrFinalizeInProgress
	}
	defer s.rdb.Del(context.WithoutCancel(ctx), lockKey)

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !session.InProgress() {
		return session, nil
	}

	cfg, err := examcfg.Get(session.ExamID)
	if err != nil {
		return nil, ErrUnknownExam
	}

	questions, err := s.questionRepo.ListByExam(ctx, session.ExamID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	keys := make([]scoring.Key, 0, len(questions))
	for _, q := range questions {
		keys = append(keys, scoring.Key{QuestionID: q.ID, CorrectIndex: q.CorrectIndex})
	}

	answers, err := s.answerMap(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	outcome := scoring.Grade(cfg.Rule, keys, answers)

	applied, err := s.sessionRepo.Finalize(ctx, sessionID, len(cfg.Sections), outcome)
	if err != nil {
		return nil, fmt.Errorf("finalize session: %w", err)
	}

	final, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("reload session: %w", err)
	}

	if applied {
		s.stopTimer(sessionID)
		answersKey := config.CacheKey.SessionAnswersKey(sessionID.String())
		if err := s.rdb.Del(context.WithoutCancel(ctx), answersKey).Err(); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Answer cache cleanup failed")
		}
		if s.finalizeHook != nil {
			s.finalizeHook(sessionID)
		}
		s.publish(sessionID, SessionEvent{Type: EventGraded, Payload: final})
	}
	return final, nil
}

// Terminate force-finalizes a session after a proctoring violation. The
// terminated event goes out first so a connected client learns why the
// exam ended.
func (s *SessionService) Terminate(ctx context.Context, sessionID uuid.UUID) (*model.ExamSession, error) {
	s.publish(sessionID, SessionEvent{Type: EventTerminated})
	return s.Finalize(ctx, sessionID)
}

// Results lists per-student results for one exam type (admin).
func (s *SessionService) Results(ctx context.Context, examID string, page, perPage int) ([]repository.SessionResult, int64, error) {
	if _, err := examcfg.Get(examID); err != nil {
		return nil, 0, ErrUnknownExam
	}
	return s.sessionRepo.ListByExam(ctx, examID, page, perPage)
}

// MySessions lists the student's own sessions.
func (s *SessionService) MySessions(ctx context.Context, studentID int) ([]model.ExamSession, error) {
	return s.sessionRepo.ListByStudent(ctx, studentID)
}

// Subscribe registers a stream listener for one session. Returns the event
// channel and an unsubscribe func. Events are dropped, not queued, when
// the listener falls behind.
func (s *SessionService) Subscribe(sessionID uuid.UUID) (<-chan SessionEvent, func()) {
	ch := make(chan SessionEvent, 8)

	s.subMu.Lock()
	subs, ok := s.subscribers[sessionID]
	if !ok {
		subs = make(map[chan SessionEvent]struct{})
		s.subscribers[sessionID] = subs
	}
	subs[ch] = struct{}{}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if subs, ok := s.subscribers[sessionID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(s.subscribers, sessionID)
			}
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *SessionService) publish(sessionID uuid.UUID, ev SessionEvent) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers[sessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Shutdown stops every running section timer. Remaining time is
// recomputed from section_started_at on the next resume.
func (s *SessionService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// ownedSession loads a session and verifies the caller owns it.
func (s *SessionService) ownedSession(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.ExamSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.StudentID != studentID {
		return nil, ErrNotSessionOwner
	}
	return session, nil
}

// sectionRemaining computes the wall-clock time left in the current
// section from the persisted section start, never below zero.
func (s *SessionService) sectionRemaining(session *model.ExamSession, cfg examcfg.ExamConfig) time.Duration {
	section, err := cfg.Section(session.CurrentSection)
	if err != nil {
		return 0
	}
	deadline := session.SectionStartedAt.Add(time.Duration(section.DurationMinutes) * time.Minute)
	remaining := time.Until(deadline)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// armTimer replaces the session's section timer with one for the current
// section's remaining time. One timer per session; the old instance is
// always stopped so leftover time never carries over.
func (s *SessionService) armTimer(session *model.ExamSession, cfg examcfg.ExamConfig) {
	remaining := s.sectionRemaining(session, cfg)
	sessionID := session.ID

	s.mu.Lock()
	if old, ok := s.timers[sessionID]; ok {
		old.Stop()
	}
	s.timers[sessionID] = timer.Start(timer.Options{
		Duration: remaining,
		WarnAt:   s.cfg.SectionWarning,
		OnWarn: func() {
			s.publish(sessionID, SessionEvent{Type: EventWarning, Payload: map[string]int{
				"remaining_seconds": int(s.cfg.SectionWarning.Seconds()),
			}})
		},
		OnExpire: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			s.settleExpiredSection(ctx, sessionID)
		},
	})
	s.mu.Unlock()
}

func (s *SessionService) stopTimer(sessionID uuid.UUID) {
	s.mu.Lock()
	if t, ok := s.timers[sessionID]; ok {
		t.Stop()
		delete(s.timers, sessionID)
	}
	s.mu.Unlock()
}

// settleExpiredSection runs the expiry path: auto-advance mid-exam,
// finalize on the last section. The advance guard in the repository makes
// a race between timer expiry and a user-initiated advance harmless.
func (s *SessionService) settleExpiredSection(ctx context.Context, sessionID uuid.UUID) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Expiry: session load failed")
		return
	}
	if !session.InProgress() {
		s.stopTimer(sessionID)
		return
	}
	if _, err := s.completeSection(ctx, session); err != nil && !errors.Is(err, ErrSessionCompleted) {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Expiry: section settle failed")
	}
}

// backfillAnswers seeds the Redis answer hash from persisted responses, so
// a resumed session sees its saved answers even after a cache flush.
func (s *SessionService) backfillAnswers(ctx context.Context, sessionID uuid.UUID) error {
	answersKey := config.CacheKey.SessionAnswersKey(sessionID.String())

	size, err := s.rdb.HLen(ctx, answersKey).Result()
	if err != nil {
		return fmt.Errorf("check answer cache: %w", err)
	}
	if size > 0 {
		return nil
	}

	persisted, err := s.responseRepo.MapBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load persisted answers: %w", err)
	}
	if len(persisted) == 0 {
		return nil
	}

	fields := make(map[string]interface{}, len(persisted))
	for qid, idx := range persisted {
		fields[qid.String()] = idx
	}
	return s.rdb.HSet(ctx, answersKey, fields).Err()
}

// answerMap merges persisted responses with the hot Redis hash; the hash
// wins because it always holds the latest write.
func (s *SessionService) answerMap(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]int, error) {
	merged, err := s.responseRepo.MapBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load persisted answers: %w", err)
	}

	answersKey := config.CacheKey.SessionAnswersKey(sessionID.String())
	cached, err := s.rdb.HGetAll(ctx, answersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load cached answers: %w", err)
	}
	for field, value := range cached {
		qid, err := uuid.Parse(field)
		if err != nil {
			continue
		}
		idx, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		merged[qid] = idx
	}
	return merged, nil
}
