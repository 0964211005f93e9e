package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/scoring"
)

// SessionResult combines student data with their session details, for the
// admin results listing.
type SessionResult struct {
	SessionID   uuid.UUID           `json:"session_id"`
	StudentID   int                 `json:"student_id"`
	Name        string              `json:"name"`
	Email       string              `json:"email"`
	Status      model.SessionStatus `json:"status"`
	Score       *float64            `json:"score"`
	Percentage  *int                `json:"percentage"`
	Infractions int                 `json:"infractions"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  *time.Time          `json:"finished_at"`
}

// SessionRepository handles exam session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, exam_id, student_id, current_section, completed_sections,
	section_started_at, status, infraction_count,
	correct_count, wrong_count, skipped_count, score, percentage,
	started_at, finished_at`

func scanSession(row interface{ Scan(...any) error }, s *model.ExamSession) error {
	return row.Scan(&s.ID, &s.ExamID, &s.StudentID, &s.CurrentSection, &s.CompletedSections,
		&s.SectionStartedAt, &s.Status, &s.InfractionCount,
		&s.CorrectCount, &s.WrongCount, &s.SkippedCount, &s.Score, &s.Percentage,
		&s.StartedAt, &s.FinishedAt)
}

// GetByID retrieves a session.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id)
	if err := scanSession(row, s); err != nil {
		return nil, err
	}
	return s, nil
}

// GetByExamAndStudent retrieves the session for an exam-student pair.
func (r *SessionRepository) GetByExamAndStudent(ctx context.Context, examID string, studentID int) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID)
	if err := scanSession(row, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new session starting at section 1. ON CONFLICT DO
// NOTHING makes concurrent starts race-safe: the loser gets pgx.ErrNoRows
// and should fetch the winner's row.
func (r *SessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (exam_id, student_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (exam_id, student_id) DO NOTHING
		 RETURNING id, current_section, completed_sections, section_started_at, started_at`,
		s.ExamID, s.StudentID, model.SessionStatusInProgress,
	).Scan(&s.ID, &s.CurrentSection, &s.CompletedSections, &s.SectionStartedAt, &s.StartedAt)
}

// AdvanceSection appends fromSection to the completed list and moves the
// pointer forward, guarded so the pointer can only ever move from the
// expected section and only while in progress. Returns false when the
// guard failed (already advanced, or session finished).
func (r *SessionRepository) AdvanceSection(ctx context.Context, id uuid.UUID, fromSection int, startedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET current_section = current_section + 1,
		     completed_sections = array_append(completed_sections, $2),
		     section_started_at = $3
		 WHERE id = $1 AND status = $4 AND current_section = $2`,
		id, fromSection, startedAt, model.SessionStatusInProgress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// IncrementInfractions bumps the persisted infraction counter and returns
// the new total. Persisting per increment means a reload cannot reset the
// anti-cheating budget.
func (r *SessionRepository) IncrementInfractions(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET infraction_count = infraction_count + 1
		 WHERE id = $1 AND status = $2
		 RETURNING infraction_count`,
		id, model.SessionStatusInProgress).Scan(&count)
	return count, err
}

// Finalize writes the outcome and flips the session to COMPLETED. The
// WHERE status guard makes the database the idempotency arbiter: only one
// caller can ever observe applied == true.
func (r *SessionRepository) Finalize(ctx context.Context, id uuid.UUID, lastSection int, out scoring.Outcome) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $2,
		     completed_sections = CASE
		         WHEN $3 = ANY(completed_sections) THEN completed_sections
		         ELSE array_append(completed_sections, $3)
		     END,
		     correct_count = $4, wrong_count = $5, skipped_count = $6,
		     score = $7, percentage = $8,
		     finished_at = NOW()
		 WHERE id = $1 AND status = $9`,
		id, model.SessionStatusCompleted, lastSection,
		out.Correct, out.Wrong, out.Skipped, out.Score, out.Percentage,
		model.SessionStatusInProgress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListByStudent retrieves all sessions for a given student.
func (r *SessionRepository) ListByStudent(ctx context.Context, studentID int) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE student_id = $1
		 ORDER BY started_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		var s model.ExamSession
		if err := scanSession(rows, &s); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ListByExam retrieves paginated per-student results for one exam type.
func (r *SessionRepository) ListByExam(ctx context.Context, examID string, page, perPage int) ([]SessionResult, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_sessions WHERE exam_id = $1`, examID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT es.id, s.id, s.name, s.email, es.status, es.score, es.percentage,
		        es.infraction_count, es.started_at, es.finished_at
		 FROM exam_sessions es
		 JOIN students s ON es.student_id = s.id
		 WHERE es.exam_id = $1
		 ORDER BY es.started_at DESC
		 LIMIT $2 OFFSET $3`, examID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []SessionResult
	for rows.Next() {
		var res SessionResult
		if err := rows.Scan(&res.SessionID, &res.StudentID, &res.Name, &res.Email,
			&res.Status, &res.Score, &res.Percentage,
			&res.Infractions, &res.StartedAt, &res.FinishedAt); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}
