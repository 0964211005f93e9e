package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdesk/prepdesk-backend/internal/model"
)

var ErrDuplicateQuestionNumber = errors.New("question number already used in this exam")

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, exam_id, section_number, question_number, prompt, options, correct_index, diagram, created_at, updated_at`

func scanQuestion(row interface{ Scan(...any) error }, q *model.Question) error {
	return row.Scan(&q.ID, &q.ExamID, &q.SectionNumber, &q.QuestionNumber,
		&q.Prompt, &q.Options, &q.CorrectIndex, &q.Diagram, &q.CreatedAt, &q.UpdatedAt)
}

// GetByID retrieves a single question.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	if err := scanQuestion(row, q); err != nil {
		return nil, err
	}
	return q, nil
}

// ListByExam retrieves all questions for an exam type, ordered by question number.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID string) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE exam_id = $1
		 ORDER BY question_number`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListBySection retrieves the questions of one section, ordered by question number.
func (r *QuestionRepository) ListBySection(ctx context.Context, examID string, sectionNumber int) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE exam_id = $1 AND section_number = $2
		 ORDER BY question_number`, examID, sectionNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO questions (exam_id, section_number, question_number, prompt, options, correct_index, diagram)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		q.ExamID, q.SectionNumber, q.QuestionNumber, q.Prompt, q.Options, q.CorrectIndex, q.Diagram,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateQuestionNumber
		}
		return err
	}
	return nil
}

// Update modifies an existing question.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE questions
		 SET prompt = $1, options = $2, correct_index = $3, diagram = $4, updated_at = NOW()
		 WHERE id = $5`,
		q.Prompt, q.Options, q.CorrectIndex, q.Diagram, q.ID)
	return err
}

// Delete removes a question.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}

// CountByExam returns the number of authored questions per exam type.
func (r *QuestionRepository) CountByExam(ctx context.Context, examID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE exam_id = $1`, examID).Scan(&count)
	return count, err
}
