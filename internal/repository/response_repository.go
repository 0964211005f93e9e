package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdesk/prepdesk-backend/internal/model"
)

// ResponseRepository handles answer persistence.
type ResponseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository creates a new ResponseRepository.
func NewResponseRepository(pool *pgxpool.Pool) *ResponseRepository {
	return &ResponseRepository{pool: pool}
}

// Upsert writes an answer, last write wins on (session_id, question_id).
func (r *ResponseRepository) Upsert(ctx context.Context, sessionID, questionID uuid.UUID, selectedIndex int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO responses (session_id, question_id, selected_index)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (session_id, question_id) DO UPDATE
		 SET selected_index = EXCLUDED.selected_index, updated_at = NOW()`,
		sessionID, questionID, selectedIndex)
	return err
}

// ListBySession retrieves all persisted answers for a session.
func (r *ResponseRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Response, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, question_id, selected_index, updated_at
		 FROM responses WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []model.Response
	for rows.Next() {
		var resp model.Response
		if err := rows.Scan(&resp.SessionID, &resp.QuestionID, &resp.SelectedIndex, &resp.UpdatedAt); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

// MapBySession retrieves persisted answers as a question-id -> index map.
func (r *ResponseRepository) MapBySession(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]int, error) {
	responses, err := r.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	m := make(map[uuid.UUID]int, len(responses))
	for _, resp := range responses {
		m[resp.QuestionID] = resp.SelectedIndex
	}
	return m, nil
}
