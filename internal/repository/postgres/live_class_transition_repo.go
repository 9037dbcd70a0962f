// internal/repository/postgres/live_class_transition_repo.go
package postgres

import (
	"context"
	"fmt"

	"lms-admin-service/internal/domain/liveclass"

	"github.com/jackc/pgx/v5/pgxpool"
)

type LiveClassTransitionRepository struct {
	db *pgxpool.Pool
}

func NewLiveClassTransitionRepository(db *pgxpool.Pool) *LiveClassTransitionRepository {
	return &LiveClassTransitionRepository{db: db}
}

// Create records one status change
func (r *LiveClassTransitionRepository) Create(ctx context.Context, t *liveclass.StatusTransition) error {
	query := `
		INSERT INTO live_class_status_transitions (
			class_id, course_ids, from_status, to_status, source, message
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		t.ClassID, t.CourseIDs, t.FromStatus, t.ToStatus, t.Source, t.Message,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create status transition: %w", err)
	}
	return nil
}

// List retrieves transitions, optionally for one class, newest first
func (r *LiveClassTransitionRepository) List(ctx context.Context, filters *liveclass.TransitionListFilters) ([]liveclass.StatusTransition, int64, error) {
	whereClause := ""
	args := []interface{}{}
	argPos := 1
	if filters.ClassID != "" {
		whereClause = "WHERE class_id = $1"
		args = append(args, filters.ClassID)
		argPos++
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM live_class_status_transitions %s", whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count status transitions: %w", err)
	}

	offset := (filters.Page - 1) * filters.PageSize
	query := fmt.Sprintf(`
		SELECT id, class_id, course_ids, from_status, to_status, source, message, created_at
		FROM live_class_status_transitions
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)
	args = append(args, filters.PageSize, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list status transitions: %w", err)
	}
	defer rows.Close()

	transitions := []liveclass.StatusTransition{}
	for rows.Next() {
		var t liveclass.StatusTransition
		if err := rows.Scan(&t.ID, &t.ClassID, &t.CourseIDs, &t.FromStatus, &t.ToStatus, &t.Source, &t.Message, &t.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan status transition: %w", err)
		}
		transitions = append(transitions, t)
	}

	return transitions, total, rows.Err()
}
