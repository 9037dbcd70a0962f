// internal/repository/postgres/installment_submission_repo.go
package postgres

import (
	"context"
	"fmt"
	"strings"

	"lms-admin-service/internal/domain/installment"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InstallmentSubmissionRepository struct {
	db *pgxpool.Pool
}

func NewInstallmentSubmissionRepository(db *pgxpool.Pool) *InstallmentSubmissionRepository {
	return &InstallmentSubmissionRepository{db: db}
}

// CreateBatch records the outcome of every row of one submit in a single transaction
func (r *InstallmentSubmissionRepository) CreateBatch(ctx context.Context, submissions []*installment.Submission) error {
	if len(submissions) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, s := range submissions {
		if err := r.createWithTx(ctx, tx, s); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *InstallmentSubmissionRepository) createWithTx(ctx context.Context, tx pgx.Tx, s *installment.Submission) error {
	query := `
		INSERT INTO installment_submissions (
			session_id, course_id, validity_id, plan_type, number_of_installments,
			price, discount, status, failure_reason, submitted_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err := tx.QueryRow(
		ctx, query,
		s.SessionID, s.CourseID, s.ValidityID, s.PlanType, s.NumberOfInstallments,
		s.Price, s.Discount, s.Status, s.FailureReason, s.SubmittedBy,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create installment submission: %w", err)
	}
	return nil
}

// List retrieves submissions with filters, newest first
func (r *InstallmentSubmissionRepository) List(ctx context.Context, filters *installment.SubmissionListFilters) ([]installment.Submission, int64, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filters.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", argPos))
		args = append(args, filters.CourseID)
		argPos++
	}

	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, filters.Status)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM installment_submissions %s", whereClause)
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count installment submissions: %w", err)
	}

	offset := (filters.Page - 1) * filters.PageSize
	query := fmt.Sprintf(`
		SELECT id, session_id, course_id, validity_id, plan_type, number_of_installments,
		       price, discount, status, failure_reason, submitted_by, created_at
		FROM installment_submissions
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)
	args = append(args, filters.PageSize, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list installment submissions: %w", err)
	}
	defer rows.Close()

	submissions := []installment.Submission{}
	for rows.Next() {
		var s installment.Submission
		err := rows.Scan(
			&s.ID, &s.SessionID, &s.CourseID, &s.ValidityID, &s.PlanType, &s.NumberOfInstallments,
			&s.Price, &s.Discount, &s.Status, &s.FailureReason, &s.SubmittedBy, &s.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan installment submission: %w", err)
		}
		submissions = append(submissions, s)
	}

	return submissions, total, rows.Err()
}
