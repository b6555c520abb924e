package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

// CreateComplaint stores a complaint against an existing infraction.
func (s *queries) CreateComplaint(ctx context.Context, c *model.Complaint) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateComplaint(c); err != nil {
		return err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	result, err := s.q.ExecContext(ctx, `
		INSERT INTO complaints (infraction_id, account_id, code, subject, email, message, resolved, created_at)
		SELECT id, ?, ?, ?, ?, ?, ?, ? FROM infractions WHERE id = ?`,
		c.AccountID, c.Code, c.Subject, strings.TrimSpace(c.Email), strings.TrimSpace(c.Message),
		c.Resolved, c.CreatedAt, c.InfractionID,
	)
	if err != nil {
		return fmt.Errorf("failed to create complaint: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return common.NotFoundf("infraction %d", c.InfractionID)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get complaint ID: %w", err)
	}
	c.ID = id

	return nil
}

// ListComplaints returns complaints, newest first.
func (s *queries) ListComplaints(ctx context.Context, filter model.ComplaintFilter) ([]model.Complaint, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, infraction_id, account_id, code, subject, email, message, resolved, created_at
		FROM complaints
		WHERE 1 = 1`
	var args []any
	if filter.InfractionID > 0 {
		query += ` AND infraction_id = ?`
		args = append(args, filter.InfractionID)
	}
	if filter.OpenOnly {
		query += ` AND resolved = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query complaints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var complaints []model.Complaint
	for rows.Next() {
		var c model.Complaint
		if err := rows.Scan(&c.ID, &c.InfractionID, &c.AccountID, &c.Code, &c.Subject,
			&c.Email, &c.Message, &c.Resolved, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan complaint: %w", err)
		}
		complaints = append(complaints, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating complaints: %w", err)
	}

	return complaints, nil
}

// ResolveComplaint marks a complaint as handled.
func (s *queries) ResolveComplaint(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.q.ExecContext(ctx, `UPDATE complaints SET resolved = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to resolve complaint: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return common.NotFoundf("complaint %d", id)
	}
	return nil
}
