package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

// SaveNotification stores a message for an account.
func (s *queries) SaveNotification(ctx context.Context, n *model.Notification) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("%w: notification", ErrNilParameter)
	}
	if strings.TrimSpace(n.Message) == "" {
		return fmt.Errorf("%w: notification message", ErrEmptyString)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	result, err := s.q.ExecContext(ctx, `
		INSERT INTO notifications (account_id, message, link, is_read, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.AccountID, n.Message, n.Link, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get notification ID: %w", err)
	}
	n.ID = id

	return nil
}

// ListNotifications returns an account's notifications, newest first.
func (s *queries) ListNotifications(ctx context.Context, accountID int64) ([]model.Notification, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, account_id, message, link, is_read, created_at
		FROM notifications
		WHERE account_id = ?
		ORDER BY created_at DESC, id DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var notes []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.AccountID, &n.Message, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notes = append(notes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notes, nil
}

// MarkNotificationRead flags one of the account's notifications as read.
func (s *queries) MarkNotificationRead(ctx context.Context, accountID, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.q.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ? AND account_id = ?`, id, accountID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return common.NotFoundf("notification %d", id)
	}
	return nil
}

// MarkAllNotificationsRead flags every unread notification for the account.
func (s *queries) MarkAllNotificationsRead(ctx context.Context, accountID int64) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.q.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE account_id = ? AND is_read = 0`, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count updated notifications: %w", err)
	}
	return int(n), nil
}
