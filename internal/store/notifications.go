package store

import (
	"context"
	"fmt"
	"time"

	"github.com/01moynul/techxchange-golang/internal/models"
)

// AddNotification creates an unread notification. Inside WithTx it commits
// together with the caller's other writes.
func (s *Store) AddNotification(ctx context.Context, userID int64, message, link string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, message, link, is_read, created_at)
		VALUES (?, ?, ?, 0, ?)`, userID, message, nullString(link), time.Now())
	if err != nil {
		return fmt.Errorf("failed to add notification: %w", err)
	}
	return nil
}

// ListNotifications returns the user's latest 50 notifications, unread first.
func (s *Store) ListNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, message, link, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY is_read ASC, created_at DESC
		LIMIT 50`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.LinkURL = n.Link.String
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead only touches the notification when it belongs to
// userID; otherwise ErrNotFound.
func (s *Store) MarkNotificationRead(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return checkAffected(res)
}
