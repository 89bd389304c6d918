package repository

import (
	"context"
	"time"

	"reflectify/server/internal/model"
)

func (s *Store) CreateJournalEntry(ctx context.Context, entry model.JournalEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO journal_entries (id, user_id, content, mood, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.ID, entry.UserID, entry.Content, entry.Mood, entry.CreatedAt)
	return err
}

func (s *Store) ListJournalEntries(ctx context.Context, userID string, since time.Time, limit int) ([]model.JournalEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, content, mood, created_at
		FROM journal_entries
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`, userID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.JournalEntry
	for rows.Next() {
		var entry model.JournalEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Content, &entry.Mood, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) CreateMoodCheckin(ctx context.Context, checkin model.MoodCheckin) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO mood_checkins (id, user_id, score, mood, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, checkin.ID, checkin.UserID, checkin.Score, checkin.Mood, checkin.CreatedAt)
	return err
}

func (s *Store) ListMoodCheckins(ctx context.Context, userID string, since time.Time) ([]model.MoodCheckin, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, score, mood, created_at
		FROM mood_checkins
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at ASC
	`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCheckins(rows)
}

// ListSchoolMoodCheckins aggregates student check-ins for teacher and admin
// analytics. Only profiles attached to the school are included.
func (s *Store) ListSchoolMoodCheckins(ctx context.Context, schoolID string, since time.Time) ([]model.MoodCheckin, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.user_id, c.score, c.mood, c.created_at
		FROM mood_checkins c
		JOIN profiles p ON p.user_id = c.user_id
		WHERE p.school_id = $1 AND p.role = 'student' AND c.created_at >= $2
		ORDER BY c.created_at ASC
	`, schoolID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCheckins(rows)
}

func (s *Store) CreateChatMessage(ctx context.Context, message model.ChatMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_messages (id, user_id, sender, content, flagged, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, message.ID, message.UserID, message.Sender, message.Content, message.Flagged, message.CreatedAt)
	return err
}

func (s *Store) ListChatMessages(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, sender, content, flagged, created_at
		FROM chat_messages
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (s *Store) SetChatMessageFlagged(ctx context.Context, messageID string, flagged bool) error {
	_, err := s.pool.Exec(ctx, `UPDATE chat_messages SET flagged = $1 WHERE id = $2`, flagged, messageID)
	return err
}

// ListFlaggedChatMessages surfaces moderation-flagged student messages for
// teacher review.
func (s *Store) ListFlaggedChatMessages(ctx context.Context, schoolID string, limit int) ([]model.ChatMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.user_id, m.sender, m.content, m.flagged, m.created_at
		FROM chat_messages m
		JOIN profiles p ON p.user_id = m.user_id
		WHERE p.school_id = $1 AND m.flagged = true
		ORDER BY m.created_at DESC
		LIMIT $2
	`, schoolID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

type checkinRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanCheckins(rows checkinRows) ([]model.MoodCheckin, error) {
	var checkins []model.MoodCheckin
	for rows.Next() {
		var checkin model.MoodCheckin
		if err := rows.Scan(&checkin.ID, &checkin.UserID, &checkin.Score, &checkin.Mood, &checkin.CreatedAt); err != nil {
			return nil, err
		}
		checkins = append(checkins, checkin)
	}
	return checkins, rows.Err()
}

func scanMessages(rows checkinRows) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	for rows.Next() {
		var message model.ChatMessage
		if err := rows.Scan(&message.ID, &message.UserID, &message.Sender, &message.Content, &message.Flagged, &message.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}
