// Package activity persists one row per resolved conversion and derives the
// usage counters and history listing from them.
package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nikhilbhutani/speakify/internal/models"
)

var ErrNotFound = errors.New("history item not found")

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserSource yields the signed-in user, or nil.
type UserSource interface {
	UserID() *uuid.UUID
}

type Store struct {
	db    DB
	users UserSource
	now   func() time.Time
}

func NewStore(db DB, users UserSource) *Store {
	return &Store{db: db, users: users, now: time.Now}
}

func (s *Store) currentUser() *uuid.UUID {
	if s.users == nil {
		return nil
	}
	return s.users.UserID()
}

func (s *Store) Record(ctx context.Context, rec models.ActivityRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	if rec.UserID == nil {
		rec.UserID = s.currentUser()
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO conversion_activity (id, user_id, kind, outcome, summary, size_bytes, latency_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.UserID, string(rec.Kind), string(rec.Outcome), rec.Summary, rec.SizeBytes, rec.LatencyMs, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// FetchUsageSnapshot counts successful conversions for the current user.
// Storage covers synthesized audio only; uploads for transcription are not kept.
func (s *Store) FetchUsageSnapshot(ctx context.Context) (*models.UsageSnapshot, error) {
	var (
		today, total int
		bytes        int64
	)
	err := s.db.QueryRow(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE created_at >= $2),
			COUNT(*),
			COALESCE(SUM(size_bytes) FILTER (WHERE kind = $3), 0)
		 FROM conversion_activity
		 WHERE outcome = 'succeeded' AND ($1::uuid IS NULL OR user_id = $1)`,
		s.currentUser(), startOfDay(s.now()), string(models.KindTextToSpeech),
	).Scan(&today, &total, &bytes)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}

	return &models.UsageSnapshot{
		ConversionsToday:     today,
		ConversionsTotal:     total,
		StorageUsedMegabytes: toMegabytes(bytes),
	}, nil
}

func (s *Store) FetchHistory(ctx context.Context, limit, offset int) (models.HistoryPage, error) {
	limit, offset = clampPage(limit, offset)
	user := s.currentUser()
	page := models.HistoryPage{Limit: limit, Offset: offset, Items: []models.HistoryItem{}}

	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM conversion_activity
		 WHERE outcome = 'succeeded' AND ($1::uuid IS NULL OR user_id = $1)`,
		user,
	).Scan(&page.Total)
	if err != nil {
		return page, fmt.Errorf("count history: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, kind, summary, created_at FROM conversion_activity
		 WHERE outcome = 'succeeded' AND ($1::uuid IS NULL OR user_id = $1)
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		user, limit, offset,
	)
	if err != nil {
		return page, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id      uuid.UUID
			kind    string
			item    models.HistoryItem
			created time.Time
		)
		if err := rows.Scan(&id, &kind, &item.Content, &created); err != nil {
			return page, fmt.Errorf("scan history: %w", err)
		}
		item.ID = id.String()
		item.Kind = models.ConversionKind(kind)
		item.CreatedAt = created
		page.Items = append(page.Items, item)
	}
	if err := rows.Err(); err != nil {
		return page, fmt.Errorf("iterate history: %w", err)
	}
	return page, nil
}

func (s *Store) DeleteHistoryItem(ctx context.Context, id string) error {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	tag, err := s.db.Exec(ctx,
		`DELETE FROM conversion_activity WHERE id = $1 AND ($2::uuid IS NULL OR user_id = $2)`,
		itemID, s.currentUser(),
	)
	if err != nil {
		return fmt.Errorf("delete history item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func toMegabytes(b int64) float64 {
	return float64(b) / (1 << 20)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
