package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nikhilbhutani/speakify/internal/models"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	execs    []execCall
	rowCalls []execCall
	execTag  string
	execErr  error
	rowVals  [][]any
	rows     [][]any
	queryErr error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag(f.execTag), f.execErr
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &fakeRows{vals: f.rows, idx: -1}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.rowCalls = append(f.rowCalls, execCall{sql: sql, args: args})
	if len(f.rowVals) == 0 {
		return fakeRow{err: pgx.ErrNoRows}
	}
	vals := f.rowVals[0]
	f.rowVals = f.rowVals[1:]
	return fakeRow{vals: vals}
}

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(r.vals, dest)
}

type fakeRows struct {
	vals [][]any
	idx  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool                                   { r.idx++; return r.idx < len(r.vals) }
func (r *fakeRows) Scan(dest ...any) error                       { return assign(r.vals[r.idx], dest) }
func (r *fakeRows) Values() ([]any, error)                       { return r.vals[r.idx], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func assign(vals []any, dest []any) error {
	if len(vals) != len(dest) {
		return fmt.Errorf("scan: %d values into %d targets", len(vals), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int:
			*p = vals[i].(int)
		case *int64:
			*p = vals[i].(int64)
		case *string:
			*p = vals[i].(string)
		case *uuid.UUID:
			*p = vals[i].(uuid.UUID)
		case *time.Time:
			*p = vals[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported target %T", d)
		}
	}
	return nil
}

type staticUser struct{ id *uuid.UUID }

func (s staticUser) UserID() *uuid.UUID { return s.id }

func TestRecordFillsDefaults(t *testing.T) {
	uid := uuid.New()
	db := &fakeDB{execTag: "INSERT 0 1"}
	s := NewStore(db, staticUser{id: &uid})
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	err := s.Record(context.Background(), models.ActivityRecord{
		Kind:      models.KindTextToSpeech,
		Outcome:   models.OutcomeSucceeded,
		Summary:   "hello",
		SizeBytes: 2048,
	})
	if err != nil {
		t.Fatalf("Record err: %v", err)
	}

	args := db.execs[0].args
	if args[0].(uuid.UUID) == uuid.Nil {
		t.Error("id not generated")
	}
	if got := args[1].(*uuid.UUID); got == nil || *got != uid {
		t.Errorf("user id = %v, want %v", got, uid)
	}
	if args[2] != "text-to-speech" || args[3] != "succeeded" {
		t.Errorf("unexpected kind/outcome %v %v", args[2], args[3])
	}
	if !args[7].(time.Time).Equal(fixed) {
		t.Errorf("created_at = %v", args[7])
	}
}

func TestRecordWrapsError(t *testing.T) {
	db := &fakeDB{execErr: errors.New("relation does not exist")}
	s := NewStore(db, nil)

	if err := s.Record(context.Background(), models.ActivityRecord{Kind: models.KindSpeechToText}); err == nil {
		t.Fatal("expected error")
	}
}

func TestFetchUsageSnapshot(t *testing.T) {
	db := &fakeDB{rowVals: [][]any{{3, 12, int64(3 << 20)}}}
	s := NewStore(db, nil)

	snap, err := s.FetchUsageSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchUsageSnapshot err: %v", err)
	}
	want := models.UsageSnapshot{ConversionsToday: 3, ConversionsTotal: 12, StorageUsedMegabytes: 3}
	if *snap != want {
		t.Fatalf("snapshot = %+v, want %+v", *snap, want)
	}
}

func TestFetchUsageSnapshotCountsSynthesizedAudioOnly(t *testing.T) {
	db := &fakeDB{rowVals: [][]any{{0, 0, int64(0)}}}
	s := NewStore(db, nil)

	if _, err := s.FetchUsageSnapshot(context.Background()); err != nil {
		t.Fatalf("FetchUsageSnapshot err: %v", err)
	}

	call := db.rowCalls[0]
	if !strings.Contains(call.sql, "SUM(size_bytes) FILTER (WHERE kind = $3)") {
		t.Fatalf("storage sum is not restricted by kind:\n%s", call.sql)
	}
	if len(call.args) != 3 || call.args[2] != string(models.KindTextToSpeech) {
		t.Fatalf("unexpected args %v", call.args)
	}
}

func TestFetchHistory(t *testing.T) {
	id := uuid.New()
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	db := &fakeDB{
		rowVals: [][]any{{7}},
		rows:    [][]any{{id, "speech-to-text", "meeting notes", created}},
	}
	s := NewStore(db, nil)

	page, err := s.FetchHistory(context.Background(), 0, -5)
	if err != nil {
		t.Fatalf("FetchHistory err: %v", err)
	}
	if page.Limit != 50 || page.Offset != 0 || page.Total != 7 {
		t.Fatalf("unexpected paging %+v", page)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(page.Items))
	}
	item := page.Items[0]
	if item.ID != id.String() || item.Kind != models.KindSpeechToText || item.Content != "meeting notes" || !item.CreatedAt.Equal(created) {
		t.Fatalf("unexpected item %+v", item)
	}
}

func TestDeleteHistoryItem(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		tag     string
		wantErr error
	}{
		{name: "deleted", id: uuid.NewString(), tag: "DELETE 1"},
		{name: "missing row", id: uuid.NewString(), tag: "DELETE 0", wantErr: ErrNotFound},
		{name: "malformed id", id: "h1", wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(&fakeDB{execTag: tt.tag}, nil)
			err := s.DeleteHistoryItem(context.Background(), tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStartOfDay(t *testing.T) {
	in := time.Date(2024, 5, 1, 23, 59, 59, 0, time.UTC)
	if got := startOfDay(in); !got.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("startOfDay = %v", got)
	}
}
