package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"CaseCollector/internal/domain"
	"CaseCollector/internal/ports"
)

const timeLayout = time.RFC3339Nano

var caseColumns = []string{
	"link", "title", "snippet", "source_type", "published_at", "search_term",
	"tier", "filter_reason", "classification", "status", "needs_review",
	"reviewed_at", "run_id", "created_at",
}

// SQLRepository persists cases into Postgres or SQLite depending on the DSN.
type SQLRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	driver  string
}

var (
	_ ports.CaseRepository = (*SQLRepository)(nil)
	_ ports.ReviewQueue    = (*SQLRepository)(nil)
)

// Open connects to the database named by dsn and creates the schema.
// postgres:// and postgresql:// DSNs use lib/pq; anything else is a SQLite path.
func Open(ctx context.Context, dsn string) (*SQLRepository, error) {
	driver, source, format := resolveDriver(dsn)

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// pragmas are per connection
		db.SetMaxOpenConns(1)
		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout = 5000",
		}
		for _, pragma := range pragmas {
			if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
				_ = db.Close()
				return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
			}
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return NewSQLRepository(db, driver, format), nil
}

// NewSQLRepository wires an already opened sql.DB.
func NewSQLRepository(db *sql.DB, driver string, format sq.PlaceholderFormat) *SQLRepository {
	return &SQLRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(format),
		driver:  driver,
	}
}

func resolveDriver(dsn string) (driver, source string, format sq.PlaceholderFormat) {
	trimmed := strings.TrimSpace(dsn)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgres", trimmed, sq.Dollar
	case strings.HasPrefix(lower, "sqlite://"):
		return "sqlite", trimmed[len("sqlite://"):], sq.Question
	default:
		return "sqlite", trimmed, sq.Question
	}
}

// Driver reports which database driver backs the repository.
func (r *SQLRepository) Driver() string {
	return r.driver
}

// Close releases the connection pool.
func (r *SQLRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Exists reports whether a case with the link is stored.
func (r *SQLRepository) Exists(ctx context.Context, link string) (bool, error) {
	query, args, err := r.builder.Select("1").From("cases").Where(sq.Eq{"link": link}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query case: %w", err)
	}
	return true, nil
}

// InsertIfAbsent writes the case unless its link is already stored. The
// primary key on link makes this atomic across concurrent writers.
func (r *SQLRepository) InsertIfAbsent(ctx context.Context, record domain.CaseRecord) (bool, error) {
	classification, err := json.Marshal(record.Classification)
	if err != nil {
		return false, fmt.Errorf("marshal classification: %w", err)
	}
	needs := record.NeedsReview
	if needs == nil {
		needs = []domain.Dimension{}
	}
	needsJSON, err := json.Marshal(needs)
	if err != nil {
		return false, fmt.Errorf("marshal needs review: %w", err)
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query, args, err := r.builder.Insert("cases").
		Columns(caseColumns...).
		Values(
			record.Link,
			record.Title,
			record.Snippet,
			string(record.SourceType),
			formatTime(record.PublishedAt),
			record.SearchTerm,
			record.Tier,
			record.FilterReason,
			string(classification),
			string(record.Status),
			string(needsJSON),
			formatTimePtr(record.ReviewedAt),
			record.RunID,
			createdAt.UTC().Format(timeLayout),
		).
		Suffix("ON CONFLICT (link) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert case %s: %w", record.Link, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// EnqueueReview stores review entries in one statement.
func (r *SQLRepository) EnqueueReview(ctx context.Context, entries ...domain.ApprovalQueueEntry) error {
	if len(entries) == 0 {
		return nil
	}

	insert := r.builder.Insert("review_queue").
		Columns("id", "kind", "run_id", "link", "dimension", "term", "frequency", "options", "created_at")
	for _, entry := range entries {
		options, err := json.Marshal(entry.Options)
		if err != nil {
			return fmt.Errorf("marshal options: %w", err)
		}
		insert = insert.Values(
			entry.ID,
			string(entry.Kind),
			entry.RunID,
			entry.Link,
			string(entry.Dimension),
			entry.Term,
			entry.Frequency,
			string(options),
			entry.CreatedAt.UTC().Format(timeLayout),
		)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build review insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert review entries: %w", err)
	}
	return nil
}

// AppendLog records a finished run.
func (r *SQLRepository) AppendLog(ctx context.Context, entry domain.RunLogEntry) error {
	summary, err := json.Marshal(entry.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	query, args, err := r.builder.Insert("run_log").
		Columns("run_id", "started_at", "finished_at", "classifier", "summary").
		Values(
			entry.RunID,
			entry.StartedAt.UTC().Format(timeLayout),
			entry.FinishedAt.UTC().Format(timeLayout),
			entry.Classifier,
			string(summary),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run log insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}
	return nil
}

// PendingReviews lists queue entries of the given kind, oldest first.
func (r *SQLRepository) PendingReviews(ctx context.Context, kind domain.QueueKind) ([]domain.ApprovalQueueEntry, error) {
	query, args, err := r.builder.
		Select("id", "kind", "run_id", "link", "dimension", "term", "frequency", "options", "created_at").
		From("review_queue").
		Where(sq.Eq{"kind": string(kind)}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build review query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query review entries: %w", err)
	}

	var entries []domain.ApprovalQueueEntry
	for rows.Next() {
		var (
			entry                     domain.ApprovalQueueEntry
			kindStr, dimStr           string
			link, term                sql.NullString
			frequency                 sql.NullInt64
			optionsJSON, createdAtStr string
		)
		if err := rows.Scan(&entry.ID, &kindStr, &entry.RunID, &link, &dimStr, &term, &frequency, &optionsJSON, &createdAtStr); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan review entry: %w", err)
		}
		entry.Kind = domain.QueueKind(kindStr)
		entry.Dimension = domain.Dimension(dimStr)
		entry.Link = link.String
		entry.Term = term.String
		entry.Frequency = int(frequency.Int64)
		if err := json.Unmarshal([]byte(optionsJSON), &entry.Options); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("decode options: %w", err)
		}
		entry.CreatedAt, _ = time.Parse(timeLayout, createdAtStr)
		entries = append(entries, entry)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}
	return entries, nil
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
