package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"LeetTracker/internal/domain"
	"LeetTracker/internal/ports"
)

//go:embed migrations/*.sql
var migrations embed.FS

const destinationSlot = 1

// SQLiteRepository owns the single local store: roster, destination,
// metadata cache and observation ledger.
type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ ports.RosterStore   = (*SQLiteRepository)(nil)
	_ ports.MetadataStore = (*SQLiteRepository)(nil)
	_ ports.Ledger        = (*SQLiteRepository)(nil)
)

// Open creates or opens the database file and applies pending migrations.
// SQLite allows one writer, so the pool is pinned to a single connection.
func Open(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, storeErr("open database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, storeErr("ping database", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, storeErr(pragma, err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return storeErr("apply migrations", err)
	}
	return nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// AddIdentity inserts the identity unless it is already tracked.
func (r *SQLiteRepository) AddIdentity(ctx context.Context, identity domain.TrackedIdentity) (bool, error) {
	query, args, err := sq.Insert("tracked_identities").
		Options("OR IGNORE").
		Columns("identifier", "display_name").
		Values(identity.Identifier, identity.DisplayName).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert identity: %w", err)
	}
	return r.execAffected(ctx, "insert identity", query, args...)
}

// RemoveIdentity deletes the identity. Its past observations are kept.
func (r *SQLiteRepository) RemoveIdentity(ctx context.Context, identifier string) (bool, error) {
	query, args, err := sq.Delete("tracked_identities").
		Where(sq.Eq{"identifier": identifier}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete identity: %w", err)
	}
	return r.execAffected(ctx, "delete identity", query, args...)
}

// ListIdentities returns the roster ordered by display name.
func (r *SQLiteRepository) ListIdentities(ctx context.Context) ([]domain.TrackedIdentity, error) {
	query, args, err := sq.Select("identifier", "display_name").
		From("tracked_identities").
		OrderBy("display_name", "identifier").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list identities: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("query identities", err)
	}
	defer rows.Close()

	var result []domain.TrackedIdentity
	for rows.Next() {
		var identity domain.TrackedIdentity
		if err := rows.Scan(&identity.Identifier, &identity.DisplayName); err != nil {
			return nil, storeErr("scan identity", err)
		}
		result = append(result, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate identities", err)
	}
	return result, nil
}

// RegisterDestination overwrites any previously registered destination.
func (r *SQLiteRepository) RegisterDestination(ctx context.Context, dest domain.Destination) error {
	query, args, err := sq.Insert("destinations").
		Options("OR REPLACE").
		Columns("slot", "channel_id").
		Values(destinationSlot, dest.ChannelID).
		ToSql()
	if err != nil {
		return fmt.Errorf("build register destination: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return storeErr("register destination", err)
	}
	return nil
}

// Destination returns the registered destination or domain.ErrUnregistered.
func (r *SQLiteRepository) Destination(ctx context.Context) (domain.Destination, error) {
	query, args, err := sq.Select("channel_id").
		From("destinations").
		Where(sq.Eq{"slot": destinationSlot}).
		ToSql()
	if err != nil {
		return domain.Destination{}, fmt.Errorf("build destination query: %w", err)
	}

	var dest domain.Destination
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&dest.ChannelID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Destination{}, domain.ErrUnregistered
	}
	if err != nil {
		return domain.Destination{}, storeErr("query destination", err)
	}
	return dest, nil
}

// LookupMetadata is a point lookup in the metadata cache.
func (r *SQLiteRepository) LookupMetadata(ctx context.Context, itemKey string) (domain.MetadataEntry, bool, error) {
	query, args, err := sq.Select("difficulty", "title").
		From("item_metadata").
		Where(sq.Eq{"item_key": itemKey}).
		ToSql()
	if err != nil {
		return domain.MetadataEntry{}, false, fmt.Errorf("build metadata lookup: %w", err)
	}

	entry := domain.MetadataEntry{ItemKey: itemKey}
	var difficulty string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&difficulty, &entry.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MetadataEntry{}, false, nil
	}
	if err != nil {
		return domain.MetadataEntry{}, false, storeErr("lookup metadata", err)
	}
	entry.Difficulty = domain.Difficulty(difficulty)
	return entry, true, nil
}

// SaveMetadata inserts or overwrites an entry; concurrent resolvers write identical rows.
func (r *SQLiteRepository) SaveMetadata(ctx context.Context, entry domain.MetadataEntry) error {
	query, args, err := sq.Insert("item_metadata").
		Options("OR REPLACE").
		Columns("item_key", "difficulty", "title").
		Values(entry.ItemKey, string(entry.Difficulty), entry.Title).
		ToSql()
	if err != nil {
		return fmt.Errorf("build save metadata: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return storeErr("save metadata", err)
	}
	return nil
}

// RecordObservation inserts the record if absent and reports whether it was new.
// The check and insert are one statement, so concurrent callers cannot duplicate a row.
func (r *SQLiteRepository) RecordObservation(ctx context.Context, rec domain.ObservationRecord) (bool, error) {
	query, args, err := sq.Insert("observations").
		Columns("identifier", "item_key", "day").
		Values(rec.Identifier, rec.ItemKey, domain.FormatDay(rec.Day)).
		Suffix("ON CONFLICT (identifier, item_key, day) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build record observation: %w", err)
	}
	return r.execAffected(ctx, "record observation", query, args...)
}

// ObservationsForDay joins the day's observations with metadata and the roster.
// Rows whose identity is no longer tracked come back with Tracked=false.
func (r *SQLiteRepository) ObservationsForDay(ctx context.Context, day time.Time) ([]domain.ReportRow, error) {
	query, args, err := sq.Select(
		"o.identifier",
		"COALESCE(t.display_name, '')",
		"t.identifier IS NOT NULL",
		"m.item_key",
		"m.difficulty",
		"m.title",
	).
		From("observations AS o").
		Join("item_metadata AS m ON m.item_key = o.item_key").
		LeftJoin("tracked_identities AS t ON t.identifier = o.identifier").
		Where(sq.Eq{"o.day": domain.FormatDay(day)}).
		OrderBy("o.identifier", "m.title", "m.item_key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build observations query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("query observations", err)
	}
	defer rows.Close()

	var result []domain.ReportRow
	for rows.Next() {
		row := domain.ReportRow{Day: domain.DayOf(day)}
		var difficulty string
		if err := rows.Scan(
			&row.Identifier,
			&row.DisplayName,
			&row.Tracked,
			&row.Item.ItemKey,
			&difficulty,
			&row.Item.Title,
		); err != nil {
			return nil, storeErr("scan observation", err)
		}
		row.Item.Difficulty = domain.Difficulty(difficulty)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate observations", err)
	}
	return result, nil
}

// DeleteObservationsBefore removes every observation dated strictly before cutoff.
// Metadata rows are never touched.
func (r *SQLiteRepository) DeleteObservationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := sq.Delete("observations").
		Where(sq.Lt{"day": domain.FormatDay(cutoff)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete observations: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, storeErr("delete observations", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("rows affected", err)
	}
	return n, nil
}

func (r *SQLiteRepository) execAffected(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, storeErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr(op, err)
	}
	return n > 0, nil
}

// storeErr tags driver failures as ErrStoreUnavailable; context errors pass through as-is.
func storeErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
