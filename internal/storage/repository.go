package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertSuperOddSQL = `INSERT INTO super_odds (
        id,
        provider,
        provider_id,
        link,
        sport_id,
        boosted_odd,
        original_odd,
        description_for_seo,
        market_name,
        selection_name,
        competition_name,
        game_name,
        game_timestamp,
        expire_at_timestamp
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
    )
    ON CONFLICT (id) DO NOTHING;`

	updateSuperOddSQL = `UPDATE super_odds
    SET provider            = $2,
        provider_id         = $3,
        link                = $4,
        sport_id            = $5,
        boosted_odd         = $6,
        original_odd        = $7,
        description_for_seo = $8,
        market_name         = $9,
        selection_name      = $10,
        competition_name    = $11,
        game_timestamp      = $12,
        expire_at_timestamp = $13,
        updated_at          = NOW()
    WHERE id = $1;`

	listActiveSuperOddsSQL = `SELECT ` + superOddColumns + `
    FROM super_odds
    WHERE expire_at_timestamp > $1
    ORDER BY boosted_odd DESC
    LIMIT $2;`

	countSuperOddsSQL = `SELECT COUNT(*) FROM super_odds;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SuperOddStore defines operations for boosted-odds persistence.
type SuperOddStore interface {
	FindOrCreateSuperOdd(ctx context.Context, odd SuperOdd) (created bool, err error)
	UpdateSuperOdd(ctx context.Context, odd SuperOdd) error
	ListSuperOdds(ctx context.Context, query SuperOddQuery) ([]SuperOdd, error)
	ListActiveSuperOdds(ctx context.Context, now time.Time, limit int) ([]SuperOdd, error)
	CountSuperOdds(ctx context.Context) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store provides pgx-backed access to the super_odds table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks database reachability.
func (s *Store) Ping(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// FindOrCreateSuperOdd inserts the record if its key was never seen.
// The returned flag reports whether a new row was created; an existing
// key leaves the stored row untouched so the caller can apply an update.
func (s *Store) FindOrCreateSuperOdd(ctx context.Context, odd SuperOdd) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}

	tag, execErr := pool.Exec(ctx, insertSuperOddSQL,
		odd.ID,
		odd.Provider,
		odd.ProviderID,
		odd.Link,
		odd.SportID,
		odd.BoostedOdd.String(),
		nullableDecimal(odd.OriginalOdd),
		nullableText(odd.DescriptionForSEO),
		odd.MarketName,
		odd.SelectionName,
		odd.CompetitionName,
		odd.GameName,
		odd.GameTimestamp,
		odd.ExpireAtTimestamp,
	)
	if execErr != nil {
		return false, fmt.Errorf("insert super odd: %w", execErr)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateSuperOdd rewrites all mutable fields of an existing record by key.
func (s *Store) UpdateSuperOdd(ctx context.Context, odd SuperOdd) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tag, execErr := pool.Exec(ctx, updateSuperOddSQL,
		odd.ID,
		odd.Provider,
		odd.ProviderID,
		odd.Link,
		odd.SportID,
		odd.BoostedOdd.String(),
		nullableDecimal(odd.OriginalOdd),
		nullableText(odd.DescriptionForSEO),
		odd.MarketName,
		odd.SelectionName,
		odd.CompetitionName,
		odd.GameTimestamp,
		odd.ExpireAtTimestamp,
	)
	if execErr != nil {
		return fmt.Errorf("update super odd: %w", execErr)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListSuperOdds returns the filtered, ordered view described by query.
func (s *Store) ListSuperOdds(ctx context.Context, query SuperOddQuery) ([]SuperOdd, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	if len(query.AllowedProviderIDs) == 0 {
		return []SuperOdd{}, nil
	}

	stmt, args := query.SQL()
	rows, queryErr := pool.Query(ctx, stmt, args...)
	if queryErr != nil {
		return nil, fmt.Errorf("list super odds: %w", queryErr)
	}
	defer rows.Close()

	odds := make([]SuperOdd, 0)
	for rows.Next() {
		odd, scanErr := scanSuperOdd(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		odds = append(odds, odd)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return odds, nil
}

// ListActiveSuperOdds returns the top still-valid offers by boosted odd,
// used to build the periodic digest.
func (s *Store) ListActiveSuperOdds(ctx context.Context, now time.Time, limit int) ([]SuperOdd, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listActiveSuperOddsSQL, now, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list active super odds: %w", queryErr)
	}
	defer rows.Close()

	odds := make([]SuperOdd, 0, limit)
	for rows.Next() {
		odd, scanErr := scanSuperOdd(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		odds = append(odds, odd)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return odds, nil
}

// CountSuperOdds counts stored records.
func (s *Store) CountSuperOdds(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSuperOddsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count super odds: %w", scanErr)
	}
	return count, nil
}

func nullableDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullableText(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func scanSuperOdd(rows pgx.Rows) (SuperOdd, error) {
	var (
		odd         SuperOdd
		boostedStr  string
		originalStr sql.NullString
		description sql.NullString
	)

	if err := rows.Scan(
		&odd.ID,
		&odd.Provider,
		&odd.ProviderID,
		&odd.Link,
		&odd.SportID,
		&boostedStr,
		&originalStr,
		&description,
		&odd.MarketName,
		&odd.SelectionName,
		&odd.CompetitionName,
		&odd.GameName,
		&odd.GameTimestamp,
		&odd.ExpireAtTimestamp,
		&odd.CreatedAt,
		&odd.UpdatedAt,
	); err != nil {
		return SuperOdd{}, err
	}

	boosted, err := decimal.NewFromString(boostedStr)
	if err != nil {
		return SuperOdd{}, fmt.Errorf("parse boosted odd: %w", err)
	}
	odd.BoostedOdd = boosted

	if originalStr.Valid {
		original, err := decimal.NewFromString(originalStr.String)
		if err != nil {
			return SuperOdd{}, fmt.Errorf("parse original odd: %w", err)
		}
		odd.OriginalOdd = &original
	}
	if description.Valid {
		text := description.String
		odd.DescriptionForSEO = &text
	}

	return odd, nil
}

var _ SuperOddStore = (*Store)(nil)
var _ AdvisoryLocker = (*Store)(nil)
