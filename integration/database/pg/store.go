package pg

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/sessionguard/core/traffic"
)

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements traffic.Store on the client_ips and http_logs tables.
// Record ids are UUIDv7 strings. Calls join the transaction carried by the
// context, if any (see WithTx).
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a store over pool. The schema is created by Migrate.
func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("pg: pool is required")
	}
	return &Store{pool: pool}
}

func (s *Store) db(ctx context.Context) querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return s.pool
}

func (s *Store) EnsureClient(ctx context.Context, clientID string) error {
	const q = `INSERT INTO client_ips (client_id) VALUES ($1) ON CONFLICT (client_id) DO NOTHING`
	if _, err := s.db(ctx).Exec(ctx, q, clientID); err != nil {
		return wrap("ensure client", err)
	}
	return nil
}

func (s *Store) GetClient(ctx context.Context, clientID string) (*traffic.ClientEntry, error) {
	const q = `SELECT client_id, blacklisted, blacklisted_at, created_at FROM client_ips WHERE client_id = $1`

	var (
		e  traffic.ClientEntry
		at *time.Time
	)
	if err := s.db(ctx).QueryRow(ctx, q, clientID).Scan(&e.ClientID, &e.Blacklisted, &at, &e.CreatedAt); err != nil {
		return nil, wrap("get client", err)
	}
	if at != nil {
		e.BlacklistedAt = *at
	}
	return &e, nil
}

func (s *Store) SetBlacklisted(ctx context.Context, clientID string, at time.Time) error {
	const q = `INSERT INTO client_ips (client_id, blacklisted, blacklisted_at) VALUES ($1, TRUE, $2)
		ON CONFLICT (client_id) DO UPDATE SET blacklisted = TRUE, blacklisted_at = EXCLUDED.blacklisted_at`
	if _, err := s.db(ctx).Exec(ctx, q, clientID, at); err != nil {
		return wrap("set blacklisted", err)
	}
	return nil
}

func (s *Store) ClearBlacklist(ctx context.Context, clientID string, blacklistedAt time.Time) (bool, error) {
	const q = `UPDATE client_ips SET blacklisted = FALSE
		WHERE client_id = $1 AND blacklisted AND blacklisted_at = $2`
	tag, err := s.db(ctx).Exec(ctx, q, clientID, blacklistedAt)
	if err != nil {
		return false, wrap("clear blacklist", err)
	}
	return tag.RowsAffected() > 0, nil
}

const recordColumns = `id, client_id, ts, method, url, full_url, status_code,
	request_size, response_size, content_type, user_agent, request_line, headers, session_id`

func (s *Store) InsertRecord(ctx context.Context, rec *traffic.Record) (string, error) {
	if rec == nil {
		return "", traffic.ErrInvalidRecord
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	var session *string
	if sid, ok := rec.Session.Get(); ok {
		session = &sid
	}

	headers := rec.Headers
	if headers == nil {
		headers = http.Header{}
	}

	const q = `INSERT INTO http_logs (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err = s.db(ctx).Exec(ctx, q,
		id.String(), rec.ClientID, rec.Timestamp, rec.Method, rec.URL, rec.FullURL, rec.StatusCode,
		rec.RequestSize, rec.ResponseSize, rec.ContentType, rec.UserAgent, rec.RequestLine, headers, session)
	if err != nil {
		return "", wrap("insert record", err)
	}
	return id.String(), nil
}

func (s *Store) GetRecord(ctx context.Context, id string) (*traffic.Record, error) {
	const q = `SELECT ` + recordColumns + ` FROM http_logs WHERE id = $1`
	rec, err := scanRecord(s.db(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, wrap("get record", err)
	}
	return rec, nil
}

func (s *Store) RecentRecords(ctx context.Context, clientID string, since time.Time) ([]traffic.Record, error) {
	const q = `SELECT ` + recordColumns + ` FROM http_logs
		WHERE client_id = $1 AND ts >= $2 ORDER BY ts, id`

	rows, err := s.db(ctx).Query(ctx, q, clientID, since)
	if err != nil {
		return nil, wrap("recent records", err)
	}
	defer rows.Close()

	var recs []traffic.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, wrap("recent records", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("recent records", err)
	}
	return recs, nil
}

func (s *Store) AssignSession(ctx context.Context, recordID, sessionID string) (bool, error) {
	const q = `UPDATE http_logs SET session_id = $2 WHERE id = $1 AND session_id IS NULL`
	tag, err := s.db(ctx).Exec(ctx, q, recordID, sessionID)
	if err != nil {
		return false, wrap("assign session", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) CountSession(ctx context.Context, sessionID string) (int, error) {
	const q = `SELECT count(*) FROM http_logs WHERE session_id = $1`
	var n int
	if err := s.db(ctx).QueryRow(ctx, q, sessionID).Scan(&n); err != nil {
		return 0, wrap("count session", err)
	}
	return n, nil
}

func (s *Store) PreviousRecord(ctx context.Context, clientID string, before time.Time, beforeID string) (*traffic.Record, error) {
	const q = `SELECT ` + recordColumns + ` FROM http_logs
		WHERE client_id = $1 AND (ts, id) < ($2, $3)
		ORDER BY ts DESC, id DESC LIMIT 1`
	rec, err := scanRecord(s.db(ctx).QueryRow(ctx, q, clientID, before, beforeID))
	if err != nil {
		return nil, wrap("previous record", err)
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (*traffic.Record, error) {
	var (
		rec     traffic.Record
		headers map[string][]string
		session *string
	)
	err := row.Scan(&rec.ID, &rec.ClientID, &rec.Timestamp, &rec.Method, &rec.URL, &rec.FullURL,
		&rec.StatusCode, &rec.RequestSize, &rec.ResponseSize, &rec.ContentType, &rec.UserAgent,
		&rec.RequestLine, &headers, &session)
	if err != nil {
		return nil, err
	}
	rec.Headers = http.Header(headers)
	rec.Session = traffic.Unassigned()
	if session != nil {
		rec.Session = traffic.Assigned(*session)
	}
	return &rec, nil
}

// wrap maps driver errors onto the traffic error vocabulary.
func wrap(op string, err error) error {
	switch {
	case IsNotFoundError(err):
		return traffic.ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case IsConnectionError(err):
		return errors.Join(traffic.ErrStoreUnavailable, fmt.Errorf("pg: %s: %w", op, err))
	default:
		return fmt.Errorf("pg: %s: %w", op, err)
	}
}

var _ traffic.Store = (*Store)(nil)
