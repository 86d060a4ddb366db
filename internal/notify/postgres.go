package notify

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGScheduler stores notifications in the reminders table (see db/).
type PGScheduler struct {
	db *pgxpool.Pool
}

func NewPGScheduler(db *pgxpool.Pool) *PGScheduler {
	return &PGScheduler{db: db}
}

// queryMany runs a query and scans all rows into []T using RowToStructByName.
func queryMany[T any](ctx context.Context, pool *pgxpool.Pool, sql string, args pgx.NamedArgs) ([]T, error) {
	rows, err := pool.Query(ctx, sql, args)
	if err != nil {
		log.Printf("[queryMany] Query error: %v", err)
		return nil, err
	}
	results, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		log.Printf("[queryMany] Scan error: %v", err)
	}
	return results, err
}

// CancelAll drops every undelivered reminder of the user. Delivered rows are
// kept as history.
func (s *PGScheduler) CancelAll(ctx context.Context, userID int) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM reminders WHERE user_id = @userID AND delivered_at IS NULL`,
		pgx.NamedArgs{"userID": userID})
	return err
}

func (s *PGScheduler) Schedule(ctx context.Context, n Notification) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO reminders (user_id, name, kind, title, body, fire_at)
		 VALUES (@userID, @name, @kind, @title, @body, @fireAt)`,
		pgx.NamedArgs{
			"userID": n.UserID,
			"name":   n.Name,
			"kind":   n.Kind,
			"title":  n.Title,
			"body":   n.Body,
			"fireAt": n.FireAt,
		})
	return err
}

func (s *PGScheduler) Pending(ctx context.Context, userID int) ([]Notification, error) {
	return queryMany[Notification](ctx, s.db,
		`SELECT id, user_id, name, kind, title, body, fire_at
		 FROM reminders
		 WHERE user_id = @userID AND delivered_at IS NULL
		 ORDER BY fire_at, id`,
		pgx.NamedArgs{"userID": userID})
}

// ClaimDue marks due reminders delivered and returns them. SKIP LOCKED keeps
// two dispatchers from claiming the same row.
func (s *PGScheduler) ClaimDue(ctx context.Context, now time.Time) ([]Notification, error) {
	return queryMany[Notification](ctx, s.db,
		`UPDATE reminders SET delivered_at = @now
		 WHERE id IN (
		   SELECT id FROM reminders
		   WHERE delivered_at IS NULL AND fire_at <= @now
		   ORDER BY fire_at
		   FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, user_id, name, kind, title, body, fire_at`,
		pgx.NamedArgs{"now": now})
}
