// Package storage persists the user roster and seen-item records in sqlite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"correspondent/internal/domain"
	"correspondent/internal/ports"
)

// Store backs both the roster and the seen-item store with one sqlite file.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var (
	_ ports.Roster    = (*Store)(nil)
	_ ports.SeenStore = (*Store)(nil)
)

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			interests TEXT NOT NULL,
			sites TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS seen_items (
			user_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			delivered_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, item_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_seen_items_delivered ON seen_items(delivered_at);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ListUsers returns the full roster ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	query, args, err := s.sb.
		Select("id", "name", "email", "interests", "sites", "created_at").
		From("users").
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return users, nil
}

// AddUser inserts a validated user, assigning its identifier.
func (s *Store) AddUser(ctx context.Context, user domain.User) (domain.User, error) {
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC().Truncate(time.Second)

	interests, err := json.Marshal(user.Interests)
	if err != nil {
		return domain.User{}, fmt.Errorf("encode interests: %w", err)
	}
	sites, err := json.Marshal(user.Sites)
	if err != nil {
		return domain.User{}, fmt.Errorf("encode sites: %w", err)
	}

	query, args, err := s.sb.
		Insert("users").
		Columns("id", "name", "email", "interests", "sites", "created_at").
		Values(user.ID, user.Name, user.Email, string(interests), string(sites), user.CreatedAt.Format(time.RFC3339)).
		ToSql()
	if err != nil {
		return domain.User{}, fmt.Errorf("build insert user: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return domain.User{}, fmt.Errorf("insert user: %w", domain.ErrEmailTaken)
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// Seen returns which of the given item IDs were already delivered to the user.
func (s *Store) Seen(ctx context.Context, userID string, itemIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(itemIDs))
	if len(itemIDs) == 0 {
		return result, nil
	}

	query, args, err := s.sb.
		Select("item_id").
		From("seen_items").
		Where(sq.Eq{"user_id": userID, "item_id": itemIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build seen query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query seen items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan item id: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// MarkDelivered records delivery of the given items in one transaction. The
// write is durable before the call returns.
func (s *Store) MarkDelivered(ctx context.Context, userID string, itemIDs []string, at time.Time) error {
	if len(itemIDs) == 0 {
		return nil
	}

	builder := s.sb.
		Insert("seen_items").
		Columns("user_id", "item_id", "delivered_at").
		Suffix("ON CONFLICT (user_id, item_id) DO NOTHING")
	for _, id := range itemIDs {
		builder = builder.Values(userID, id, at.UTC().Format(time.RFC3339))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build mark delivered: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("mark delivered: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Prune deletes seen records older than the retention cutoff. Records within
// the window are never touched, so an item still present in a source feed
// cannot be redelivered.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	query, args, err := s.sb.
		Delete("seen_items").
		Where(sq.Lt{"delivered_at": olderThan.UTC().Format(time.RFC3339)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build prune: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune seen items: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return deleted, nil
}

func scanUser(rows *sql.Rows) (domain.User, error) {
	var (
		user      domain.User
		interests string
		sites     string
		createdAt string
	)
	if err := rows.Scan(&user.ID, &user.Name, &user.Email, &interests, &sites, &createdAt); err != nil {
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	user.CreatedAt = parseDBTime(createdAt)
	if err := json.Unmarshal([]byte(interests), &user.Interests); err != nil {
		return domain.User{}, fmt.Errorf("decode interests: %w", err)
	}
	if err := json.Unmarshal([]byte(sites), &user.Sites); err != nil {
		return domain.User{}, fmt.Errorf("decode sites: %w", err)
	}
	return user, nil
}

func parseDBTime(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
