package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pong-chat/domain"

	_ "github.com/mattn/go-sqlite3"
)

const messageColumns = `id, sender_id, receiver_id, content, created_at, read_at`

type SQLiteMessageRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// OpenSQLite opens or creates the message database at path.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_fk=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Writes are serialized by SQLite anyway, one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewSQLiteMessageRepository takes ownership of db and creates the schema if needed.
func NewSQLiteMessageRepository(db *sql.DB, log *slog.Logger) (*SQLiteMessageRepository, error) {
	r := &SQLiteMessageRepository{db: db, log: log}
	if err := r.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return r, nil
}

func (r *SQLiteMessageRepository) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			sender_id TEXT NOT NULL,
			receiver_id TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			read_at INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id, created_at);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return err
	}
	r.log.Debug("Message schema ready")
	return nil
}

func (r *SQLiteMessageRepository) StoreMessage(ctx context.Context, message domain.Message) error {
	dm := fromDomainMessage(message)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, content, created_at, read_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, dm.ID, dm.SenderID, dm.ReceiverID, dm.Content, dm.At, nullableInt64(dm.ReadAt))
	return err
}

func (r *SQLiteMessageRepository) GetMessage(ctx context.Context, id string) (domain.Message, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	dm, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Message{}, false, nil
	}
	if err != nil {
		return domain.Message{}, false, err
	}
	return toDomainMessage(dm), true, nil
}

func (r *SQLiteMessageRepository) GetConversation(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	return r.query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at DESC, rowid DESC
	`, userA, userB, userB, userA)
}

func (r *SQLiteMessageRepository) GetMessagesForUser(ctx context.Context, userID string) ([]domain.Message, error) {
	return r.query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE sender_id = ? OR receiver_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, userID, userID)
}

func (r *SQLiteMessageRepository) MarkAsRead(ctx context.Context, id string, at time.Time) (domain.Message, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Message{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE messages SET read_at = ? WHERE id = ? AND read_at IS NULL`, at.UnixNano(), id); err != nil {
		return domain.Message{}, false, err
	}
	dm, err := scanMessage(tx.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Message{}, false, nil
	}
	if err != nil {
		return domain.Message{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Message{}, false, err
	}
	return toDomainMessage(dm), true, nil
}

func (r *SQLiteMessageRepository) DeleteMessage(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *SQLiteMessageRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteMessageRepository) query(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		dm, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, toDomainMessage(dm))
	}
	return messages, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (DiskMessage, error) {
	var dm DiskMessage
	var readAt sql.NullInt64
	if err := row.Scan(&dm.ID, &dm.SenderID, &dm.ReceiverID, &dm.Content, &dm.At, &readAt); err != nil {
		return DiskMessage{}, err
	}
	if readAt.Valid {
		dm.ReadAt = &readAt.Int64
	}
	return dm, nil
}

func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
