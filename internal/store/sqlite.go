package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lahnaomar31/ubo-relay-char/internal/models"
)

// SQLiteStore handles SQLite database operations. It exists so the server
// runs without a DATABASE_URL in development.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/relay.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/relay.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_by TEXT,
		created_at TIMESTAMP NOT NULL,
		last_active_at TIMESTAMP NOT NULL,
		message_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_rooms_last_active ON rooms(last_active_at DESC);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser creates a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, user.ID.String(), user.Username, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*models.User, error) {
	var (
		user models.User
		id   string
	)
	err := row.Scan(&id, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users WHERE id = ?
	`, id.String())
	return s.scanUser(row)
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users WHERE username = ?
	`, username)
	return s.scanUser(row)
}

// ListUsers retrieves all registered users, oldest first.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var (
			user models.User
			id   string
		)
		if err := rows.Scan(&id, &user.Username, &user.PasswordHash, &user.CreatedAt); err != nil {
			return nil, err
		}
		if user.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// CreateRoom creates a new room.
func (s *SQLiteStore) CreateRoom(ctx context.Context, name string, createdBy *uuid.UUID) (*models.Room, error) {
	now := time.Now().UTC()
	room := &models.Room{
		ID:           uuid.New(),
		Name:         name,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		LastActiveAt: now,
	}

	var createdByStr *string
	if createdBy != nil {
		v := createdBy.String()
		createdByStr = &v
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (id, name, created_by, created_at, last_active_at, message_count)
		VALUES (?, ?, ?, ?, ?, 0)
	`, room.ID.String(), room.Name, createdByStr, room.CreatedAt, room.LastActiveAt)
	if err != nil {
		return nil, err
	}
	return room, nil
}

func scanRoom(scan func(dest ...any) error) (*models.Room, error) {
	var (
		room      models.Room
		id        string
		createdBy sql.NullString
	)
	err := scan(&id, &room.Name, &createdBy, &room.CreatedAt, &room.LastActiveAt, &room.MessageCount)
	if err != nil {
		return nil, err
	}

	if room.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if createdBy.Valid {
		parsed, err := uuid.Parse(createdBy.String)
		if err != nil {
			return nil, err
		}
		room.CreatedBy = &parsed
	}
	return &room, nil
}

// GetRoom retrieves a room by ID.
func (s *SQLiteStore) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_by, created_at, last_active_at, message_count
		FROM rooms WHERE id = ?
	`, id.String())

	room, err := scanRoom(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

// ListRooms retrieves all rooms, most recently active first.
func (s *SQLiteStore) ListRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_by, created_at, last_active_at, message_count
		FROM rooms
		ORDER BY last_active_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		room, err := scanRoom(rows.Scan)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *room)
	}

	return rooms, rows.Err()
}

// IncrementMessageCount increments the message count and updates activity.
func (s *SQLiteStore) IncrementMessageCount(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE rooms
		SET message_count = message_count + 1, last_active_at = ?
		WHERE id = ?
	`, time.Now().UTC(), id.String())
	return err
}
