package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/lahnaomar31/ubo-relay-char/internal/models"
)

// DataStore defines the interface for persistent storage of users and
// rooms. Both PostgresStore and SQLiteStore implement this interface;
// message logs live in Redis, not here.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	// Room operations
	CreateRoom(ctx context.Context, name string, createdBy *uuid.UUID) (*models.Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	IncrementMessageCount(ctx context.Context, id uuid.UUID) error
}
