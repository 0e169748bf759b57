package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/taskkeeper/internal/client/models"
	"github.com/dmitrijs2005/taskkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/taskkeeper/internal/dbx"
)

// Storage persists the session across process restarts.
type Storage interface {
	// Load returns the stored token and profile. A missing session is
	// ("", nil, nil).
	Load(ctx context.Context) (string, *models.User, error)
	Save(ctx context.Context, token string, user *models.User) error
	Clear(ctx context.Context) error
}

// SQLiteStorage keeps the session in the local metadata table.
type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

func (s *SQLiteStorage) Load(ctx context.Context) (string, *models.User, error) {
	repo := metadata.NewSQLiteRepository(s.db)

	token, err := repo.Get(ctx, metadata.KeyToken)
	if err != nil {
		return "", nil, err
	}
	if len(token) == 0 {
		return "", nil, nil
	}

	raw, err := repo.Get(ctx, metadata.KeyUser)
	if err != nil {
		return "", nil, err
	}
	if len(raw) == 0 {
		return string(token), nil, nil
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return string(token), nil, fmt.Errorf("decode stored user: %w", err)
	}
	return string(token), &user, nil
}

// Save writes token and user in a single transaction. A nil user removes
// the stored profile.
func (s *SQLiteStorage) Save(ctx context.Context, token string, user *models.User) error {
	return dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, metadata.KeyToken, []byte(token)); err != nil {
			return err
		}
		if user == nil {
			return repo.Delete(ctx, metadata.KeyUser)
		}
		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
		return repo.Set(ctx, metadata.KeyUser, data)
	})
}

func (s *SQLiteStorage) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).Delete(ctx, metadata.KeyToken, metadata.KeyUser)
	})
}
