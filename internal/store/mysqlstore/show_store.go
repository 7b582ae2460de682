package mysqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rezamoradi/show-seat-booking/internal/model"
	"github.com/rezamoradi/show-seat-booking/internal/store"
)

// ShowStore provides data access to the shows table.
type ShowStore struct {
	db *sql.DB
}

// NewShowStore returns a ShowStore bound to the provided database.
func NewShowStore(db *sql.DB) *ShowStore {
	return &ShowStore{db: db}
}

func (s *ShowStore) Create(ctx context.Context, show model.Show) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shows (show_id, name, created_at) VALUES (?, ?, ?)`,
		show.ShowID, show.Name, show.CreatedAt.UTC(),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *ShowStore) Get(ctx context.Context, showID string) (model.Show, error) {
	var show model.Show
	err := s.db.QueryRowContext(ctx,
		`SELECT show_id, name, created_at FROM shows WHERE show_id = ?`,
		showID,
	).Scan(&show.ShowID, &show.Name, &show.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Show{}, store.ErrNotFound
		}
		return model.Show{}, err
	}
	show.CreatedAt = show.CreatedAt.UTC()
	return show, nil
}

func (s *ShowStore) Delete(ctx context.Context, showID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM shows WHERE show_id = ?`, showID)
	return err
}
