package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stepamak/pump-tracker/internal/domain"
	"github.com/stepamak/pump-tracker/internal/storage"
)

// DevListStore implements storage.DevListStore using PostgreSQL.
type DevListStore struct {
	pool *Pool
}

// NewDevListStore creates a new DevListStore.
func NewDevListStore(pool *Pool) *DevListStore {
	return &DevListStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DevListStore = (*DevListStore)(nil)

// Add inserts an entry. Returns ErrDuplicateKey if (kind, address) exists.
func (s *DevListStore) Add(ctx context.Context, e *domain.DevListEntry) error {
	if err := storage.ValidateDevListEntry(e); err != nil {
		return err
	}

	query := `
		INSERT INTO dev_list_entries (kind, address, note, added_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query, string(e.Kind), e.Address, e.Note, e.AddedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert dev list entry: %w", err)
	}
	return nil
}

// Remove deletes an entry. Returns ErrNotFound if it does not exist.
func (s *DevListStore) Remove(ctx context.Context, kind domain.ListKind, address string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM dev_list_entries WHERE kind = $1 AND address = $2`,
		string(kind), address,
	)
	if err != nil {
		return fmt.Errorf("delete dev list entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List returns all entries of kind, ordered by added_at ASC.
func (s *DevListStore) List(ctx context.Context, kind domain.ListKind) ([]*domain.DevListEntry, error) {
	query := `
		SELECT kind, address, note, added_at
		FROM dev_list_entries
		WHERE kind = $1
		ORDER BY added_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query dev list entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (*domain.DevListEntry, error) {
		return scanDevListEntry(r)
	})
	if err != nil {
		return nil, fmt.Errorf("scan dev list entries: %w", err)
	}
	return entries, nil
}

// Get returns a single entry. Returns ErrNotFound if it does not exist.
func (s *DevListStore) Get(ctx context.Context, kind domain.ListKind, address string) (*domain.DevListEntry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT kind, address, note, added_at
		FROM dev_list_entries
		WHERE kind = $1 AND address = $2
	`, string(kind), address)

	e, err := scanDevListEntry(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get dev list entry: %w", err)
	}
	return e, nil
}

func scanDevListEntry(row pgx.Row) (*domain.DevListEntry, error) {
	var (
		e    domain.DevListEntry
		kind string
	)
	if err := row.Scan(&kind, &e.Address, &e.Note, &e.AddedAt); err != nil {
		return nil, err
	}
	e.Kind = domain.ListKind(kind)
	return &e, nil
}
