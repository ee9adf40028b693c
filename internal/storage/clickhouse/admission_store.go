package clickhouse

import (
	"context"
	"fmt"

	"github.com/stepamak/pump-tracker/internal/domain"
	"github.com/stepamak/pump-tracker/internal/storage"
)

// AdmissionStore implements storage.AdmissionStore using ClickHouse.
type AdmissionStore struct {
	conn *Conn
}

// NewAdmissionStore creates a new AdmissionStore.
func NewAdmissionStore(conn *Conn) *AdmissionStore {
	return &AdmissionStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AdmissionStore = (*AdmissionStore)(nil)

// Insert adds one record.
func (s *AdmissionStore) Insert(ctx context.Context, r *domain.AdmissionRecord) error {
	return s.InsertBulk(ctx, []*domain.AdmissionRecord{r})
}

// InsertBulk adds multiple records in one batch. Nothing is sent if any
// record is invalid.
func (s *AdmissionStore) InsertBulk(ctx context.Context, rs []*domain.AdmissionRecord) error {
	if len(rs) == 0 {
		return nil
	}
	for _, r := range rs {
		if err := storage.ValidateAdmissionRecord(r); err != nil {
			return err
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO admission_decisions (
			session_id, mint, dev_address, accepted, step, reason, created_at, decided_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rs {
		var accepted uint8
		if r.Accepted {
			accepted = 1
		}
		err = batch.Append(
			r.SessionID, r.Mint, r.DevAddress, accepted,
			r.Step, r.Reason, r.CreatedAt, r.DecidedAt,
		)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByMint retrieves all decisions for a mint, ordered by decided_at ASC.
func (s *AdmissionStore) GetByMint(ctx context.Context, mint string) ([]*domain.AdmissionRecord, error) {
	query := `
		SELECT session_id, mint, dev_address, accepted, step, reason, created_at, decided_at
		FROM admission_decisions
		WHERE mint = ?
		ORDER BY decided_at ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query admission decisions: %w", err)
	}
	defer rows.Close()

	var result []*domain.AdmissionRecord
	for rows.Next() {
		var (
			r        domain.AdmissionRecord
			accepted uint8
		)
		if err := rows.Scan(
			&r.SessionID, &r.Mint, &r.DevAddress, &accepted,
			&r.Step, &r.Reason, &r.CreatedAt, &r.DecidedAt,
		); err != nil {
			return nil, fmt.Errorf("scan admission decision: %w", err)
		}
		r.Accepted = accepted == 1
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admission decisions: %w", err)
	}

	return result, nil
}
