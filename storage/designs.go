// Design submission store.
//
// Information Hiding:
// - Review state machine (pending/revise -> approved/rejected/revise) hidden
// - Row mapping hidden

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/richinex/anko/model"
)

var (
	// ErrDesignNotFound is returned for an unknown design id.
	ErrDesignNotFound = errors.New("design not found")
	// ErrDesignClosed is returned when deciding on an approved or rejected design.
	ErrDesignClosed = errors.New("design already decided")
)

// DesignStore keeps generated designs and their review status.
type DesignStore struct {
	db  *DB
	now func() time.Time
}

// NewDesignStore returns the design store backed by db.
func NewDesignStore(db *DB) *DesignStore {
	return &DesignStore{db: db, now: time.Now}
}

// Submit stores a new design as pending and returns it with id and
// timestamps filled in.
func (s *DesignStore) Submit(ctx context.Context, d model.Design) (model.Design, error) {
	if strings.TrimSpace(d.ImageURL) == "" {
		return model.Design{}, fmt.Errorf("design image URL is required")
	}
	now := s.now().UTC().Truncate(time.Second)
	d.ID = uuid.NewString()
	d.Status = model.DesignPending
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := s.db.db.ExecContext(ctx, `
		INSERT INTO designs (id, image_url, prompt, designed_by, fabric, sustainable_options, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ImageURL, d.Prompt, d.DesignedBy, d.Fabric, d.Options, string(d.Status), d.Notes,
		now.Unix(), now.Unix())
	if err != nil {
		return model.Design{}, fmt.Errorf("failed to store design: %w", err)
	}
	return d, nil
}

// Get returns one design.
func (s *DesignStore) Get(ctx context.Context, id string) (model.Design, error) {
	row := s.db.db.QueryRowContext(ctx, `
		SELECT id, image_url, prompt, designed_by, fabric, sustainable_options, status, notes, created_at, updated_at
		FROM designs WHERE id = ?`, id)
	d, err := scanDesign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Design{}, fmt.Errorf("%w: %s", ErrDesignNotFound, id)
	}
	return d, err
}

// List returns designs newest first. An empty status lists all of them.
func (s *DesignStore) List(ctx context.Context, status model.DesignStatus) ([]model.Design, error) {
	query := `
		SELECT id, image_url, prompt, designed_by, fabric, sustainable_options, status, notes, created_at, updated_at
		FROM designs`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list designs: %w", err)
	}
	defer rows.Close()

	designs := []model.Design{}
	for rows.Next() {
		d, err := scanDesign(rows)
		if err != nil {
			return nil, err
		}
		designs = append(designs, d)
	}
	return designs, rows.Err()
}

// Decide records a review decision. Pending designs and designs sent back
// for revision accept any decision; approved and rejected designs are final.
func (s *DesignStore) Decide(ctx context.Context, id string, decision model.DesignStatus, notes string) (model.Design, error) {
	switch decision {
	case model.DesignApproved, model.DesignRejected, model.DesignRevise:
	default:
		return model.Design{}, fmt.Errorf("invalid decision %q", decision)
	}

	now := s.now().UTC().Truncate(time.Second)
	res, err := s.db.db.ExecContext(ctx, `
		UPDATE designs SET status = ?, notes = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		string(decision), notes, now.Unix(), id,
		string(model.DesignPending), string(model.DesignRevise))
	if err != nil {
		return model.Design{}, fmt.Errorf("failed to update design: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Design{}, fmt.Errorf("failed to update design: %w", err)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return model.Design{}, err
	}
	if n == 0 {
		return model.Design{}, fmt.Errorf("%w: %s is %s", ErrDesignClosed, id, current.Status)
	}
	// A concurrent revise may follow ours; report what this call wrote.
	current.Status = decision
	current.Notes = notes
	current.UpdatedAt = now
	return current, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDesign(row rowScanner) (model.Design, error) {
	var d model.Design
	var status string
	var created, updated int64
	err := row.Scan(&d.ID, &d.ImageURL, &d.Prompt, &d.DesignedBy, &d.Fabric, &d.Options,
		&status, &d.Notes, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, err
		}
		return d, fmt.Errorf("failed to scan design: %w", err)
	}
	d.Status = model.DesignStatus(status)
	d.CreatedAt = time.Unix(created, 0).UTC()
	d.UpdatedAt = time.Unix(updated, 0).UTC()
	return d, nil
}
