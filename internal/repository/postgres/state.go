// Package postgres persists wishlist state as a per-owner document in
// Postgres: one row per profile plus one row per item, replaced wholesale on
// every save. Concurrent writers follow last-write-wins, the same contract
// the rest of the system assumes.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avoskres/wishkeeper/internal/models"
	"github.com/avoskres/wishkeeper/internal/repository"
)

type stateRepository struct {
	db    *sql.DB
	owner string
}

// NewStateRepository creates a repository scoped to one owner identity; all
// reads and writes touch only that owner's rows.
func NewStateRepository(db *sql.DB, owner string) repository.StateRepository {
	return &stateRepository{db: db, owner: owner}
}

func (r *stateRepository) Load(ctx context.Context) (*models.State, error) {
	query := `
		SELECT id, name, created_at, is_current
		FROM profiles
		WHERE owner = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, r.owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	state := &models.State{Profiles: make(map[string]*models.Profile)}
	for rows.Next() {
		p := &models.Profile{}
		var current bool
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &current); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		state.Profiles[p.ID] = p
		if current {
			state.CurrentProfileID = p.ID
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	if len(state.Profiles) == 0 {
		return nil, nil
	}

	if err := r.loadItems(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (r *stateRepository) loadItems(ctx context.Context, state *models.State) error {
	query := `
		SELECT profile_id, id, text, done, link, price, category, notes, custom_image
		FROM wish_items
		WHERE owner = $1
		ORDER BY profile_id, position ASC`

	rows, err := r.db.QueryContext(ctx, query, r.owner)
	if err != nil {
		return fmt.Errorf("failed to query wish items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var profileID string
		item := &models.Item{}
		if err := rows.Scan(
			&profileID,
			&item.ID,
			&item.Text,
			&item.Done,
			&item.Link,
			&item.Price,
			&item.Category,
			&item.Notes,
			&item.CustomImage,
		); err != nil {
			return fmt.Errorf("failed to scan wish item: %w", err)
		}
		if p, ok := state.Profiles[profileID]; ok {
			p.Wishlist = append(p.Wishlist, item)
		}
	}
	return rows.Err()
}

func (r *stateRepository) Save(ctx context.Context, state *models.State) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Items go with their profiles via ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE owner = $1`, r.owner); err != nil {
		return fmt.Errorf("failed to clear previous state: %w", err)
	}

	insertProfile := `
		INSERT INTO profiles (owner, id, name, created_at, is_current)
		VALUES ($1, $2, $3, $4, $5)`
	insertItem := `
		INSERT INTO wish_items (owner, profile_id, id, text, done, link, price, category, notes, custom_image, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for _, p := range state.Profiles {
		if _, err := tx.ExecContext(ctx, insertProfile,
			r.owner, p.ID, p.Name, p.CreatedAt, p.ID == state.CurrentProfileID,
		); err != nil {
			return fmt.Errorf("failed to insert profile %s: %w", p.ID, err)
		}
		for pos, item := range p.Wishlist {
			if _, err := tx.ExecContext(ctx, insertItem,
				r.owner, p.ID,
				item.ID, item.Text, item.Done,
				item.Link, item.Price, item.Category, item.Notes, item.CustomImage,
				pos,
			); err != nil {
				return fmt.Errorf("failed to insert wish item %d: %w", item.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}
	return nil
}

func (r *stateRepository) Close() error {
	return r.db.Close()
}
