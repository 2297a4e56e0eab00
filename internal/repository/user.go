package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// UserRepository stores resolved identity names.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// LookupNames returns the stored names of phids. Unknown phids are absent.
func (r *UserRepository) LookupNames(ctx context.Context, phids []string) (map[string]string, error) {
	names := make(map[string]string, len(phids))
	if len(phids) == 0 {
		return names, nil
	}

	query, args, err := psql.
		Select("phid", "user_name").
		From("users").
		Where(sq.Eq{"phid": phids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build LookupNames query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var phid, name string
		if err := rows.Scan(&phid, &name); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		names[phid] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return names, nil
}

// SaveNames stores resolved names, replacing earlier entries.
func (r *UserRepository) SaveNames(ctx context.Context, names map[string]string, fetchedAt time.Time) error {
	if len(names) == 0 {
		return nil
	}

	phids := make([]string, 0, len(names))
	for phid := range names {
		phids = append(phids, phid)
	}
	sort.Strings(phids)

	insert := psql.Insert("users").Columns("phid", "user_name", "fetched_at")
	for _, phid := range phids {
		insert = insert.Values(phid, names[phid], fetchedAt)
	}

	query, args, err := insert.
		Suffix("ON CONFLICT (phid) DO UPDATE SET user_name = EXCLUDED.user_name, fetched_at = EXCLUDED.fetched_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build SaveNames query: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("save users: %w", err)
	}

	return nil
}
