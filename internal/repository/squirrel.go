// Package repository persists the report cache: raw transaction feeds, task
// metadata, resolved identities and imported board snapshots.
package repository

import sq "github.com/Masterminds/squirrel"

// psql builds PostgreSQL statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
