// Package migrations bundles the saved-query store schema for each
// supported database.
package migrations

import "embed"

// SqliteMigrations holds sqlite/*.sql, applied in filename order.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

// PostgresMigrations holds postgres/*.sql, applied in filename order.
//
//go:embed postgres/*.sql
var PostgresMigrations embed.FS
