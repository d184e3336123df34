// Package db provides embedded database schema and seed files.
package db

import _ "embed"

// Schema contains the PostgreSQL DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// SQLiteSchema contains the same tables for the embedded SQLite store.
//
//go:embed migrations/sqlite/001_schema.sql
var SQLiteSchema string

// Catalog is the default product catalog and modifier groups.
//
//go:embed seed/catalog.json
var Catalog []byte
