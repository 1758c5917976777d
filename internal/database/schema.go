package database

import _ "embed"

// Schema is the full SQL schema generated from the migrations. Tests apply it
// to fresh in-memory databases instead of running migrations.
//
//go:embed sqlc/schema.sql
var Schema string
