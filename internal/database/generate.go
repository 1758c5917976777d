package database

// Code generation for the field index.
//
// The migrations under migrations/files are the source of truth. The first
// directive replays them into sqlc/schema.sql; the second regenerates the
// query layer in sqlc/ from sqlc/query.sql:
//
//   go generate ./internal/database

//go:generate sh -c "cd ../.. && go run internal/database/tools/generate_schema.go"
//go:generate sh -c "cd ../.. && sqlc generate -f internal/database/sqlc/sqlc.yaml"
