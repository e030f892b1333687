package postgres

import _ "embed"

// Schema is the full DDL; statements are idempotent so reapplying is safe.
//
//go:embed schema.sql
var Schema string
