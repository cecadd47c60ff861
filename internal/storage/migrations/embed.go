// Package migrations applies the embedded journal schema to Postgres and
// the bid analytics schema to ClickHouse.
package migrations

import "embed"

// PostgresFS holds contract_events and event_cursors.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds bid_events.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
