package clickhouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a ClickHouse container and applies the bid_events schema.
// Returns a cleanup function that must be called when done.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp", "8123/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForLog("Application: Ready for connections").
					WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
			Env: map[string]string{
				"CLICKHOUSE_DB":       "test",
				"CLICKHOUSE_USER":     "default",
				"CLICKHOUSE_PASSWORD": "",
			},
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port()))
	require.NoError(t, err)

	applySchema(t, conn)

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}
	return conn, cleanup
}

// applySchema runs the embedded migration files from the source tree.
// The migrations package imports this one, so the files are read directly.
func applySchema(t *testing.T, conn *Conn) {
	t.Helper()

	dir := filepath.Join("..", "migrations", "clickhouse")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err, "read clickhouse migrations")

	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		require.NoError(t, err)

		for _, stmt := range strings.Split(string(data), ";") {
			if strings.TrimSpace(stripComments(stmt)) == "" {
				continue
			}
			require.NoError(t, conn.Exec(context.Background(), stmt), "apply %s", entry.Name())
		}
	}
}

func stripComments(sql string) string {
	var b strings.Builder
	for _, line := range strings.Split(sql, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "--") {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
