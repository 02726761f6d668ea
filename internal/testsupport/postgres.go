package testsupport

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresTestsEnv gates container-backed tests; they need a Docker daemon.
const PostgresTestsEnv = "IGMIRROR_POSTGRES_TESTS"

var (
	postgresOnce      sync.Once
	postgresContainer *PostgresContainer
	postgresError     error
)

// PostgresContainer wraps a testcontainers PostgreSQL instance.
type PostgresContainer struct {
	container testcontainers.Container
	host      string
	port      string
}

// StartPostgres starts a shared PostgreSQL container for the test run, or
// skips the test when PostgresTestsEnv is not set to 1.
func StartPostgres(t *testing.T) *PostgresContainer {
	t.Helper()

	if os.Getenv(PostgresTestsEnv) != "1" {
		t.Skipf("set %s=1 to run PostgreSQL container tests", PostgresTestsEnv)
	}

	postgresOnce.Do(func() {
		ctx := context.Background()

		req := testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "igmirror",
				"POSTGRES_PASSWORD": "igmirror",
				"POSTGRES_DB":       "igmirror",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(60 * time.Second),
		}

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			postgresError = fmt.Errorf("start PostgreSQL container: %w", err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			_ = container.Terminate(ctx)
			postgresError = fmt.Errorf("get PostgreSQL host: %w", err)
			return
		}

		mappedPort, err := container.MappedPort(ctx, "5432/tcp")
		if err != nil {
			_ = container.Terminate(ctx)
			postgresError = fmt.Errorf("get PostgreSQL port: %w", err)
			return
		}

		postgresContainer = &PostgresContainer{
			container: container,
			host:      host,
			port:      mappedPort.Port(),
		}
	})

	if postgresError != nil {
		t.Fatalf("PostgreSQL container failed: %v", postgresError)
	}
	return postgresContainer
}

// DSN returns a lib/pq connection string for the container.
func (c *PostgresContainer) DSN() string {
	return fmt.Sprintf("postgres://igmirror:igmirror@%s:%s/igmirror?sslmode=disable", c.host, c.port)
}

// StopPostgres terminates the shared container if one was started. Call it
// from TestMain after m.Run.
func StopPostgres() {
	if postgresContainer != nil && postgresContainer.container != nil {
		_ = postgresContainer.container.Terminate(context.Background())
	}
}
