package e2e_harness

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestHarness runs the containers the remote collapse-state stores talk to.
type TestHarness struct {
	PGContainer testcontainers.Container
	PGDSN       string
	PGDB        *sql.DB
	S3Container testcontainers.Container
	S3Endpoint  string
}

// startContainer starts req and returns the host:port mapped to port.
func startContainer(ctx context.Context, req testcontainers.ContainerRequest, port string) (testcontainers.Container, string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", err
	}
	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", err
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", err
	}
	return container, fmt.Sprintf("%s:%s", host, mapped.Port()), nil
}

// StartPostgres starts a postgres container and returns its DSN once the
// server accepts connections. Callers must call StopPostgres.
func (h *TestHarness) StartPostgres(ctx context.Context) (string, error) {
	container, addr, err := startContainer(ctx, testcontainers.ContainerRequest{
		Image:        "postgres:16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_DB":       "propgrid",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}, "5432")
	if err != nil {
		return "", err
	}
	h.PGContainer = container
	h.PGDSN = fmt.Sprintf("postgres://postgres:password@%s/propgrid?sslmode=disable", addr)

	db, err := sql.Open("postgres", h.PGDSN)
	if err != nil {
		return "", err
	}
	// the port opens before initdb finishes
	deadline := time.Now().Add(20 * time.Second)
	for {
		err := db.PingContext(ctx)
		if err == nil {
			h.PGDB = db
			return h.PGDSN, nil
		}
		if time.Now().After(deadline) {
			db.Close()
			return "", fmt.Errorf("postgres did not become ready: %w", err)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func (h *TestHarness) StopPostgres(ctx context.Context) error {
	if h.PGDB != nil {
		h.PGDB.Close()
		h.PGDB = nil
	}
	if h.PGContainer == nil {
		return nil
	}
	err := h.PGContainer.Terminate(ctx)
	h.PGContainer = nil
	return err
}

// StartS3 starts an S3 compatible RustFS container and returns its endpoint.
func (h *TestHarness) StartS3(ctx context.Context) (string, error) {
	container, addr, err := startContainer(ctx, testcontainers.ContainerRequest{
		Image:        "rustfs/rustfs:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": S3AccessKey,
			"RUSTFS_SECRET_KEY": S3SecretKey,
		},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(30 * time.Second),
	}, "9000")
	if err != nil {
		return "", err
	}
	h.S3Container = container
	h.S3Endpoint = "http://" + addr
	return h.S3Endpoint, nil
}

func (h *TestHarness) StopS3(ctx context.Context) error {
	if h.S3Container == nil {
		return nil
	}
	err := h.S3Container.Terminate(ctx)
	h.S3Container = nil
	return err
}
