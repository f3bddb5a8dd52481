//go:build integration

package integration

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/adimyra/medilims/internal/platform/db"
)

const postgresImage = "postgres:16-alpine"

// startPostgresContainer runs a throwaway Postgres with a Docker-assigned host
// port. The returned stop function removes the container.
func startPostgresContainer(ctx context.Context) (string, func(), error) {
	out, err := exec.CommandContext(ctx, "docker", "run", "--rm", "-d",
		"-p", "127.0.0.1::5432",
		"-e", "POSTGRES_USER=lims",
		"-e", "POSTGRES_PASSWORD=lims",
		"-e", "POSTGRES_DB=limstest",
		postgresImage,
	).CombinedOutput()
	if err != nil {
		return "", nil, fmt.Errorf("docker run: %w: %s", err, out)
	}
	id := strings.TrimSpace(string(out))
	stop := func() { _ = exec.Command("docker", "stop", id).Run() }

	// docker port prints e.g. "127.0.0.1:49153"
	out, err = exec.CommandContext(ctx, "docker", "port", id, "5432/tcp").Output()
	if err != nil {
		stop()
		return "", nil, fmt.Errorf("docker port: %w", err)
	}
	hostPort := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])

	url := fmt.Sprintf("postgres://lims:lims@%s/limstest?sslmode=disable", hostPort)
	if err := waitReady(ctx, url, 30*time.Second); err != nil {
		stop()
		return "", nil, err
	}
	return url, stop, nil
}

func waitReady(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()
	for {
		pool, err := db.NewPool(ctx, db.PoolConfig{URL: url, MaxConns: 1, ApplicationName: "lims-integration"})
		if err == nil {
			pool.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres not ready after %v: %w", timeout, err)
		case <-tick.C:
		}
	}
}
