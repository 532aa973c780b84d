package session

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Gaius-Lex/CV-voting/internal/model"
)

// startPostgres runs a throwaway postgres container. Docker is required, so
// the test only runs when CV_VOTING_INTEGRATION=1.
func startPostgres(t *testing.T) string {
	t.Helper()
	if os.Getenv("CV_VOTING_INTEGRATION") != "1" {
		t.Skip("set CV_VOTING_INTEGRATION=1 to run postgres integration tests")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "cv",
				"POSTGRES_PASSWORD": "cv",
				"POSTGRES_DB":       "cv_voting",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://cv:cv@%s:%s/cv_voting?sslmode=disable", host, port.Port())
}

func TestPostgresRepository(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	repo, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer repo.Close()

	now := time.Now().UTC().Truncate(time.Second)
	created := model.Session{
		UserID:         "alice@example.com",
		Name:           "Alice",
		Email:          "alice@example.com",
		CredentialBlob: "sealed-1",
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(-time.Minute),
	}
	require.NoError(t, repo.Put(ctx, created))

	updated := created
	updated.CredentialBlob = "sealed-2"
	updated.CreatedAt = now.Add(time.Hour)
	updated.UpdatedAt = now.Add(time.Hour)
	require.NoError(t, repo.Put(ctx, updated))

	got, err := repo.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sealed-2", got.CredentialBlob)
	assert.True(t, now.Equal(got.CreatedAt), "created_at is kept on conflict")
	assert.Empty(t, got.Picture)

	require.NoError(t, repo.Put(ctx, model.Session{UserID: "bob", CredentialBlob: "b", CreatedAt: now, UpdatedAt: now, ExpiresAt: now.Add(time.Hour)}))

	removed, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = repo.Get(ctx, "alice@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "bob"))
	require.NoError(t, repo.Delete(ctx, "bob"))
}

func TestPostgresLocker(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	repo, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer repo.Close()

	locker := repo.Locker()
	require.NoError(t, locker.Acquire(ctx, "session-sweep", "host-a"))
	require.NoError(t, locker.Acquire(ctx, "session-sweep", "host-a"), "owner may re-acquire")
	assert.ErrorIs(t, locker.Acquire(ctx, "session-sweep", "host-b"), ErrLeaseHeld)

	require.NoError(t, locker.Release(ctx, "session-sweep", "host-b"))
	assert.ErrorIs(t, locker.Acquire(ctx, "session-sweep", "host-b"), ErrLeaseHeld, "release by a non-owner is a no-op")

	require.NoError(t, locker.Release(ctx, "session-sweep", "host-a"))
	require.NoError(t, locker.Acquire(ctx, "session-sweep", "host-b"))

	// An expired lease can be taken over.
	stale := &PostgresLocker{db: repo.db, ttl: -time.Minute}
	require.NoError(t, stale.Acquire(ctx, "other-job", "host-a"))
	require.NoError(t, locker.Acquire(ctx, "other-job", "host-b"))
}
