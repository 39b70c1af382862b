package testinternals

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/2beens/fitlog/internal/db"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

const testDBName = "fitlog"

// Postgres is a throwaway postgres container with the fitness schema applied.
type Postgres struct {
	Pool *pgxpool.Pool
	Port string

	dockerPool *dockertest.Pool
	resource   *dockertest.Resource
}

// StartPostgres runs a postgres container and waits until it accepts connections.
func StartPostgres(ctx context.Context) (*Postgres, error) {
	dockerPool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("new dockertest pool: %w", err)
	}
	if err := dockerPool.Client.Ping(); err != nil {
		return nil, fmt.Errorf("ping docker: %w", err)
	}
	dockerPool.MaxWait = 2 * time.Minute

	resource, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_DB=" + testDBName,
			"POSTGRES_HOST_AUTH_METHOD=trust",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return nil, fmt.Errorf("run postgres: %w", err)
	}

	pg := &Postgres{
		Port:       resource.GetPort("5432/tcp"),
		dockerPool: dockerPool,
		resource:   resource,
	}

	params := db.NewDBPoolParams{
		DBHost: "localhost",
		DBPort: pg.Port,
		DBName: testDBName,
	}
	if err := dockerPool.Retry(func() error {
		sqlDB, err := sql.Open("postgres", db.ConnString(params)+"?sslmode=disable")
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		return sqlDB.Ping()
	}); err != nil {
		pg.Close()
		return nil, fmt.Errorf("wait for postgres: %w", err)
	}

	pg.Pool, err = db.NewDBPool(ctx, params)
	if err != nil {
		pg.Close()
		return nil, err
	}

	if err := db.ApplySchema(ctx, pg.Pool); err != nil {
		pg.Close()
		return nil, err
	}

	return pg, nil
}

// Truncate removes all fitness data, keeping the schema.
func (pg *Postgres) Truncate(ctx context.Context) error {
	_, err := pg.Pool.Exec(ctx, `TRUNCATE workout_log, routine_exercise, exercise RESTART IDENTITY;`)
	return err
}

func (pg *Postgres) Close() {
	if pg.Pool != nil {
		pg.Pool.Close()
	}
	if err := pg.dockerPool.Purge(pg.resource); err != nil {
		log.Printf("postgres teardown: %s", err)
	}
}

// Redis is a throwaway redis container.
type Redis struct {
	Client *redis.Client
	Port   string

	dockerPool *dockertest.Pool
	resource   *dockertest.Resource
}

// StartRedis runs a redis container and waits until it answers PING.
func StartRedis(ctx context.Context) (*Redis, error) {
	dockerPool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("new dockertest pool: %w", err)
	}

	resource, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7.2",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
	})
	if err != nil {
		return nil, fmt.Errorf("run redis: %w", err)
	}

	r := &Redis{
		Port:       resource.GetPort("6379/tcp"),
		dockerPool: dockerPool,
		resource:   resource,
	}
	r.Client = redis.NewClient(&redis.Options{Addr: "localhost:" + r.Port})
	if err := dockerPool.Retry(func() error {
		return r.Client.Ping(ctx).Err()
	}); err != nil {
		r.Close()
		return nil, fmt.Errorf("wait for redis: %w", err)
	}

	return r, nil
}

func (r *Redis) Close() {
	if r.Client != nil {
		_ = r.Client.Close()
	}
	if err := r.dockerPool.Purge(r.resource); err != nil {
		log.Printf("redis teardown: %s", err)
	}
}
