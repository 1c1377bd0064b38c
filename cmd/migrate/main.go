// Command migrate applies the database schema. Statements are idempotent
// so the command is safe to run on every deploy.
package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"productshot/internal/infra"
)

const schema = `
create extension if not exists pgcrypto;

create table if not exists render_jobs (
    id            uuid primary key default gen_random_uuid(),
    status        text not null default 'QUEUED',
    mode          text not null default 'composite',
    spec_json     jsonb not null default '{}'::jsonb,
    error_message text,
    created_at    timestamptz not null default now(),
    updated_at    timestamptz not null default now()
);

create index if not exists idx_render_jobs_status_created
    on render_jobs (status, created_at);

create table if not exists assets (
    id          uuid primary key default gen_random_uuid(),
    job_id      uuid references render_jobs (id) on delete cascade,
    kind        text not null,
    storage_key text not null,
    mime        text not null,
    bytes       bigint not null default 0,
    width       int not null default 0,
    height      int not null default 0,
    properties  jsonb not null default '{}'::jsonb,
    created_at  timestamptz not null default now()
);

create index if not exists idx_assets_job on assets (job_id);
create index if not exists idx_assets_kind_created on assets (kind, created_at);
`

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(2)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("migrate: open database failed")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("migrate: database unreachable")
	}
	if _, err := db.Exec(schema); err != nil {
		logger.Fatal().Err(err).Msg("migrate: apply schema failed")
	}
	logger.Info().Msg("migrate: schema up to date")
}
