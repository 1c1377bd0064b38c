// Package repo provides the PostgreSQL persistence layer. All statements
// come from internal/sqlinline and run through an infra.SQLExecutor so
// tests can substitute a stub.
package repo

import (
	"context"
	"fmt"

	"productshot/internal/domain"
	"productshot/internal/infra"
	"productshot/internal/sqlinline"
)

// RenderRepo persists render jobs.
type RenderRepo struct {
	sql infra.SQLExecutor
}

// NewRenderRepo constructs the repository.
func NewRenderRepo(sql infra.SQLExecutor) *RenderRepo {
	return &RenderRepo{sql: sql}
}

// Enqueue inserts a QUEUED job and returns its id.
func (r *RenderRepo) Enqueue(ctx context.Context, mode domain.RenderMode, specJSON []byte) (string, error) {
	var id string
	err := r.sql.QueryRow(ctx, sqlinline.QEnqueueRenderJob, string(mode), specJSON).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("enqueue render job: %w", err)
	}
	return id, nil
}

// Claim atomically takes the oldest QUEUED job and marks it RUNNING.
// Returns domain.ErrNoJobAvailable when the queue is empty.
func (r *RenderRepo) Claim(ctx context.Context) (*domain.RenderJob, error) {
	var job domain.RenderJob
	var mode string
	err := r.sql.QueryRow(ctx, sqlinline.QClaimRenderJob).Scan(&job.ID, &mode, &job.SpecJSON)
	if infra.IsNoRows(err) {
		return nil, domain.ErrNoJobAvailable
	}
	if err != nil {
		return nil, fmt.Errorf("claim render job: %w", err)
	}
	job.Status = domain.JobStatusRunning
	job.Mode = domain.NormalizeMode(mode)
	return &job, nil
}

// Complete marks the job SUCCEEDED.
func (r *RenderRepo) Complete(ctx context.Context, jobID string) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QCompleteRenderJob, jobID); err != nil {
		return fmt.Errorf("complete render job: %w", err)
	}
	return nil
}

// Fail marks the job FAILED with the message.
func (r *RenderRepo) Fail(ctx context.Context, jobID, message string) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QFailRenderJob, jobID, message); err != nil {
		return fmt.Errorf("fail render job: %w", err)
	}
	return nil
}

// Get fetches a job by id, returning domain.ErrNotFound when absent.
func (r *RenderRepo) Get(ctx context.Context, jobID string) (*domain.RenderJob, error) {
	var job domain.RenderJob
	var status, mode string
	err := r.sql.QueryRow(ctx, sqlinline.QSelectRenderJob, jobID).Scan(
		&job.ID, &status, &mode, &job.SpecJSON, &job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt,
	)
	if infra.IsNoRows(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select render job: %w", err)
	}
	job.Status = domain.JobStatus(status)
	job.Mode = domain.NormalizeMode(mode)
	return &job, nil
}

// RequeueStale flips RUNNING jobs older than maxAge back to QUEUED and
// returns their ids. Covers workers that died mid-render.
func (r *RenderRepo) RequeueStale(ctx context.Context, maxAgeSeconds int) ([]string, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QRequeueStaleRenderJobs, maxAgeSeconds)
	if err != nil {
		return nil, fmt.Errorf("requeue stale jobs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan requeued job: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requeued jobs: %w", err)
	}
	return ids, nil
}

// CountByStatus returns the queue depth per status, used by the health
// endpoint.
func (r *RenderRepo) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QCountRenderJobsByStatus)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.JobStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan job count: %w", err)
		}
		counts[domain.JobStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job counts: %w", err)
	}
	return counts, nil
}
