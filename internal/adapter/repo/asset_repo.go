package repo

import (
	"context"
	"fmt"

	"productshot/internal/domain"
	"productshot/internal/infra"
	"productshot/internal/sqlinline"
)

// AssetRepo persists asset metadata. The bytes themselves live in storage.
type AssetRepo struct {
	sql infra.SQLExecutor
}

// NewAssetRepo constructs the repository.
func NewAssetRepo(sql infra.SQLExecutor) *AssetRepo {
	return &AssetRepo{sql: sql}
}

// Insert stores asset metadata and returns the generated id. JobID may be
// empty for uploads that are not yet attached to a job.
func (r *AssetRepo) Insert(ctx context.Context, a domain.Asset) (string, error) {
	props := a.Properties
	if len(props) == 0 {
		props = []byte("{}")
	}
	var id string
	err := r.sql.QueryRow(ctx, sqlinline.QInsertAsset,
		a.JobID, string(a.Kind), a.StorageKey, a.MIME, a.Bytes, a.Width, a.Height, props,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert asset: %w", err)
	}
	return id, nil
}

// Get fetches one asset by id, returning domain.ErrNotFound when absent.
func (r *AssetRepo) Get(ctx context.Context, assetID string) (*domain.Asset, error) {
	var a domain.Asset
	var kind string
	err := r.sql.QueryRow(ctx, sqlinline.QSelectAssetByID, assetID).Scan(
		&a.ID, &a.JobID, &kind, &a.StorageKey, &a.MIME, &a.Bytes, &a.Width, &a.Height, &a.Properties, &a.CreatedAt,
	)
	if infra.IsNoRows(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select asset: %w", err)
	}
	a.Kind = domain.AssetKind(kind)
	return &a, nil
}

// ListByJob returns all assets belonging to a job, oldest first.
func (r *AssetRepo) ListByJob(ctx context.Context, jobID string) ([]domain.Asset, error) {
	return r.list(ctx, sqlinline.QListAssetsByJob, jobID)
}

// ListResultsByJob returns only the deliverable assets of a job: results,
// contact sheets and comparisons.
func (r *AssetRepo) ListResultsByJob(ctx context.Context, jobID string) ([]domain.Asset, error) {
	return r.list(ctx, sqlinline.QListResultAssetsByJob, jobID)
}

func (r *AssetRepo) list(ctx context.Context, query, jobID string) ([]domain.Asset, error) {
	rows, err := r.sql.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var a domain.Asset
		var kind string
		if err := rows.Scan(&a.ID, &a.JobID, &kind, &a.StorageKey, &a.MIME, &a.Bytes, &a.Width, &a.Height, &a.Properties, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		a.Kind = domain.AssetKind(kind)
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return assets, nil
}

// DeleteStagesBefore removes stage asset rows older than the retention
// window and returns their storage keys so callers can reclaim the files.
func (r *AssetRepo) DeleteStagesBefore(ctx context.Context, retentionSeconds int) ([]string, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QDeleteStageAssetsBefore, retentionSeconds)
	if err != nil {
		return nil, fmt.Errorf("delete stage assets: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan stage key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage keys: %w", err)
	}
	return keys, nil
}
