package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"productshot/internal/domain"
	"productshot/internal/sqlinline"
)

type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

type stubRows struct {
	rows [][]any
	idx  int
}

func (r *stubRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan arity mismatch: %d dest, %d values", len(dest), len(row))
	}
	for i, v := range row {
		if err := assign(dest[i], v); err != nil {
			return err
		}
	}
	return nil
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return nil }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}
func (r *stubRows) RawValues() [][]byte { return nil }

func assign(dest, v any) error {
	switch d := dest.(type) {
	case *string:
		*d = v.(string)
	case *int:
		*d = v.(int)
	case *int64:
		*d = v.(int64)
	case *[]byte:
		*d = v.([]byte)
	case *time.Time:
		*d = v.(time.Time)
	default:
		return fmt.Errorf("unsupported scan target %T", dest)
	}
	return nil
}

// stubDB keeps jobs and assets in memory and answers the inline queries
// the handlers issue.
type stubDB struct {
	mu         sync.Mutex
	jobs       map[string]*domain.RenderJob
	assets     map[string]*domain.Asset
	assetOrder []string
}

func newStubDB() *stubDB {
	return &stubDB{
		jobs:   make(map[string]*domain.RenderJob),
		assets: make(map[string]*domain.Asset),
	}
}

func (s *stubDB) addAsset(jobID string, kind domain.AssetKind, key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.assets[id] = &domain.Asset{
		ID:         id,
		JobID:      jobID,
		Kind:       kind,
		StorageKey: key,
		MIME:       "image/png",
		Bytes:      4,
		Width:      8,
		Height:     8,
		Properties: []byte("{}"),
		CreatedAt:  time.Now(),
	}
	s.assetOrder = append(s.assetOrder, id)
	return id
}

func (s *stubDB) addJob(status domain.JobStatus, mode domain.RenderMode, specJSON string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	now := time.Now()
	s.jobs[id] = &domain.RenderJob{
		ID:        id,
		Status:    status,
		Mode:      mode,
		SpecJSON:  []byte(specJSON),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id
}

func (s *stubDB) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, fmt.Errorf("unexpected exec: %s", firstLine(query))
}

func (s *stubDB) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch query {
	case sqlinline.QEnqueueRenderJob:
		id := uuid.NewString()
		now := time.Now()
		s.jobs[id] = &domain.RenderJob{
			ID:        id,
			Status:    domain.JobStatusQueued,
			Mode:      domain.NormalizeMode(args[0].(string)),
			SpecJSON:  append([]byte(nil), args[1].([]byte)...),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return stubRow{scan: func(dest ...any) error {
			return assign(dest[0], id)
		}}

	case sqlinline.QSelectRenderJob:
		job, ok := s.jobs[args[0].(string)]
		if !ok {
			return stubRow{}
		}
		return stubRow{scan: func(dest ...any) error {
			row := []any{job.ID, string(job.Status), string(job.Mode), job.SpecJSON, job.ErrorMessage, job.CreatedAt, job.UpdatedAt}
			for i, v := range row {
				if err := assign(dest[i], v); err != nil {
					return err
				}
			}
			return nil
		}}

	case sqlinline.QInsertAsset:
		id := uuid.NewString()
		s.assets[id] = &domain.Asset{
			ID:         id,
			JobID:      args[0].(string),
			Kind:       domain.AssetKind(args[1].(string)),
			StorageKey: args[2].(string),
			MIME:       args[3].(string),
			Bytes:      args[4].(int64),
			Width:      args[5].(int),
			Height:     args[6].(int),
			Properties: append([]byte(nil), args[7].([]byte)...),
			CreatedAt:  time.Now(),
		}
		s.assetOrder = append(s.assetOrder, id)
		return stubRow{scan: func(dest ...any) error {
			return assign(dest[0], id)
		}}

	case sqlinline.QSelectAssetByID:
		asset, ok := s.assets[args[0].(string)]
		if !ok {
			return stubRow{}
		}
		return stubRow{scan: func(dest ...any) error {
			for i, v := range assetRow(asset) {
				if err := assign(dest[i], v); err != nil {
					return err
				}
			}
			return nil
		}}
	}
	return stubRow{scan: func(dest ...any) error {
		return fmt.Errorf("unexpected query_row: %s", firstLine(query))
	}}
}

func (s *stubDB) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch query {
	case sqlinline.QListAssetsByJob:
		return &stubRows{rows: s.jobAssetRows(args[0].(string), nil)}, nil

	case sqlinline.QListResultAssetsByJob:
		deliverable := map[domain.AssetKind]bool{
			domain.AssetKindResult:       true,
			domain.AssetKindContactSheet: true,
			domain.AssetKindComparison:   true,
		}
		return &stubRows{rows: s.jobAssetRows(args[0].(string), deliverable)}, nil

	case sqlinline.QCountRenderJobsByStatus:
		counts := make(map[string]int)
		for _, job := range s.jobs {
			counts[string(job.Status)]++
		}
		var rows [][]any
		for status, n := range counts {
			rows = append(rows, []any{status, n})
		}
		return &stubRows{rows: rows}, nil
	}
	return nil, fmt.Errorf("unexpected query: %s", firstLine(query))
}

func (s *stubDB) jobAssetRows(jobID string, kinds map[domain.AssetKind]bool) [][]any {
	var rows [][]any
	for _, id := range s.assetOrder {
		asset := s.assets[id]
		if asset.JobID != jobID {
			continue
		}
		if kinds != nil && !kinds[asset.Kind] {
			continue
		}
		rows = append(rows, assetRow(asset))
	}
	return rows
}

func assetRow(a *domain.Asset) []any {
	return []any{a.ID, a.JobID, string(a.Kind), a.StorageKey, a.MIME, a.Bytes, a.Width, a.Height, a.Properties, a.CreatedAt}
}

func firstLine(query string) string {
	for i := 0; i < len(query); i++ {
		if query[i] == '\n' {
			return query[:i]
		}
	}
	return query
}
