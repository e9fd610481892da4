package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"incident_extract/extract"
	"incident_extract/internal/store"
	"incident_extract/mapper"
)

// Results persists outcomes to the store and exports each one as a JSON file
// under dir/extract or dir/normalize.
type Results struct {
	store *store.Store
	dir   string
	now   func() time.Time
}

func NewResults(st *store.Store, dir string) *Results {
	return &Results{store: st, dir: dir, now: func() time.Time { return time.Now().UTC() }}
}

// SaveExtraction stores one extraction result and exports it.
func (r *Results) SaveExtraction(ctx context.Context, source, transcript string, res extract.Result) (store.Extraction, error) {
	kw, err := json.Marshal(res.Keywords)
	if err != nil {
		return store.Extraction{}, err
	}
	e := store.Extraction{
		ID:         uuid.NewString(),
		Source:     source,
		Mode:       string(res.Mode),
		Model:      res.Model,
		Recovery:   res.Recovery,
		LatencyMS:  res.LatencyMS,
		Transcript: transcript,
		Keywords:   kw,
		CreatedAt:  r.now(),
	}
	if err := r.store.SaveExtraction(ctx, e); err != nil {
		return store.Extraction{}, err
	}
	if err := writeJSON(filepath.Join(r.dir, "extract", e.ID+".json"), e); err != nil {
		return e, fmt.Errorf("export extraction %s: %w", e.ID, err)
	}
	return e, nil
}

// SaveBoth stores the facts and insights variants of one transcript.
func (r *Results) SaveBoth(ctx context.Context, source, transcript string, both extract.Both) ([]store.Extraction, error) {
	out := make([]store.Extraction, 0, 2)
	for _, res := range []extract.Result{both.Facts, both.Insights} {
		e, err := r.SaveExtraction(ctx, source, transcript, res)
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

// SaveNormalized stores a nested record and exports it as
// normalize/<id>.json. The exported file holds the nested form only.
func (r *Results) SaveNormalized(ctx context.Context, source string, n mapper.Nested) (store.NormalizedRecord, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return store.NormalizedRecord{}, err
	}
	id := uuid.NewString()
	rec := store.NormalizedRecord{
		ID:         id,
		Source:     source,
		FireDataPK: n.FireDataPK,
		Data:       data,
		FilePath:   filepath.Join(r.dir, "normalize", id+".json"),
		CreatedAt:  r.now(),
	}
	if err := writeJSON(rec.FilePath, n); err != nil {
		return store.NormalizedRecord{}, fmt.Errorf("export normalized %s: %w", id, err)
	}
	if err := r.store.SaveNormalized(ctx, rec); err != nil {
		return store.NormalizedRecord{}, err
	}
	return rec, nil
}

// writeJSON writes v next to path and renames it into place so readers never
// see a partial file.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
