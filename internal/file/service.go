package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/filestore/service/internal/provider"
)

// Store is the metadata persistence contract the service depends on.
// *Repository implements it.
type Store interface {
	Insert(ctx context.Context, recs []NewRecord) ([]string, error)
	Select(ctx context.Context, f Filter) ([]Record, error)
	DeleteByIDs(ctx context.Context, ids []string) ([]DeletedRef, error)
}

// Cache fronts the service's read paths. It is optional: a nil Cache means
// every URL is resolved live.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	DeletePattern(ctx context.Context, pattern string) error
}

// Upload is one file to be stored: its original name, the declared content
// type, and the full byte content.
type Upload struct {
	Name     string
	Mimetype string
	Data     []byte
}

// UploadFailure reports one file in a batch that a backend rejected.
type UploadFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// UploadResult carries the stored files plus a structured outcome for each
// rejected one, so callers can tell partial failure apart from a short
// request.
type UploadResult struct {
	Files  []File          `json:"files"`
	Failed []UploadFailure `json:"failed,omitempty"`
}

// Service orchestrates uploads, lookups and deletes across the metadata
// store and the configured storage backends. The adapter map is built once
// at construction and is read-only afterwards.
type Service struct {
	store     Store
	providers map[provider.ID]provider.Provider
	cache     Cache
	logger    *zap.Logger
}

// NewService wires the service with already-constructed dependencies.
// cache may be nil to disable read-path memoization.
func NewService(store Store, providers []provider.Provider, cache Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := make(map[provider.ID]provider.Provider, len(providers))
	for _, p := range providers {
		m[p.ID()] = p
	}
	return &Service{store: store, providers: m, cache: cache, logger: logger}
}

// resolve returns the adapter for id, or ErrInvalidProvider when id is not
// in the configured set.
func (s *Service) resolve(id provider.ID) (provider.Provider, error) {
	p, ok := s.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProvider, id)
	}
	return p, nil
}

// Upload stores each file with the given backend, persists metadata for the
// fulfilled ones, and returns the stored records with resolved URLs.
//
// Per-file uploads run concurrently under an all-settle policy: one rejected
// file never aborts its siblings. Rejections come back in the result's
// Failed list. An empty input is a no-op, not an error.
func (s *Service) Upload(ctx context.Context, providerID provider.ID, uploads []Upload, location string) (*UploadResult, error) {
	result := &UploadResult{Files: []File{}}
	if len(uploads) == 0 {
		return result, nil
	}

	p, err := s.resolve(providerID)
	if err != nil {
		return nil, err
	}

	type outcome struct {
		info provider.FileInfo
		err  error
	}
	outcomes := make([]outcome, len(uploads))
	var wg sync.WaitGroup
	for i, up := range uploads {
		wg.Add(1)
		go func(i int, up Upload) {
			defer wg.Done()
			info, err := p.Upload(ctx, up.Data, up.Name, location, up.Mimetype)
			outcomes[i] = outcome{info: info, err: err}
		}(i, up)
	}
	wg.Wait()

	var infos []provider.FileInfo
	for i, o := range outcomes {
		if o.err != nil {
			s.logger.Warn("upload rejected by backend",
				zap.String("name", uploads[i].Name),
				zap.String("provider", string(providerID)),
				zap.Error(o.err))
			result.Failed = append(result.Failed, UploadFailure{Name: uploads[i].Name, Reason: o.err.Error()})
			continue
		}
		infos = append(infos, o.info)
	}
	if len(infos) == 0 {
		return result, nil
	}

	recs := make([]NewRecord, len(infos))
	for i, info := range infos {
		recs[i] = NewRecord{
			Name:        info.Name,
			Path:        info.Path,
			Mimetype:    info.Mimetype,
			Size:        info.Size,
			Provider:    providerID,
			ReferenceID: info.ReferenceID,
		}
	}

	ids, err := s.store.Insert(ctx, recs)
	if err != nil {
		// The bytes already reached the backend; without a metadata row they
		// would be untracked, so compensate by removing them again.
		s.compensate(p, infos)
		return nil, fmt.Errorf("insert file records: %w", err)
	}

	// Re-read through the fetch path so the response carries store-assigned
	// timestamps and resolved URLs.
	files, err := s.FetchFiles(ctx, Filter{IDs: ids}, true)
	if err != nil {
		return nil, err
	}
	result.Files = files
	return result, nil
}

// compensate best-effort deletes objects whose metadata insert failed.
func (s *Service) compensate(p provider.Provider, infos []provider.FileInfo) {
	for _, info := range infos {
		go func(ref string) {
			if err := p.Delete(context.Background(), ref); err != nil {
				s.logger.Error("orphaned object cleanup failed",
					zap.String("provider", string(p.ID())),
					zap.String("referenceId", ref),
					zap.Error(err))
			}
		}(info.ReferenceID)
	}
}

// FetchFiles returns all files matching the filter with resolved URLs.
// When a cache is configured the resolved list is memoized per filter;
// revalidate bypasses the cached copy but still refreshes it.
//
// URL resolution runs concurrently under the same all-settle policy as
// uploads: a record whose URL cannot be resolved is dropped and logged.
func (s *Service) FetchFiles(ctx context.Context, f Filter, revalidate bool) ([]File, error) {
	key := listCacheKey(f)
	if s.cache != nil && !revalidate {
		var cached []File
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("cache read failed", zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	recs, err := s.store.Select(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("select files: %w", err)
	}

	resolved := make([]*File, len(recs))
	var wg sync.WaitGroup
	for i, rec := range recs {
		wg.Add(1)
		go func(i int, rec Record) {
			defer wg.Done()
			p, err := s.resolve(rec.Provider)
			if err == nil {
				var url string
				if url, err = p.URL(ctx, rec.ReferenceID); err == nil {
					f := rec.toFile(url)
					resolved[i] = &f
					return
				}
			}
			s.logger.Warn("dropping record with unresolvable url",
				zap.String("id", rec.ID),
				zap.String("provider", string(rec.Provider)),
				zap.Error(err))
		}(i, rec)
	}
	wg.Wait()

	files := make([]File, 0, len(recs))
	for _, f := range resolved {
		if f != nil {
			files = append(files, *f)
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, files); err != nil {
			s.logger.Warn("cache write failed", zap.Error(err))
		}
	}
	return files, nil
}

// FetchFile is the singular form of FetchFiles. It returns ErrNotFound when
// no record matches id.
func (s *Service) FetchFile(ctx context.Context, id string, revalidate bool) (*File, error) {
	files, err := s.FetchFiles(ctx, Filter{IDs: []string{id}}, revalidate)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &files[0], nil
}

// URL resolves an access URL directly from the backend, bypassing the
// metadata store. Used when the caller already holds a physical reference.
func (s *Service) URL(ctx context.Context, providerID provider.ID, referenceID string) (string, error) {
	p, err := s.resolve(providerID)
	if err != nil {
		return "", err
	}
	return p.URL(ctx, referenceID)
}

// Delete removes the metadata rows for ids in one statement and dispatches
// physical deletes concurrently. The metadata delete is the durability
// boundary: physical cleanup is best-effort, is not awaited, and failures
// are only logged. An empty input is a no-op.
func (s *Service) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	refs, err := s.store.DeleteByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("delete file records: %w", err)
	}

	for _, ref := range refs {
		p, err := s.resolve(ref.Provider)
		if err != nil {
			s.logger.Error("no adapter for stored provider",
				zap.String("provider", string(ref.Provider)),
				zap.String("referenceId", ref.ReferenceID))
			continue
		}
		go func(p provider.Provider, ref string) {
			if err := p.Delete(context.Background(), ref); err != nil {
				s.logger.Error("physical delete failed",
					zap.String("provider", string(p.ID())),
					zap.String("referenceId", ref),
					zap.Error(err))
			}
		}(p, ref.ReferenceID)
	}

	if s.cache != nil {
		if err := s.cache.DeletePattern(ctx, "files:*"); err != nil {
			s.logger.Warn("cache invalidation failed", zap.Error(err))
		}
	}
	return nil
}

// listCacheKey derives a stable cache key from the filter.
func listCacheKey(f Filter) string {
	b, _ := json.Marshal(f)
	sum := sha256.Sum256(b)
	return "files:" + hex.EncodeToString(sum[:8])
}
