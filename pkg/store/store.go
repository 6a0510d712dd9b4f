// Package store loads scalar fields from a directory of NetCDF files and
// serves them at native resolution, as a cached low-resolution preview, or
// point-resampled to a requested size.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/taigrr/voxlab/pkg/api"
	"github.com/taigrr/voxlab/pkg/logging"
	"github.com/taigrr/voxlab/pkg/volume"
)

// DefaultPreviewSize is the longest axis of the cached preview.
const DefaultPreviewSize = 64

// ReadFunc loads the native field stored at path.
type ReadFunc func(path string) (*volume.Field, error)

// Options tune a Store. The zero value is usable.
type Options struct {
	// Workers bounds concurrent file reads, both at load time and per
	// request. Zero uses GOMAXPROCS.
	Workers int

	// PreviewSize is the longest axis of the low-resolution preview.
	PreviewSize int

	// CacheBytes sizes the resampled-result cache; zero disables it.
	CacheBytes int

	// Read overrides the file reader. Defaults to ReadNetCDF.
	Read ReadFunc
}

type entry struct {
	info    api.VolumeInfo
	path    string
	preview []byte
}

// Store maps volume ids to their source files, metadata and previews. It is
// safe for concurrent use.
type Store struct {
	dir     string
	read    ReadFunc
	pool    *Pool
	flight  singleflight.Group
	cache   *resultCache
	preview int

	mu      sync.RWMutex
	entries map[string]*entry
}

func readNetCDF(path string) (*volume.Field, error) {
	f, _, err := ReadNetCDF(path)
	return f, err
}

// Open scans dir for source files and loads each one's metadata and preview
// in parallel. Files that fail to load are logged and skipped; a missing
// directory yields an empty store.
func Open(ctx context.Context, dir string, opts Options) (*Store, error) {
	s := &Store{
		dir:     dir,
		read:    opts.Read,
		pool:    NewPool(opts.Workers),
		cache:   newResultCache(opts.CacheBytes),
		preview: opts.PreviewSize,
		entries: make(map[string]*entry),
	}
	if s.read == nil {
		s.read = readNetCDF
	}
	if s.preview <= 0 {
		s.preview = DefaultPreviewSize
	}

	timedLog := logging.NewTimeLog()
	paths, err := scan(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Warningf("samples directory not found: %s", dir)
			return s, nil
		}
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.pool.Size())
	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e, err := s.load(path)
			if err != nil {
				logging.Warningf("skipping %s: %v", path, err)
				return nil
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			if prev, dup := s.entries[e.info.ID]; dup {
				logging.Warningf("volume id %q from %s shadows %s", e.info.ID, path, prev.path)
			}
			s.entries[e.info.ID] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	timedLog.Infof("loaded %d of %d volumes from %s", len(s.entries), len(paths), dir)
	return s, nil
}

func scan(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range ents {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), Extension) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// VolumeID derives a volume id from its file name: the base name without
// extension.
func VolumeID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *Store) load(path string) (*entry, error) {
	field, err := s.read(path)
	if err != nil {
		return nil, err
	}
	low := volume.Resample(field, s.preview)
	id := VolumeID(path)
	e := &entry{
		path:    path,
		preview: low.Bytes(),
		info: api.VolumeInfo{
			ID:               id,
			Name:             id,
			Dimensions:       field.Dims.Array(),
			LowResDimensions: low.Dims.Array(),
			LowResSize:       int64(low.ByteSize()),
			FullResSize:      int64(field.ByteSize()),
			ValueRange:       field.Range.Array(),
		},
	}
	logging.Infof("loaded volume %s %s (%s, preview %s), range [%g, %g]",
		id, field.Dims, humanize.Bytes(uint64(e.info.FullResSize)), low.Dims,
		field.Range.Min, field.Range.Max)
	return e, nil
}

func (s *Store) get(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("volume %q: %w", id, ErrNotFound)
	}
	return e, nil
}

// Len returns the number of loaded volumes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// List returns metadata for every volume, sorted by id.
func (s *Store) List() []api.VolumeInfo {
	s.mu.RLock()
	infos := make([]api.VolumeInfo, 0, len(s.entries))
	for _, e := range s.entries {
		infos = append(infos, e.info)
	}
	s.mu.RUnlock()
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// IDs returns the sorted volume ids.
func (s *Store) IDs() []string {
	infos := s.List()
	ids := make([]string, len(infos))
	for i, info := range infos {
		ids[i] = info.ID
	}
	return ids
}

// Info returns the metadata of one volume.
func (s *Store) Info(id string) (api.VolumeInfo, error) {
	e, err := s.get(id)
	if err != nil {
		return api.VolumeInfo{}, err
	}
	return e.info, nil
}

// LowRes returns the cached preview bytes computed at load time.
func (s *Store) LowRes(id string) ([]byte, error) {
	e, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return e.preview, nil
}

// FullRes re-reads the native field on the worker pool.
func (s *Store) FullRes(ctx context.Context, id string) ([]byte, error) {
	e, err := s.get(id)
	if err != nil {
		return nil, err
	}
	res, err := s.resolve(ctx, e, 0)
	if err != nil {
		return nil, err
	}
	return res.data, nil
}

// AtResolution point-resamples the native field so its longest axis is at
// most target, after clamping target to [16, 512]. The returned dims are
// the actual result dims, which need not equal target on every axis.
func (s *Store) AtResolution(ctx context.Context, id string, target int) ([]byte, volume.Dims, error) {
	e, err := s.get(id)
	if err != nil {
		return nil, volume.Dims{}, err
	}
	res, err := s.resolve(ctx, e, api.ClampResolution(target))
	if err != nil {
		return nil, volume.Dims{}, err
	}
	return res.data, res.dims, nil
}

type result struct {
	data []byte
	dims volume.Dims
}

// resolve produces the encoded field at size (0 means native). Identical
// concurrent requests share one read, which runs detached from any single
// caller's cancellation; each caller stops waiting when its own ctx ends.
func (s *Store) resolve(ctx context.Context, e *entry, size int) (result, error) {
	id := e.info.ID
	if data, d, ok := s.cache.get(id, size); ok {
		return result{data, d}, nil
	}
	shared := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(string(cacheKey(id, size)), func() (any, error) {
		var res result
		err := s.pool.Do(shared, func() error {
			field, err := s.read(e.path)
			if err != nil {
				return err
			}
			if size > 0 {
				field = volume.Resample(field, size)
			}
			res = result{data: field.Bytes(), dims: field.Dims}
			return nil
		})
		if err != nil {
			return result{}, err
		}
		s.cache.set(id, size, res.data, res.dims)
		return res, nil
	})
	var r singleflight.Result
	select {
	case r = <-ch:
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
	if err := r.Err; err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result{}, err
		}
		if !errors.Is(err, ErrReadFailure) && !errors.Is(err, ErrDatasetMissing) {
			err = fmt.Errorf("%w: %v", ErrReadFailure, err)
		}
		return result{}, fmt.Errorf("volume %q: %w", id, err)
	}
	return r.Val.(result), nil
}

// CacheStats reports the resampled-result cache entry count and hit rate.
func (s *Store) CacheStats() (entries int64, hitRate float64) {
	return s.cache.stats()
}
