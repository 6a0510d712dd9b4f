package store

import (
	"encoding/binary"
	"fmt"

	"github.com/coocood/freecache"

	"github.com/taigrr/voxlab/pkg/logging"
	"github.com/taigrr/voxlab/pkg/volume"
)

// resultCache keeps encoded resampled payloads keyed by id and size. Each
// value is the 12-byte dims header followed by the f32 samples. freecache
// refuses entries larger than 1/1024 of its capacity, so big payloads are
// simply not cached.
type resultCache struct {
	c *freecache.Cache
}

func newResultCache(bytes int) *resultCache {
	if bytes <= 0 {
		return nil
	}
	return &resultCache{c: freecache.NewCache(bytes)}
}

func cacheKey(id string, size int) []byte {
	return fmt.Appendf(nil, "%s@%d", id, size)
}

func (rc *resultCache) get(id string, size int) ([]byte, volume.Dims, bool) {
	if rc == nil {
		return nil, volume.Dims{}, false
	}
	v, err := rc.c.Get(cacheKey(id, size))
	if err != nil {
		if err != freecache.ErrNotFound {
			logging.Warningf("result cache get %s@%d: %v", id, size, err)
		}
		return nil, volume.Dims{}, false
	}
	d := volume.Dims{
		X: int(binary.LittleEndian.Uint32(v[0:])),
		Y: int(binary.LittleEndian.Uint32(v[4:])),
		Z: int(binary.LittleEndian.Uint32(v[8:])),
	}
	return v[12:], d, true
}

func (rc *resultCache) set(id string, size int, data []byte, d volume.Dims) {
	if rc == nil {
		return
	}
	v := make([]byte, 12+len(data))
	binary.LittleEndian.PutUint32(v[0:], uint32(d.X))
	binary.LittleEndian.PutUint32(v[4:], uint32(d.Y))
	binary.LittleEndian.PutUint32(v[8:], uint32(d.Z))
	copy(v[12:], data)
	if err := rc.c.Set(cacheKey(id, size), v, 0); err != nil {
		logging.Debugf("not caching %s@%d (%d bytes): %v", id, size, len(v), err)
	}
}

func (rc *resultCache) stats() (entries int64, hitRate float64) {
	if rc == nil {
		return 0, 0
	}
	return rc.c.EntryCount(), rc.c.HitRate()
}
