package cache

import "sync"

// metaItem caches the immutable fields of an asset.
// Name and image never change after mint, so a cached
// entry stays correct for the lifetime of the process.
type metaItem struct {
	name  string
	image []byte
}

var (
	metaCache = make(map[string]*metaItem)
	metaLock  sync.Mutex
)

// GetAssetMeta returns cached name and image of an asset.
func GetAssetMeta(assetID string) (string, []byte, bool) {
	metaLock.Lock()
	defer metaLock.Unlock()

	item, ok := metaCache[assetID]
	if !ok {
		return "", nil, false
	}

	return item.name, item.image, true
}

// PutAssetMeta caches name and image of an asset.
func PutAssetMeta(assetID, name string, image []byte) {
	metaLock.Lock()
	defer metaLock.Unlock()

	metaCache[assetID] = &metaItem{
		name:  name,
		image: image,
	}
}

// Reset drops all cached entries.
func Reset() {
	metaLock.Lock()
	defer metaLock.Unlock()

	metaCache = make(map[string]*metaItem)
}
