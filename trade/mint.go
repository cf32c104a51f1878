package trade

import (
	"errors"
	"openc/cache"
	"strings"
)

// Mint creates a new asset owned by the caller and returns its id.
func (t *Trader) Mint(name string, image []byte) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("asset name is required")
	}

	if len(image) == 0 {
		return "", errors.New("asset image is required")
	}

	assetID, err := t.Assets.Mint(name, image)
	if err != nil {
		return "", err
	}

	// Name and image are immutable after mint, cache them right away.
	cache.PutAssetMeta(assetID, name, image)

	t.notify(assetID)

	return assetID, nil
}
