package cache

import (
	"bytes"
	"testing"
)

func TestAssetMetaCache(t *testing.T) {
	Reset()

	if _, _, ok := GetAssetMeta("a1"); ok {
		t.Error("Empty cache should not return an entry")
	}

	image := []byte{0x89, 0x50, 0x4e, 0x47}
	PutAssetMeta("a1", "CryptoDunk #1", image)

	name, cached, ok := GetAssetMeta("a1")
	if !ok {
		t.Fatal("Cached entry not found")
	}

	if name != "CryptoDunk #1" || !bytes.Equal(cached, image) {
		t.Error("Cached entry does not match stored values")
	}

	Reset()
	if _, _, ok := GetAssetMeta("a1"); ok {
		t.Error("Reset should drop all entries")
	}
}
