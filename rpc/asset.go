package rpc

import (
	"encoding/base64"
	"fmt"
	"openc/identity"
)

// AssetClient wraps the asset registry operations.
// Each method performs exactly one remote operation.
type AssetClient struct {
	pool *Pool
	id   *identity.Identity
}

// NewAssetClient builds an asset registry client over the given servers.
func NewAssetClient(urls []string, id *identity.Identity) *AssetClient {
	return &AssetClient{
		pool: newPool("asset registry", urls),
		id:   id,
	}
}

// StringResponse returns string typed rpc response data.
type StringResponse struct {
	jsonRPCResponse
	Result string `json:"result"`
}

// StringListResponse returns string list typed rpc response data.
type StringListResponse struct {
	jsonRPCResponse
	Result []string `json:"result"`
}

// Name returns the immutable display name of an asset.
func (c *AssetClient) Name(assetID string) (string, error) {
	respData := StringResponse{}
	err := c.pool.call("getName", []interface{}{assetID}, nil, &respData)
	if err != nil {
		return "", err
	}
	if err := respData.err(); err != nil {
		return "", err
	}

	return respData.Result, nil
}

// Owner returns the current owner account of an asset.
func (c *AssetClient) Owner(assetID string) (string, error) {
	respData := StringResponse{}
	err := c.pool.call("getOwner", []interface{}{assetID}, nil, &respData)
	if err != nil {
		return "", err
	}
	if err := respData.err(); err != nil {
		return "", err
	}

	return respData.Result, nil
}

// Image returns the immutable image blob of an asset.
func (c *AssetClient) Image(assetID string) ([]byte, error) {
	respData := StringResponse{}
	err := c.pool.call("getImage", []interface{}{assetID}, nil, &respData)
	if err != nil {
		return nil, err
	}
	if err := respData.err(); err != nil {
		return nil, err
	}

	image, err := base64.StdEncoding.DecodeString(respData.Result)
	if err != nil {
		return nil, fmt.Errorf("asset %s image is not valid base64: %s", assetID, err)
	}

	return image, nil
}

// TransferOwnership moves an asset to a new owner account.
// Transferring to the current owner is a no-op on the registry side,
// so repeating this call with identical arguments is safe.
func (c *AssetClient) TransferOwnership(assetID, newOwner string) error {
	respData := statusResponse{}
	err := c.pool.call("transferOwnership", []interface{}{assetID, newOwner}, c.id, &respData)
	if err != nil {
		return err
	}
	if err := respData.err(); err != nil {
		return err
	}

	return statusErr(respData.Result)
}

// Mint creates a new asset owned by the caller and returns its id.
func (c *AssetClient) Mint(name string, image []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(image)

	respData := StringResponse{}
	err := c.pool.call("mint", []interface{}{name, encoded}, c.id, &respData)
	if err != nil {
		return "", err
	}
	if err := respData.err(); err != nil {
		return "", err
	}

	if respData.Result == "" {
		return "", fmt.Errorf("registry returned empty asset id for mint of %q", name)
	}

	return respData.Result, nil
}
