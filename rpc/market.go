package rpc

import (
	"openc/identity"
)

// MarketClient wraps the marketplace registry operations.
type MarketClient struct {
	pool *Pool
	id   *identity.Identity
}

// NewMarketClient builds a marketplace registry client over the given servers.
func NewMarketClient(urls []string, id *identity.Identity) *MarketClient {
	return &MarketClient{
		pool: newPool("marketplace registry", urls),
		id:   id,
	}
}

type boolResponse struct {
	jsonRPCResponse
	Result bool `json:"result"`
}

type uint64Response struct {
	jsonRPCResponse
	Result uint64 `json:"result"`
}

// CreateListing records a new listing for an asset.
func (c *MarketClient) CreateListing(assetID, seller string, price uint64) error {
	respData := statusResponse{}
	err := c.pool.call("createListing", []interface{}{assetID, seller, price}, c.id, &respData)
	if err != nil {
		return err
	}
	if err := respData.err(); err != nil {
		return err
	}

	return statusErr(respData.Result)
}

// IsListed reports whether a live listing exists for the asset.
func (c *MarketClient) IsListed(assetID string) (bool, error) {
	respData := boolResponse{}
	err := c.pool.call("isListed", []interface{}{assetID}, nil, &respData)
	if err != nil {
		return false, err
	}
	if err := respData.err(); err != nil {
		return false, err
	}

	return respData.Result, nil
}

// OriginalOwner returns the seller recorded at listing time.
// Sold listings answer with the AlreadySold failure kind.
func (c *MarketClient) OriginalOwner(assetID string) (string, error) {
	respData := statusResponse{}
	err := c.pool.call("getOriginalOwner", []interface{}{assetID}, nil, &respData)
	if err != nil {
		return "", err
	}
	if err := respData.err(); err != nil {
		return "", err
	}

	switch respData.Result {
	case "NotListed", "AlreadySold":
		return "", statusErr(respData.Result)
	}

	return respData.Result, nil
}

// ListedPrice returns the token price of a live listing.
func (c *MarketClient) ListedPrice(assetID string) (uint64, error) {
	respData := uint64Response{}
	err := c.pool.call("getListedPrice", []interface{}{assetID}, nil, &respData)
	if err != nil {
		return 0, err
	}
	if err := respData.err(); err != nil {
		return 0, err
	}

	return respData.Result, nil
}

// CompletePurchase atomically moves the asset to the buyer and marks the
// listing sold. The registry treats repeated calls with identical
// arguments as idempotent, so replaying after a partial failure is safe.
func (c *MarketClient) CompletePurchase(assetID, seller, buyer string) error {
	respData := statusResponse{}
	err := c.pool.call("completePurchase", []interface{}{assetID, seller, buyer}, c.id, &respData)
	if err != nil {
		return err
	}
	if err := respData.err(); err != nil {
		return err
	}

	return statusErr(respData.Result)
}

// OwnedAssets returns ids of all assets owned by an account,
// including assets the account has listed (those are held by the
// marketplace account until sold).
func (c *MarketClient) OwnedAssets(account string) ([]string, error) {
	respData := StringListResponse{}
	err := c.pool.call("getOwnedAssets", []interface{}{account}, nil, &respData)
	if err != nil {
		return nil, err
	}
	if err := respData.err(); err != nil {
		return nil, err
	}

	return respData.Result, nil
}

// ListedAssets returns ids of all assets with a live listing.
func (c *MarketClient) ListedAssets() ([]string, error) {
	respData := StringListResponse{}
	err := c.pool.call("getListedAssets", []interface{}{}, nil, &respData)
	if err != nil {
		return nil, err
	}
	if err := respData.err(); err != nil {
		return nil, err
	}

	return respData.Result, nil
}

// MarketplaceAccount returns the account the marketplace holds
// listed assets under.
func (c *MarketClient) MarketplaceAccount() (string, error) {
	respData := StringResponse{}
	err := c.pool.call("getMarketplaceAccount", []interface{}{}, nil, &respData)
	if err != nil {
		return "", err
	}
	if err := respData.err(); err != nil {
		return "", err
	}

	return respData.Result, nil
}
