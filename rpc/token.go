package rpc

import (
	"encoding/json"
	"openc/identity"
)

// TokenClient wraps the token ledger transfer operation.
type TokenClient struct {
	pool *Pool
	id   *identity.Identity
}

// NewTokenClient builds a token ledger client over the given servers.
func NewTokenClient(urls []string, id *identity.Identity) *TokenClient {
	return &TokenClient{
		pool: newPool("token ledger", urls),
		id:   id,
	}
}

type transferResult struct {
	Status  string `json:"status"`
	Receipt string `json:"receipt"`
}

type transferResponse struct {
	jsonRPCResponse
	Result json.RawMessage `json:"result"`
}

// Transfer moves tokens between two accounts and returns the ledger
// receipt of the transfer. The receipt identifies the payment during
// reconciliation of a failed delivery.
func (c *TokenClient) Transfer(from, to string, amount uint64) (string, error) {
	respData := transferResponse{}
	err := c.pool.call("transfer", []interface{}{from, to, amount}, c.id, &respData)
	if err != nil {
		return "", err
	}
	if err := respData.err(); err != nil {
		return "", err
	}

	result := transferResult{}
	if err := json.Unmarshal(respData.Result, &result); err != nil {
		// Older ledgers answer with a bare status string.
		var status string
		if err2 := json.Unmarshal(respData.Result, &status); err2 != nil {
			return "", err
		}
		return "", statusErr(status)
	}

	if err := statusErr(result.Status); err != nil {
		return "", err
	}

	return result.Receipt, nil
}
