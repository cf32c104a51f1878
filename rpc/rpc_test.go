package rpc

import (
	"encoding/json"
	"errors"
	"openc/market"
	"testing"
)

func TestGetRPCRequestBody(t *testing.T) {
	body := getRPCRequestBody("createListing", []interface{}{"asset-1", "seller-1", uint64(100)})

	var decoded struct {
		JSONRPC string        `json:"jsonrpc"`
		Method  string        `json:"method"`
		Params  []interface{} `json:"params"`
		ID      int           `json:"id"`
	}

	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		t.Fatalf("Request body is not valid JSON: %v\n%s", err, body)
	}

	if decoded.Method != "createListing" {
		t.Errorf("Wrong method in request body: %s", decoded.Method)
	}

	if len(decoded.Params) != 3 {
		t.Fatalf("Expected 3 params, got %d", len(decoded.Params))
	}

	if decoded.Params[0] != "asset-1" || decoded.Params[2].(float64) != 100 {
		t.Errorf("Params encoded incorrectly: %v", decoded.Params)
	}
}

func TestStatusErr(t *testing.T) {
	if statusErr("Success") != nil {
		t.Error("Success must map to nil error")
	}

	cases := map[string]error{
		"AlreadyListed":     market.ErrAlreadyListed,
		"NotListed":         market.ErrNotListed,
		"AlreadySold":       market.ErrAlreadySold,
		"InsufficientFunds": market.ErrInsufficientFunds,
	}

	for status, want := range cases {
		if got := statusErr(status); !errors.Is(got, want) {
			t.Errorf("Status %s mapped to %v, want %v", status, got, want)
		}
	}

	if statusErr("SomethingElse") == nil {
		t.Error("Unknown status must map to an error")
	}
}

func TestPoolPick(t *testing.T) {
	p := &Pool{
		service:   "test",
		available: map[string]bool{"http://a:1": true, "http://b:1": true},
	}
	p.Up.Set(2)

	if _, ok := p.pick(); !ok {
		t.Fatal("Pool with available servers must return one")
	}

	p.down("http://a:1")
	p.down("http://a:1") // repeated marks must not double count
	if p.Up.Get() != 1 {
		t.Errorf("Up counter should be 1, got %d", p.Up.Get())
	}

	url, ok := p.pick()
	if !ok || url != "http://b:1" {
		t.Errorf("Only remaining server should be picked, got %s", url)
	}

	p.down("http://b:1")
	if _, ok := p.pick(); ok {
		t.Error("Exhausted pool must report no server")
	}
}
