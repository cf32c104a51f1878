package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"openc/identity"
	"openc/log"
	"openc/market"
	"time"

	eParser "github.com/go-errors/errors"
	"github.com/valyala/fasthttp"
)

// callTimeout bounds one remote round trip. A timeout is reported as
// market.ErrUnknownOutcome: the remote effect may still have happened.
const callTimeout = 20 * time.Second

var client = &fasthttp.Client{}

// jsonRPCResponse returns rpc response data.
type jsonRPCResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Error   *rpcError `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// statusResponse is the envelope of state-changing calls.
// The registries answer those with a plain status string.
type statusResponse struct {
	jsonRPCResponse
	Result string `json:"result"`
}

func getRPCRequestBody(method string, params []interface{}) string {
	p := ""

	for _, param := range params {
		switch param.(type) {
		case int8, uint8,
			int16, uint16,
			int, uint,
			int32, uint32,
			int64, uint64:
			p += fmt.Sprintf("%d, ", param)
		case string:
			p += fmt.Sprintf("%q, ", param)
		default:
			err := fmt.Errorf("the RPC parameter type must be integer or string. current type=%T, value=%v", param, param)
			panic(err)
		}
	}

	if p != "" {
		p = p[:len(p)-2]
	}

	body := `{
		"jsonrpc": "2.0",
		"method": "` + method + `",
		"params": [
			` + p + `
		],
		"id": 1
	}
	`
	return body
}

// call performs one remote operation against the pool. It tries each
// available server at most once and never retries a delivered request;
// retry decisions belong to the workflow layer.
func (p *Pool) call(method string, params []interface{}, id *identity.Identity, target interface{}) error {
	requestBody := []byte(getRPCRequestBody(method, params))

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod("POST")
	req.Header.SetContentType("application/json")
	req.SetBody(requestBody)

	if id != nil {
		req.Header.Set("X-OpenC-Account", id.Account())
		req.Header.Set("X-OpenC-PublicKey", id.PublicKey())
		req.Header.Set("X-OpenC-Signature", id.Sign(requestBody))
	}

	for attempt := 0; attempt < p.size(); attempt++ {
		url, ok := p.pick()
		if !ok {
			break
		}

		req.SetRequestURI(url)
		err := client.DoTimeout(req, resp, callTimeout)
		if err == fasthttp.ErrTimeout {
			// The request may have been delivered, do not fail over.
			return market.ErrUnknownOutcome
		}
		if err != nil {
			log.Error.Println(err)
			p.down(url)
			time.Sleep(50 * time.Millisecond)
			continue
		}

		bodyBytes := resp.Body()

		err = json.Unmarshal(bodyBytes, target)
		if err != nil {
			log.Error.Println(errors.New(eParser.Wrap(err, 0).ErrorStack()))
			log.Error.Printf("Request body: %v\n", string(requestBody))
			log.Error.Printf("Response: %v\n", string(bodyBytes))
			return fmt.Errorf("malformed response from %s: %s", p.service, err)
		}

		return nil
	}

	return market.ErrUnavailable
}

// statusErr maps a registry status string to a failure kind.
func statusErr(result string) error {
	switch result {
	case "Success":
		return nil
	case "AlreadyListed":
		return market.ErrAlreadyListed
	case "NotListed":
		return market.ErrNotListed
	case "AlreadySold":
		return market.ErrAlreadySold
	case "InsufficientFunds":
		return market.ErrInsufficientFunds
	default:
		return fmt.Errorf("registry rejected call: %s", result)
	}
}

func (r *jsonRPCResponse) err() error {
	if r.Error == nil {
		return nil
	}
	return fmt.Errorf("rpc error %d: %s", r.Error.Code, r.Error.Message)
}
