package rpc

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"openc/mail"
	"openc/util"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

var (
	poolsLock sync.Mutex
	pools     []*Pool
)

// Pool holds the servers of one remote service.
// Temporarily unaccessable servers are marked down,
// their status is refreshed timely.
type Pool struct {
	service string

	mu        sync.Mutex
	available map[string]bool

	// Up indicates how many servers currently answer pings.
	Up util.SafeCounter
}

type serverStatus struct {
	url string
	up  bool
}

func newPool(service string, urls []string) *Pool {
	p := &Pool{
		service:   service,
		available: make(map[string]bool),
	}

	for _, url := range urls {
		p.available[url] = true
	}
	p.Up.Set(len(urls))

	poolsLock.Lock()
	pools = append(pools, p)
	poolsLock.Unlock()

	return p
}

func (p *Pool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.available)
}

// pick randomly returns one of the available servers.
func (p *Pool) pick() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	candidates := []string{}

	for url, up := range p.available {
		if up {
			// Always select localhost server if valid.
			if strings.Contains(url, "127.0.0.1") ||
				strings.Contains(url, "localhost") {
				candidates = append(candidates, url)
			}

			candidates = append(candidates, url)
		}
	}

	l := len(candidates)
	if l == 0 {
		return "", false
	}

	return candidates[rand.Intn(l)], true
}

func (p *Pool) down(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Incase server changed(e.g., reloaded due to config file change).
	if up, ok := p.available[url]; ok && up {
		p.available[url] = false
		p.Up.Add(-1)
	}
}

// PrintStatus logs availability of all servers in the pool.
func (p *Pool) PrintStatus() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for url, up := range p.available {
		fmt.Printf("%s %s: up=%v\n", p.service, url, up)
	}
}

// Refresh pings all servers of the pool and updates availability.
func (p *Pool) Refresh() int {
	p.mu.Lock()
	urls := make([]string, 0, len(p.available))
	for url := range p.available {
		urls = append(urls, url)
	}
	p.mu.Unlock()

	// It takes time to ping all servers.
	c := make(chan serverStatus, len(urls))

	for _, url := range urls {
		go func(url string, c chan<- serverStatus) {
			c <- serverStatus{
				url: url,
				up:  ping(url),
			}
		}(url, c)
	}

	up := 0
	p.mu.Lock()
	for range urls {
		s := <-c
		p.available[s.url] = s.up
		if s.up {
			up++
		}
	}
	p.Up.Set(up)
	p.mu.Unlock()

	close(c)

	return up
}

func ping(url string) bool {
	body := getRPCRequestBody("ping", []interface{}{})

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod("POST")
	req.Header.SetContentType("application/json")
	req.SetRequestURI(url)
	req.SetBody([]byte(body))

	if err := client.DoTimeout(req, resp, 5*time.Second); err != nil {
		return false
	}

	respData := statusResponse{}
	if err := json.Unmarshal(resp.Body(), &respData); err != nil {
		return false
	}

	return respData.err() == nil
}

// RefreshServers updates availability of all service pools.
func RefreshServers() {
	poolsLock.Lock()
	registered := make([]*Pool, len(pools))
	copy(registered, pools)
	poolsLock.Unlock()

	for _, p := range registered {
		up := p.Refresh()
		if up == 0 {
			p.PrintStatus()
		}
	}
}

// TraceHealth keeps refreshing server availability of all pools.
func TraceHealth() {
	defer mail.AlertIfErr()

	for {
		RefreshServers()

		time.Sleep(3 * time.Second)
	}
}
