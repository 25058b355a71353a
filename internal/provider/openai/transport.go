package openai

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	keepAlive             = 30 * time.Second
	expectContinueTimeout = 1 * time.Second
	directRoute           = ""
)

// clientPool keeps one HTTP client per outbound route so connections are
// reused across calls made with the same proxy.
type clientPool struct {
	mu       sync.Mutex
	timeouts Timeouts
	clients  map[string]*http.Client
}

func newClientPool(timeouts Timeouts) *clientPool {
	return &clientPool{
		timeouts: timeouts,
		clients:  make(map[string]*http.Client),
	}
}

// get returns the client for proxyURL; an empty proxyURL means a direct connection.
func (p *clientPool) get(proxyURL string) (*http.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[proxyURL]; ok {
		return client, nil
	}

	var proxy *url.URL
	if proxyURL != directRoute {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q: scheme and host are required", proxyURL)
		}
		proxy = parsed
	}

	client := newHTTPClient(proxy, p.timeouts)
	p.clients[proxyURL] = client
	return client, nil
}

func newHTTPClient(proxy *url.URL, t Timeouts) *http.Client {
	transport := &http.Transport{
		Proxy: nil,
		DialContext: (&net.Dialer{
			Timeout:   t.Connect,
			KeepAlive: keepAlive,
		}).DialContext,
		TLSHandshakeTimeout:   t.Connect,
		ResponseHeaderTimeout: t.Read,
		IdleConnTimeout:       t.Pool,
		ExpectContinueTimeout: expectContinueTimeout,
		ForceAttemptHTTP2:     true,
	}
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   t.Connect + t.Write + t.Read,
	}
}
