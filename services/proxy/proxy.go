package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sjsage522/reviewworker/logger"
	"sjsage522/reviewworker/pkg/errors"
)

// ProxyInfo holds proxy information with latency
type ProxyInfo struct {
	Host     string        `json:"host"`
	Port     int           `json:"port"`
	Type     string        `json:"type"`
	Latency  time.Duration `json:"latency"`
	LastTest time.Time     `json:"last_test"`
	Working  bool          `json:"working"`
}

// URL returns the proxy as scheme://host:port
func (p *ProxyInfo) URL() *url.URL {
	return &url.URL{Scheme: p.Type, Host: net.JoinHostPort(p.Host, strconv.Itoa(p.Port))}
}

func (p *ProxyInfo) String() string {
	return p.URL().String()
}

// Parse reads a proxy address of the form scheme://host:port.
// Supported schemes are http, https and socks5.
func Parse(raw string) (*ProxyInfo, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, errors.NewConfiguration("invalid PROXY_URL "+raw, err)
	}

	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return nil, errors.NewConfiguration("PROXY_URL scheme must be http, https or socks5", nil)
	}

	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		return nil, errors.NewConfiguration("PROXY_URL must include host:port", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, errors.NewConfiguration("PROXY_URL has an invalid port", err)
	}

	return &ProxyInfo{Host: host, Port: port, Type: u.Scheme}, nil
}

// Transport returns an http.Transport that routes every request through p
func Transport(p *ProxyInfo) *http.Transport {
	proxyURL := p.URL()
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyURL(proxyURL)
	return transport
}

// TestLatency dials the proxy and sends one GET to testURL through it,
// updating Working, Latency and LastTest.
func TestLatency(ctx context.Context, p *ProxyInfo, testURL string) error {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(p.Host, strconv.Itoa(p.Port)), 5*time.Second)
	if err != nil {
		p.Working = false
		p.Latency = time.Hour
		return errors.NewNetwork(p.String(), "proxy unreachable", err)
	}
	conn.Close()

	client := &http.Client{
		Transport: Transport(p),
		Timeout:   5 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, testURL, nil)
	if err != nil {
		p.Working = false
		p.Latency = time.Hour
		return errors.NewNetwork(testURL, "failed to create request", err)
	}

	testStart := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		p.Working = false
		p.Latency = time.Hour
		return errors.NewNetwork(testURL, "request through proxy failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.Working = false
		p.Latency = time.Hour
		return errors.NewNetwork(testURL, fmt.Sprintf("proxy test returned status %d", resp.StatusCode), nil)
	}

	p.Working = true
	p.Latency = time.Since(testStart)
	p.LastTest = time.Now()
	logger.ForFetcher().Debug().Str("proxy", p.String()).Dur("latency", p.Latency).Msg("proxy working")
	return nil
}
