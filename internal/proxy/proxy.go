package proxy

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tubenotes/tubenotes/internal/config"
)

// Endpoint describes an HTTP(S) forward proxy used for upstream egress.
// It is constructed once from configuration and never mutated afterwards,
// so it can be shared read-only across requests.
type Endpoint struct {
	Host     string
	Port     string
	Username string
	Password string
}

// Resolve builds the process-wide proxy endpoint from configuration.
// Missing credentials yield nil, which means direct egress. That is a
// valid configuration, not an error.
func Resolve(cfg config.ProxyConfig) *Endpoint {
	if cfg.Username == "" || cfg.Password == "" {
		return nil
	}
	return &Endpoint{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
	}
}

// URL returns the proxy URL with embedded credentials.
func (e *Endpoint) URL() *url.URL {
	return &url.URL{
		Scheme: "http",
		User:   url.UserPassword(e.Username, e.Password),
		Host:   fmt.Sprintf("%s:%s", e.Host, e.Port),
	}
}

// Redacted returns a loggable form of the proxy address without credentials.
func (e *Endpoint) Redacted() string {
	if e == nil {
		return "none"
	}
	return fmt.Sprintf("http://%s:%s", e.Host, e.Port)
}

// Client builds an HTTP client with the given per-call timeout, routed
// through e. A nil endpoint yields a direct client.
func Client(e *Endpoint, timeout time.Duration) *http.Client {
	client := &http.Client{Timeout: timeout}
	if e != nil {
		client.Transport = &http.Transport{Proxy: http.ProxyURL(e.URL())}
	}
	return client
}
