package oracle

import (
	"net/http"
	"net/url"
	"time"

	"github.com/adjudex/adjudex/internal/model"
)

// newHTTPClient builds the HTTP client every provider shares: a request
// timeout and an optional egress proxy. With no proxy configured the
// standard HTTP_PROXY/HTTPS_PROXY environment handling applies.
func newHTTPClient(cfg model.OracleConfig) *http.Client {
	return &http.Client{
		Timeout: timeoutOrDefault(cfg.Timeout),
		Transport: &http.Transport{
			Proxy: proxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy),
		},
	}
}

func proxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d == 0 {
		return 60 * time.Second
	}
	return d
}
