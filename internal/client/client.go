package client

import (
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

type NestClient struct {
	HTTP   *resty.Client
	Config ClientConfig
}

type ClientConfig struct {
	BaseURL       string // e.g. https://developer-api.nest.com
	TrustedSuffix string // redirect hosts must contain this, e.g. ".nest.com"
	UserAgent     string
}

// New builds a client whose transport re-issues trusted 307 redirects itself.
// There is no client timeout: the event stream stays open indefinitely.
func New(cfg ClientConfig) *NestClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	hc := &http.Client{
		Transport: NewRedirectTransport(http.DefaultTransport, cfg.TrustedSuffix),
	}

	r := resty.NewWithClient(hc)
	r.SetBaseURL(cfg.BaseURL)
	r.SetJSONUnmarshaler(json.Unmarshal)
	// RedirectTransport already followed the one redirect we allow;
	// anything else is returned to the caller as-is.
	r.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	if cfg.UserAgent != "" {
		r.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &NestClient{
		HTTP:   r,
		Config: cfg,
	}
}
