package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/MrSnakeDoc/visitrelay/internal/domain"
	"github.com/MrSnakeDoc/visitrelay/internal/logger"
	"github.com/MrSnakeDoc/visitrelay/internal/utils"
	"github.com/MrSnakeDoc/visitrelay/internal/version"
)

const (
	// DefaultBaseURL is the public ip-api.com endpoint (plain HTTP on the free tier).
	DefaultBaseURL = "http://ip-api.com"
	// DefaultFallback is the label used whenever the lookup does not succeed.
	DefaultFallback = "Unbekannt"
	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 3 * time.Second

	statusSuccess = "success"
	maxBodyBytes  = 64 << 10
)

// LabelCache stores resolved labels per address. A miss returns ("", nil).
type LabelCache interface {
	GetLabel(ctx context.Context, address string) (string, error)
	SetLabel(ctx context.Context, address, label string, ttl time.Duration) error
}

// Options configures the lookup client.
type Options struct {
	BaseURL    string        // ex: http://ip-api.com
	Lang       string        // response language, ex: "de"
	Fallback   string        // label on failure
	Timeout    time.Duration // per lookup
	CacheTTL   time.Duration // TTL for cached labels
	Cache      LabelCache    // optional
	HTTPClient *http.Client  // optional, defaults to a client with Timeout
}

// lookupResponse is the subset of the ip-api.com JSON body we rely on.
type lookupResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	RegionName  string `json:"regionName,omitempty"`
	City        string `json:"city,omitempty"`
	Query       string `json:"query,omitempty"`
}

// Client resolves visitor addresses to coarse "city, country" labels.
type Client struct {
	opts   Options
	http   *http.Client
	logger logger.Logger
}

// New creates a lookup client. Zero-valued options get package defaults.
func New(opts Options, log logger.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Fallback == "" {
		opts.Fallback = DefaultFallback
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{opts: opts, http: hc, logger: log}
}

// Fallback returns the label used when a lookup fails.
func (c *Client) Fallback() domain.GeoLabel {
	return domain.GeoLabel{Text: c.opts.Fallback}
}

// Enrich never fails: every error path degrades to the fallback label.
func (c *Client) Enrich(ctx context.Context, address string) domain.GeoLabel {
	if c.opts.Cache != nil {
		label, err := c.opts.Cache.GetLabel(ctx, address)
		switch {
		case err != nil:
			c.logger.Debug("geo cache read failed",
				logger.String("address", address),
				logger.Error(err))
		case label != "":
			return domain.GeoLabel{Text: label}
		}
	}

	label, err := c.lookup(ctx, address)
	if err != nil {
		c.logger.Warn("geo lookup failed, using fallback",
			logger.String("address", address),
			logger.Error(err))
		return c.Fallback()
	}

	if c.opts.Cache != nil && c.opts.CacheTTL > 0 {
		if err := c.opts.Cache.SetLabel(ctx, address, label.Text, c.opts.CacheTTL); err != nil {
			c.logger.Debug("geo cache write failed",
				logger.String("address", address),
				logger.Error(err))
		}
	}
	return label
}

func (c *Client) lookup(ctx context.Context, address string) (domain.GeoLabel, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(address), nil)
	if err != nil {
		return domain.GeoLabel{}, fmt.Errorf("failed to build geo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.GeoLabel{}, fmt.Errorf("geo request failed: %w", err)
	}
	defer utils.DrainClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.GeoLabel{}, fmt.Errorf("geo service returned HTTP %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return domain.GeoLabel{}, fmt.Errorf("failed to decode geo response: %w", err)
	}

	if body.Status != statusSuccess {
		return domain.GeoLabel{}, fmt.Errorf("geo lookup status %q: %s", body.Status, body.Message)
	}
	if body.City == "" || body.Country == "" {
		return domain.GeoLabel{}, fmt.Errorf("geo response missing city or country")
	}

	return domain.NewGeoLabel(body.City, body.Country), nil
}

// endpoint builds {base}/json/{address}?lang={lang}.
func (c *Client) endpoint(address string) string {
	u := c.opts.BaseURL + "/json/" + url.PathEscape(address)
	if c.opts.Lang != "" {
		u += "?lang=" + url.QueryEscape(c.opts.Lang)
	}
	return u
}
