// Package geo resolves addresses and driving routes through the Azure Maps
// REST API, for showing a technician's way to a customer.
package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/MohanGuptaKoduru/ServiceLink/retry"
)

// DefaultBaseURL is the Azure Maps API root.
const DefaultBaseURL = "https://atlas.microsoft.com"

const apiVersion = "1.0"

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinates) valid() bool {
	return !math.IsNaN(c.Lat) && !math.IsNaN(c.Lon) &&
		c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// String formats c the way the route query expects: "lat,lon".
func (c Coordinates) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// Route is the driving path between two addresses.
type Route struct {
	From   Coordinates   `json:"from"`
	To     Coordinates   `json:"to"`
	Points []Coordinates `json:"points"`

	// LengthMeters and TravelTime come from the route summary when present.
	LengthMeters int           `json:"lengthMeters"`
	TravelTime   time.Duration `json:"travelTime"`
}

// Client calls Azure Maps. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	key        string
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets the base client. Its transport is wrapped for tracing.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithRateLimit caps requests per second. Zero means unlimited.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithRetries sets the attempt count and base backoff for 429 and 5xx responses.
func WithRetries(maxRetries int, delay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max(maxRetries, 1)
		c.retryDelay = delay
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a maps client authenticated with a subscription key.
func NewClient(key string, opts ...Option) (*Client, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    DefaultBaseURL,
		key:        key,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		maxRetries: 3,
		retryDelay: 250 * time.Millisecond,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.httpClient = &http.Client{
		Transport: otelhttp.NewTransport(base),
		Timeout:   c.httpClient.Timeout,
	}
	c.logger = c.logger.With("component", "azure-maps")
	return c, nil
}

type searchResponse struct {
	Results []struct {
		Position Coordinates `json:"position"`
	} `json:"results"`
}

type routeResponse struct {
	Routes []struct {
		Summary struct {
			LengthInMeters      int `json:"lengthInMeters"`
			TravelTimeInSeconds int `json:"travelTimeInSeconds"`
		} `json:"summary"`
		Legs []struct {
			Points []struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"points"`
		} `json:"legs"`
	} `json:"routes"`
}

// Geocode returns the best match for address.
func (c *Client) Geocode(ctx context.Context, address string) (Coordinates, error) {
	q := url.Values{}
	q.Set("query", address)

	var decoded searchResponse
	if err := c.get(ctx, "/search/address/json", q, &decoded); err != nil {
		return Coordinates{}, err
	}
	if len(decoded.Results) == 0 || !decoded.Results[0].Position.valid() {
		return Coordinates{}, fmt.Errorf("%w: %q", ErrNoResults, address)
	}
	return decoded.Results[0].Position, nil
}

// Directions returns the driving path between two positions.
func (c *Client) Directions(ctx context.Context, from, to Coordinates) (*Route, error) {
	q := url.Values{}
	q.Set("query", from.String()+":"+to.String())

	var decoded routeResponse
	if err := c.get(ctx, "/route/directions/json", q, &decoded); err != nil {
		return nil, err
	}
	if len(decoded.Routes) == 0 || len(decoded.Routes[0].Legs) == 0 || len(decoded.Routes[0].Legs[0].Points) == 0 {
		return nil, ErrNoRoute
	}

	r := decoded.Routes[0]
	route := &Route{
		From:         from,
		To:           to,
		LengthMeters: r.Summary.LengthInMeters,
		TravelTime:   time.Duration(r.Summary.TravelTimeInSeconds) * time.Second,
	}
	for _, leg := range r.Legs {
		for _, p := range leg.Points {
			route.Points = append(route.Points, Coordinates{Lat: p.Latitude, Lon: p.Longitude})
		}
	}
	return route, nil
}

// Route geocodes both addresses and returns the path between them.
func (c *Client) Route(ctx context.Context, fromAddress, toAddress string) (*Route, error) {
	from, err := c.Geocode(ctx, fromAddress)
	if err != nil {
		return nil, err
	}
	to, err := c.Geocode(ctx, toAddress)
	if err != nil {
		return nil, err
	}
	return c.Directions(ctx, from, to)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("api-version", apiVersion)
	q.Set("subscription-key", c.key)
	endpoint := c.baseURL + path + "?" + q.Encode()

	return retry.WithBackoff(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		return c.do(ctx, endpoint, out)
	}, c.maxRetries, c.retryDelay)
}

func (c *Client) do(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Permanent(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, resp.Status, bytes.TrimSpace(snippet))
		c.logger.Warn("maps request failed", "status", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return statusErr
		}
		return retry.Permanent(statusErr)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Permanent(err)
	}
	return nil
}
