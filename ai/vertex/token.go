package vertex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/MohanGuptaKoduru/ServiceLink/ai"
)

// Scope is the OAuth2 scope required by the Vertex AI prediction API.
const Scope = "https://www.googleapis.com/auth/cloud-platform"

// brokerTokenTTL is assumed when the broker omits expires_in.
const brokerTokenTTL = 50 * time.Minute

// NewTokenSource selects the credential flow from cfg: a token broker when
// TokenURL is set, a service-account key when CredentialsFile is set, and
// Application Default Credentials otherwise. The returned source caches
// tokens until shortly before they expire.
func NewTokenSource(ctx context.Context, cfg *ai.Config, client *http.Client) (oauth2.TokenSource, error) {
	switch {
	case cfg.TokenURL != "":
		return NewBrokerTokenSource(cfg.TokenURL, client)
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		return NewServiceAccountTokenSource(ctx, data)
	default:
		creds, err := google.FindDefaultCredentials(ctx, Scope)
		if err != nil {
			return nil, fmt.Errorf("find default credentials: %w", err)
		}
		return creds.TokenSource, nil
	}
}

// NewServiceAccountTokenSource exchanges a signed JWT assertion built from the
// service-account key for access tokens.
func NewServiceAccountTokenSource(ctx context.Context, keyJSON []byte) (oauth2.TokenSource, error) {
	creds, err := google.CredentialsFromJSON(ctx, keyJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	return oauth2.ReuseTokenSource(nil, creds.TokenSource), nil
}

// NewBrokerTokenSource fetches tokens from a broker endpoint that answers
// GET requests with {"access_token": "...", "expires_in": seconds}.
// An empty url is rejected with ErrTokenEndpointMissing.
func NewBrokerTokenSource(url string, client *http.Client) (oauth2.TokenSource, error) {
	if url == "" {
		return nil, ErrTokenEndpointMissing
	}
	if client == nil {
		client = http.DefaultClient
	}
	return oauth2.ReuseTokenSource(nil, &brokerSource{url: url, client: client}), nil
}

type brokerSource struct {
	url    string
	client *http.Client
}

type brokerResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (b *brokerSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: broker returned %s", ErrTokenExchange, resp.Status)
	}

	var body brokerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrTokenExchange, err)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("%w: %w", ErrTokenExchange, errors.New("empty access_token"))
	}

	ttl := brokerTokenTTL
	if body.ExpiresIn > 0 {
		ttl = time.Duration(body.ExpiresIn) * time.Second
	}
	return &oauth2.Token{
		AccessToken: body.AccessToken,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(ttl),
	}, nil
}
