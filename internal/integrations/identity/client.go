// Package identity exchanges a short-lived login session id for verified
// identity data at the upstream identity provider.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Identity is the verified data the provider returns
type Identity struct {
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	Picture      *string `json:"picture,omitempty"`
	SessionToken string  `json:"session_token"`
}

// ErrExchangeFailed covers every way an exchange can fail. Callers must not
// surface the wrapped detail to clients.
var ErrExchangeFailed = errors.New("identity exchange failed")

// Doer sends the exchange request
type Doer interface {
	Get(ctx context.Context, url string, header http.Header) (*http.Response, error)
}

type Client struct {
	doer Doer
	url  string
}

func NewClient(doer Doer, exchangeURL string) *Client {
	return &Client{doer: doer, url: exchangeURL}
}

// Exchange trades sessionID for an Identity
func (c *Client) Exchange(ctx context.Context, sessionID string) (*Identity, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: empty session id", ErrExchangeFailed)
	}

	resp, err := c.doer.Get(ctx, c.url, http.Header{"X-Session-ID": {sessionID}})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("%w: upstream status %d", ErrExchangeFailed, resp.StatusCode)
	}

	var id Identity
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&id); err != nil {
		return nil, fmt.Errorf("%w: malformed body: %v", ErrExchangeFailed, err)
	}

	id.Email = strings.TrimSpace(id.Email)
	id.Name = strings.TrimSpace(id.Name)
	if id.Email == "" || id.Name == "" || id.SessionToken == "" {
		return nil, fmt.Errorf("%w: missing required fields", ErrExchangeFailed)
	}
	if id.Picture != nil && *id.Picture == "" {
		id.Picture = nil
	}

	return &id, nil
}
