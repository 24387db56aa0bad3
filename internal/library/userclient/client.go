// Package userclient is the library service's HTTP client for the users
// service's privileged token validation endpoint.
package userclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client confirms that a presented capability token belongs to a registered
// user. Requests carry the inter-service credential; the candidate token
// rides in the JSON body, matching the validate endpoint's contract.
type Client struct {
	http       *resty.Client
	credential string
}

type validateRequest struct {
	AccessToken string `json:"access_token"`
}

// New creates a validation client for the given users service base URL
func New(baseURL, credential string, timeout time.Duration) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetRetryCount(0)
	// The validate endpoint is a GET that reads the candidate token from
	// the request body.
	client.SetAllowGetMethodPayload(true)

	return &Client{
		http:       client,
		credential: credential,
	}
}

// Validate reports whether accessToken belongs to the user with the given
// identifier. An empty identifier asks only whether the token belongs to
// some registered user (the documented any-valid-token mode used for file
// reads). Transport failures are errors, not authorization denials.
func (c *Client) Validate(ctx context.Context, identifier, accessToken string) (bool, error) {
	// A blank path segment routes to the login handler, so the any-token
	// mode is addressed with an encoded space that the validate handler
	// trims back to blank.
	segment := identifier
	if segment == "" {
		segment = "%20"
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.credential).
		SetHeader("Content-Type", "application/json").
		SetBody(validateRequest{AccessToken: accessToken}).
		Get(fmt.Sprintf("/user/%s", segment))
	if err != nil {
		return false, fmt.Errorf("token validation request failed: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return true, nil
	case http.StatusUnauthorized:
		return false, nil
	default:
		return false, fmt.Errorf("token validation returned status %d", resp.StatusCode())
	}
}
