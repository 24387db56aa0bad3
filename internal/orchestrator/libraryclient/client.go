// Package libraryclient is the orchestrator's HTTP client for the library
// service's privileged container lifecycle endpoints.
package libraryclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/librarium/librarium/internal/orchestrator"
)

// Client calls the library service with the inter-service credential. Calls
// have a bounded timeout and are never retried automatically; the saga's
// failure handling owns what happens next.
type Client struct {
	http       *resty.Client
	credential string
}

// New creates a library client for the given base URL
func New(baseURL, credential string, timeout time.Duration) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return &Client{
		http:       client,
		credential: credential,
	}
}

// Provision asks the library service to create an empty container for uid.
// Anything other than 201 is a failure the saga must compensate for.
func (c *Client) Provision(ctx context.Context, uid uuid.UUID) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.credential).
		Put(fmt.Sprintf("/file/%s", uid))
	if err != nil {
		return fmt.Errorf("library provision request failed: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusCreated:
		return nil
	case http.StatusConflict:
		return fmt.Errorf("library provision conflict for %s: %w", uid, orchestrator.ErrContainerExists)
	default:
		return fmt.Errorf("library provision returned status %d", resp.StatusCode())
	}
}

// Deprovision asks the library service to delete uid's container and all its
// files. Anything other than 200 is a failure; the caller keeps the user
// record so only the less harmful inconsistency can occur.
func (c *Client) Deprovision(ctx context.Context, uid uuid.UUID) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.credential).
		Delete(fmt.Sprintf("/file/%s", uid))
	if err != nil {
		return fmt.Errorf("library deprovision request failed: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("library deprovision miss for %s: %w", uid, orchestrator.ErrContainerNotFound)
	default:
		return fmt.Errorf("library deprovision returned status %d", resp.StatusCode())
	}
}
