// Package remote implements the HTTP client for the expense API. Every
// operation maps transport failures to RemoteUnreachable and non-success
// responses to RemoteRequestFailed so the sync engine can distinguish "try
// again later" from "the server said no".
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/types"
)

const defaultTimeout = 30 * time.Second

// Client talks to the expense API. The session cookie issued by OpenSession
// lives in the client's cookie jar and rides along on every later request.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client. A cookie jar is attached if the
// given client has none, since session auth depends on it.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, apperrors.ValidationFailed("Invalid remote API URL", baseURL)
	}

	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ServerError, "Failed to create cookie jar")
		}
		client.httpClient.Jar = jar
	}
	return client, nil
}

// OpenSession obtains a device session from the server. The session cookie is
// captured by the jar; the response body reports the device ID and expiry.
func (c *Client) OpenSession(ctx context.Context) (*types.SessionResponse, error) {
	var session types.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/session", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateTrip stores a new trip on the server and returns it with the
// server-assigned ID.
func (c *Client) CreateTrip(ctx context.Context, trip *types.Trip) (*types.Trip, error) {
	var created tripPayload
	if err := c.do(ctx, http.MethodPost, "/v1/trips", toTripPayload(trip), &created); err != nil {
		return nil, err
	}
	return created.toTrip()
}

// UpdateTrip replaces the trip stored under its ID.
func (c *Client) UpdateTrip(ctx context.Context, trip *types.Trip) (*types.Trip, error) {
	var updated tripPayload
	path := fmt.Sprintf("/v1/trips/%d", trip.ID)
	if err := c.do(ctx, http.MethodPut, path, toTripPayload(trip), &updated); err != nil {
		return nil, err
	}
	return updated.toTrip()
}

// DeleteTrip removes the trip and all its expenses from the server. The
// identity scopes the delete; a trip recorded under another identity is
// left alone.
func (c *Client) DeleteTrip(ctx context.Context, id int64, identityValue string) error {
	path := fmt.Sprintf("/v1/trips/%d?identity=%s", id, url.QueryEscape(identityValue))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// TripsByIdentity lists the server's trips for one identity.
func (c *Client) TripsByIdentity(ctx context.Context, identityValue string) ([]types.Trip, error) {
	var payloads []tripPayload
	path := "/v1/trips/by-identity/" + url.PathEscape(identityValue)
	if err := c.do(ctx, http.MethodGet, path, nil, &payloads); err != nil {
		return nil, err
	}
	trips := make([]types.Trip, 0, len(payloads))
	for _, p := range payloads {
		trip, err := p.toTrip()
		if err != nil {
			return nil, err
		}
		trips = append(trips, *trip)
	}
	return trips, nil
}

// CreateExpense stores a new expense under its trip and returns it with the
// server-assigned ID.
func (c *Client) CreateExpense(ctx context.Context, expense *types.Expense) (*types.Expense, error) {
	var created expensePayload
	path := fmt.Sprintf("/v1/trips/%d/expenses", expense.TripID)
	if err := c.do(ctx, http.MethodPost, path, toExpensePayload(expense), &created); err != nil {
		return nil, err
	}
	return created.toExpense()
}

// UpdateExpense replaces the expense stored under its ID, scoped by the
// owning trip's identity.
func (c *Client) UpdateExpense(ctx context.Context, expense *types.Expense, identityValue string) (*types.Expense, error) {
	var updated expensePayload
	path := fmt.Sprintf("/v1/expenses/%d?identity=%s", expense.ID, url.QueryEscape(identityValue))
	if err := c.do(ctx, http.MethodPut, path, toExpensePayload(expense), &updated); err != nil {
		return nil, err
	}
	return updated.toExpense()
}

// DeleteExpense removes the expense from the server, scoped by the owning
// trip's identity.
func (c *Client) DeleteExpense(ctx context.Context, id int64, identityValue string) error {
	path := fmt.Sprintf("/v1/expenses/%d?identity=%s", id, url.QueryEscape(identityValue))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// ExpensesByTrip lists the server's expenses for one trip.
func (c *Client) ExpensesByTrip(ctx context.Context, tripID int64) ([]types.Expense, error) {
	var payloads []expensePayload
	path := fmt.Sprintf("/v1/expenses/by-trip/%d", tripID)
	if err := c.do(ctx, http.MethodGet, path, nil, &payloads); err != nil {
		return nil, err
	}
	expenses := make([]types.Expense, 0, len(payloads))
	for _, p := range payloads {
		expense, err := p.toExpense()
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *expense)
	}
	return expenses, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ServerError, "Failed to encode request payload")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ServerError, "Failed to build request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.RemoteUnreachable(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.RemoteUnreachable(err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return apperrors.RemoteRequestFailed(resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return apperrors.New(apperrors.RemoteRequestFailedError,
				"Remote API returned a malformed response", err.Error())
		}
	}
	return nil
}
