// Package telephony talks to the Twilio voice API: placing outbound calls,
// ending in-progress calls, and folding asynchronous delivery-status webhooks
// into the call state.
package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultBaseURL is the Twilio REST API endpoint.
const defaultBaseURL = "https://api.twilio.com"

// Client is an HTTP client for the Twilio voice REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	accountSID string
	authToken  string
	fromNumber string
}

// NewClient creates a Twilio REST client. fromNumber is the caller ID used
// for all outbound calls.
func NewClient(accountSID, authToken, fromNumber string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
	}
}

// callResource is the subset of Twilio's call resource we read back.
type callResource struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// callListResponse is the shape of GET /Calls.json.
type callListResponse struct {
	Calls []callResource `json:"calls"`
}

// apiError is Twilio's error response body.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CreateCall places an outbound call to the given number. The provider
// executes twiml when the call is answered and posts delivery-status events
// to statusCallback for each of the subscribed statusEvents. Returns the
// provider call SID.
func (c *Client) CreateCall(ctx context.Context, to, twiml, statusCallback string, statusEvents []string) (string, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.fromNumber)
	form.Set("Twiml", twiml)
	form.Set("StatusCallback", statusCallback)
	form.Set("StatusCallbackMethod", "POST")
	for _, ev := range statusEvents {
		form.Add("StatusCallbackEvent", ev)
	}

	var call callResource
	if err := c.do(ctx, http.MethodPost, c.callsURL(), form, &call); err != nil {
		return "", err
	}

	slog.Debug("outbound call created", "call_sid", call.SID, "status", call.Status)
	return call.SID, nil
}

// ListInProgressCalls returns the SIDs of calls currently in progress on the
// account, newest first, up to the given limit.
func (c *Client) ListInProgressCalls(ctx context.Context, limit int) ([]string, error) {
	u := fmt.Sprintf("%s?Status=in-progress&PageSize=%d", c.callsURL(), limit)

	var list callListResponse
	if err := c.do(ctx, http.MethodGet, u, nil, &list); err != nil {
		return nil, err
	}

	sids := make([]string, len(list.Calls))
	for i, call := range list.Calls {
		sids[i] = call.SID
	}
	return sids, nil
}

// CompleteCall asks the provider to end the call with the given SID.
func (c *Client) CompleteCall(ctx context.Context, sid string) error {
	form := url.Values{}
	form.Set("Status", "completed")

	u := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls/%s.json", c.baseURL, c.accountSID, sid)
	return c.do(ctx, http.MethodPost, u, form, nil)
}

// EndInProgressCalls ends every in-progress call on the account and returns
// how many were ended. The account carries at most one alert call at a time,
// so ending all of them is ending ours.
func (c *Client) EndInProgressCalls(ctx context.Context) (int, error) {
	sids, err := c.ListInProgressCalls(ctx, 5)
	if err != nil {
		return 0, err
	}

	ended := 0
	for _, sid := range sids {
		if err := c.CompleteCall(ctx, sid); err != nil {
			return ended, err
		}
		slog.Info("ended in-progress call", "call_sid", sid)
		ended++
	}
	return ended, nil
}

// callsURL returns the account's call-list resource URL.
func (c *Client) callsURL() string {
	return fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.baseURL, c.accountSID)
}

// do sends one authenticated request and decodes the JSON response into out
// (if non-nil). Non-2xx responses are turned into errors carrying the
// provider's message when one is present.
func (c *Client) do(ctx context.Context, method, rawURL string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("telephony: creating request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telephony: sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("telephony: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("telephony: provider error (status %d, code %d): %s", resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("telephony: provider returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("telephony: decoding response: %w", err)
		}
	}
	return nil
}
