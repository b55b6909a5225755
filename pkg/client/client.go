// Package client talks to a ghostink server. It only ever moves opaque
// blobs; sealing and opening happen in pkg/codec.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ghostink/pkg/domain"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound means the paste does not exist or has expired.
	ErrNotFound = errors.New("paste not found or expired")
	// ErrServer covers every other non-success response.
	ErrServer = errors.New("server error")
)

// maxErrBody bounds how much of an error body is read into a message.
const maxErrBody = 4 << 10

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL. Requests never retry.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Create uploads blob and returns the server-assigned id. A nil expiresAt
// leaves the expiry to the server default.
func (c *Client) Create(ctx context.Context, blob string, expiresAt *time.Time) (string, error) {
	req := domain.CreatePasteRequest{Content: blob}
	if expiresAt != nil {
		s := expiresAt.UTC().Format(time.RFC3339)
		req.ExpiresAt = &s
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "encode request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "create paste")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", statusErr(resp)
	}
	var out domain.CreatePasteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decode response")
	}
	if out.UUID == "" {
		return "", errors.Wrap(ErrServer, "response carried no id")
	}
	return out.UUID, nil
}

// Get fetches the blob stored under id.
func (c *Client) Get(ctx context.Context, id string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(id), nil)
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "get paste")
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", ErrNotFound
	default:
		return "", statusErr(resp)
	}
	var out domain.GetPasteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decode response")
	}
	return out.Content, nil
}

func statusErr(resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
	var e struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(b))
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	return errors.Wrapf(ErrServer, "status %d: %s", resp.StatusCode, msg)
}
