// Raw authenticated passthrough for arbitrary provider endpoints.
package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/muse/internal/session"
)

// APIService performs raw requests against the provider API through the
// authenticated session, for endpoints without a typed wrapper.
type APIService struct {
	client *session.Client
}

// NewAPIService creates a raw passthrough over the session client.
func NewAPIService(client *session.Client) *APIService {
	return &APIService{client: client}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

func rawResponse(resp *session.Response) *APIResponse {
	out := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       resp.Body,
	}

	var jsonData any
	if err := json.Unmarshal(resp.Body, &jsonData); err == nil {
		out.IsJSON = true
		out.JSONData = jsonData
	}

	return out
}

// Get performs an authenticated GET to the given path. The path may carry a
// query string; the response is never cached.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	cleanPath, rawQuery, _ := strings.Cut(path, "?")

	var query url.Values
	if rawQuery != "" {
		if q, err := url.ParseQuery(rawQuery); err == nil {
			query = q
		}
	}

	resp, err := a.client.Request(ctx, session.Operation{
		Name:  "RawGet",
		Path:  cleanPath,
		Query: query,
	})
	if err != nil {
		return nil, err
	}

	return rawResponse(resp), nil
}

// Post performs an authenticated POST with the given JSON body.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	resp, err := a.client.Request(ctx, session.Operation{
		Name:   "RawPost",
		Method: http.MethodPost,
		Path:   path,
		Body:   strings.NewReader(string(data)),
	})
	if err != nil {
		return nil, err
	}

	return rawResponse(resp), nil
}
