// Package upload sends Setgraph exports to a remote LiftLog server and
// remembers which exports were already imported.
package upload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/ingest/setgraph"
	"github.com/claude/liftlog/internal/models"
)

// Client talks to the LiftLog import API over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a client for the server at serverURL.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: serverURL,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: time.Second,
	}
}

// StatusError is a non-2xx response from the server.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Body)
}

// Propose asks the server for mapping proposals for an export.
func (c *Client) Propose(csv []byte) ([]setgraph.Proposal, error) {
	var proposals []setgraph.Proposal
	err := c.do(func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, c.serverURL+"/api/v1/import/setgraph/propose", bytes.NewReader(csv))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "text/csv")
		return req, nil
	}, &proposals)
	if err != nil {
		return nil, fmt.Errorf("proposing mappings: %w", err)
	}
	return proposals, nil
}

// Import uploads an export with confirmed mappings. With dryRun the server
// plans the import without writing.
func (c *Client) Import(filename string, csv []byte, mappings []models.SetgraphExerciseMapping, dryRun bool) (*ingest.Result, error) {
	mappingJSON, err := json.Marshal(mappings)
	if err != nil {
		return nil, fmt.Errorf("marshaling mappings: %w", err)
	}

	url := c.serverURL + "/api/v1/import/setgraph"
	if dryRun {
		url += "?dry_run=true"
	}

	var result ingest.Result
	err = c.do(func() (*http.Request, error) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(csv); err != nil {
			return nil, err
		}
		if err := mw.WriteField("mappings", string(mappingJSON)); err != nil {
			return nil, err
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
		req, err := http.NewRequest(http.MethodPost, url, &body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req, nil
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", filename, err)
	}
	return &result, nil
}

// do sends the request built by newReq and decodes a 200 response into out.
// Transport errors and 5xx responses are retried up to 3 times with
// exponential backoff; other statuses fail at once.
func (c *Client) do(newReq func() (*http.Request, error), out any) error {
	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			time.Sleep(c.backoff * time.Duration(1<<uint(attempt-1)))
		}

		req, err := newReq()
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("X-API-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}
			return nil
		case resp.StatusCode >= 500:
			lastErr = &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		default:
			return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		}
	}
	return fmt.Errorf("after 3 attempts: %w", lastErr)
}
