package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/naveenspark/stepdeck/pkg/domain"
)

// Client talks to a remote stepdeck backend. It implements the project
// and asset store contracts used by the runtime.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type saveRequest struct {
	Title    string          `json:"title"`
	Document json.RawMessage `json:"document"`
}

type assetPayload struct {
	Data      []byte `json:"data"`
	MIMEType  string `json:"mimeType"`
	Name      string `json:"name,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
}

// Save creates a project when existingID is empty and replaces it otherwise.
func (c *Client) Save(ctx context.Context, doc []byte, existingID, title string) (domain.SaveResult, error) {
	if !json.Valid(doc) {
		return domain.SaveResult{}, domain.Invalid("client.Save", "document is not valid JSON")
	}
	body := saveRequest{Title: title, Document: doc}
	var res domain.SaveResult
	var err error
	if existingID == "" {
		err = c.post(ctx, "/api/projects", body, &res)
	} else {
		err = c.doRequest(ctx, http.MethodPut, "/api/projects/"+url.PathEscape(existingID), body, &res)
	}
	if err != nil {
		return domain.SaveResult{}, fmt.Errorf("client.Save: %w", asDomain(err))
	}
	return res, nil
}

// Load fetches the serialized project.
func (c *Client) Load(ctx context.Context, id string) ([]byte, error) {
	var doc json.RawMessage
	if err := c.get(ctx, "/api/projects/"+url.PathEscape(id), &doc); err != nil {
		return nil, fmt.Errorf("client.Load: %w", asDomain(err))
	}
	return doc, nil
}

// List returns the project summaries known to the backend.
func (c *Client) List(ctx context.Context) ([]domain.ProjectSummary, error) {
	var list []domain.ProjectSummary
	if err := c.get(ctx, "/api/projects", &list); err != nil {
		return nil, fmt.Errorf("client.List: %w", asDomain(err))
	}
	return list, nil
}

// Delete removes a project. A 404 is reported as false without error.
func (c *Client) Delete(ctx context.Context, id string) (bool, error) {
	err := c.doRequest(ctx, http.MethodDelete, "/api/projects/"+url.PathEscape(id), nil, nil)
	if IsStatus(err, http.StatusNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("client.Delete: %w", asDomain(err))
	}
	return true, nil
}

// UploadAsset sends the blob; the server picks the final collision-free name.
func (c *Client) UploadAsset(ctx context.Context, blob domain.Blob, suggestedName, projectID string) (domain.AssetRef, error) {
	if len(blob.Data) == 0 {
		return domain.AssetRef{}, domain.Invalid("client.UploadAsset", "empty asset")
	}
	body := assetPayload{Data: blob.Data, MIMEType: blob.MIMEType, Name: suggestedName, ProjectID: projectID}
	var ref domain.AssetRef
	if err := c.post(ctx, "/api/assets", body, &ref); err != nil {
		return domain.AssetRef{}, fmt.Errorf("client.UploadAsset: %w", asDomain(err))
	}
	return ref, nil
}

// ResolveAsset downloads an asset by id.
func (c *Client) ResolveAsset(ctx context.Context, id string) (domain.Blob, error) {
	var p assetPayload
	if err := c.get(ctx, "/api/assets/"+url.PathEscape(id), &p); err != nil {
		return domain.Blob{}, fmt.Errorf("client.ResolveAsset: %w", asDomain(err))
	}
	return domain.Blob{Data: p.Data, MIMEType: p.MIMEType}, nil
}

// ListAssets returns the asset ids uploaded for a project.
func (c *Client) ListAssets(ctx context.Context, projectID string) ([]string, error) {
	var ids []string
	if err := c.get(ctx, "/api/projects/"+url.PathEscape(projectID)+"/assets", &ids); err != nil {
		return nil, fmt.Errorf("client.ListAssets: %w", asDomain(err))
	}
	return ids, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}
