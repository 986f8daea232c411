package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TokenRank is the rank a language model assigned to one observed token
// among its predictions. Rank 1 means the token was the top prediction.
type TokenRank struct {
	Token string  `json:"token"`
	Rank  int     `json:"rank"`
	Prob  float64 `json:"prob"`
}

// Model scores how predictable each token of a text is.
type Model interface {
	TokenRanks(ctx context.Context, text string) ([]TokenRank, error)
}

// HTTPClient talks to a model server exposing a token-rank endpoint.
type HTTPClient struct {
	baseURL    string
	model      string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, model, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		model:      model,
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *HTTPClient) doReq(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("inference %s %s: %d %s", method, path, resp.StatusCode, string(data))
	}
	return data, nil
}

// Ping checks that the server is up and serves the configured model.
func (c *HTTPClient) Ping(ctx context.Context) error {
	data, err := c.doReq(ctx, "GET", "/api/v1/models", nil)
	if err != nil {
		return err
	}
	var resp struct {
		Models []string `json:"models"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return err
	}
	if c.model == "" {
		return nil
	}
	for _, m := range resp.Models {
		if m == c.model {
			return nil
		}
	}
	return fmt.Errorf("inference: model %q not served", c.model)
}

type tokenRanksRequest struct {
	Model string `json:"model,omitempty"`
	Text  string `json:"text"`
}

type tokenRanksResponse struct {
	Tokens []TokenRank `json:"tokens"`
}

func (c *HTTPClient) TokenRanks(ctx context.Context, text string) ([]TokenRank, error) {
	data, err := c.doReq(ctx, "POST", "/api/v1/token-ranks", tokenRanksRequest{Model: c.model, Text: text})
	if err != nil {
		return nil, err
	}
	var resp tokenRanksResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return resp.Tokens, nil
}
