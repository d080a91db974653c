package datamart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the Datamart reseller API, which fulfils result-checker
// PIN purchases. Treated as an opaque HTTP service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new Datamart client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CheckerRequest asks the reseller to issue one checker credential.
type CheckerRequest struct {
	CheckerType string `json:"checkerType"`
	PhoneNumber string `json:"phoneNumber"`
	Reference   string `json:"ref"`
}

// CheckerResult carries the issued credential.
type CheckerResult struct {
	PurchaseID   string `json:"purchaseId"`
	SerialNumber string `json:"serialNumber"`
	Pin          string `json:"pin"`
	Reference    string `json:"reference"`
}

// PurchaseChecker buys one checker credential from the reseller.
func (c *Client) PurchaseChecker(ctx context.Context, reqBody CheckerRequest) (*CheckerResult, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/checkers/purchase", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("datamart API error: %s - %s", resp.Status, string(body))
	}

	var envelope struct {
		Status string        `json:"status"`
		Data   CheckerResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, err
	}
	if envelope.Status != "success" {
		return nil, fmt.Errorf("datamart purchase rejected: %s", envelope.Status)
	}
	return &envelope.Data, nil
}
