package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipboard-backend/internal/ocr"
)

// Client implements ocr.Client against an HTTP vision endpoint that accepts a
// base64 image and returns extracted text with an engine confidence.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a vision OCR client.
func NewClient(apiURL, apiKey string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiURL) == "" {
		return nil, fmt.Errorf("OCR_API_URL is required for the vision provider")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiURL: apiURL,
		apiKey: strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type extractRequest struct {
	Image string `json:"image"`
}

type extractResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ExtractText posts the image to the vision endpoint.
func (c *Client) ExtractText(ctx context.Context, image []byte) (ocr.Result, error) {
	if len(image) == 0 {
		return ocr.Result{}, fmt.Errorf("empty image")
	}

	payload, err := json.Marshal(extractRequest{
		Image: base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return ocr.Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return ocr.Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return ocr.Result{}, fmt.Errorf("read response: %w", err)
	}

	var parsed extractResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ocr.Result{}, fmt.Errorf("decode response status=%d: %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := "unexpected status"
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return ocr.Result{}, fmt.Errorf("vision status=%d: %s", resp.StatusCode, msg)
	}

	return ocr.Result{
		Text:       parsed.Text,
		Confidence: parsed.Confidence,
	}, nil
}

var _ ocr.Client = (*Client)(nil)
