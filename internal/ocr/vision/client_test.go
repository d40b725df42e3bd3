package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExtractTextSuccess(t *testing.T) {
	image := []byte("fake-image-bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-123" {
			t.Errorf("unexpected auth header: %q", got)
		}
		var req struct {
			Image string `json:"image"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		decoded, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil || string(decoded) != string(image) {
			t.Errorf("image payload mismatch: %v %q", err, decoded)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"Question 1: What is DNS?","confidence":0.93}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "key-123", 5*time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	res, err := client.ExtractText(context.Background(), image)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Text != "Question 1: What is DNS?" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if res.Confidence != 0.93 {
		t.Fatalf("unexpected confidence: %v", res.Confidence)
	}
}

func TestExtractTextErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.ExtractText(context.Background(), []byte("img"))
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if got := err.Error(); got != "vision status=429: rate limited" {
		t.Fatalf("unexpected error message: %q", got)
	}
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient("   ", "key", time.Second); err == nil {
		t.Fatal("expected error for missing api url")
	}
}

func TestExtractTextRejectsEmptyImage(t *testing.T) {
	client, err := NewClient("http://localhost:1", "", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.ExtractText(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty image")
	}
}
