package enrichment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestFetchReturnsChartData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chart" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Fatalf("unexpected auth header %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"birth_date":"1990-01-01"}` {
			t.Fatalf("unexpected request body %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"planets":{"sun":"capricorn"}}`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.URL, "key-1", newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := client.Fetch(context.Background(), []byte(`{"birth_date":"1990-01-01"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"planets":{"sun":"capricorn"}}` {
		t.Fatalf("unexpected chart data %s", data)
	}
}

func TestFetchMapsRejectionToInvalidInput(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnprocessableEntity} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		client, err := NewHTTPClient(server.URL, "", newTestLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err = client.Fetch(context.Background(), []byte(`{}`))
		server.Close()

		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("status %d: expected invalid input error, got %v", status, err)
		}
	}
}

func TestFetchServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.URL, "", newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = client.Fetch(context.Background(), []byte(`{}`))
	if err == nil {
		t.Fatal("expected error on 500")
	}
	if errors.Is(err, ErrInvalidInput) {
		t.Fatal("server errors must stay retryable, not permanent")
	}
}

func TestFetchRejectsMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"planets":`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.URL, "", newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.Fetch(context.Background(), []byte(`{}`)); err == nil {
		t.Fatal("expected malformed json to be rejected")
	}
}

func TestNewHTTPClientValidatesURL(t *testing.T) {
	if _, err := NewHTTPClient("not-a-url", "", newTestLogger()); err == nil {
		t.Fatal("expected relative url to be rejected")
	}
}
