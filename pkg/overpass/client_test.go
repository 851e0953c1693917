package overpass

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(url string) *Client {
	c := NewClient(url)
	c.SetRateLimit(100, 10) // don't slow the tests down
	return c
}

func TestClientFetch(t *testing.T) {
	const query = `[out:json][timeout:25];(node["tourism"="museum"](5.9,79.5,9.9,81.9););out body;>;out skel qt;`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.FormValue("data"); got != query {
			t.Errorf("form data = %q, want %q", got, query)
		}
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Error("missing User-Agent header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"elements":[
			{"type":"node","id":101,"lat":7.0,"lon":80.0,"tags":{"tourism":"museum","name":"National Museum"}},
			{"type":"node","id":102,"lat":7.1,"lon":80.1}
		]}`))
	}))
	defer srv.Close()

	elements, err := newTestClient(srv.URL).Fetch(context.Background(), query)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(elements) != 2 {
		t.Fatalf("got %d elements, want 2", len(elements))
	}
	if elements[0].ID != 101 || elements[0].Lat != 7.0 || elements[0].Lon != 80.0 {
		t.Errorf("unexpected first element: %+v", elements[0])
	}
	if elements[0].Tags["tourism"] != "museum" {
		t.Errorf("tags not decoded: %+v", elements[0].Tags)
	}
}

func TestClientFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too busy", http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fetch(context.Background(), "[out:json];out;")
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}
	if !IsTransport(err) {
		t.Errorf("expected transport error, got %v", err)
	}
	var qe *QueryError
	if !errors.As(err, &qe) || qe.Status != http.StatusGatewayTimeout {
		t.Errorf("expected status %d in error, got %+v", http.StatusGatewayTimeout, qe)
	}
}

func TestClientFetchMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<!DOCTYPE html><html>not json</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fetch(context.Background(), "[out:json];out;")
	if err == nil {
		t.Fatal("expected error for malformed body")
	}
	if !IsParse(err) {
		t.Errorf("expected parse error, got %v", err)
	}
	if IsTransport(err) {
		t.Error("parse failure misclassified as transport error")
	}
}

func TestClientFetchNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := newTestClient(srv.URL).Fetch(context.Background(), "[out:json];out;")
	if err == nil {
		t.Fatal("expected error for refused connection")
	}
	if !IsTransport(err) {
		t.Errorf("expected transport error, got %v", err)
	}
}
