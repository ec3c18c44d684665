package httpjson

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			if r.Header.Get("Accept") != "application/json" {
				t.Errorf("missing accept header")
			}
			_, _ = w.Write([]byte(`{"data":{"price":"12.5"}}`))
		case "/broken":
			_, _ = w.Write([]byte(`{"data":`))
		default:
			http.Error(w, "nope", http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(time.Second)

	doc, err := c.Get(context.Background(), srv.URL+"/ok")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := doc.Get("data.price").Float(); got != 12.5 {
		t.Errorf("price = %v, want 12.5", got)
	}

	if _, err := c.Get(context.Background(), srv.URL+"/broken"); err == nil {
		t.Error("expected error for invalid json")
	}
	if _, err := c.Get(context.Background(), srv.URL+"/fail"); err == nil {
		t.Error("expected error for bad status")
	}
}
