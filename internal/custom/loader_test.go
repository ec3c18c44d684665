package custom

import (
	"context"
	"errors"
	"github.com/tidwall/gjson"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeGetter struct {
	body string
	err  error
}

func (f fakeGetter) Get(context.Context, string) (gjson.Result, error) {
	if f.err != nil {
		return gjson.Result{}, f.err
	}
	return gjson.Parse(f.body), nil
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	data := `currencies:
  - base: foo
    quote: usd
    url: https://example.com/foo
    path: data.price
    interval: 30s
  - base: BAR
    quote: EUR
    url: https://example.com/bar
    path: price
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	entries, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if e := entries[0]; e.Base != "FOO" || e.Quote != "USD" || e.Interval != 30*time.Second {
		t.Errorf("entry = %+v", e)
	}
	if entries[1].Interval != DefaultInterval {
		t.Errorf("default interval = %v", entries[1].Interval)
	}
}

func TestLoadFileRejectsIncompleteEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("currencies:\n  - base: FOO\n    quote: USD\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("err = %v, want ErrInvalidEntry", err)
	}
}

func TestHTTPFetcher(t *testing.T) {
	tests := []struct {
		name    string
		getter  fakeGetter
		path    string
		want    float64
		wantErr bool
	}{
		{"number", fakeGetter{body: `{"data":{"price":1.25}}`}, "data.price", 1.25, false},
		{"string", fakeGetter{body: `{"price":"0.5"}`}, "price", 0.5, false},
		{"missing", fakeGetter{body: `{"price":1}`}, "data.price", 0, true},
		{"object", fakeGetter{body: `{"price":{"usd":1}}`}, "price", 0, true},
		{"transport", fakeGetter{err: errors.New("timeout")}, "price", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HTTPFetcher(tt.getter, "http://x", tt.path)(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
