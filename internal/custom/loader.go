package custom

import (
	"context"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
	"os"
	"strings"
	"time"
)

const DefaultInterval = time.Minute

// Entry describes one HTTP backed custom currency.
type Entry struct {
	Base     string        `yaml:"base" json:"base"`
	Quote    string        `yaml:"quote" json:"quote"`
	URL      string        `yaml:"url" json:"url"`
	Path     string        `yaml:"path" json:"path"`
	Interval time.Duration `yaml:"interval" json:"interval"`
}

type file struct {
	Currencies []Entry `yaml:"currencies"`
}

// Getter fetches and parses a JSON document.
type Getter interface {
	Get(ctx context.Context, url string) (gjson.Result, error)
}

// LoadFile reads the custom currency list from a YAML file.
func LoadFile(path string) ([]Entry, error) {
	const op = "custom.LoadFile"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, op+": parse yaml")
	}

	for i := range f.Currencies {
		if err := f.Currencies[i].Normalize(); err != nil {
			return nil, errors.Wrapf(err, "%s: entry %d", op, i)
		}
	}

	return f.Currencies, nil
}

// Normalize upper-cases symbols, applies the default interval and checks
// required fields.
func (e *Entry) Normalize() error {
	e.Base = strings.ToUpper(strings.TrimSpace(e.Base))
	e.Quote = strings.ToUpper(strings.TrimSpace(e.Quote))
	e.URL = strings.TrimSpace(e.URL)

	if e.Interval <= 0 {
		e.Interval = DefaultInterval
	}

	switch {
	case e.Base == "" || e.Quote == "":
		return errors.Wrap(ErrInvalidEntry, "base and quote are required")
	case e.URL == "":
		return errors.Wrapf(ErrInvalidEntry, "%s%s: url is required", e.Base, e.Quote)
	case e.Path == "":
		return errors.Wrapf(ErrInvalidEntry, "%s%s: path is required", e.Base, e.Quote)
	}

	return nil
}

// HTTPFetcher returns a Fetcher reading the value at path from the JSON
// document served at url. Numeric strings are accepted.
func HTTPFetcher(client Getter, url, path string) Fetcher {
	return func(ctx context.Context) (float64, error) {
		const op = "custom.HTTPFetcher"

		doc, err := client.Get(ctx, url)
		if err != nil {
			return 0, errors.Wrap(err, op)
		}

		v := doc.Get(path)
		if !v.Exists() {
			return 0, errors.Errorf("%s: path %q not found", op, path)
		}
		if v.Type != gjson.Number && v.Type != gjson.String {
			return 0, errors.Errorf("%s: path %q is not a number", op, path)
		}

		return v.Float(), nil
	}
}
