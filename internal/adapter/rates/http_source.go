// Package rates holds the live exchange-rate providers queried by the rate resolver.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketplace-engine/config"
	"marketplace-engine/internal/core/domain"

	"github.com/shopspring/decimal"
)

// maxBodyBytes caps how much of a provider response is read.
const maxBodyBytes = 1 << 20

// HTTPClient is the subset of *http.Client used by HTTPSource.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource fetches a conversion factor from a JSON HTTP endpoint.
type HTTPSource struct {
	provenance domain.RateProvenance
	urlTmpl    string
	field      string
	timeout    time.Duration
	client     HTTPClient
}

// NewHTTPSource builds a source from its config. A nil client uses http.DefaultClient.
func NewHTTPSource(p domain.RateProvenance, cfg config.RateSourceConfig, client HTTPClient) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPSource{
		provenance: p,
		urlTmpl:    cfg.URL,
		field:      cfg.Field,
		timeout:    timeout,
		client:     client,
	}
}

// Provenance implements ports.RateSource.
func (s *HTTPSource) Provenance() domain.RateProvenance {
	return s.provenance
}

// FetchRate performs one bounded request. Any failure is returned to the
// caller, which falls through to the next tier; nothing is retried here.
func (s *HTTPSource) FetchRate(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	target := expand(s.urlTmpl, from, to, url.QueryEscape)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("building rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("requesting %s rate: %w", s.provenance, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decimal.Zero, fmt.Errorf("%s rate source returned status %d", s.provenance, resp.StatusCode)
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	dec.UseNumber()
	var body interface{}
	if err := dec.Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decoding %s rate body: %w", s.provenance, err)
	}

	path := expand(s.field, from, to, func(v string) string { return v })
	raw, err := lookup(body, path)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s rate body: %w", s.provenance, err)
	}

	rate, err := toDecimal(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s rate body: %w", s.provenance, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s rate source returned non-positive rate %s", s.provenance, rate)
	}
	return rate, nil
}

func expand(tmpl string, from, to domain.Currency, escape func(string) string) string {
	return strings.NewReplacer(
		"{from}", escape(string(from)),
		"{to}", escape(string(to)),
	).Replace(tmpl)
}

// lookup walks a dotted path through decoded JSON objects. An empty path
// selects the whole document.
func lookup(doc interface{}, path string) (interface{}, error) {
	if path == "" {
		return doc, nil
	}
	cur := doc
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("field %q: not an object", key)
		}
		cur, ok = obj[key]
		if !ok {
			return nil, fmt.Errorf("field %q missing", key)
		}
	}
	return cur, nil
}

var errNotNumeric = errors.New("rate is not numeric")

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch n := v.(type) {
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		return decimal.NewFromString(n)
	default:
		return decimal.Zero, errNotNumeric
	}
}
