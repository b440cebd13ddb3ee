package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace-engine/config"
	"marketplace-engine/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSource(t *testing.T, field string, h http.HandlerFunc) *HTTPSource {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPSource(domain.ProvenanceLivePrimary, config.RateSourceConfig{
		URL:     srv.URL + "/latest?from={from}&to={to}",
		Field:   field,
		Timeout: time.Second,
	}, srv.Client())
}

func TestHTTPSource_FetchRate(t *testing.T) {
	src := newSource(t, "rates.{to}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "EUR", r.URL.Query().Get("from"))
		assert.Equal(t, "USD", r.URL.Query().Get("to"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"EUR","rates":{"USD":1.0812}}`))
	})

	rate, err := src.FetchRate(context.Background(), domain.EUR, domain.USD)
	require.NoError(t, err)
	assert.Equal(t, "1.0812", rate.String())
	assert.Equal(t, domain.ProvenanceLivePrimary, src.Provenance())
}

func TestHTTPSource_BareNumberBody(t *testing.T) {
	src := newSource(t, "", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`0.925`))
	})

	rate, err := src.FetchRate(context.Background(), domain.USD, domain.EUR)
	require.NoError(t, err)
	assert.Equal(t, "0.925", rate.String())
}

func TestHTTPSource_StringRate(t *testing.T) {
	src := newSource(t, "data.rate", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"rate":"1.27"}}`))
	})

	rate, err := src.FetchRate(context.Background(), domain.GBP, domain.USD)
	require.NoError(t, err)
	assert.Equal(t, "1.27", rate.String())
}

func TestHTTPSource_Failures(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		status  int
		body    string
		wantErr string
	}{
		{"non-2xx", "rates.{to}", http.StatusBadGateway, `{}`, "status 502"},
		{"malformed body", "rates.{to}", http.StatusOK, `{"rates":`, "decoding"},
		{"missing field", "rates.{to}", http.StatusOK, `{"rates":{"GBP":1.1}}`, `field "USD" missing`},
		{"not an object", "rates.{to}", http.StatusOK, `{"rates":[1.1]}`, "not an object"},
		{"not numeric", "rates.{to}", http.StatusOK, `{"rates":{"USD":true}}`, "not numeric"},
		{"zero rate", "rates.{to}", http.StatusOK, `{"rates":{"USD":0}}`, "non-positive"},
		{"negative rate", "rates.{to}", http.StatusOK, `{"rates":{"USD":-1.2}}`, "non-positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newSource(t, tt.field, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := src.FetchRate(context.Background(), domain.EUR, domain.USD)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestHTTPSource_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	src := NewHTTPSource(domain.ProvenanceLiveSecondary, config.RateSourceConfig{
		URL:     srv.URL,
		Timeout: 50 * time.Millisecond,
	}, srv.Client())

	start := time.Now()
	_, err := src.FetchRate(context.Background(), domain.EUR, domain.USD)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewHTTPSource_Defaults(t *testing.T) {
	src := NewHTTPSource(domain.ProvenanceLivePrimary, config.RateSourceConfig{URL: "http://x"}, nil)
	assert.Equal(t, 3*time.Second, src.timeout)
	assert.Equal(t, http.DefaultClient, src.client)
}
