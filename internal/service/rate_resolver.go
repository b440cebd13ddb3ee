package service

import (
	"context"
	"time"

	"marketplace-engine/internal/core/domain"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RateResolverImpl implements ports.RateResolver. Live sources are tried in
// order, then the fallback table. Nothing is cached.
type RateResolverImpl struct {
	sources []ports.RateSource
	table   domain.RateTable
	log     zerolog.Logger
	now     func() time.Time
}

// NewRateResolver creates a resolver over the given live sources (in priority order).
func NewRateResolver(table domain.RateTable, log zerolog.Logger, sources ...ports.RateSource) *RateResolverImpl {
	return &RateResolverImpl{
		sources: sources,
		table:   table,
		log:     log,
		now:     time.Now,
	}
}

// Resolve returns the factor converting an amount in from into to.
func (r *RateResolverImpl) Resolve(ctx context.Context, from, to domain.Currency) (*domain.RateQuote, error) {
	if !from.Valid() {
		return nil, apperror.ErrInvalidCurrency(string(from))
	}
	if !to.Valid() {
		return nil, apperror.ErrInvalidCurrency(string(to))
	}

	if from == to {
		return r.quote(from, to, decimal.NewFromInt(1), domain.ProvenanceIdentity), nil
	}

	for _, src := range r.sources {
		rate, err := src.FetchRate(ctx, from, to)
		if err != nil {
			r.log.Warn().Err(err).
				Str("source", string(src.Provenance())).
				Str("from", string(from)).
				Str("to", string(to)).
				Msg("live rate source failed, falling through")
			continue
		}
		if !rate.IsPositive() {
			r.log.Warn().
				Str("source", string(src.Provenance())).
				Str("rate", rate.String()).
				Msg("live rate source returned non-positive rate, falling through")
			continue
		}
		return r.quote(from, to, rate, src.Provenance()), nil
	}

	if rate, ok := r.table.Lookup(from, to); ok {
		r.log.Debug().Str("from", string(from)).Str("to", string(to)).Msg("using fallback rate table")
		return r.quote(from, to, rate, domain.ProvenanceFallbackTable), nil
	}

	return nil, apperror.ErrRateUnavailable(string(from), string(to))
}

func (r *RateResolverImpl) quote(from, to domain.Currency, rate decimal.Decimal, p domain.RateProvenance) *domain.RateQuote {
	return &domain.RateQuote{
		From:       from,
		To:         to,
		Rate:       rate,
		Provenance: p,
		ResolvedAt: r.now().UTC(),
	}
}
