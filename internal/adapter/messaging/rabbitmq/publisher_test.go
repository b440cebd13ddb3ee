package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"marketplace-engine/config"
	"marketplace-engine/internal/core/domain"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	declareErr error
	publishErr error
	sent       []published
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp.Table) error {
	if f.declareErr != nil {
		return f.declareErr
	}
	f.declared = append(f.declared, name+"/"+kind)
	if !durable {
		return errors.New("exchange must be durable")
	}
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type fakeConn struct{ closed bool }

func (c *fakeConn) IsClosed() bool { return c.closed }
func (c *fakeConn) Close() error   { c.closed = true; return nil }

var testCfg = config.AMQPConfig{Exchange: "marketplace.events", RoutingKey: "purchase.completed"}

func record() domain.PurchaseRecord {
	return domain.PurchaseRecord{
		ID:              uuid.New(),
		BuyerID:         uuid.New(),
		SellerID:        uuid.New(),
		ListingID:       uuid.New(),
		Quantity:        1,
		UnitPrice:       decimal.RequireFromString("100.00"),
		ListingCurrency: domain.EUR,
		PaidAmount:      decimal.RequireFromString("108.00"),
		PayCurrency:     domain.USD,
		Rate:            decimal.RequireFromString("1.08"),
		Provenance:      domain.ProvenanceFallbackTable,
		CreatedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestNewPublisher_DeclaresTopicExchange(t *testing.T) {
	ch := &fakeChannel{}
	_, err := NewPublisher(&fakeConn{}, ch, testCfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"marketplace.events/topic"}, ch.declared)
}

func TestNewPublisher_DeclareFails(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	_, err := NewPublisher(&fakeConn{}, ch, testCfg, zerolog.Nop())
	assert.ErrorContains(t, err, "declaring exchange marketplace.events")
}

func TestPublishPurchases(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(&fakeConn{}, ch, testCfg, zerolog.Nop())
	require.NoError(t, err)

	recs := []domain.PurchaseRecord{record(), record()}
	require.NoError(t, p.PublishPurchases(context.Background(), recs))

	require.Len(t, ch.sent, 2)
	for i, s := range ch.sent {
		assert.Equal(t, "marketplace.events", s.exchange)
		assert.Equal(t, "purchase.completed", s.key)
		assert.Equal(t, recs[i].ID.String(), s.msg.MessageId)
		assert.Equal(t, uint8(amqp.Persistent), s.msg.DeliveryMode)
		assert.Equal(t, "application/json", s.msg.ContentType)

		var ev PurchaseEvent
		require.NoError(t, json.Unmarshal(s.msg.Body, &ev))
		assert.Equal(t, EventPurchaseCompleted, ev.Type)
		assert.Equal(t, recs[i].ID, ev.Purchase.ID)
		assert.True(t, ev.Purchase.PaidAmount.Equal(decimal.RequireFromString("108")))
	}
}

func TestPublishPurchases_DefaultRoutingKey(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(&fakeConn{}, ch, config.AMQPConfig{Exchange: "x"}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, p.PublishPurchases(context.Background(), []domain.PurchaseRecord{record()}))
	assert.Equal(t, EventPurchaseCompleted, ch.sent[0].key)
}

func TestPublishPurchases_Error(t *testing.T) {
	ch := &fakeChannel{publishErr: amqp.ErrClosed}
	p, err := NewPublisher(&fakeConn{}, ch, testCfg, zerolog.Nop())
	require.NoError(t, err)

	err = p.PublishPurchases(context.Background(), []domain.PurchaseRecord{record()})
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

func TestPublisher_PingAndClose(t *testing.T) {
	conn := &fakeConn{}
	ch := &fakeChannel{}
	p, err := NewPublisher(conn, ch, testCfg, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "rabbitmq", p.Name())
	assert.NoError(t, p.Ping(context.Background()))

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
	assert.Error(t, p.Ping(context.Background()))
}
