package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tradepulse/engine/internal/domain"
	"github.com/tradepulse/engine/internal/port"
)

var _ port.PriceFeed = (*RedisFeed)(nil)

// RedisFeed stores the latest quote per instrument plus a per-exchange
// instrument index so the sweeper can enumerate an exchange's instruments.
type RedisFeed struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisFeed(addr, password string, db int, ttl time.Duration) *RedisFeed {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisFeed{
		client: rdb,
		ttl:    ttl,
	}
}

func quoteKey(instrument string) string     { return "quote:" + instrument }
func exchangeKey(ex domain.Exchange) string { return "exchange:" + string(ex) }

func (f *RedisFeed) SetQuote(ctx context.Context, q *domain.Quote) error {
	b, err := json.Marshal(q)
	if err != nil {
		return err
	}
	if err := f.client.Set(ctx, quoteKey(q.Instrument), b, f.ttl).Err(); err != nil {
		return err
	}
	return f.client.SAdd(ctx, exchangeKey(q.Exchange), q.Instrument).Err()
}

func (f *RedisFeed) Quote(ctx context.Context, instrument string) (*domain.Quote, error) {
	b, err := f.client.Get(ctx, quoteKey(instrument)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var q domain.Quote
	if err := json.Unmarshal(b, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (f *RedisFeed) InstrumentsByExchange(ctx context.Context, exchange domain.Exchange) ([]string, error) {
	return f.client.SMembers(ctx, exchangeKey(exchange)).Result()
}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}
