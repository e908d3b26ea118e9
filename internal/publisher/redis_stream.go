package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fortuna/stathistory/internal/history"
)

// HistoryStream receives one entry per refreshed history.
const HistoryStream = "stathistory.histories"

// RedisPublisher appends computed histories to a Redis stream.
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	now    func() time.Time
}

// NewRedisPublisher connects to Redis and checks the connection.
func NewRedisPublisher(redisURL string) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return NewRedisPublisherFromClient(client), nil
}

// NewRedisPublisherFromClient publishes through an existing client, e.g.
// the one the response cache already holds.
func NewRedisPublisherFromClient(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, stream: HistoryStream, maxLen: 1000, now: time.Now}
}

// Close closes the Redis connection
func (rp *RedisPublisher) Close() error {
	return rp.client.Close()
}

// PublishHistory appends h to the stream. The entry carries the subject so
// consumers can filter without decoding the payload.
func (rp *RedisPublisher) PublishHistory(ctx context.Context, h *history.History) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	err = rp.client.XAdd(ctx, &redis.XAddArgs{
		Stream: rp.stream,
		MaxLen: rp.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"mode":      string(h.Target.Mode),
			"id":        h.Target.ID,
			"data":      string(data),
			"timestamp": rp.now().Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publishing history: %w", err)
	}
	return nil
}
