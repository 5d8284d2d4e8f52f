package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tableside/tableside/pkg/redis"
)

// RedisPersistence serializes the cart as one JSON blob under a namespaced
// key. Meant for kiosk fleets where several devices share a table session.
type RedisPersistence struct {
	client *redis.Client
	key    string
}

func NewRedisPersistence(client *redis.Client, storageKey string) (*RedisPersistence, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if storageKey == "" {
		return nil, fmt.Errorf("storage key required")
	}
	return &RedisPersistence{client: client, key: client.DraftKey(storageKey)}, nil
}

func (p *RedisPersistence) Load(ctx context.Context) ([]Line, error) {
	raw, err := p.client.Get(ctx, p.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load draft blob: %w", err)
	}
	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("decode draft blob: %w", err)
	}
	return lines, nil
}

func (p *RedisPersistence) Save(ctx context.Context, lines []Line) error {
	payload, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode draft blob: %w", err)
	}
	if err := p.client.Set(ctx, p.key, string(payload), 0); err != nil {
		return fmt.Errorf("store draft blob: %w", err)
	}
	return nil
}

func (p *RedisPersistence) Wipe(ctx context.Context) error {
	if err := p.client.Del(ctx, p.key); err != nil {
		return fmt.Errorf("delete draft blob: %w", err)
	}
	return nil
}
