package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-edge/internal/cart"
)

// DefaultCartKey is the fixed storage key the serialized cart lives under.
const DefaultCartKey = "cart"

// CartStore persists the whole cart as one JSON array under a fixed key.
type CartStore struct {
	kv  KV
	key string
}

func NewCartStore(kv KV, key string) *CartStore {
	if key == "" {
		key = DefaultCartKey
	}
	return &CartStore{kv: kv, key: key}
}

// Load returns the last persisted cart. A missing entry is an empty cart;
// unreadable or corrupt entries are returned as errors so the caller can
// decide to fall back.
func (s *CartStore) Load(ctx context.Context) (cart.Lines, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return cart.Lines{}, nil
		}
		return nil, fmt.Errorf("read local cart: %w", err)
	}
	if raw == "" {
		return cart.Lines{}, nil
	}
	var lines cart.Lines
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("decode local cart: %w", err)
	}
	if lines == nil {
		lines = cart.Lines{}
	}
	return lines, nil
}

// Save overwrites the persisted cart with lines.
func (s *CartStore) Save(ctx context.Context, lines cart.Lines) error {
	if lines == nil {
		lines = cart.Lines{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode local cart: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(raw)); err != nil {
		return fmt.Errorf("write local cart: %w", err)
	}
	return nil
}

// Purge removes the persisted cart entirely.
func (s *CartStore) Purge(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("purge local cart: %w", err)
	}
	return nil
}
