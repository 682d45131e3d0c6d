// Package localstore provides the durable per-session key/value storage that
// stands in for browser local storage.
package localstore

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("local entry not found")

// KV is the storage surface every backend implements.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type namespaced struct {
	kv     KV
	prefix string
}

// Namespace scopes every key under the given browser session id.
func Namespace(kv KV, sessionID string) KV {
	return &namespaced{kv: kv, prefix: strings.TrimSpace(sessionID)}
}

func (n *namespaced) key(k string) string {
	if n.prefix == "" {
		return k
	}
	return n.prefix + ":" + k
}

func (n *namespaced) Get(ctx context.Context, key string) (string, error) {
	return n.kv.Get(ctx, n.key(key))
}

func (n *namespaced) Set(ctx context.Context, key, value string) error {
	return n.kv.Set(ctx, n.key(key), value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.kv.Delete(ctx, n.key(key))
}
