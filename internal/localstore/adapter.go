// Package localstore implements the fail-soft key/value persistence used by
// the local variant of the task list.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"todocat/internal/todo"
)

// ErrMissing is returned by a KV for an unknown key.
var ErrMissing = errors.New("key not found")

// ErrQuotaExceeded is reported when a value is larger than the adapter allows.
var ErrQuotaExceeded = errors.New("quota exceeded")

// DefaultQuota mirrors the usual per-origin limit of browser local storage.
const DefaultQuota = 5 << 20

// KV stores raw values by key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Adapter encodes values as JSON into a KV. It implements todo.Adapter:
// errors are logged and never returned.
type Adapter struct {
	kv      KV
	prefix  string
	quota   int
	timeout time.Duration
	logger  *log.Logger
}

var _ todo.Adapter = (*Adapter)(nil)

// NewAdapter wraps kv. A non-positive quota means DefaultQuota.
func NewAdapter(kv KV, quota int, logger *log.Logger) *Adapter {
	if quota <= 0 {
		quota = DefaultQuota
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Adapter{kv: kv, quota: quota, timeout: 5 * time.Second, logger: logger}
}

// Namespace returns an adapter over the same KV whose keys live under ns.
// Adapters with different namespaces never see each other's values.
func (a *Adapter) Namespace(ns string) *Adapter {
	scoped := *a
	scoped.prefix = ns + "/"
	return &scoped
}

// Load decodes the value stored under key into dst.
func (a *Adapter) Load(key string, dst any) bool {
	key = a.prefix + key
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	raw, err := a.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMissing) {
			a.warn("load", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		a.warn("decode", key, err)
		return false
	}
	return true
}

// Save encodes value and stores it under key.
func (a *Adapter) Save(key string, value any) {
	key = a.prefix + key
	raw, err := json.Marshal(value)
	if err != nil {
		a.warn("encode", key, err)
		return
	}
	if len(raw) > a.quota {
		a.warn("save", key, fmt.Errorf("%w: %d bytes, limit %d", ErrQuotaExceeded, len(raw), a.quota))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := a.kv.Put(ctx, key, raw); err != nil {
		a.warn("save", key, err)
	}
}

func (a *Adapter) warn(op, key string, err error) {
	a.logger.Printf("[warn] %v: %s %q: %v", todo.ErrPersistence, op, key, err)
}
