// Package state implements the per-request shared state bag. A single Bag is
// created for each inbound request and threaded through the handler chain via
// the request context. Handlers read through snapshots and mutate through the
// setter methods; the backing map is never handed out directly.
package state

import (
	"context"
	"maps"
	"strconv"
	"sync"
)

// Bag is a request-scoped string-keyed value store. Its lifetime is one
// request/response cycle; it must not be retained across requests.
type Bag struct {
	mx     sync.RWMutex
	values map[string]any
}

// New returns an empty Bag.
func New() *Bag {
	return &Bag{values: make(map[string]any)}
}

// Snapshot returns a copy of the current key/value pairs. Mutating the
// returned map has no effect on the bag.
func (b *Bag) Snapshot() map[string]any {
	b.mx.RLock()
	defer b.mx.RUnlock()
	out := make(map[string]any, len(b.values))
	maps.Copy(out, b.values)
	return out
}

// Get returns the value stored under key.
func (b *Bag) Get(key string) (any, bool) {
	b.mx.RLock()
	defer b.mx.RUnlock()
	v, ok := b.values[key]
	return v, ok
}

// Set stores v under key, overwriting any previous value.
func (b *Bag) Set(key string, v any) {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.values[key] = v
}

// Merge copies partial into the bag. Only string and numeric keys are
// admitted; numeric keys are rendered as decimal strings, and all other key
// types are silently dropped.
func (b *Bag) Merge(partial map[any]any) {
	b.mx.Lock()
	defer b.mx.Unlock()
	for k, v := range partial {
		ks, ok := keyString(k)
		if !ok {
			continue
		}
		b.values[ks] = v
	}
}

func keyString(k any) (string, bool) {
	switch t := k.(type) {
	case string:
		return t, true
	case int:
		return strconv.Itoa(t), true
	case int8:
		return strconv.FormatInt(int64(t), 10), true
	case int16:
		return strconv.FormatInt(int64(t), 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint:
		return strconv.FormatUint(uint64(t), 10), true
	case uint8:
		return strconv.FormatUint(uint64(t), 10), true
	case uint16:
		return strconv.FormatUint(uint64(t), 10), true
	case uint32:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

type contextKey struct{}

// Attach stores the bag in ctx.
func Attach(ctx context.Context, b *Bag) context.Context {
	return context.WithValue(ctx, contextKey{}, b)
}

// From retrieves the bag attached to ctx, if any.
func From(ctx context.Context) (*Bag, bool) {
	b, ok := ctx.Value(contextKey{}).(*Bag)
	return b, ok
}
