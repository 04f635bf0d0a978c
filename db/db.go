// Package db provides the key/value persistence contract used by the
// keystore, together with in-memory and bbolt-backed implementations.
package db

import (
	"errors"
	"strings"
)

// ErrKeyNotFound is returned by Get when the key has no stored value.
var ErrKeyNotFound = errors.New("db: key not found")

// Storage is a flat string key/value store. Implementations must be safe
// for concurrent use and must report write failures instead of dropping
// them silently.
type Storage interface {
	Insert(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
	DeleteAll() error
	// ListKeys returns every stored key with the given prefix, in
	// unspecified order.
	ListKeys(prefix string) ([]string, error)
}

// WithPrefix returns a view of s in which every key is transparently
// namespaced under prefix. DeleteAll only touches the namespace.
func WithPrefix(s Storage, prefix string) Storage {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return s
	}
	return &prefixed{inner: s, prefix: prefix}
}

type prefixed struct {
	inner  Storage
	prefix string
}

func (p *prefixed) Insert(key, value string) error {
	return p.inner.Insert(p.prefix+key, value)
}

func (p *prefixed) Get(key string) (string, error) {
	return p.inner.Get(p.prefix + key)
}

func (p *prefixed) Delete(key string) error {
	return p.inner.Delete(p.prefix + key)
}

func (p *prefixed) DeleteAll() error {
	keys, err := p.inner.ListKeys(p.prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := p.inner.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (p *prefixed) ListKeys(prefix string) ([]string, error) {
	keys, err := p.inner.ListKeys(p.prefix + prefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, p.prefix))
	}
	return out, nil
}
