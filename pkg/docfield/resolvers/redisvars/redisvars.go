// Package redisvars serves DOCVARIABLE values from a Redis hash.
package redisvars

import (
	"context"
	"errors"
	"fmt"
	"strings"

	backend "github.com/redis/go-redis/v9"

	"github.com/benjaminschreck/go-docfield/pkg/docfield"
)

// DefaultKey is the hash read when no key is configured
const DefaultKey = "docfield:vars"

// Resolver looks names up as fields of one Redis hash. It implements both
// docfield.ValueResolver and docfield.DocVariableSource.
type Resolver struct {
	client *backend.Client
	key    string
	kind   docfield.ResolveKind
}

type Option func(*Resolver)

// WithKey sets the hash key.
func WithKey(key string) Option {
	return func(r *Resolver) {
		r.key = key
	}
}

// WithKind changes the requests the resolver answers. The default is
// docfield.ResolveDocVariable.
func WithKind(kind docfield.ResolveKind) Option {
	return func(r *Resolver) {
		r.kind = kind
	}
}

// New connects to a Redis server.
func New(address, password string, db int, opts ...Option) *Resolver {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a resolver on an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Resolver {
	r := &Resolver{
		client: client,
		key:    DefaultKey,
		kind:   docfield.ResolveDocVariable,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Name() string {
	return "redis:" + r.key
}

// lookup tries the name as written, then lower-cased.
func (r *Resolver) lookup(ctx context.Context, name string) (string, bool, error) {
	candidates := []string{name}
	if lower := strings.ToLower(name); lower != name {
		candidates = append(candidates, lower)
	}
	for _, field := range candidates {
		val, err := r.client.HGet(ctx, r.key, field).Result()
		if err == nil {
			return val, true, nil
		}
		if !errors.Is(err, backend.Nil) {
			return "", false, fmt.Errorf("failed to read %s from redis: %w", field, err)
		}
	}
	return "", false, nil
}

func (r *Resolver) ResolveValue(ctx context.Context, name string, kind docfield.ResolveKind, _ *docfield.EvalContext) (docfield.FieldValue, bool, error) {
	if !r.kind.Accepts(kind) {
		return docfield.FieldValue{}, false, nil
	}
	val, ok, err := r.lookup(ctx, name)
	if err != nil || !ok {
		return docfield.FieldValue{}, false, err
	}
	return docfield.ValueOf(val), true, nil
}

// DocVariableBuffer returns the stored value as one unformatted run.
func (r *Resolver) DocVariableBuffer(ctx context.Context, name string) (*docfield.NodeBuffer, bool, error) {
	val, ok, err := r.lookup(ctx, name)
	if err != nil || !ok {
		return nil, false, err
	}
	return docfield.NodeBufferFromText(val, nil), true, nil
}

// Set stores one value
func (r *Resolver) Set(ctx context.Context, name, value string) error {
	if err := r.client.HSet(ctx, r.key, name, value).Err(); err != nil {
		return fmt.Errorf("failed to write %s to redis: %w", name, err)
	}
	return nil
}

// Close closes the redis client.
func (r *Resolver) Close() error {
	return r.client.Close()
}
