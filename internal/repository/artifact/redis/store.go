// Package redis stores analyzer parameters in Redis via rueidis, so a
// serving fleet loads the exact envelope the training run persisted.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/featuremill/featuremill/internal/domain/params"
	"github.com/featuremill/featuremill/internal/repository/artifact"
)

// Compile-time check: Store implements artifact.Store.
var _ artifact.Store = (*Store)(nil)

// Config holds connection parameters for a Redis artifact store.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// Store persists analyzer params under <prefix><name>.
type Store struct {
	client rueidis.Client
	prefix string
}

// NewStore creates a Redis-backed artifact store.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "featuremill:params:"
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &Store{client: client, prefix: prefix}, nil
}

// Save encodes and stores the params envelope.
func (s *Store) Save(ctx context.Context, name string, p params.Params) error {
	data, err := artifact.Encode(p)
	if err != nil {
		return fmt.Errorf("save %q: %w", name, err)
	}
	cmd := s.client.B().Set().Key(s.prefix + name).Value(string(data)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("save %q: %w", name, err)
	}
	return nil
}

// Load retrieves and decodes a persisted envelope.
func (s *Store) Load(ctx context.Context, name string) (params.Params, error) {
	cmd := s.client.B().Get().Key(s.prefix + name).Build()
	data, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return params.Params{}, fmt.Errorf("load %q: %w", name, artifact.ErrNotFound)
		}
		return params.Params{}, fmt.Errorf("load %q: %w", name, err)
	}

	p, err := artifact.Decode(data)
	if err != nil {
		return params.Params{}, fmt.Errorf("load %q: %w", name, err)
	}
	return p, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the store responds or the timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for redis: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}
