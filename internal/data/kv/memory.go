package kv

import (
	"context"
	"sync"
)

// Memory keeps values in a sync.Map so reads and writes for different keys
// never contend on a shared mutex.
type Memory struct {
	values sync.Map // key -> []byte
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := m.values.Load(key)
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(v.([]byte)), nil
}

func (m *Memory) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.values.Store(key, cloneBytes(value))
	return nil
}

func (m *Memory) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, loaded := m.values.LoadOrStore(key, cloneBytes(value))
	return !loaded, nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }
