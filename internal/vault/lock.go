package vault

import (
	"context"
	"sync"
)

// TenantLocker serializes credential activation per tenant/family, closing
// the window where two concurrent uploads both observe "no active record".
type TenantLocker interface {
	// Lock blocks until the key is held or ctx is done. The returned
	// function releases the lock.
	Lock(ctx context.Context, key string) (func(), error)
}

// KeyedMutex is an in-process TenantLocker for single-node deployments
// and tests.
type KeyedMutex struct {
	sems sync.Map // key -> chan struct{} (capacity 1)
}

// NewKeyedMutex creates an in-process keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	v, _ := k.sems.LoadOrStore(key, make(chan struct{}, 1))
	sem := v.(chan struct{})

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
