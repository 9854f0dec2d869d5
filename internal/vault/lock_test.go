package vault

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestKeyedMutex_Serializes(t *testing.T) {
	km := NewKeyedMutex()

	var mu sync.Mutex
	var inCritical int
	var maxInCritical int

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(context.Background(), "fiel:42")
			if err != nil {
				t.Errorf("Lock() failed: %v", err)
				return
			}
			defer unlock()

			mu.Lock()
			inCritical++
			if inCritical > maxInCritical {
				maxInCritical = inCritical
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inCritical--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxInCritical != 1 {
		t.Errorf("critical section concurrency = %d, want 1", maxInCritical)
	}
}

func TestKeyedMutex_DistinctKeysIndependent(t *testing.T) {
	km := NewKeyedMutex()

	unlockA, err := km.Lock(context.Background(), "fiel:1")
	if err != nil {
		t.Fatalf("Lock(fiel:1) failed: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := km.Lock(ctx, "csd:1")
	if err != nil {
		t.Fatalf("Lock(csd:1) should not block on fiel:1: %v", err)
	}
	unlockB()
}

func TestKeyedMutex_ContextCanceled(t *testing.T) {
	km := NewKeyedMutex()

	unlock, err := km.Lock(context.Background(), "fiel:7")
	if err != nil {
		t.Fatalf("Lock() failed: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := km.Lock(ctx, "fiel:7"); err != context.DeadlineExceeded {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}
