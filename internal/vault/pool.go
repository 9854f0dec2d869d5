package vault

import "context"

// ConversionPool bounds concurrent key conversions. The private-key path may
// block on an external process and file I/O, so it must not be allowed to
// saturate capacity shared with latency-sensitive work.
type ConversionPool struct {
	sem chan struct{}
}

// NewConversionPool creates a pool allowing size concurrent conversions.
func NewConversionPool(size int) *ConversionPool {
	if size <= 0 {
		size = 1
	}
	return &ConversionPool{sem: make(chan struct{}, size)}
}

// Do runs fn once a slot is free, or returns ctx's error while waiting.
func (p *ConversionPool) Do(ctx context.Context, fn func() error) error {
	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
		return fn()
	case <-ctx.Done():
		return ctx.Err()
	}
}
