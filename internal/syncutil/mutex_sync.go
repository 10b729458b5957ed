//go:build !deadlock

// Package syncutil provides the mutex used across the module.
// Regular builds get sync.Mutex; building with -tags=deadlock swaps in
// github.com/sasha-s/go-deadlock so lock-order bugs around the reader
// busy flag show up in tests.
package syncutil

import "sync"

// Mutex wraps sync.Mutex.
type Mutex struct {
	sync.Mutex
}
