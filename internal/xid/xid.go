// Package xid generates prefixed identifiers for rows created outside the
// database, e.g. "order-20260831-1b9f3ac2". The date segment keeps ids
// readable on receipts and in support logs; the random tail makes them
// collision-safe across instances.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

var fallbackSeq atomic.Uint64

// New returns "<prefix>-<yyyymmdd>-<8 hex chars>". If the system entropy
// source fails, a process-local sequence keeps ids unique within the
// instance.
func New(prefix string) string {
	day := time.Now().UTC().Format("20060102")

	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%s-%08x", prefix, day, fallbackSeq.Add(1))
	}
	return fmt.Sprintf("%s-%s-%s", prefix, day, hex.EncodeToString(buf))
}
