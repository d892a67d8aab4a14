// Package cmap provides a concurrent-safe sharded map.
//
// Keys are spread over a power-of-two number of shards by murmur3 hash,
// each guarded by its own RWMutex. The server uses it as the registry of
// live connections, which is written on every accept and close.
//
// Usage:
//
//	m := cmap.New[uint64, *conn.Conn]()
//	m.Set(c.ID(), c)
//	for _, c := range m.Drain() {
//		c.Close()
//	}
package cmap
