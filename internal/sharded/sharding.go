// Package sharded provides lock-striped concurrent map and set types used to
// collect per-path results from the signature scanner's worker fan-out
// without serializing every worker through one mutex.
package sharded

import "hash/fnv"

const numShards = 64 // Power of 2 for fast bitwise mod.

// shardIndex calculates the shard index for a given key using FNV-1a.
func shardIndex(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() & uint32(numShards-1))
}
