// Package cache provides named, TTL-bounded and size-bounded key/value caches
// with hit/miss statistics. A single [Store] is shared by every backend of a
// dispatch core: the stream reconstructor keeps parsed bodies in it and the
// HTTP providers keep model lists in it.
//
// Expiry is checked lazily on read and swept periodically. Eviction happens
// lazily on write and removes the oldest entries by insertion time; reads
// never refresh an entry, so this is not an LRU.
package cache
