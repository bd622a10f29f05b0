// Package redis provides a Redis-backed read-through cache for translation
// lookups. The cache is optional: the application runs without it when no
// Redis URL is configured, and every cache failure falls back to the
// underlying store.
package redis
