// Package redis provides a Redis-backed KVStore.
//
// Use it when the daemon and CLI run on different hosts or containers and
// cannot share a SQLite file. Every key is namespaced under a configurable
// prefix so one Redis database can serve several users.
package redis
