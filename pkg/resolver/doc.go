// Package resolver resolves a hostname or IP to a preferred canonical name,
// memoizing lookups for the life of the process.
package resolver
