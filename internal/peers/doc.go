// Package peers cross-checks a merged dependency set against the peer
// dependency metadata published on the npm registry. Lookups go through an
// in-memory cache, then an on-disk cache, then the live registry with
// bounded retries; a package whose metadata cannot be fetched degrades to
// a synthetic fallback record instead of failing the batch. All findings
// are advisory.
package peers
