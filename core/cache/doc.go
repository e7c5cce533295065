// Package cache is a small JSON cache over Redis used for read-mostly views.
// Fetch collapses concurrent misses for one key into a single load.
package cache
