// Package dedup answers whether an item was already processed.
package dedup

import (
	"context"
	"fmt"
	"strings"
)

// LinkChecker is the slice of the repository the deduplicator needs.
type LinkChecker interface {
	Exists(ctx context.Context, link string) (bool, error)
}

// Deduplicator checks links against persisted cases. The check is a read,
// not a reservation: the repository's insert-if-absent is what keeps links unique.
type Deduplicator struct {
	store LinkChecker
}

// New wraps a link checker.
func New(store LinkChecker) *Deduplicator {
	return &Deduplicator{store: store}
}

// IsDuplicate reports whether a case with this link is already stored.
// Blank links are treated as duplicates since they cannot be keyed.
func (d *Deduplicator) IsDuplicate(ctx context.Context, link string) (bool, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return true, nil
	}
	if d.store == nil {
		return false, nil
	}
	found, err := d.store.Exists(ctx, link)
	if err != nil {
		return false, fmt.Errorf("check link %s: %w", link, err)
	}
	return found, nil
}
