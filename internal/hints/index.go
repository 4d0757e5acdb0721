package hints

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"channel-relay-bot/internal/database"
	"channel-relay-bot/internal/database/models"
)

// tagSeparators splits a card's tag string on commas (ASCII or
// full-width) and any whitespace run.
var tagSeparators = regexp.MustCompile(`[,，\s]+`)

// MatchKind classifies a lookup result.
type MatchKind int

const (
	// NoMatch means no tag matched at all.
	NoMatch MatchKind = iota
	// Suspect means no exact tag matched but the query and some tags
	// overlap as substrings in either direction.
	Suspect
	// Match means a tag matched the query exactly.
	Match
)

// Result is the outcome of a hint lookup. Resource is set only for an
// exact Match; SuspectTags lists the near-miss tags for Suspect.
type Result struct {
	Kind        MatchKind
	Resource    *models.Resource
	SuspectTags []string
}

// Index is the in-memory tag lookup over the open hint pool's cards.
// It is rebuilt wholesale from the store and read under a shared lock.
type Index struct {
	mu      sync.RWMutex
	pools   database.PoolRepository
	entries map[string]*models.Resource
	order   []string
}

// NewIndex creates an empty index over the pool repository.
func NewIndex(pools database.PoolRepository) *Index {
	return &Index{
		pools:   pools,
		entries: make(map[string]*models.Resource),
	}
}

// Rebuild replaces the index contents from the currently open hint
// pool. No open pool leaves the index empty. A card without a resource
// or without tags is a data error and aborts the rebuild, keeping the
// previous contents.
func (x *Index) Rebuild(ctx context.Context) error {
	pool, err := x.pools.FindOpenHintPool(ctx)
	if err != nil {
		return fmt.Errorf("failed to load open hint pool: %w", err)
	}

	entries := make(map[string]*models.Resource)
	order := make([]string, 0)
	if pool != nil {
		for _, card := range pool.Cards {
			if card.Resource == nil {
				return fmt.Errorf("hint card %q has no resource", card.CardID)
			}
			tags := splitTags(card.Resource.Tags)
			if len(tags) == 0 {
				return fmt.Errorf("hint card %q has no tags", card.CardID)
			}
			resource := card.Resource
			for _, tag := range tags {
				// First writer wins on tag collisions across cards.
				if _, exists := entries[tag]; exists {
					continue
				}
				entries[tag] = resource
				order = append(order, tag)
			}
		}
	}

	x.mu.Lock()
	x.entries = entries
	x.order = order
	x.mu.Unlock()
	return nil
}

// Size returns the number of indexed tags.
func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Search looks the query up against the indexed tags: exact match
// first, then an ordered substring scan collecting suspect tags. The
// query is trimmed and lowercased; a blank query never matches.
func (x *Index) Search(query string) Result {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return Result{Kind: NoMatch}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if resource, ok := x.entries[needle]; ok {
		return Result{Kind: Match, Resource: resource}
	}

	suspects := make([]string, 0)
	for _, tag := range x.order {
		// Substring match runs both ways: a tag containing the query
		// and a query containing a tag are equally near misses.
		if strings.Contains(tag, needle) || strings.Contains(needle, tag) {
			suspects = append(suspects, tag)
		}
	}
	if len(suspects) > 0 {
		return Result{Kind: Suspect, SuspectTags: suspects}
	}
	return Result{Kind: NoMatch}
}

// splitTags normalizes one tag string to lowercase trimmed tokens.
func splitTags(raw string) []string {
	tags := make([]string, 0)
	for _, token := range tagSeparators.Split(raw, -1) {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		tags = append(tags, token)
	}
	return tags
}
