package relay

import (
	"context"
	"log"
	"strings"

	"channel-relay-bot/internal/database"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Decorator is the deterministic text transform chain applied to
// relayed content: blacklist-term removal, script normalization, and
// composition of the final output string from its fragments.
type Decorator struct {
	blacklist database.BlacklistRepository
	suffixes  database.SuffixRepository
	promos    database.PromoRepository
}

// NewDecorator creates a decorator over the content repositories.
func NewDecorator(blacklist database.BlacklistRepository, suffixes database.SuffixRepository, promos database.PromoRepository) *Decorator {
	return &Decorator{blacklist: blacklist, suffixes: suffixes, promos: promos}
}

// Process removes every configured blacklist term from the input, then
// normalizes script variants (NFKC plus east-asian width folding) and
// trims. Blank input yields "".
func (d *Decorator) Process(ctx context.Context, input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	result := input
	terms, err := d.blacklist.ListTerms(ctx)
	if err != nil {
		// Relay with the unfiltered text rather than dropping the post.
		log.Printf("[Decorator] Failed to load blacklist terms: %v", err)
	}
	for _, term := range terms {
		result = strings.ReplaceAll(result, term, "")
	}
	result = width.Fold.String(norm.NFKC.String(result))
	return strings.TrimSpace(result)
}

// PickSuffix returns the suffix fragment for the forward-origin chat,
// or "" when none applies. Lookup failures degrade to "".
func (d *Decorator) PickSuffix(ctx context.Context, originChatID string) string {
	suffix, err := d.suffixes.PickSuffixByOriginChatID(ctx, originChatID)
	if err != nil {
		log.Printf("[Decorator] Failed to pick suffix for origin %s: %v", originChatID, err)
		return ""
	}
	return suffix
}

// PickPromo returns a promotional fragment, or "" when none is
// configured. Lookup failures degrade to "".
func (d *Decorator) PickPromo(ctx context.Context) string {
	promo, err := d.promos.PickRandomContent(ctx)
	if err != nil {
		log.Printf("[Decorator] Failed to pick promo content: %v", err)
		return ""
	}
	return promo
}

// BuildOutputText joins the non-blank fragments in the fixed order
// [suffix, text, serial, promo] with single spaces.
func BuildOutputText(suffix, text, serial, promo string) string {
	parts := make([]string, 0, 4)
	for _, part := range []string{suffix, text, serial, promo} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}
