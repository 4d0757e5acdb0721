package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecoratorProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("RemovesBlacklistTerms", func(t *testing.T) {
		blacklist := new(MockBlacklistRepository)
		blacklist.On("ListTerms", ctx).Return([]string{"spam", "ad:"}, nil).Once()

		d := NewDecorator(blacklist, new(MockSuffixRepository), new(MockPromoRepository))
		assert.Equal(t, "hello world", d.Process(ctx, "ad:hello spamworld"))
	})

	t.Run("NormalizesScriptVariants", func(t *testing.T) {
		blacklist := new(MockBlacklistRepository)
		blacklist.On("ListTerms", ctx).Return([]string{}, nil)

		d := NewDecorator(blacklist, new(MockSuffixRepository), new(MockPromoRepository))
		// Full-width forms fold to their ASCII equivalents.
		assert.Equal(t, "ABC 123", d.Process(ctx, "ＡＢＣ　１２３"))
	})

	t.Run("BlankInputYieldsEmpty", func(t *testing.T) {
		d := NewDecorator(new(MockBlacklistRepository), new(MockSuffixRepository), new(MockPromoRepository))
		assert.Equal(t, "", d.Process(ctx, "   "))
		assert.Equal(t, "", d.Process(ctx, ""))
	})

	t.Run("BlacklistFailureDegradesToUnfiltered", func(t *testing.T) {
		blacklist := new(MockBlacklistRepository)
		blacklist.On("ListTerms", ctx).Return(nil, errors.New("db down")).Once()

		d := NewDecorator(blacklist, new(MockSuffixRepository), new(MockPromoRepository))
		assert.Equal(t, "spam text", d.Process(ctx, "spam text"))
	})
}

func TestDecoratorFragmentPicks(t *testing.T) {
	ctx := context.Background()

	t.Run("SuffixLookupFailureDegrades", func(t *testing.T) {
		suffixes := new(MockSuffixRepository)
		suffixes.On("PickSuffixByOriginChatID", ctx, "123").Return("", errors.New("db down")).Once()

		d := NewDecorator(new(MockBlacklistRepository), suffixes, new(MockPromoRepository))
		assert.Equal(t, "", d.PickSuffix(ctx, "123"))
	})

	t.Run("PromoLookupFailureDegrades", func(t *testing.T) {
		promos := new(MockPromoRepository)
		promos.On("PickRandomContent", ctx).Return("", errors.New("db down")).Once()

		d := NewDecorator(new(MockBlacklistRepository), new(MockSuffixRepository), promos)
		assert.Equal(t, "", d.PickPromo(ctx))
	})
}

func TestBuildOutputText(t *testing.T) {
	assert.Equal(t, "S T 2025-01-01_0001 P", BuildOutputText("S", "T", "2025-01-01_0001", "P"))
	assert.Equal(t, "T 2025-01-01_0001", BuildOutputText("", "T", "2025-01-01_0001", ""))
	assert.Equal(t, "2025-01-01_0001", BuildOutputText("", "", "2025-01-01_0001", ""))
	assert.Equal(t, "S 2025-01-01_0001 P", BuildOutputText("S", "   ", "2025-01-01_0001", "P"))
	assert.Equal(t, "", BuildOutputText("", "", "", ""))
}
