package qbank

import (
	"testing"

	"github.com/placehub/placement-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackExactCount(t *testing.T) {
	for _, count := range []int{1, 3, 5, 12, 50} {
		seeds := Fallback(model.CategoryCoding, count)
		assert.Len(t, seeds, count)
	}
}

func TestFallbackStableSelection(t *testing.T) {
	first := Fallback(model.CategoryMathematics, 9)
	second := Fallback(model.CategoryMathematics, 9)
	assert.Equal(t, first, second)
}

func TestFallbackCyclesBank(t *testing.T) {
	bankLen := len(banks[model.CategoryAptitude])
	seeds := Fallback(model.CategoryAptitude, bankLen+2)

	assert.Equal(t, seeds[0], seeds[bankLen])
	assert.Equal(t, seeds[1], seeds[bankLen+1])
}

func TestFallbackUnknownCategoryUsesAptitude(t *testing.T) {
	seeds := Fallback(model.Category("UNKNOWN"), 3)
	require.Len(t, seeds, 3)
	assert.Equal(t, banks[model.CategoryAptitude][0], seeds[0])
}

func TestBankEntriesWellFormed(t *testing.T) {
	for category, bank := range banks {
		require.NotEmpty(t, bank, "bank for %s", category)
		for _, seed := range bank {
			assert.NotEmpty(t, seed.Text)
			assert.GreaterOrEqual(t, seed.CorrectIndex, 0)
			assert.Less(t, seed.CorrectIndex, model.OptionCount)
			for _, opt := range seed.Options {
				assert.NotEmpty(t, opt)
			}
		}
	}
}
