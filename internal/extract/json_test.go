package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menutalk/kiku/internal/errors"
)

func TestJSON_Strategies(t *testing.T) {
	const payload = `[{"originalMenuName":"Ramen","price":"¥980"}]`

	tests := []struct {
		name         string
		raw          string
		wantStrategy Strategy
	}{
		{
			name:         "fenced block",
			raw:          "Here is the menu:\n```json\n" + payload + "\n```\nEnjoy!",
			wantStrategy: StrategyFence,
		},
		{
			name:         "fenced block with upper-case tag",
			raw:          "```JSON\n" + payload + "\n```",
			wantStrategy: StrategyFence,
		},
		{
			name:         "bare array",
			raw:          "  \n" + payload + "\n",
			wantStrategy: StrategyBare,
		},
		{
			name:         "array inside prose",
			raw:          "Sure! " + payload + " Let me know if you need more.",
			wantStrategy: StrategyBracket,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, strategy, err := JSON(tt.raw, Array)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
			assert.Equal(t, tt.wantStrategy, strategy)
		})
	}
}

func TestJSON_Object(t *testing.T) {
	got, strategy, err := JSON(`The language is {"detectedLanguage": "Korean"}.`, Object)
	require.NoError(t, err)
	assert.Equal(t, `{"detectedLanguage": "Korean"}`, got)
	assert.Equal(t, StrategyBracket, strategy)
}

func TestJSON_NoJSON(t *testing.T) {
	raw := "I could not read this menu, sorry."

	_, _, err := JSON(raw, Array)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeParse))

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, raw, appErr.Raw)
}

func TestJSON_ClosingBeforeOpening(t *testing.T) {
	_, _, err := JSON("] nothing here [", Array)
	assert.True(t, errors.IsType(err, errors.ErrorTypeParse))
}
