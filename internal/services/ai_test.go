package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtractionJSONPlain(t *testing.T) {
	result, ok := parseExtractionJSON(`{"intent":"search","entities":{"query":"TVs","maxPrice":50000}}`)

	require.True(t, ok)
	assert.Equal(t, IntentSearch, result.Intent)
	assert.Equal(t, "TVs", result.Entities["query"])
	assert.Equal(t, float64(50000), result.Entities["maxPrice"])
}

func TestParseExtractionJSONFencedWithProse(t *testing.T) {
	text := "Sure! Here is the classification:\n```json\n{\"intent\":\"buy\",\"entities\":{\"productId\":\"7\"}}\n```\nLet me know if you need anything else."

	result, ok := parseExtractionJSON(text)

	require.True(t, ok)
	assert.Equal(t, IntentBuy, result.Intent)
	assert.Equal(t, "7", result.Entities["productId"])
}

func TestParseExtractionJSONRejectsBadIntent(t *testing.T) {
	_, ok := parseExtractionJSON(`{"intent":"world_domination","entities":{}}`)
	assert.False(t, ok)
}

func TestParseExtractionJSONRejectsFreeText(t *testing.T) {
	_, ok := parseExtractionJSON("I think the user wants to buy a TV.")
	assert.False(t, ok)
}

func TestParseExtractionJSONMissingEntities(t *testing.T) {
	result, ok := parseExtractionJSON(`{"intent":"help"}`)

	require.True(t, ok)
	assert.NotNil(t, result.Entities)
}

func TestRecentTurns(t *testing.T) {
	history := []Turn{{Content: "a"}, {Content: "b"}, {Content: "c"}}

	assert.Len(t, recentTurns(history, 2), 2)
	assert.Equal(t, "b", recentTurns(history, 2)[0].Content)
	assert.Len(t, recentTurns(history, 10), 3)
}
