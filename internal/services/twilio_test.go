package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderResponseTextTruncatesActions(t *testing.T) {
	response := &Response{
		Text:    "Pick one:",
		Actions: []string{"One", "Two", "Three", "Four", "Five"},
	}

	text := RenderResponseText(response)

	assert.Contains(t, text, "1️⃣ One")
	assert.Contains(t, text, "2️⃣ Two")
	assert.Contains(t, text, "3️⃣ Three")
	assert.NotContains(t, text, "Four")
	assert.NotContains(t, text, "Five")
	assert.Equal(t, 3, strings.Count(text, "️⃣"))
}

func TestRenderResponseTextNoActions(t *testing.T) {
	response := &Response{Text: "Just text"}

	assert.Equal(t, "Just text", RenderResponseText(response))
}
