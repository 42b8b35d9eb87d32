package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"whatsapp:+237670000001": "+237670000001",
		"+237 670 000 001":       "+237670000001",
		"670000001":              "+237670000001",
		"00237670000001":         "+237670000001",
		"237670000001":           "+237670000001",
		"":                       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in), "input %q", in)
	}
}
