package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameKey(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Anna", "anna"},
		{"  ANNA ", "anna"},
		{"Anna  de   Vries", "anna de vries"},
		{"Zoë", "zoë"},
		{"Zoe\u0308", "zo\u00eb"},
		{"   ", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NameKey(c.in), "NameKey(%q)", c.in)
	}
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "Anna de Vries", CleanName("  Anna   de Vries "))
	assert.Equal(t, "", CleanName("\t\n"))
}
