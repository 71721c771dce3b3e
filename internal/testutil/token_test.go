package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedSessionToken_Default(t *testing.T) {
	g := NewFixedSessionToken("")
	assert.Equal(t, DefaultSessionToken, g.Generate())
	assert.Equal(t, DefaultSessionToken, g.Generate())
}

func TestFixedSessionToken_Custom(t *testing.T) {
	g := NewFixedSessionToken("session-42")
	for i := 0; i < 3; i++ {
		assert.Equal(t, "session-42", g.Generate())
	}
}
