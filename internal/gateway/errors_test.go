package gateway

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestE_NilPassesThrough(t *testing.T) {
	assert.NoError(t, E("op", KindInternal, nil))
}

func TestKindOf(t *testing.T) {
	base := errors.New("row missing")
	err := fmt.Errorf("fetch listings: %w", E("select", KindNotFound, base))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindConflict))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "fetch listings: select: row missing", err.Error())

	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.False(t, IsKind(nil, KindInternal))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "unauthorized", KindUnauthorized.String())
	assert.Equal(t, "internal", Kind(99).String())
}

func TestMessage(t *testing.T) {
	err := fmt.Errorf("sign in: %w", E("authenticate", KindUnauthorized, ErrInvalidCredentials))
	assert.Equal(t, "invalid login credentials", Message(err))
	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Equal(t, "", Message(nil))
}
