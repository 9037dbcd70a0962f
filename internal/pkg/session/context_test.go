package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenContext(t *testing.T) {
	_, ok := TokenFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithToken(context.Background(), "")
	_, ok = TokenFromContext(ctx)
	assert.False(t, ok)

	token, ok := TokenFromContext(WithToken(context.Background(), "admin-token"))
	assert.True(t, ok)
	assert.Equal(t, "admin-token", token)
}
