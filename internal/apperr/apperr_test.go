package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindAndMessageSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("create: %w", Conflict("already there"))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "already there", Message(err, "fallback"))

	plain := errors.New("db exploded")
	assert.Equal(t, KindInternal, KindOf(plain))
	assert.Equal(t, "fallback", Message(plain, "fallback"))
}

func TestUpstreamUnwraps(t *testing.T) {
	cause := errors.New("smtp 503")
	err := Upstream("Failed to send email: smtp 503", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindUpstream, KindOf(err))
	assert.Equal(t, "upstream", KindUpstream.String())
}
