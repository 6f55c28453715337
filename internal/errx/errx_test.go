package errx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	errSentinel = errors.New("sentinel")
	errCause    = errors.New("cause")
)

func TestWrap(t *testing.T) {
	err := Wrap(errSentinel, errCause)
	assert.ErrorIs(t, err, errSentinel)
	assert.ErrorIs(t, err, errCause)
	assert.Equal(t, "sentinel: cause", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Equal(t, errSentinel, Wrap(errSentinel, nil))
}

func TestWith(t *testing.T) {
	err := With(errSentinel, ": fd %d: %w", 7, errCause)
	assert.ErrorIs(t, err, errSentinel)
	assert.ErrorIs(t, err, errCause)
	assert.Equal(t, "sentinel: fd 7: cause", err.Error())
}
