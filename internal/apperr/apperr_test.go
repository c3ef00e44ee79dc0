package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindConflict, KindOf(New(KindConflict, "insufficient stock")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))

	wrapped := fmt.Errorf("handling order: %w", New(KindNotFound, "order not found"))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestDetail(t *testing.T) {
	assert.Equal(t, "order not found", Detail(New(KindNotFound, "order not found")))
	assert.Equal(t, "plain", Detail(errors.New("plain")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindUnavailable, "registry unreachable", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsKind(err, KindUnavailable))
	assert.Contains(t, err.Error(), "registry unreachable")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:    404,
		KindValidation:  422,
		KindConflict:    400,
		KindUnavailable: 503,
		KindTimeout:     504,
		KindBadUpstream: 500,
		KindPersistence: 500,
		KindInternal:    500,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(New(kind, "x")), kind.String())
	}
	assert.Equal(t, 500, HTTPStatus(errors.New("plain")))
}
