package oops

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

var SampleErrorValue = errors.New("some error occurred that you should handle")

type SampleErrorType struct {
	Message string
}

func (s SampleErrorType) Error() string {
	return s.Message
}

func init() {
	zerolog.ErrorStackMarshaler = ZerologStackMarshaler
}

func TestNew(t *testing.T) {
	t.Run("errors.Is", func(t *testing.T) {
		err := New(SampleErrorValue, "test error")
		assert.ErrorIs(t, err, SampleErrorValue)
	})
	t.Run("errors.As", func(t *testing.T) {
		err := New(SampleErrorType{Message: "some fancy error type has occurred"}, "test error")
		var sErr SampleErrorType
		assert.ErrorAs(t, err, &sErr)
	})
	t.Run("message", func(t *testing.T) {
		assert.Equal(t, "failed to load account 7: some error occurred that you should handle", New(SampleErrorValue, "failed to load account %d", 7).Error())
		assert.Equal(t, "nothing wrapped", New(nil, "nothing wrapped").Error())
	})
	t.Run("stack", func(t *testing.T) {
		var e *Error
		assert.ErrorAs(t, New(nil, "where"), &e)
		if assert.NotEmpty(t, e.Stack) {
			assert.Contains(t, e.Stack[0].Function, "TestNew")
		}
	})
}

func TestKinds(t *testing.T) {
	t.Run("plain errors are internal", func(t *testing.T) {
		assert.Equal(t, KindInternal, KindOf(SampleErrorValue))
		assert.Equal(t, KindInternal, KindOf(New(SampleErrorValue, "wrapped")))
		assert.Equal(t, "", CodeOf(SampleErrorValue))
		assert.False(t, Is(nil, KindInternal))
	})
	t.Run("kinded constructors", func(t *testing.T) {
		cases := map[Kind]*Error{
			KindNotFound:     NotFound("x"),
			KindForbidden:    Forbidden("x"),
			KindUnauthorized: Unauthorized("x"),
			KindConflict:     Conflict("x"),
			KindInvalidState: InvalidState("x"),
			KindInvalidInput: InvalidInput("x"),
		}
		for kind, err := range cases {
			assert.True(t, Is(err, kind), kind.String())
		}
	})
	t.Run("wrapping keeps kind code and details", func(t *testing.T) {
		inner := NotFound("article %d not found", 3).WithCode("article_not_found").WithDetail("id", 3)
		err := New(New(inner, "loading comments"), "handling request")
		assert.True(t, Is(err, KindNotFound))
		assert.Equal(t, "article_not_found", CodeOf(err))

		var outer *Error
		assert.ErrorAs(t, err, &outer)
		assert.Equal(t, 3, outer.Details["id"])
	})
	t.Run("kind names", func(t *testing.T) {
		assert.Equal(t, "not_found", KindNotFound.String())
		assert.Equal(t, "invalid_input", KindInvalidInput.String())
		assert.Equal(t, "internal", KindInternal.String())
	})
}
