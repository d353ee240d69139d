package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantMsg   string
		wantField map[string]string
	}{
		{name: "whole input", err: NewValidationError(errors.New("malformed roster")), wantMsg: "malformed roster"},
		{
			name:      "fields",
			err:       NewValidationError(nil, FieldError{Field: "roster", Error: "duplicate enrollment E1"}, FieldError{Field: "roster", Error: "duplicate enrollment E2"}),
			wantMsg:   "roster: duplicate enrollment E1",
			wantField: map[string]string{"roster": "duplicate enrollment E1"},
		},
		{name: "empty", err: NewValidationError(nil), wantMsg: "validation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vErr, ok := AsValidationError(errors.Wrap(tt.err, "importing classes"))
			if assert.True(t, ok) {
				assert.Equal(t, tt.wantMsg, vErr.Error())
				assert.Equal(t, tt.wantField, vErr.FieldMap())
			}
		})
	}

	_, ok := AsValidationError(errors.New("boom"))
	assert.False(t, ok)
}

func TestIsShutdown(t *testing.T) {
	cause := errors.New("connection lost")
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "plain", err: NewShutdownError("store corrupted"), want: true},
		{name: "wrapped", err: errors.Wrap(NewShutdownError("store corrupted"), "writing attendance"), want: true},
		{name: "with cause", err: WrapShutdown(cause, "rollback failed"), want: true},
		{name: "other", err: cause},
		{name: "nil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsShutdown(tt.err))
		})
	}

	err := WrapShutdown(cause, "rollback failed")
	assert.Equal(t, "rollback failed: connection lost", err.Error())
	assert.True(t, errors.Is(err, cause))
}
