package broker

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionSignedQty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pos      Position
		expected float64
	}{
		{"long", Position{Side: "long", Qty: 10}, 10},
		{"short_negative_qty", Position{Side: "short", Qty: -4}, -4},
		{"short_positive_qty", Position{Side: "short", Qty: 4}, -4},
		{"fractional", Position{Side: "long", Qty: 0.25}, 0.25},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.pos.SignedQty())
		})
	}
}

func TestCredentialsValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Credentials{KeyID: "k", SecretKey: "s"}.Validate())
	err := Credentials{Profile: "swing", KeyID: "k"}.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "swing")
}

func TestRetrievalError(t *testing.T) {
	t.Parallel()

	err := &RetrievalError{Page: 2, Attempts: 3, Status: 429, Err: io.ErrUnexpectedEOF}
	assert.Equal(t, "page 2 failed after 3 attempt(s): http 429: unexpected EOF", err.Error())
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	noStatus := &RetrievalError{Page: 1, Attempts: 1, Err: io.EOF}
	assert.Equal(t, "page 1 failed after 1 attempt(s): EOF", noStatus.Error())
}
