package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessages(t *testing.T) {
	cause := errors.New("no such table")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", ErrNotFound("table %q not found", "t"), `table "t" not found`},
		{"validation", ErrValidation("bad %s", "input"), "bad input"},
		{"discovery", &DiscoveryError{Schema: "main", Table: "t", Cause: cause}, "discover columns of main.t: no such table"},
		{"discovery without schema", &DiscoveryError{Table: "t", Cause: cause}, "discover columns of t: no such table"},
		{"connection", &ConnectionError{Cause: cause}, "open mdx connection: no such table"},
		{"execution", &ExecutionError{Query: "SELECT", Cause: cause}, "execute mdx: no such table"},
		{"execution helper", ErrExecution("SELECT", "measure %q not found", "x"), `execute mdx: measure "x" not found`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.want)
		})
	}
}

func TestErrorsUnwrapToCause(t *testing.T) {
	nf := ErrNotFound("table missing")

	var got *NotFoundError
	require.ErrorAs(t, fmt.Errorf("run: %w", &DiscoveryError{Table: "t", Cause: nf}), &got)
	assert.Same(t, nf, got)

	sentinel := errors.New("closed")
	assert.ErrorIs(t, &ConnectionError{Cause: sentinel}, sentinel)
	assert.ErrorIs(t, &ExecutionError{Cause: sentinel}, sentinel)
}

func TestErrExecution_KeepsQuery(t *testing.T) {
	err := ErrExecution("SELECT {} ON COLUMNS FROM [c]", "boom")
	assert.Equal(t, "SELECT {} ON COLUMNS FROM [c]", err.Query)
}

func TestStage(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"discovery", &DiscoveryError{Schema: "main", Table: "t", Cause: cause}, StageDiscover},
		{"connection", &ConnectionError{Cause: cause}, StageConnect},
		{"execution", &ExecutionError{Query: "SELECT", Cause: cause}, StageExecute},
		{"wrapped", fmt.Errorf("run: %w", &ExecutionError{Cause: cause}), StageExecute},
		{"discovery wrapping not found", &DiscoveryError{Table: "t", Cause: ErrNotFound("table %q not found", "t")}, StageDiscover},
		{"plain", cause, ""},
		{"validation", ErrValidation("bad"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Stage(tt.err))
		})
	}
}
