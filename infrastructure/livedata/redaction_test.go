package livedata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactReplacesConfiguredColumns(t *testing.T) {
	rows := []Row{
		{"id": 1, "email": "a@example.com", "name": "Ada"},
		{"id": 2, "email": "b@example.com", "name": "Bea"},
	}

	out := Redact(rows, []string{"email"})

	assert.Equal(t, "[REDACTED]", out[0]["email"])
	assert.Equal(t, "[REDACTED]", out[1]["email"])
	assert.Equal(t, "Ada", out[0]["name"])
	assert.Equal(t, 1, out[0]["id"])
}

func TestRedactNoColumnsReturnsInputUnchanged(t *testing.T) {
	rows := []Row{{"id": 1}}
	out := Redact(rows, nil)
	assert.Equal(t, rows, out)
}

func TestRedactDoesNotMutateOriginalRows(t *testing.T) {
	rows := []Row{{"email": "a@example.com"}}
	_ = Redact(rows, []string{"email"})
	assert.Equal(t, "a@example.com", rows[0]["email"])
}
