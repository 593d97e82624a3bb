package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRecordFlattensNestedClaims(t *testing.T) {
	r := NewRecord("EmployeeID", "issuer-jwt~disc1", map[string]any{
		"employeeId": "e-123",
		"address": map[string]any{
			"country": "SE",
		},
	})

	v, found := r.ByPath([]string{"employeeId"})
	assert.True(t, found)
	assert.Equal(t, "e-123", v)

	v, found = r.ByPath([]string{"address", "country"})
	assert.True(t, found)
	assert.Equal(t, "SE", v)

	_, found = r.ByPath([]string{"nonexistent"})
	assert.False(t, found)
}

func TestJSONPathString(t *testing.T) {
	assert.Equal(t, "$.address.country", jsonPathString([]string{"address", "country"}))
}
