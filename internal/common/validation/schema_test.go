package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var customerSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"id", "name"},
	"properties": map[string]interface{}{
		"id":   map[string]interface{}{"type": "string"},
		"name": map[string]interface{}{"type": "string"},
	},
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name      string
		schema    map[string]interface{}
		document  string
		wantValid bool
		wantField string
	}{
		{"valid record", customerSchema, `{"name":"Bob","id":"1","age":"21"}`, true, ""},
		{"missing name", customerSchema, `{"id":"1"}`, false, "(root)"},
		{"wrong type", customerSchema, `{"id":1,"name":"Bob"}`, false, "id"},
		{"empty schema accepts all", nil, `[1,2,3]`, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateDocument(tt.schema, []byte(tt.document))
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid)
			if !tt.wantValid {
				require.NotEmpty(t, result.Errors)
				assert.Equal(t, tt.wantField, result.Errors[0].Field)
				assert.NotEmpty(t, result.Summary())
			} else {
				assert.Empty(t, result.Summary())
			}
		})
	}
}

func TestValidateDocument_MalformedDocument(t *testing.T) {
	_, err := ValidateDocument(customerSchema, []byte(`{not json`))
	assert.Error(t, err)
}
