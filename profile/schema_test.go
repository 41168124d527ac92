package profile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/insight/errors"
)

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  string
		wantErr bool
	}{
		{
			name:   "minimal valid record",
			record: `{"entity_id":"alice","is_initialized":true}`,
		},
		{
			name: "full valid record",
			record: `{"entity_id":"alice","is_initialized":true,
				"last_analyzed_at":"2025-06-01T12:00:00Z","health_score":80}`,
		},
		{
			name:    "missing entity_id",
			record:  `{"is_initialized":true}`,
			wantErr: true,
		},
		{
			name:    "empty entity_id",
			record:  `{"entity_id":"","is_initialized":true}`,
			wantErr: true,
		},
		{
			name:    "is_initialized wrong type",
			record:  `{"entity_id":"alice","is_initialized":"yes"}`,
			wantErr: true,
		},
		{
			name:    "missing is_initialized",
			record:  `{"entity_id":"alice"}`,
			wantErr: true,
		},
		{
			name:    "health_score out of range",
			record:  `{"entity_id":"alice","is_initialized":true,"health_score":250}`,
			wantErr: true,
		},
		{
			name:    "not json",
			record:  `{{`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRecord(json.RawMessage(tt.record))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsInvalid(err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}
