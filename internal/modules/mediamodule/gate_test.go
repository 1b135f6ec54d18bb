package mediamodule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionGate_CanSubmit(t *testing.T) {
	gate := NewSubmissionGate([]string{"name", "price"})

	tests := []struct {
		name        string
		fields      map[string]string
		queued      int
		wantMissing []string
		wantEmpty   bool
	}{
		{
			name:   "all fields filled and queue populated",
			fields: map[string]string{"name": "Desk Lamp", "price": "39.00"},
			queued: 2,
		},
		{
			name:        "missing one field",
			fields:      map[string]string{"name": "Desk Lamp"},
			queued:      1,
			wantMissing: []string{"price"},
		},
		{
			name:        "whitespace does not count as filled",
			fields:      map[string]string{"name": "   ", "price": "39.00"},
			queued:      1,
			wantMissing: []string{"name"},
		},
		{
			name:      "empty queue blocks submission",
			fields:    map[string]string{"name": "Desk Lamp", "price": "39.00"},
			queued:    0,
			wantEmpty: true,
		},
		{
			name:        "both failures reported together",
			fields:      map[string]string{},
			queued:      0,
			wantMissing: []string{"name", "price"},
			wantEmpty:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := NewBatchSession(KindProduct, productProfile())
			for i := 0; i < tt.queued; i++ {
				_, err := session.Enqueue(testAsset("a" + string(rune('1'+i))))
				require.NoError(t, err)
			}

			verr := gate.CanSubmit(tt.fields, session)
			if len(tt.wantMissing) == 0 && !tt.wantEmpty {
				assert.Nil(t, verr)
				return
			}

			require.NotNil(t, verr)
			assert.Equal(t, tt.wantMissing, verr.Missing)
			assert.Equal(t, tt.wantEmpty, verr.EmptyQueue)
		})
	}
}

func TestSubmissionGate_NilSessionIsEmptyQueue(t *testing.T) {
	gate := NewSubmissionGate([]string{"title"})

	verr := gate.CanSubmit(map[string]string{"title": "Sale"}, nil)
	require.NotNil(t, verr)
	assert.True(t, verr.EmptyQueue)
}

func TestSubmissionGate_NeverTouchesTheQueue(t *testing.T) {
	gate := NewSubmissionGate([]string{"title"})
	session := NewBatchSession(KindBanner, bannerProfile())
	fillSession(t, session, "hero")

	_ = gate.CanSubmit(map[string]string{}, session)

	// Validation is read-only: queue and handles untouched
	assert.Equal(t, 1, session.TaskCount())
	assert.Equal(t, 1, session.Previews().Outstanding())
	assert.Equal(t, StatePopulating, session.State())
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Missing: []string{"name"}, EmptyQueue: true}
	assert.Contains(t, err.Error(), "name")
	assert.Contains(t, err.Error(), "no assets queued")
}
