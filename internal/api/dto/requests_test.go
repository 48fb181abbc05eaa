package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateTicketRequestAssignee(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		set     bool
		wantNil bool
		want    string
	}{
		{name: "absent", body: `{"title":"x"}`},
		{name: "explicit null", body: `{"assigned_to":null}`, set: true, wantNil: true},
		{name: "value", body: `{"assigned_to":"agent-1"}`, set: true, want: "agent-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req UpdateTicketRequest
			require.NoError(t, json.Unmarshal([]byte(tc.body), &req))
			assert.Equal(t, tc.set, req.AssignedTo.Set)
			if !tc.set || tc.wantNil {
				assert.Nil(t, req.AssignedTo.Value)
				return
			}
			require.NotNil(t, req.AssignedTo.Value)
			assert.Equal(t, tc.want, *req.AssignedTo.Value)
		})
	}
}

func TestNullableRejectsWrongType(t *testing.T) {
	var req UpdateTicketRequest
	assert.Error(t, json.Unmarshal([]byte(`{"assigned_to":42}`), &req))
}
