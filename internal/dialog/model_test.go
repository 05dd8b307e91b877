package dialog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadNumbersSurviveJSON(t *testing.T) {
	p := Payload{SlotProjectID: int64(42), SlotIssuePhotos: []string{"a", "b"}, SlotSnabPricedLineIDs: []int64{3, 4}}

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	var back Payload
	require.NoError(t, json.Unmarshal(raw, &back))

	id, ok := GetInt64(back, SlotProjectID)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, []string{"a", "b"}, GetStrings(back, SlotIssuePhotos))
	assert.Equal(t, []int64{3, 4}, GetInt64s(back, SlotSnabPricedLineIDs))

	_, ok = GetInt64(back, SlotTaskID)
	assert.False(t, ok)
}

func TestWithoutDoesNotMutate(t *testing.T) {
	p := Payload{SlotProjectID: 1.0, SlotMRLines: []any{}}
	q := p.Without(SlotMRLines)

	assert.Contains(t, p, SlotMRLines)
	assert.NotContains(t, q, SlotMRLines)
	assert.Contains(t, q, SlotProjectID)
}

func TestIsDraft(t *testing.T) {
	assert.True(t, StateUstaMRDraftInput.IsDraft())
	assert.True(t, StateUstaAIInput.IsDraft())
	assert.False(t, StateIdle.IsDraft())
	assert.False(t, StateSnabPriceInput.IsDraft())
}
