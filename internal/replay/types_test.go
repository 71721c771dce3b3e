package replay

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePhase(t *testing.T) {
	tests := []struct {
		in   string
		want Phase
	}{
		{"", PhaseUnspecified},
		{"original", PhaseOriginal},
		{"replay", PhaseReplay},
	}
	for _, tt := range tests {
		got, err := ParsePhase(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.in, got.String())
	}

	_, err := ParsePhase("REPLAY")
	require.Error(t, err)
	assert.Equal(t, ErrCodeUnknownPhase, ErrorCode(err))
}

func TestPhase_JSON(t *testing.T) {
	ev := Event{Timestamp: 1500 * time.Millisecond, Phase: PhaseReplay, ID: "e1"}

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"timestamp":1500000000,"phase":"replay","id":"e1"}`, string(data))

	var back Event
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ev, back)

	require.Error(t, json.Unmarshal([]byte(`{"phase":"later"}`), &back))
}

func TestPhase_UnspecifiedOmitted(t *testing.T) {
	data, err := json.Marshal(Event{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"timestamp":0}`, string(data))
}

func TestParsePolicy(t *testing.T) {
	for _, p := range Policies {
		got, err := ParsePolicy(string(p))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	_, err := ParsePolicy("both")
	require.Error(t, err)
	assert.Equal(t, ErrCodeUnknownPolicy, ErrorCode(err))
}

func TestClassification_Valid(t *testing.T) {
	for _, c := range Classifications {
		assert.True(t, c.Valid(), string(c))
	}
	assert.False(t, Classification("suppressed").Valid())
	assert.True(t, BadReplay.IsDoubleFire())
	assert.False(t, GoodReplay.IsDoubleFire())
}

func TestEvent_Validate(t *testing.T) {
	assert.NoError(t, Event{}.Validate())
	assert.NoError(t, Event{Timestamp: time.Hour}.Validate())
	assert.Error(t, Event{Timestamp: -1}.Validate())
}

func TestClassifyError_Format(t *testing.T) {
	err := NewHandoffUnsetError()
	assert.Equal(t, "HANDOFF_UNSET: hand-off time must be recorded before identity classification", err.Error())

	tagged := err.WithEventID("abc")
	assert.Contains(t, tagged.Error(), "(event=abc)")
	assert.Empty(t, err.EventID, "WithEventID must not mutate the receiver")

	wrapped := fmt.Errorf("classify: %w", tagged)
	assert.True(t, IsPreconditionError(wrapped))
	assert.True(t, IsHandoffUnset(wrapped))
	assert.Equal(t, ClassifyErrorCode(""), ErrorCode(fmt.Errorf("plain")))

	assert.Equal(t, ErrCodeMissingTimestamp, NewMissingTimestampError().Code)
}
