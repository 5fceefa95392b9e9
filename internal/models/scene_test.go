package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeOfDayUnmarshalText(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"afternoon", Afternoon, false},
		{"下午", Afternoon, false},
		{"", "", false},
		{"黄昏", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Night
			err := got.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestZeroSceneStateSurvivesJSON(t *testing.T) {
	state := SceneState{PendingTransition: &TransitionPlan{NewScene: "公园"}}
	data, err := json.Marshal(state)
	require.NoError(t, err)

	var back SceneState
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, TimeOfDay(""), back.CurrentTimeOfDay)
	require.NotNil(t, back.PendingTransition)
	assert.Equal(t, TimeOfDay(""), back.PendingTransition.NewTime)
}
