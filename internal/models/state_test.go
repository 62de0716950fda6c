package models

import "testing"

func TestDeploymentStateIsTerminal(t *testing.T) {
	cases := map[DeploymentState]bool{
		StateNotStarted:          false,
		StateLoadingProfile:      false,
		StateUploadingFiles:      false,
		StateRecordingHistory:    false,
		StateCompleted:           true,
		StateFailed:              true,
		StateCancelled:           true,
	}
	for state, want := range cases {
		if got := state.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", state, got, want)
		}
	}
}
