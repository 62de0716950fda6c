package deployerr

import (
	"errors"
	"testing"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ExitCode
	}{
		{"nil", nil, ExitSuccess},
		{"config", &ConfigError{Err: errors.New("bad json")}, ExitConfigurationError},
		{"profile not found", &ProfileNotFoundError{Name: "prod"}, ExitProfileNotFound},
		{"build", &BuildError{ExitCode: 1}, ExitBuildFailure},
		{"connection", &ConnectionError{Err: errors.New("refused")}, ExitConnectionFailure},
		{"auth", &AuthError{Err: errors.New("bad password")}, ExitAuthenticationFailure},
		{"transfer", &TransferError{Err: errors.New("reset")}, ExitDeploymentFailure},
		{"cancelled", &Cancelled{}, ExitOperationCancelled},
		{"generic", errors.New("boom"), ExitGeneralError},
	}
	for _, tc := range cases {
		if got := ExitCodeFor(tc.err); got != tc.want {
			t.Errorf("%s: ExitCodeFor() = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestConnectionErrorUnwrap(t *testing.T) {
	inner := errors.New("dial tcp: timeout")
	err := &ConnectionError{Transient: true, Err: inner}
	if !errors.Is(err, inner) {
		t.Errorf("expected errors.Is to unwrap to inner error")
	}
}
