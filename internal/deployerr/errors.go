// Package deployerr defines the deployment engine's error-kind taxonomy.
// Kinds are distinguished by behavior (retryable? fatal? warning-only?),
// not by a type switch on a generic enum — each kind is its own small type,
// unlocked with errors.As.
package deployerr

import "fmt"

// ExitCode is the stable process exit code contract.
type ExitCode int

const (
	ExitSuccess              ExitCode = 0
	ExitGeneralError         ExitCode = 1
	ExitBuildFailure         ExitCode = 2
	ExitConnectionFailure    ExitCode = 3
	ExitAuthenticationFailure ExitCode = 4
	ExitDeploymentFailure    ExitCode = 5
	ExitConfigurationError   ExitCode = 6
	ExitProfileNotFound      ExitCode = 7
	ExitInvalidArguments     ExitCode = 8
	ExitOperationCancelled   ExitCode = 9
)

// ConfigError signals a malformed or unreadable configuration/profile file.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config error (%s): %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config error: %v", e.Err)
}
func (e *ConfigError) Unwrap() error { return e.Err }

// ProfileNotFoundError signals a named profile that does not exist on disk.
type ProfileNotFoundError struct {
	Name string
}

func (e *ProfileNotFoundError) Error() string {
	return fmt.Sprintf("profile not found: %s", e.Name)
}

// ValidationError signals a profile or argument that fails sanity checks.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Msg)
}

// BuildError signals a non-zero exit from the external build tool.
// Never retryable.
type BuildError struct {
	Errors   []string
	Warnings []string
	ExitCode int
	Excerpt  string
}

func (e *BuildError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("build failed (exit %d): %s", e.ExitCode, e.Errors[0])
	}
	return fmt.Sprintf("build failed (exit %d)", e.ExitCode)
}

// ConnectionError signals a driver connect/network fault. Transient errors
// are eligible for retry by the connect probe and the Upload Engine.
type ConnectionError struct {
	Transient bool
	Err       error
}

func (e *ConnectionError) Error() string { return fmt.Sprintf("connection error: %v", e.Err) }
func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthError signals credential rejection by the remote server. Never
// retryable regardless of CredentialIssue.
type AuthError struct {
	CredentialIssue bool
	Err             error
}

func (e *AuthError) Error() string { return fmt.Sprintf("authentication error: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// TransferError signals an upload/download I/O fault. Retryable when
// Transient is set.
type TransferError struct {
	Transient bool
	Err       error
}

func (e *TransferError) Error() string { return fmt.Sprintf("transfer error: %v", e.Err) }
func (e *TransferError) Unwrap() error { return e.Err }

// CleanupError is always a warning: it is logged via onWarning and never
// changes the terminal deployment state.
type CleanupError struct {
	Path string
	Err  error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup error (%s): %v", e.Path, e.Err)
}
func (e *CleanupError) Unwrap() error { return e.Err }

// Cancelled signals the caller-initiated cancel signal reached a terminal
// transition.
type Cancelled struct{}

func (e *Cancelled) Error() string { return "operation cancelled" }

// ExitCodeFor maps a terminal error to the stable CLI exit code contract.
// A nil error maps to ExitSuccess.
func ExitCodeFor(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	switch e := err.(type) {
	case *ConfigError:
		return ExitConfigurationError
	case *ProfileNotFoundError:
		return ExitProfileNotFound
	case *ValidationError:
		return ExitConfigurationError
	case *BuildError:
		return ExitBuildFailure
	case *ConnectionError:
		return ExitConnectionFailure
	case *AuthError:
		return ExitAuthenticationFailure
	case *TransferError:
		return ExitDeploymentFailure
	case *Cancelled:
		return ExitOperationCancelled
	default:
		_ = e
		return ExitGeneralError
	}
}
