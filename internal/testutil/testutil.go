// Package testutil holds shared test helpers. Everything takes a
// [testing.TB] so the helpers work from benchmarks too, and every
// helper calls t.Helper() so failures point at the caller.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amrerr "github.com/AzureManagedRedis/mcp-amr/pkg/errors"
)

// RequireNoError stops the test if err is non-nil.
func RequireNoError(t testing.TB, err error, msgAndArgs ...any) {
	t.Helper()
	require.NoError(t, err, msgAndArgs...)
}

// RequireError stops the test if err is nil.
func RequireError(t testing.TB, err error, msgAndArgs ...any) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
}

// RequireErrorCode stops the test unless err is an *amrerr.Error
// carrying code.
//
//	err := loader.Load(nil)
//	testutil.RequireErrorCode(t, err, amrerr.CodeInternalConfiguration)
func RequireErrorCode(t testing.TB, err error, code amrerr.Code, msgAndArgs ...any) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	amrErr, ok := amrerr.AsError(err)
	require.True(t, ok, "want *amrerr.Error, got %T: %v", err, err)
	require.Equal(t, code, amrErr.Code,
		"code mismatch: got %q want %q (message: %s)",
		amrErr.Code, code, amrErr.Message)
}

// AssertErrorCode is the non-fatal form of [RequireErrorCode], for
// table-driven tests that should keep checking the remaining rows.
func AssertErrorCode(t testing.TB, err error, code amrerr.Code, msgAndArgs ...any) bool {
	t.Helper()
	if !assert.Error(t, err, msgAndArgs...) {
		return false
	}
	amrErr, ok := amrerr.AsError(err)
	if !assert.True(t, ok, "want *amrerr.Error, got %T: %v", err, err) {
		return false
	}
	return assert.Equal(t, code, amrErr.Code,
		"code mismatch: got %q want %q (message: %s)",
		amrErr.Code, code, amrErr.Message)
}

// AssertNoAMRError fails (non-fatally) when err is non-nil, printing
// the code and message when it is an *amrerr.Error.
func AssertNoAMRError(t testing.TB, err error) bool {
	t.Helper()
	if err == nil {
		return true
	}
	if amrErr, ok := amrerr.AsError(err); ok {
		return assert.Fail(t, "unexpected amrerr.Error",
			"code=%s message=%s", amrErr.Code, amrErr.Message)
	}
	return assert.NoError(t, err)
}

// TempConfigFile writes content to "config<ext>" under t.TempDir() and
// returns the path. ext carries the dot, e.g. ".yaml".
func TempConfigFile(t testing.TB, content, ext string) string {
	t.Helper()
	return TempFile(t, "config"+ext, content)
}

// TempFile writes content to name under t.TempDir() and returns the
// path. Cleanup rides on TempDir.
func TempFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	RequireNoError(t, os.WriteFile(path, []byte(content), 0o600),
		"write temp file %s", path)
	return path
}

// SetEnv sets an environment variable for the duration of the test,
// restoring (or unsetting) the previous value on cleanup. Not safe
// under t.Parallel() when tests share a variable name.
func SetEnv(t testing.TB, key, value string) {
	t.Helper()
	prev, existed := os.LookupEnv(key)
	RequireNoError(t, os.Setenv(key, value), "set env %s", key)
	t.Cleanup(func() {
		if existed {
			_ = os.Setenv(key, prev)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

// UnsetEnv clears an environment variable for the duration of the test,
// restoring the previous value on cleanup if there was one.
func UnsetEnv(t testing.TB, key string) {
	t.Helper()
	prev, existed := os.LookupEnv(key)
	RequireNoError(t, os.Unsetenv(key), "unset env %s", key)
	t.Cleanup(func() {
		if existed {
			_ = os.Setenv(key, prev)
		}
	})
}
