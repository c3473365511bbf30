package errors

import (
	"errors"
	"testing"
)

func TestAsError(t *testing.T) {
	denial := New(CodeAuthenticationExpired, "token expired")

	tests := []struct {
		name     string
		err      error
		wantOK   bool
		wantCode Code
	}{
		{"direct", denial, true, CodeAuthenticationExpired},
		{"wrapped", Wrap(denial, CodeInternal, "gateway dispatch failed"), true, CodeInternal},
		{"joined chain", errors.Join(errors.New("outer"), denial), true, CodeAuthenticationExpired},
		{"standard error", errors.New("plain"), false, ""},
		{"nil", nil, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AsError(tt.err)
			if ok != tt.wantOK {
				t.Fatalf("AsError() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				if got != nil {
					t.Errorf("AsError() = %v, want nil", got)
				}
				return
			}
			if got.Code != tt.wantCode {
				t.Errorf("AsError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(CodeValidation, "bad input")); got != CodeValidation {
		t.Errorf("GetCode() = %q, want %q", got, CodeValidation)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %q, want empty", got)
	}
	if got := GetCode(nil); got != "" {
		t.Errorf("GetCode(nil) = %q, want empty", got)
	}
}

func TestHasCode(t *testing.T) {
	err := New(CodeAuthenticationMissing, "no credential")

	if !HasCode(err, CodeAuthenticationMissing) {
		t.Error("HasCode should match the carried code")
	}
	if HasCode(err, CodeAuthentication) {
		t.Error("HasCode must not match a sibling code in the same category")
	}
	if HasCode(nil, CodeAuthenticationMissing) {
		t.Error("HasCode(nil) should be false")
	}
}

// TestCategoryChecks drives every category predicate against one code
// from each family plus non-platform inputs. Sibling codes within a
// family share a category, so one representative per family suffices;
// family membership itself is covered by the Code.Category tests.
func TestCategoryChecks(t *testing.T) {
	checks := map[string]func(error) bool{
		"IsValidation":     IsValidation,
		"IsAuthentication": IsAuthentication,
		"IsAuthorization":  IsAuthorization,
		"IsNotFound":       IsNotFound,
		"IsInternal":       IsInternal,
		"IsUnavailable":    IsUnavailable,
		"IsTimeout":        IsTimeout,
	}

	tests := []struct {
		err  error
		only string // the single predicate that should be true
	}{
		{New(CodeValidation, "t"), "IsValidation"},
		{New(CodeValidationRequired, "t"), "IsValidation"},
		{New(CodeAuthenticationUnknownKey, "t"), "IsAuthentication"},
		{New(CodeAuthorizationInsufficientScope, "t"), "IsAuthorization"},
		{New(CodeNotFoundTool, "t"), "IsNotFound"},
		{New(CodeInternalConfiguration, "t"), "IsInternal"},
		{New(CodeUnavailableDependency, "t"), "IsUnavailable"},
		{New(CodeTimeoutDatabase, "t"), "IsTimeout"},
		{errors.New("plain"), ""},
		{nil, ""},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			for checkName, check := range checks {
				want := checkName == tt.only
				if got := check(tt.err); got != want {
					t.Errorf("%s() = %v, want %v", checkName, got, want)
				}
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout is retryable", New(CodeTimeoutDependency, "jwks fetch timed out"), true},
		{"unavailable is retryable", New(CodeUnavailableDependency, "jwks endpoint unreachable"), true},
		{"invalid token is not", New(CodeAuthenticationInvalid, "bad signature"), false},
		{"insufficient scope is not", New(CodeAuthorizationInsufficientScope, "scope"), false},
		{"internal is not", New(CodeInternal, "panic recovered"), false},
		{"standard error is not", errors.New("plain"), false},
		{"nil is not", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestClientServerSplit asserts every family sits on exactly one side of
// the 4xx/5xx boundary.
func TestClientServerSplit(t *testing.T) {
	clientCodes := []Code{CodeValidation, CodeAuthentication, CodeAuthorization, CodeNotFound}
	serverCodes := []Code{CodeInternal, CodeUnavailable, CodeTimeout}

	for _, code := range clientCodes {
		err := New(code, "t")
		if !IsClientError(err) {
			t.Errorf("IsClientError(%s) = false, want true", code)
		}
		if IsServerError(err) {
			t.Errorf("IsServerError(%s) = true, want false", code)
		}
	}
	for _, code := range serverCodes {
		err := New(code, "t")
		if !IsServerError(err) {
			t.Errorf("IsServerError(%s) = false, want true", code)
		}
		if IsClientError(err) {
			t.Errorf("IsClientError(%s) = true, want false", code)
		}
	}

	if IsClientError(nil) || IsServerError(nil) {
		t.Error("nil is neither a client nor a server error")
	}
}

// Wrapping replaces the visible code: predicates follow the outermost
// *Error, never the cause.
func TestChecks_OuterCodeWins(t *testing.T) {
	inner := New(CodeNotFoundTool, "tool not found")
	outer := Wrap(inner, CodeInternal, "dispatch failed")

	if IsNotFound(outer) {
		t.Error("IsNotFound should follow the outer code")
	}
	if !IsInternal(outer) {
		t.Error("IsInternal should be true for the outer code")
	}
}
