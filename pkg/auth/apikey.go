package auth

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	amrerr "github.com/AzureManagedRedis/mcp-amr/pkg/errors"
)

// APIKeyValidator matches a presented credential against a configured set of
// admissible shared-secret keys. Every configured key is compared on every
// call, so the number of comparisons (and therefore timing) does not reveal
// which key matched or how many keys exist.
//
// APIKeyValidator is safe for concurrent use; the key set is immutable after
// construction.
type APIKeyValidator struct {
	keys   []Secret
	tracer trace.Tracer
}

// NewAPIKeyValidator creates a validator over the given key set. The slice
// is copied; later mutation of the argument does not affect the validator.
// An empty key set is accepted at construction so the gateway can still
// start and surface the misconfiguration per-request, but [Config.Validate]
// rejects it up front where the configuration path allows.
func NewAPIKeyValidator(keys []Secret) *APIKeyValidator {
	copied := make([]Secret, len(keys))
	copy(copied, keys)
	return &APIKeyValidator{
		keys:   copied,
		tracer: otel.Tracer(tracerName),
	}
}

// Validate checks the presented credential against the configured key set.
// Returns nil when the credential matches a configured key, or a
// *[amrerr.Error] describing the denial:
//
//   - [amrerr.CodeInternalConfiguration] when no keys are configured
//   - [amrerr.CodeAuthenticationMissing] when no credential was presented
//   - [amrerr.CodeAuthenticationInvalid] when the credential matches no key
//
// The denial message never states which key was expected or how many keys
// are configured.
func (v *APIKeyValidator) Validate(ctx context.Context, presented string) *amrerr.Error {
	_, span := startSpan(ctx, v.tracer, "auth.APIKeyValidate")
	defer span.End()

	if len(v.keys) == 0 {
		err := amrerr.New(amrerr.CodeInternalConfiguration,
			"auth: server authentication is misconfigured")
		finishSpan(span, err)
		return err
	}

	if presented == "" {
		err := amrerr.New(amrerr.CodeAuthenticationMissing, "auth: missing API key")
		finishSpan(span, err)
		return err
	}

	// Compare against every key; no short-circuit on the first match so the
	// scan length is fixed for a given configuration.
	matched := false
	for _, key := range v.keys {
		if ConstantTimeEqual(presented, key.Value()) {
			matched = true
		}
	}

	span.SetAttributes(attribute.Bool("auth.api_key_matched", matched))
	if !matched {
		err := amrerr.New(amrerr.CodeAuthenticationInvalid, "auth: invalid API key")
		finishSpan(span, err)
		return err
	}
	return nil
}
