package auth

// Secret is a string that prints as "[REDACTED]" through fmt verbs and
// text serialization, so a configured API key can travel through config
// structs and log fields without leaking. Call [Secret.Value] only at
// the comparison site.
type Secret string

const secretRedacted = "[REDACTED]"

func (s Secret) String() string   { return secretRedacted }
func (s Secret) GoString() string { return secretRedacted }

// Value returns the raw secret.
func (s Secret) Value() string { return string(s) }

// MarshalText implements [encoding.TextMarshaler] so JSON and YAML
// encoders emit the placeholder, never the secret.
func (s Secret) MarshalText() ([]byte, error) { return []byte(secretRedacted), nil }
