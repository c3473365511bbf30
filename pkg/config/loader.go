// Package config loads gateway configuration from three layers, resolved
// in priority order:
//
//	envDefault struct tags  (lowest)
//	YAML/JSON config file   (middle)
//	environment variables   (highest)
//
// Defaults live in the code, a file carries per-environment overrides,
// and env vars injected by the deployment win over both.
//
// # Struct Tags
//
//   - `env:"VAR_NAME"` maps the field to an environment variable
//   - `envDefault:"value"` fills the field when it is zero-valued
//   - `required:"true"` fails loading if the field is still zero afterwards
//
// File loading goes through the yaml/json tags, so fields that should be
// settable from a file need those too.
//
// # Usage
//
//	type ServerConfig struct {
//	    Host    string        `env:"HOST" envDefault:"0.0.0.0" yaml:"host"`
//	    Port    int           `env:"PORT" envDefault:"8000" yaml:"port" required:"true"`
//	    Timeout time.Duration `env:"TIMEOUT" envDefault:"30s" yaml:"timeout"`
//	}
//
//	cfg := config.MustLoad[ServerConfig](config.New().WithFile("gateway.yaml"))
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	amrerr "github.com/AzureManagedRedis/mcp-amr/pkg/errors"
)

// time.Duration has Kind() == Int64; caching its reflect.Type lets the
// traversal tell it apart from plain int64 fields.
var durationType = reflect.TypeOf(time.Duration(0))

// Loader resolves configuration into a struct. Build one with [New],
// configure it with [Loader.WithEnvPrefix] and [Loader.WithFile], then
// call [Loader.Load].
//
// A Loader is not safe for concurrent use.
type Loader struct {
	envPrefix string
	filePath  string
}

// New returns a Loader that reads environment variables only, with no
// prefix and no file.
func New() *Loader {
	return &Loader{}
}

// WithEnvPrefix prepends prefix (uppercased, joined with "_") to every
// env tag lookup, so WithEnvPrefix("GW") makes `env:"HOST"` read GW_HOST.
// An empty prefix disables prefixing. Returns the Loader for chaining.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = strings.ToUpper(prefix)
	return l
}

// WithFile sets the configuration file path. Format is chosen by
// extension: .yaml/.yml or .json; anything else fails Load. A file that
// does not exist is simply skipped. Paths containing ".." are rejected.
// Returns the Loader for chaining.
func (l *Loader) WithFile(path string) *Loader {
	l.filePath = path
	return l
}

// Load fills cfg, which must be a non-nil pointer to a struct, from the
// three layers in ascending priority: envDefault tags, then the file (if
// configured), then environment variables. It then enforces
// `required:"true"` tags and, if the struct implements [Validator],
// calls its Validate method.
//
// Loading failures carry [amrerr.CodeInternalConfiguration]; validation
// failures carry [amrerr.CodeValidationRequired] or
// [amrerr.CodeValidation].
func (l *Loader) Load(cfg any) error {
	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return amrerr.New(amrerr.CodeInternalConfiguration,
			"config: Load requires a non-nil pointer to a struct")
	}

	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return amrerr.New(amrerr.CodeInternalConfiguration,
			"config: Load requires a pointer to a struct")
	}

	if err := applyDefaults(rv); err != nil {
		return err
	}
	if l.filePath != "" {
		if err := l.loadFile(cfg); err != nil {
			return err
		}
	}
	if err := applyEnv(rv, l.envPrefix); err != nil {
		return err
	}
	return validate(cfg, rv)
}

// MustLoad loads a zero value of T through loader and panics on failure.
// Intended for startup paths where running without valid configuration
// is not an option.
func MustLoad[T any](loader *Loader) T {
	var cfg T
	if err := loader.Load(&cfg); err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

func (l *Loader) loadFile(cfg any) error {
	if strings.Contains(l.filePath, "..") {
		return amrerr.New(amrerr.CodeInternalConfiguration,
			"config: file path must not contain directory traversal (..) sequences")
	}

	data, err := os.ReadFile(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return amrerr.Wrapf(err, amrerr.CodeInternalConfiguration,
			"config: failed to read file %q", l.filePath)
	}

	switch ext := strings.ToLower(filepath.Ext(l.filePath)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return amrerr.Wrapf(err, amrerr.CodeInternalConfiguration,
				"config: failed to parse YAML file %q", l.filePath)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return amrerr.Wrapf(err, amrerr.CodeInternalConfiguration,
				"config: failed to parse JSON file %q", l.filePath)
		}
	default:
		return amrerr.Newf(amrerr.CodeInternalConfiguration,
			"config: unsupported file extension %q (use .yaml, .yml, or .json)", ext)
	}
	return nil
}

// applyDefaults walks the struct and fills zero-valued fields from their
// envDefault tags, recursing into nested structs.
func applyDefaults(rv reflect.Value) error {
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)

		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct && sf.Type != durationType {
			if err := applyDefaults(field); err != nil {
				return err
			}
			continue
		}

		tag := sf.Tag.Get("envDefault")
		if tag == "" || !field.IsZero() {
			continue
		}
		if err := setField(field, tag); err != nil {
			return amrerr.Wrapf(err, amrerr.CodeInternalConfiguration,
				"config: failed to apply default for field %q", sf.Name)
		}
	}
	return nil
}

// joinPrefix combines an accumulated env prefix with a nested struct's
// env tag.
func joinPrefix(prefix, tag string) string {
	if tag == "" {
		return prefix
	}
	if prefix == "" {
		return tag
	}
	return prefix + "_" + tag
}

// applyEnv walks the struct and sets fields from the environment. A
// nested struct's env tag joins the accumulated prefix, so a CACHE
// struct with a HOST field reads CACHE_HOST. prefix carries both the
// loader-level prefix and any nested tags met so far.
func applyEnv(rv reflect.Value, prefix string) error {
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)

		if !field.CanSet() {
			continue
		}

		envTag := sf.Tag.Get("env")
		if field.Kind() == reflect.Struct && sf.Type != durationType {
			if err := applyEnv(field, joinPrefix(prefix, envTag)); err != nil {
				return err
			}
			continue
		}
		if envTag == "" {
			continue
		}

		envKey := joinPrefix(prefix, envTag)
		val, ok := os.LookupEnv(envKey)
		if !ok {
			continue
		}
		if err := setField(field, val); err != nil {
			return amrerr.Wrapf(err, amrerr.CodeInternalConfiguration,
				"config: failed to set field %q from env var %q", sf.Name, envKey)
		}
	}
	return nil
}

// setField parses value into the field. Supported kinds: string (named
// string types like redis.Secret or auth.Mode included), bool, signed
// ints, time.Duration, and []string parsed as comma-separated values
// with whitespace trimmed.
func setField(field reflect.Value, value string) error {
	// Duration first: its underlying kind is int64 but the text form
	// goes through time.ParseDuration.
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("cannot parse duration %q: %w", value, err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cannot parse bool %q: %w", value, err)
		}
		field.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("cannot parse integer %q: %w", value, err)
		}
		field.SetInt(n)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		// Build through reflect.MakeSlice so named slice types work;
		// a plain []string value would panic on Set for those.
		slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, p := range parts {
			slice.Index(i).SetString(strings.TrimSpace(p))
		}
		field.Set(slice)

	default:
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}
	return nil
}
