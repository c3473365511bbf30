// Package tools provides MCP tool handlers backed by an Azure Managed
// Redis connection. Each tool wraps a small slice of the Redis command
// surface (strings, hashes, lists, sets, streams) behind the registry's
// [mcp.Handler] interface, keeping the HTTP transport ignorant of Redis.
//
// Tool handlers return human-readable result strings. Structured results
// (hashes, ranges, stream entries) are rendered as JSON so callers can
// parse them back out of the text content.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/AzureManagedRedis/mcp-amr/pkg/clients/redis"
	amrerr "github.com/AzureManagedRedis/mcp-amr/pkg/errors"
	"github.com/AzureManagedRedis/mcp-amr/pkg/mcp"
)

// Register adds the full Redis tool set to the registry. Handlers share
// the given client; Register does not take ownership of it.
func Register(reg *mcp.Registry, client *redis.Client) error {
	if client == nil {
		return amrerr.New(amrerr.CodeValidationRequired, "tools: redis client is required")
	}

	for _, entry := range []struct {
		tool    mcp.Tool
		handler mcp.Handler
	}{
		{setTool, setHandler(client)},
		{getTool, getHandler(client)},
		{deleteTool, deleteHandler(client)},
		{expireTool, expireHandler(client)},
		{hsetTool, hsetHandler(client)},
		{hgetTool, hgetHandler(client)},
		{hgetallTool, hgetallHandler(client)},
		{lpushTool, lpushHandler(client)},
		{rpushTool, rpushHandler(client)},
		{lrangeTool, lrangeHandler(client)},
		{llenTool, llenHandler(client)},
		{saddTool, saddHandler(client)},
		{smembersTool, smembersHandler(client)},
		{sremTool, sremHandler(client)},
		{xaddTool, xaddHandler(client)},
		{xrangeTool, xrangeHandler(client)},
		{xlenTool, xlenHandler(client)},
	} {
		if err := reg.Register(entry.tool, entry.handler); err != nil {
			return err
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Argument extraction
// ---------------------------------------------------------------------------

// stringArg returns the named argument as a string. Missing or
// mistyped arguments produce a validation error that the transport
// reports as a tool execution failure.
func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", amrerr.Newf(amrerr.CodeValidationRequired,
			"tools: missing required argument %q", name).WithDetail("argument", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", amrerr.Newf(amrerr.CodeValidation,
			"tools: argument %q must be a string", name).WithDetail("argument", name)
	}
	return s, nil
}

// intArg returns the named argument as an int64, or def when absent.
// JSON numbers decode as float64, so that is the type accepted here.
func intArg(args map[string]any, name string, def int64) (int64, error) {
	v, ok := args[name]
	if !ok {
		return def, nil
	}
	f, ok := v.(float64)
	if !ok {
		return 0, amrerr.Newf(amrerr.CodeValidation,
			"tools: argument %q must be a number", name).WithDetail("argument", name)
	}
	return int64(f), nil
}

// expirationArg reads the optional "expiration" argument (seconds) and
// converts it to a duration. Zero or absent means no expiration.
func expirationArg(args map[string]any) (time.Duration, error) {
	secs, err := intArg(args, "expiration", 0)
	if err != nil {
		return 0, err
	}
	if secs < 0 {
		return 0, amrerr.New(amrerr.CodeValidation,
			"tools: expiration must not be negative")
	}
	return time.Duration(secs) * time.Second, nil
}

// renderJSON marshals a structured result for inclusion in text content.
func renderJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", amrerr.Wrap(err, amrerr.CodeInternal,
			"tools: failed to render result")
	}
	return string(data), nil
}

// ---------------------------------------------------------------------------
// String tools
// ---------------------------------------------------------------------------

var setTool = mcp.Tool{
	Name:        "set",
	Description: "Set a Redis string value with an optional expiration time in seconds.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"key": {"type": "string", "description": "The key to set."},
			"value": {"type": "string", "description": "The value to store."},
			"expiration": {"type": "integer", "description": "Expiration in seconds, 0 for none."}
		},
		"required": ["key", "value"]
	}`),
}

func setHandler(client *redis.Client) mcp.Handler {
	return mcp.HandlerFunc(func(ctx context.Context, args map[string]any) (string, error) {
		key, err := stringArg(args, "key")
		if err != nil {
			return "", err
		}
		value, err := stringArg(args, "value")
		if err != nil {
			return "", err
		}
		expiration, err := expirationArg(args)
		if err != nil {
			return "", err
		}
		if err := client.Set(ctx, key, value, expiration); err != nil {
			return "", err
		}
		if expiration > 0 {
			return fmt.Sprintf("Successfully set %s with expiration %d seconds",
				key, int64(expiration.Seconds())), nil
		}
		return fmt.Sprintf("Successfully set %s", key), nil
	})
}

var getTool = mcp.Tool{
	Name:        "get",
	Description: "Get a Redis string value.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"key": {"type": "string", "description": "The key to retrieve."}
		},
		"required": ["key"]
	}`),
}

func getHandler(client *redis.Client) mcp.Handler {
	return mcp.HandlerFunc(func(ctx context.Context, args map[string]any) (string, error) {
		key, err := stringArg(args, "key")
		if err != nil {
			return "", err
		}
		value, err := client.Get(ctx, key)
		if errors.Is(err, goredis.Nil) {
			return fmt.Sprintf("Key %s does not exist", key), nil
		}
		if err != nil {
			return "", err
		}
		return value, nil
	})
}

var deleteTool = mcp.Tool{
	Name:        "delete",
	Description: "Delete a Redis key of any type.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"key": {"type": "string", "description": "The key to delete."}
		},
		"required": ["key"]
	}`),
}

func deleteHandler(client *redis.Client) mcp.Handler {
	return mcp.HandlerFunc(func(ctx context.Context, args map[string]any) (string, error) {
		key, err := stringArg(args, "key")
		if err != nil {
			return "", err
		}
		deleted, err := client.Del(ctx, key)
		if err != nil {
			return "", err
		}
		if deleted == 0 {
			return fmt.Sprintf("Key %s does not exist", key), nil
		}
		return fmt.Sprintf("Successfully deleted %s", key), nil
	})
}

var expireTool = mcp.Tool{
	Name:        "expire",
	Description: "Set an expiration time on an existing Redis key, in seconds.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"key": {"type": "string", "description": "The key to expire."},
			"expiration": {"type": "integer", "description": "Expiration in seconds."}
		},
		"required": ["key", "expiration"]
	}`),
}

func expireHandler(client *redis.Client) mcp.Handler {
	return mcp.HandlerFunc(func(ctx context.Context, args map[string]any) (string, error) {
		key, err := stringArg(args, "key")
		if err != nil {
			return "", err
		}
		secs, err := intArg(args, "expiration", 0)
		if err != nil {
			return "", err
		}
		if secs <= 0 {
			return "", amrerr.New(amrerr.CodeValidation,
				"tools: expiration must be a positive number of seconds")
		}
		ok, err := client.Expire(ctx, key, time.Duration(secs)*time.Second)
		if err != nil {
			return "", err
		}
		if !ok {
			return fmt.Sprintf("Key %s does not exist", key), nil
		}
		return fmt.Sprintf("Expiration of %d seconds set on %s", secs, key), nil
	})
}

// ---------------------------------------------------------------------------
// Hash tools
// ---------------------------------------------------------------------------

var hsetTool = mcp.Tool{
	Name:        "hset",
	Description: "Set a field in a Redis hash, with an optional expiration on the hash.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "The hash key."},
			"field": {"type": "string", "description": "The field to set."},
			"value": {"type": "string", "description": "The value to store."},
			"expiration": {"type": "integer", "description": "Expiration in seconds, 0 for none."}
		},
		"required": ["name", "field", "value"]
	}`),
}

func hsetHandler(client *redis.Client) mcp.Handler {
	return mcp.HandlerFunc(func(ctx context.Context, args map[string]any) (string, error) {
		name, err := stringArg(args, "name")
		if err != nil {
			return "", err
		}
		field, err := stringArg(args, "field")
		if err != nil {
			return "", err
		}
		value, err := stringArg(args, "value")
		if err != nil {
			return "", err
		}
		expiration, err := expirationArg(args)
		if err != nil {
			return "", err
		}
		if _, err := client.HSet(ctx, name, field, value); err != nil {
			return "", err
		}
		if expiration > 0 {
			if _, err := client.Expire(ctx, name, expiration); err != nil {
				return "", err
			}
		}
		return fmt.Sprintf("Successfully set field %s in hash %s", field, name), nil
	})
}

var hgetTool = mcp.Tool{
	Name:        "hget",
	Description: "Get a single field from a Redis hash.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "The hash key."},
			"field": {"type": "string", "description": "The field to retrieve."}
		},
		"required": ["name", "field"]
	}`),
}

func hgetHandler(client *redis.Client) mcp.Handler {
	return mcp.HandlerFunc(func(ctx context.Context, args map[string]any) (string, error) {
		name, err := stringArg(args, "name")
		if err != nil {
			return "", err
		}
		field, err := stringArg(args, "field")
		if err != nil {
			return "", err
		}
		value, err := client.HGet(ctx, name, field)
		if errors.Is(err, goredis.Nil) {
			return fmt.Sprintf("Field %s not found in hash %s", field, name), nil
		}
		if err != nil {
			return "", err
		}
		return value, nil
	})
}

var hgetallTool = mcp.Tool{
	Name:        "hgetall",
	Description: "Get all fields and values of a Redis hash as a JSON object.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "The hash key."}
		},
		"required": ["name"]
	}`),
}

func hgetallHandler(client *redis.Client) mcp.Handler {
	return mcp.HandlerFunc(func(ctx context.Context, args map[string]any) (string, error) {
		name, err := stringArg(args, "name")
		if err != nil {
			return "", err
		}
		fields, err := client.HGetAll(ctx, name)
		if err != nil {
			return "", err
		}
		if len(fields) == 0 {
			return fmt.Sprintf("Hash %s is empty or does not exist", name), nil
		}
		return renderJSON(fields)
	})
}

// ---------------------------------------------------------------------------
// List tools
// ---------------------------------------------------------------------------

var lpushTool = mcp.Tool{
	Name:        "lpush",
	Description: "Push a value onto the left of a Redis list, with an optional expiration on the list.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "The list key."},
			"value": {"type": "string", "description": "The value to push."},
			"expiration": {"type": "integer", "description": "Expiration in seconds, 0 for none."}
		},
		"required": ["name", "value"]
	}`),
}

func lpushHandler(client *redis.Client) mcp.Handler {
	return mcp.HandlerFunc(func(ctx context.Context, args map[string]any) (string, error) {
		return pushList(ctx, client, args, "left", client.LPush)
	})
}

var rpushTool = mcp.Tool{
	Name:        "rpush",
	Description: "Push a value onto the right of a Redis list, with an optional expiration on the list.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "The list key."},
			"value": {"type": "string", "description": "The value to push."},
			"expiration": {"type": "integer", "description": "Expiration in seconds, 0 for none."}
		},
		"required": ["name", "value"]
	}`),
}

func rpushHandler(client *redis.Client) mcp.Handler {
	return mcp.HandlerFunc(func(ctx context.Context, args map[string]any) (string, error) {
		return pushList(ctx, client, args, "right", client.RPush)
	})
}

// pushList shares the lpush/rpush argument handling; the direction only
// selects the client operation and the wording of the result.
func pushList(
	ctx context.Context,
	client *redis.Client,
	args map[string]any,
	side string,
	push func(context.Context, string, ...interface{}) (int64, error),
) (string, error) {
	name, err := stringArg(args, "name")
	if err != nil {
		return "", err
	}
	value, err := stringArg(args, "value")
	if err != nil {
		return "", err
	}
	expiration, err := expirationArg(args)
	if err != nil {
		return "", err
	}
	if _, err := push(ctx, name, value); err != nil {
		return "", err
	}
	if expiration > 0 {
		if _, err := client.Expire(ctx, name, expiration); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("Value %q pushed to the %s of list %s", value, side, name), nil
}

var lrangeTool = mcp.Tool{
	Name:        "lrange",
	Description: "Get a range of elements from a Redis list as a JSON array.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "The list key."},
			"start": {"type": "integer", "description": "Start index (default 0)."},
			"stop": {"type": "integer", "description": "Stop index, inclusive (default -1 for the whole list)."}
		},
		"required": ["name"]
	}`),
}

func lrangeHandler(client *redis.Client) mcp.Handler {
	return mcp.HandlerFunc(func(ctx context.Context, args map[string]any) (string, error) {
		name, err := stringArg(args, "name")
		if err != nil {
			return "", err
		}
		start, err := intArg(args, "start", 0)
		if err != nil {
			return "", err
		}
		stop, err := intArg(args, "stop", -1)
		if err != nil {
			return "", err
		}
		values, err := client.LRange(ctx, name, start, stop)
		if err != nil {
			return "", err
		}
		if len(values) == 0 {
			return fmt.Sprintf("List %s is empty or does not exist", name), nil
		}
		return renderJSON(values)
	})
}

var llenTool = mcp.Tool{
	Name:        "llen",
	Description: "Get the length of a Redis list.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "The list key."}
		},
		"required": ["name"]
	}`),
}

func llenHandler(client *redis.Client) mcp.Handler {
	return mcp.HandlerFunc(func(ctx context.Context, args map[string]any) (string, error) {
		name, err := stringArg(args, "name")
		if err != nil {
			return "", err
		}
		length, err := client.LLen(ctx, name)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", length), nil
	})
}

// ---------------------------------------------------------------------------
// Set tools
// ---------------------------------------------------------------------------

var saddTool = mcp.Tool{
	Name:        "sadd",
	Description: "Add a member to a Redis set, with an optional expiration on the set.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "The set key."},
			"value": {"type": "string", "description": "The member to add."},
			"expiration": {"type": "integer", "description": "Expiration in seconds, 0 for none."}
		},
		"required": ["name", "value"]
	}`),
}

func saddHandler(client *redis.Client) mcp.Handler {
	return mcp.HandlerFunc(func(ctx context.Context, args map[string]any) (string, error) {
		name, err := stringArg(args, "name")
		if err != nil {
			return "", err
		}
		value, err := stringArg(args, "value")
		if err != nil {
			return "", err
		}
		expiration, err := expirationArg(args)
		if err != nil {
			return "", err
		}
		if _, err := client.SAdd(ctx, name, value); err != nil {
			return "", err
		}
		if expiration > 0 {
			if _, err := client.Expire(ctx, name, expiration); err != nil {
				return "", err
			}
		}
		return fmt.Sprintf("Value %q added to set %s", value, name), nil
	})
}

var smembersTool = mcp.Tool{
	Name:        "smembers",
	Description: "Get all members of a Redis set as a JSON array.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "The set key."}
		},
		"required": ["name"]
	}`),
}

func smembersHandler(client *redis.Client) mcp.Handler {
	return mcp.HandlerFunc(func(ctx context.Context, args map[string]any) (string, error) {
		name, err := stringArg(args, "name")
		if err != nil {
			return "", err
		}
		members, err := client.SMembers(ctx, name)
		if err != nil {
			return "", err
		}
		if len(members) == 0 {
			return fmt.Sprintf("Set %s is empty or does not exist", name), nil
		}
		return renderJSON(members)
	})
}

var sremTool = mcp.Tool{
	Name:        "srem",
	Description: "Remove a member from a Redis set.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "The set key."},
			"value": {"type": "string", "description": "The member to remove."}
		},
		"required": ["name", "value"]
	}`),
}

func sremHandler(client *redis.Client) mcp.Handler {
	return mcp.HandlerFunc(func(ctx context.Context, args map[string]any) (string, error) {
		name, err := stringArg(args, "name")
		if err != nil {
			return "", err
		}
		value, err := stringArg(args, "value")
		if err != nil {
			return "", err
		}
		removed, err := client.SRem(ctx, name, value)
		if err != nil {
			return "", err
		}
		if removed == 0 {
			return fmt.Sprintf("Value %q is not a member of set %s", value, name), nil
		}
		return fmt.Sprintf("Value %q removed from set %s", value, name), nil
	})
}

// ---------------------------------------------------------------------------
// Stream tools
// ---------------------------------------------------------------------------

var xaddTool = mcp.Tool{
	Name:        "xadd",
	Description: "Add an entry to a Redis stream, with an optional expiration on the stream.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"key": {"type": "string", "description": "The stream key."},
			"fields": {"type": "object", "description": "Field names and values for the entry."},
			"expiration": {"type": "integer", "description": "Expiration in seconds, 0 for none."}
		},
		"required": ["key", "fields"]
	}`),
}

func xaddHandler(client *redis.Client) mcp.Handler {
	return mcp.HandlerFunc(func(ctx context.Context, args map[string]any) (string, error) {
		key, err := stringArg(args, "key")
		if err != nil {
			return "", err
		}
		rawFields, ok := args["fields"]
		if !ok {
			return "", amrerr.New(amrerr.CodeValidationRequired,
				`tools: missing required argument "fields"`)
		}
		fields, ok := rawFields.(map[string]any)
		if !ok || len(fields) == 0 {
			return "", amrerr.New(amrerr.CodeValidation,
				`tools: argument "fields" must be a non-empty object`)
		}
		expiration, err := expirationArg(args)
		if err != nil {
			return "", err
		}
		entryID, err := client.XAdd(ctx, &goredis.XAddArgs{Stream: key, Values: fields})
		if err != nil {
			return "", err
		}
		if expiration > 0 {
			if _, err := client.Expire(ctx, key, expiration); err != nil {
				return "", err
			}
		}
		return fmt.Sprintf("Successfully added entry %s to %s", entryID, key), nil
	})
}

var xrangeTool = mcp.Tool{
	Name:        "xrange",
	Description: "Read entries from a Redis stream as a JSON array, oldest first.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"key": {"type": "string", "description": "The stream key."},
			"count": {"type": "integer", "description": "Maximum number of entries (default 1)."}
		},
		"required": ["key"]
	}`),
}

// streamEntry is the JSON shape xrange renders for each stream message.
type streamEntry struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

func xrangeHandler(client *redis.Client) mcp.Handler {
	return mcp.HandlerFunc(func(ctx context.Context, args map[string]any) (string, error) {
		key, err := stringArg(args, "key")
		if err != nil {
			return "", err
		}
		count, err := intArg(args, "count", 1)
		if err != nil {
			return "", err
		}
		if count < 1 {
			return "", amrerr.New(amrerr.CodeValidation,
				"tools: count must be at least 1")
		}
		messages, err := client.XRange(ctx, key, "-", "+")
		if err != nil {
			return "", err
		}
		if len(messages) == 0 {
			return fmt.Sprintf("Stream %s is empty or does not exist", key), nil
		}
		if int64(len(messages)) > count {
			messages = messages[:count]
		}
		entries := make([]streamEntry, len(messages))
		for i, msg := range messages {
			entries[i] = streamEntry{ID: msg.ID, Fields: msg.Values}
		}
		return renderJSON(entries)
	})
}

var xlenTool = mcp.Tool{
	Name:        "xlen",
	Description: "Get the number of entries in a Redis stream.",
	InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"key": {"type": "string", "description": "The stream key."}
		},
		"required": ["key"]
	}`),
}

func xlenHandler(client *redis.Client) mcp.Handler {
	return mcp.HandlerFunc(func(ctx context.Context, args map[string]any) (string, error) {
		key, err := stringArg(args, "key")
		if err != nil {
			return "", err
		}
		length, err := client.XLen(ctx, key)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", length), nil
	})
}
