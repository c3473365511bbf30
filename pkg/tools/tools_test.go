package tools

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AzureManagedRedis/mcp-amr/internal/testutil"
	"github.com/AzureManagedRedis/mcp-amr/pkg/clients/redis"
	amrerr "github.com/AzureManagedRedis/mcp-amr/pkg/errors"
	"github.com/AzureManagedRedis/mcp-amr/pkg/mcp"
)

// mockCmdable implements redis.Cmdable with testify/mock so tool handlers
// can be exercised without a live server.
type mockCmdable struct {
	mock.Mock
}

func (m *mockCmdable) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	return args.Get(0).(*goredis.StatusCmd)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *goredis.StringCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*goredis.StringCmd)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	args := m.Called(ctx, keys)
	return args.Get(0).(*goredis.IntCmd)
}

func (m *mockCmdable) Exists(ctx context.Context, keys ...string) *goredis.IntCmd {
	args := m.Called(ctx, keys)
	return args.Get(0).(*goredis.IntCmd)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *goredis.BoolCmd {
	args := m.Called(ctx, key, expiration)
	return args.Get(0).(*goredis.BoolCmd)
}

func (m *mockCmdable) TTL(ctx context.Context, key string) *goredis.DurationCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*goredis.DurationCmd)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *goredis.IntCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*goredis.IntCmd)
}

func (m *mockCmdable) Decr(ctx context.Context, key string) *goredis.IntCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*goredis.IntCmd)
}

func (m *mockCmdable) HSet(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd {
	args := m.Called(ctx, key, values)
	return args.Get(0).(*goredis.IntCmd)
}

func (m *mockCmdable) HGet(ctx context.Context, key, field string) *goredis.StringCmd {
	args := m.Called(ctx, key, field)
	return args.Get(0).(*goredis.StringCmd)
}

func (m *mockCmdable) HGetAll(ctx context.Context, key string) *goredis.MapStringStringCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*goredis.MapStringStringCmd)
}

func (m *mockCmdable) HDel(ctx context.Context, key string, fields ...string) *goredis.IntCmd {
	args := m.Called(ctx, key, fields)
	return args.Get(0).(*goredis.IntCmd)
}

func (m *mockCmdable) LPush(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd {
	args := m.Called(ctx, key, values)
	return args.Get(0).(*goredis.IntCmd)
}

func (m *mockCmdable) RPush(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd {
	args := m.Called(ctx, key, values)
	return args.Get(0).(*goredis.IntCmd)
}

func (m *mockCmdable) LRange(ctx context.Context, key string, start, stop int64) *goredis.StringSliceCmd {
	args := m.Called(ctx, key, start, stop)
	return args.Get(0).(*goredis.StringSliceCmd)
}

func (m *mockCmdable) LLen(ctx context.Context, key string) *goredis.IntCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*goredis.IntCmd)
}

func (m *mockCmdable) SAdd(ctx context.Context, key string, members ...interface{}) *goredis.IntCmd {
	args := m.Called(ctx, key, members)
	return args.Get(0).(*goredis.IntCmd)
}

func (m *mockCmdable) SMembers(ctx context.Context, key string) *goredis.StringSliceCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*goredis.StringSliceCmd)
}

func (m *mockCmdable) SIsMember(ctx context.Context, key string, member interface{}) *goredis.BoolCmd {
	args := m.Called(ctx, key, member)
	return args.Get(0).(*goredis.BoolCmd)
}

func (m *mockCmdable) SRem(ctx context.Context, key string, members ...interface{}) *goredis.IntCmd {
	args := m.Called(ctx, key, members)
	return args.Get(0).(*goredis.IntCmd)
}

func (m *mockCmdable) XAdd(ctx context.Context, a *goredis.XAddArgs) *goredis.StringCmd {
	args := m.Called(ctx, a)
	return args.Get(0).(*goredis.StringCmd)
}

func (m *mockCmdable) XRange(ctx context.Context, stream, start, stop string) *goredis.XMessageSliceCmd {
	args := m.Called(ctx, stream, start, stop)
	return args.Get(0).(*goredis.XMessageSliceCmd)
}

func (m *mockCmdable) XLen(ctx context.Context, stream string) *goredis.IntCmd {
	args := m.Called(ctx, stream)
	return args.Get(0).(*goredis.IntCmd)
}

func (m *mockCmdable) Ping(ctx context.Context) *goredis.StatusCmd {
	args := m.Called(ctx)
	return args.Get(0).(*goredis.StatusCmd)
}

func (m *mockCmdable) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newStatusCmd(val string, err error) *goredis.StatusCmd {
	cmd := goredis.NewStatusCmd(context.Background())
	if err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

func newStringCmd(val string, err error) *goredis.StringCmd {
	cmd := goredis.NewStringCmd(context.Background())
	if err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

func newIntCmd(val int64, err error) *goredis.IntCmd {
	cmd := goredis.NewIntCmd(context.Background())
	if err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

func newBoolCmd(val bool, err error) *goredis.BoolCmd {
	cmd := goredis.NewBoolCmd(context.Background())
	if err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

func newStringSliceCmd(val []string, err error) *goredis.StringSliceCmd {
	cmd := goredis.NewStringSliceCmd(context.Background())
	if err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

func newMapStringStringCmd(val map[string]string, err error) *goredis.MapStringStringCmd {
	cmd := goredis.NewMapStringStringCmd(context.Background())
	if err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

func newXMessageSliceCmd(val []goredis.XMessage, err error) *goredis.XMessageSliceCmd {
	cmd := goredis.NewXMessageSliceCmd(context.Background())
	if err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

// newToolsRegistry wires the full tool set against a fresh mock and
// returns both for expectation setup and invocation.
func newToolsRegistry(t *testing.T) (*mcp.Registry, *mockCmdable) {
	t.Helper()

	mockRedis := &mockCmdable{}
	client := redis.NewFromClient(mockRedis, nil)

	reg := mcp.NewRegistry()
	require.NoError(t, Register(reg, client))

	return reg, mockRedis
}

func TestRegister_AddsAllTools(t *testing.T) {
	t.Parallel()

	reg, _ := newToolsRegistry(t)

	list := reg.List()
	assert.Len(t, list, 17)

	names := make([]string, len(list))
	for i, tool := range list {
		assert.NotEmpty(t, tool.Description, "tool %s has no description", tool.Name)
		assert.NotEmpty(t, tool.InputSchema, "tool %s has no input schema", tool.Name)
		names[i] = tool.Name
	}
	assert.Contains(t, names, "set")
	assert.Contains(t, names, "hgetall")
	assert.Contains(t, names, "xadd")
}

func TestRegister_NilClient(t *testing.T) {
	t.Parallel()

	err := Register(mcp.NewRegistry(), nil)

	testutil.RequireErrorCode(t, err, amrerr.CodeValidationRequired)
}

func TestSetTool(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("Set", mock.Anything, "greeting", "hello", time.Duration(0)).
		Return(newStatusCmd("OK", nil))

	result, err := reg.Call(context.Background(), "set", map[string]any{
		"key":   "greeting",
		"value": "hello",
	})

	require.NoError(t, err)
	assert.Equal(t, "Successfully set greeting", result)
	mockRedis.AssertExpectations(t)
}

func TestSetTool_WithExpiration(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("Set", mock.Anything, "session", "abc", 60*time.Second).
		Return(newStatusCmd("OK", nil))

	result, err := reg.Call(context.Background(), "set", map[string]any{
		"key":        "session",
		"value":      "abc",
		"expiration": float64(60),
	})

	require.NoError(t, err)
	assert.Equal(t, "Successfully set session with expiration 60 seconds", result)
}

func TestSetTool_MissingKey(t *testing.T) {
	t.Parallel()

	reg, _ := newToolsRegistry(t)

	_, err := reg.Call(context.Background(), "set", map[string]any{"value": "v"})

	testutil.RequireErrorCode(t, err, amrerr.CodeValidationRequired)
}

func TestSetTool_NegativeExpiration(t *testing.T) {
	t.Parallel()

	reg, _ := newToolsRegistry(t)

	_, err := reg.Call(context.Background(), "set", map[string]any{
		"key":        "k",
		"value":      "v",
		"expiration": float64(-5),
	})

	testutil.RequireErrorCode(t, err, amrerr.CodeValidation)
}

func TestGetTool(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("Get", mock.Anything, "greeting").
		Return(newStringCmd("hello", nil))

	result, err := reg.Call(context.Background(), "get", map[string]any{"key": "greeting"})

	require.NoError(t, err)
	assert.Equal(t, "hello", result)
}

func TestGetTool_MissingKey(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("Get", mock.Anything, "absent").
		Return(newStringCmd("", goredis.Nil))

	result, err := reg.Call(context.Background(), "get", map[string]any{"key": "absent"})

	require.NoError(t, err)
	assert.Equal(t, "Key absent does not exist", result)
}

func TestDeleteTool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		deleted int64
		want    string
	}{
		{name: "existing key", deleted: 1, want: "Successfully deleted stale"},
		{name: "missing key", deleted: 0, want: "Key stale does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reg, mockRedis := newToolsRegistry(t)
			mockRedis.On("Del", mock.Anything, []string{"stale"}).
				Return(newIntCmd(tt.deleted, nil))

			result, err := reg.Call(context.Background(), "delete", map[string]any{"key": "stale"})

			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestExpireTool(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("Expire", mock.Anything, "session", 120*time.Second).
		Return(newBoolCmd(true, nil))

	result, err := reg.Call(context.Background(), "expire", map[string]any{
		"key":        "session",
		"expiration": float64(120),
	})

	require.NoError(t, err)
	assert.Equal(t, "Expiration of 120 seconds set on session", result)
}

func TestExpireTool_MissingKey(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("Expire", mock.Anything, "absent", 30*time.Second).
		Return(newBoolCmd(false, nil))

	result, err := reg.Call(context.Background(), "expire", map[string]any{
		"key":        "absent",
		"expiration": float64(30),
	})

	require.NoError(t, err)
	assert.Equal(t, "Key absent does not exist", result)
}

func TestHSetTool_WithExpiration(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("HSet", mock.Anything, "user:1", []interface{}{"name", "alice"}).
		Return(newIntCmd(1, nil))
	mockRedis.On("Expire", mock.Anything, "user:1", 300*time.Second).
		Return(newBoolCmd(true, nil))

	result, err := reg.Call(context.Background(), "hset", map[string]any{
		"name":       "user:1",
		"field":      "name",
		"value":      "alice",
		"expiration": float64(300),
	})

	require.NoError(t, err)
	assert.Equal(t, "Successfully set field name in hash user:1", result)
	mockRedis.AssertExpectations(t)
}

func TestHGetTool_MissingField(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("HGet", mock.Anything, "user:1", "email").
		Return(newStringCmd("", goredis.Nil))

	result, err := reg.Call(context.Background(), "hget", map[string]any{
		"name":  "user:1",
		"field": "email",
	})

	require.NoError(t, err)
	assert.Equal(t, "Field email not found in hash user:1", result)
}

func TestHGetAllTool(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("HGetAll", mock.Anything, "user:1").
		Return(newMapStringStringCmd(map[string]string{"name": "alice"}, nil))

	result, err := reg.Call(context.Background(), "hgetall", map[string]any{"name": "user:1"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"alice"}`, result)
}

func TestHGetAllTool_Empty(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("HGetAll", mock.Anything, "ghost").
		Return(newMapStringStringCmd(map[string]string{}, nil))

	result, err := reg.Call(context.Background(), "hgetall", map[string]any{"name": "ghost"})

	require.NoError(t, err)
	assert.Equal(t, "Hash ghost is empty or does not exist", result)
}

func TestLPushTool_WithExpiration(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("LPush", mock.Anything, "queue", []interface{}{"job-1"}).
		Return(newIntCmd(1, nil))
	mockRedis.On("Expire", mock.Anything, "queue", 60*time.Second).
		Return(newBoolCmd(true, nil))

	result, err := reg.Call(context.Background(), "lpush", map[string]any{
		"name":       "queue",
		"value":      "job-1",
		"expiration": float64(60),
	})

	require.NoError(t, err)
	assert.Equal(t, `Value "job-1" pushed to the left of list queue`, result)
	mockRedis.AssertExpectations(t)
}

func TestRPushTool(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("RPush", mock.Anything, "queue", []interface{}{"job-2"}).
		Return(newIntCmd(2, nil))

	result, err := reg.Call(context.Background(), "rpush", map[string]any{
		"name":  "queue",
		"value": "job-2",
	})

	require.NoError(t, err)
	assert.Equal(t, `Value "job-2" pushed to the right of list queue`, result)
}

func TestLRangeTool_DefaultsToWholeList(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("LRange", mock.Anything, "queue", int64(0), int64(-1)).
		Return(newStringSliceCmd([]string{"a", "b"}, nil))

	result, err := reg.Call(context.Background(), "lrange", map[string]any{"name": "queue"})

	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, result)
}

func TestLLenTool(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("LLen", mock.Anything, "queue").
		Return(newIntCmd(3, nil))

	result, err := reg.Call(context.Background(), "llen", map[string]any{"name": "queue"})

	require.NoError(t, err)
	assert.Equal(t, "3", result)
}

func TestSAddTool(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("SAdd", mock.Anything, "tags", []interface{}{"red"}).
		Return(newIntCmd(1, nil))

	result, err := reg.Call(context.Background(), "sadd", map[string]any{
		"name":  "tags",
		"value": "red",
	})

	require.NoError(t, err)
	assert.Equal(t, `Value "red" added to set tags`, result)
}

func TestSMembersTool(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("SMembers", mock.Anything, "tags").
		Return(newStringSliceCmd([]string{"red", "blue"}, nil))

	result, err := reg.Call(context.Background(), "smembers", map[string]any{"name": "tags"})

	require.NoError(t, err)
	assert.JSONEq(t, `["red","blue"]`, result)
}

func TestSRemTool_NotAMember(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("SRem", mock.Anything, "tags", []interface{}{"green"}).
		Return(newIntCmd(0, nil))

	result, err := reg.Call(context.Background(), "srem", map[string]any{
		"name":  "tags",
		"value": "green",
	})

	require.NoError(t, err)
	assert.Equal(t, `Value "green" is not a member of set tags`, result)
}

func TestXAddTool(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("XAdd", mock.Anything, mock.MatchedBy(func(a *goredis.XAddArgs) bool {
		return a.Stream == "events" && a.Values.(map[string]any)["type"] == "login"
	})).Return(newStringCmd("1-1", nil))

	result, err := reg.Call(context.Background(), "xadd", map[string]any{
		"key":    "events",
		"fields": map[string]any{"type": "login"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Successfully added entry 1-1 to events", result)
}

func TestXAddTool_FieldsNotAnObject(t *testing.T) {
	t.Parallel()

	reg, _ := newToolsRegistry(t)

	_, err := reg.Call(context.Background(), "xadd", map[string]any{
		"key":    "events",
		"fields": "not-an-object",
	})

	testutil.RequireErrorCode(t, err, amrerr.CodeValidation)
}

func TestXRangeTool_TruncatesToCount(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("XRange", mock.Anything, "events", "-", "+").
		Return(newXMessageSliceCmd([]goredis.XMessage{
			{ID: "1-1", Values: map[string]any{"n": "1"}},
			{ID: "1-2", Values: map[string]any{"n": "2"}},
			{ID: "1-3", Values: map[string]any{"n": "3"}},
		}, nil))

	result, err := reg.Call(context.Background(), "xrange", map[string]any{
		"key":   "events",
		"count": float64(2),
	})

	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1-1","fields":{"n":"1"}},{"id":"1-2","fields":{"n":"2"}}]`, result)
}

func TestXRangeTool_EmptyStream(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("XRange", mock.Anything, "events", "-", "+").
		Return(newXMessageSliceCmd(nil, nil))

	result, err := reg.Call(context.Background(), "xrange", map[string]any{"key": "events"})

	require.NoError(t, err)
	assert.Equal(t, "Stream events is empty or does not exist", result)
}

func TestXLenTool(t *testing.T) {
	t.Parallel()

	reg, mockRedis := newToolsRegistry(t)
	mockRedis.On("XLen", mock.Anything, "events").
		Return(newIntCmd(7, nil))

	result, err := reg.Call(context.Background(), "xlen", map[string]any{"key": "events"})

	require.NoError(t, err)
	assert.Equal(t, "7", result)
}
