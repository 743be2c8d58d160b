package state

import (
	"context"
	"errors"
	"testing"
	"time"

	commonerrors "bookings-bot/internal/common/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// exerciseStorage runs the same read/write/delete contract against any driver.
func exerciseStorage(t *testing.T, s Storage) {
	ctx := context.Background()

	items, err := s.Read(ctx, "a", "b")
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, s.Write(ctx, map[string][]byte{
		"a": []byte(`{"x":1}`),
		"b": []byte(`{"y":2}`),
	}))

	items, err = s.Read(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(items["a"]))
	assert.Equal(t, `{"y":2}`, string(items["b"]))
	_, ok := items["c"]
	assert.False(t, ok)

	require.NoError(t, s.Write(ctx, map[string][]byte{"a": []byte(`{"x":3}`)}))
	require.NoError(t, s.Delete(ctx, "b"))

	items, err = s.Read(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, `{"x":3}`, string(items["a"]))
	assert.NotContains(t, items, "b")
}

// ==========================
// Driver Tests
// ==========================

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage())
}

func TestMemoryStorage_CopiesValues(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()
	value := []byte(`{"x":1}`)
	require.NoError(t, s.Write(ctx, map[string][]byte{"a": value}))
	value[2] = 'z'

	items, err := s.Read(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(items["a"]))
}

func TestRedisStorage(t *testing.T) {
	_, client := createMiniredis(t)
	exerciseStorage(t, NewRedisStorage(client, "test", 0))
}

func TestRedisStorage_PrefixAndTTL(t *testing.T) {
	mr, client := createMiniredis(t)
	s := NewRedisStorage(client, "bookings-bot", time.Hour)

	require.NoError(t, s.Write(context.Background(), map[string][]byte{"webchat/users/u1": []byte(`{}`)}))

	assert.True(t, mr.Exists("bookings-bot:webchat/users/u1"))
	assert.Equal(t, time.Hour, mr.TTL("bookings-bot:webchat/users/u1"))
	assert.NoError(t, s.Ping(context.Background()))
}

func TestRedisStorage_ReadFailure(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectMGet("p:k").SetErr(errors.New("connection reset"))

	s := NewRedisStorage(client, "p", 0)
	_, err := s.Read(context.Background(), "k")

	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeStateStorageFailed, commonerrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStorage_DeleteFailure(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectDel("p:k").SetErr(errors.New("readonly"))

	s := NewRedisStorage(client, "p", 0)
	err := s.Delete(context.Background(), "k")

	assert.Equal(t, commonerrors.ErrCodeStateStorageFailed, commonerrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewPostgresStorage(db, "bot_state")
	require.NoError(t, err)
	ctx := context.Background()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS bot_state`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, s.EnsureSchema(ctx))

	mock.ExpectQuery(`SELECT key, document FROM bot_state WHERE key = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"key", "document"}).AddRow("a", []byte(`{"x":1}`)))
	items, err := s.Read(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte(`{"x":1}`)}, items)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO bot_state`).
		WithArgs("a", `{"x":2}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, s.Write(ctx, map[string][]byte{"a": []byte(`{"x":2}`)}))

	mock.ExpectExec(`DELETE FROM bot_state WHERE key = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Delete(ctx, "a"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_WriteRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewPostgresStorage(db, "bot_state")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO bot_state`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = s.Write(context.Background(), map[string][]byte{"a": []byte(`{}`)})
	assert.Equal(t, commonerrors.ErrCodeStateStorageFailed, commonerrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresStorage_RejectsBadTableName(t *testing.T) {
	_, err := NewPostgresStorage(nil, "bot_state; DROP TABLE x")
	assert.Error(t, err)
}
