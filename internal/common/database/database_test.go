package database

import (
	"context"
	"errors"
	"testing"

	"retail-chat-workers/internal/common/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisClient_Ping(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := NewRedis(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	assert.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}

func TestPostgresClient_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	client := &PostgresClient{DB: db}
	t.Cleanup(func() { _ = client.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS chat_turn_usage").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, client.EnsureSchema(context.Background()))

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS chat_turn_usage").
		WillReturnError(errors.New("permission denied"))
	err = client.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat_turn_usage")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresConfig_DSN(t *testing.T) {
	dsn := config.PostgresConfig{
		Host: "db", Port: 5432, User: "chat", Password: "pw", Database: "retail", SSLMode: "disable",
	}.GetDSN()
	assert.Equal(t, "host=db port=5432 user=chat password=pw dbname=retail sslmode=disable", dsn)
}
