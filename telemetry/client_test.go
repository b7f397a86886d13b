package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient([]string{"nats://localhost:4222"})
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", client.urls)
	assert.Equal(t, "canlink", client.name)
	assert.Equal(t, 5*time.Second, client.connectTimeout)
	assert.Equal(t, 2*time.Second, client.reconnectWait)
	assert.Equal(t, -1, client.maxReconnects)
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.False(t, client.IsConnected())
	assert.Nil(t, client.Conn())
}

func TestNewClient_JoinsURLs(t *testing.T) {
	client, err := NewClient([]string{
		"nats://a.example.com:4222",
		"nats://b.example.com:4222",
	})
	require.NoError(t, err)

	assert.Equal(t, "nats://a.example.com:4222,nats://b.example.com:4222", client.urls)
}

func TestNewClient_NoURLs(t *testing.T) {
	client, err := NewClient(nil)

	assert.Nil(t, client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no server URLs")
}

func TestNewClient_Options(t *testing.T) {
	client, err := NewClient([]string{"nats://localhost:4222"},
		WithName("canlink-7"),
		WithCredentials("user", "pass"),
		WithToken("tok"),
		WithConnectTimeout(time.Second),
		WithReconnectWait(500*time.Millisecond),
		WithMaxReconnects(3),
		WithDrainTimeout(2*time.Second),
	)
	require.NoError(t, err)

	assert.Equal(t, "canlink-7", client.name)
	assert.Equal(t, "user", client.username)
	assert.Equal(t, "pass", client.password)
	assert.Equal(t, "tok", client.token)
	assert.Equal(t, time.Second, client.connectTimeout)
	assert.Equal(t, 500*time.Millisecond, client.reconnectWait)
	assert.Equal(t, 3, client.maxReconnects)
	assert.Equal(t, 2*time.Second, client.drainTimeout)
}

func TestConnectionStatus_String(t *testing.T) {
	tests := []struct {
		status ConnectionStatus
		want   string
	}{
		{StatusDisconnected, "disconnected"},
		{StatusConnecting, "connecting"},
		{StatusConnected, "connected"},
		{StatusReconnecting, "reconnecting"},
		{ConnectionStatus(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

func TestClient_PublishNotConnected(t *testing.T) {
	client, err := NewClient([]string{"nats://localhost:4222"})
	require.NoError(t, err)

	err = client.Publish("vehicle.chassis", []byte(`{}`))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClient_SubscribeNotConnected(t *testing.T) {
	client, err := NewClient([]string{"nats://localhost:4222"})
	require.NoError(t, err)

	err = client.Subscribe("vehicle.command.control", func([]byte) {})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClient_ConnectRefused(t *testing.T) {
	// Port 1 is never a NATS server; Connect must fail and restore the
	// disconnected status.
	client, err := NewClient([]string{"nats://127.0.0.1:1"},
		WithConnectTimeout(250*time.Millisecond),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = client.Connect(ctx)
	require.Error(t, err)
	assert.Equal(t, StatusDisconnected, client.Status())
}

func TestClient_CloseIdempotent(t *testing.T) {
	client, err := NewClient([]string{"nats://localhost:4222"},
		WithCredentials("user", "pass"),
	)
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, client.Close(ctx))
	require.NoError(t, client.Close(ctx))

	assert.Equal(t, StatusDisconnected, client.Status())
	assert.Empty(t, client.username, "credentials should be cleared")
	assert.Empty(t, client.password, "credentials should be cleared")
}
