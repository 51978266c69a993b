package cloudlink

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiiuae/communication_link/supervisor/internal/types"
)

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	mu            sync.Mutex
	published     []published
	subscriptions map[string]func(topic string, payload []byte)
}

func newFakeClient() *fakeClient {
	return &fakeClient{subscriptions: make(map[string]func(string, []byte))}
}

func (c *fakeClient) Publish(topic string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{topic, payload})
	return nil
}

func (c *fakeClient) Subscribe(topic string, callback func(topic string, payload []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[topic] = callback
	return nil
}

func (c *fakeClient) Disconnect() {}

func (c *fakeClient) subscription(topic string) (func(topic string, payload []byte), bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	callback, ok := c.subscriptions[topic]
	return callback, ok
}

func dialer(c Client) Dialer {
	return func(context.Context) (Client, error) { return c, nil }
}

func writeKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyData := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	path := filepath.Join(t.TempDir(), "rsa_private.pem")
	require.NoError(t, os.WriteFile(path, keyData, 0o600))
	return key, path
}

func (c *fakeClient) publishedTo(topic string) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out [][]byte
	for _, p := range c.published {
		if p.topic == topic {
			out = append(out, p.payload)
		}
	}
	return out
}

func TestHandleControlCommand(t *testing.T) {
	testCases := []struct {
		command  string
		expected interface{}
	}{
		{"land", types.Land{}},
		{"disarm", types.Disarm{}},
		{"rtl", types.ReturnToLaunch{}},
	}

	for _, tc := range testCases {
		t.Run(tc.command, func(t *testing.T) {
			var posted []types.Message
			payload := []byte(`{"Command":"` + tc.command + `","Timestamp":"2021-06-01T12:00:00Z"}`)

			err := handleControlCommand("drone1", payload, func(msg types.Message) { posted = append(posted, msg) })

			require.NoError(t, err)
			require.Len(t, posted, 1)
			assert.Equal(t, tc.expected, posted[0].Message)
			assert.Equal(t, "drone1", posted[0].To)
		})
	}
}

func TestHandleControlCommandRejectsUnknownAndMalformed(t *testing.T) {
	posted := 0
	post := func(types.Message) { posted++ }

	assert.Error(t, handleControlCommand("drone1", []byte(`{"Command":"takeoff"}`), post))
	assert.Error(t, handleControlCommand("drone1", []byte(`{`), post))
	assert.Equal(t, 0, posted)
}

func TestRunPublishesStateAndRoutesControlCommands(t *testing.T) {
	client := newFakeClient()
	h := NewHandler(dialer(client), "drone1", 100)
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	posted := make(chan types.Message, 1)
	h.Run(ctx, &wg, func(msg types.Message) { posted <- msg })

	require.Eventually(t, func() bool {
		_, ok := client.subscription("/devices/drone1/commands/control")
		return ok
	}, time.Second, 5*time.Millisecond)

	states := client.publishedTo("/devices/drone1/state")
	require.Len(t, states, 1)
	var state deviceState
	require.NoError(t, json.Unmarshal(states[0], &state))
	assert.False(t, state.StartedAt.IsZero())

	callback, _ := client.subscription("/devices/drone1/commands/control")
	callback("/devices/drone1/commands/control", []byte(`{"Command":"land"}`))
	msg := <-posted
	assert.Equal(t, types.Land{}, msg.Message)

	cancel()
	wg.Wait()
}

func TestRunDoesNotWaitForConnection(t *testing.T) {
	dialing := make(chan struct{})
	h := NewHandler(func(ctx context.Context) (Client, error) {
		close(dialing)
		<-ctx.Done()
		return nil, ctx.Err()
	}, "drone1", 10)
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	returned := make(chan struct{})
	go func() {
		h.Run(ctx, &wg, func(types.Message) {})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Run blocked on the connection")
	}
	<-dialing

	// Statuses are still accepted while offline.
	h.Receive(types.CreateMessage("supervisor-status", "drone1", "drone1", 1))

	cancel()
	wg.Wait()
}

func TestConnectGivesUpOnUnreachableBroker(t *testing.T) {
	_, keyPath := writeKey(t)
	opts := Options{
		Broker:          "tcp://127.0.0.1:1",
		DeviceID:        "drone1",
		PrivateKeyPath:  keyPath,
		ProjectID:       "auto-fleet-mgnt",
		RegistryID:      "fleet-registry",
		Region:          "europe-west1",
		ConnectAttempts: 2,
		ConnectDelay:    10 * time.Millisecond,
	}

	done := make(chan error, 1)
	go func() {
		_, err := Connect(context.Background(), opts)
		done <- err
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Connect kept retrying past its attempts")
	}
}

func TestConnectStopsWhenContextIsDone(t *testing.T) {
	_, keyPath := writeKey(t)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Connect(ctx, Options{
		Broker:          "tcp://127.0.0.1:1",
		DeviceID:        "drone1",
		PrivateKeyPath:  keyPath,
		ConnectAttempts: 1000,
		ConnectDelay:    time.Second,
	})

	assert.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestConnectRequiresKey(t *testing.T) {
	_, err := Connect(context.Background(), Options{PrivateKeyPath: filepath.Join(t.TempDir(), "missing.pem")})
	assert.Error(t, err)
}

func TestStatusIsPublished(t *testing.T) {
	client := newFakeClient()
	h := NewHandler(dialer(client), "drone1", 1000)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	h.Run(ctx, &wg, func(types.Message) {})

	h.Receive(types.CreateMessage("vehicle-state", "drone1", "drone1", types.VehicleState{}))
	h.Receive(types.CreateMessage("supervisor-status", "drone1", "drone1", map[string]string{"state": "idle"}))

	topic := "/devices/drone1/events/supervisor-status"
	require.Eventually(t, func() bool { return len(client.publishedTo(topic)) == 1 }, time.Second, 5*time.Millisecond)

	var event statusEvent
	require.NoError(t, json.Unmarshal(client.publishedTo(topic)[0], &event))
	assert.Equal(t, "drone1", event.DeviceID)
	assert.NotEmpty(t, event.MessageID)
	assert.Equal(t, map[string]interface{}{"state": "idle"}, event.Status)

	cancel()
	wg.Wait()
}

func TestReceiveKeepsOnlyLatestStatus(t *testing.T) {
	h := NewHandler(dialer(newFakeClient()), "drone1", 10).(*handler)

	h.Receive(types.CreateMessage("supervisor-status", "drone1", "drone1", 1))
	h.Receive(types.CreateMessage("supervisor-status", "drone1", "drone1", 2))
	h.Receive(types.CreateMessage("supervisor-status", "drone1", "drone1", 3))

	require.Len(t, h.latest, 1)
	msg := <-h.latest
	assert.Equal(t, 3, msg.Message)
}

func TestSignPassword(t *testing.T) {
	key, keyPath := writeKey(t)
	keyData, err := os.ReadFile(keyPath)
	require.NoError(t, err)
	now := time.Now()

	pass, err := signPassword(keyData, "auto-fleet-mgnt", now)
	require.NoError(t, err)

	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(pass, claims, func(*jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "auto-fleet-mgnt", claims.Audience)
	assert.Equal(t, now.Add(tokenExpiry).Unix(), claims.ExpiresAt)

	_, err = signPassword([]byte("not a key"), "auto-fleet-mgnt", now)
	assert.Error(t, err)
}

func TestClientID(t *testing.T) {
	id := clientID(Options{DeviceID: "drone1", ProjectID: "p", RegistryID: "r", Region: "europe-west1"})

	assert.Equal(t, "projects/p/locations/europe-west1/registries/r/devices/drone1", id)
}
