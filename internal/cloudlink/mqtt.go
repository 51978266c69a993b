// Package cloudlink connects the supervisor to the fleet backend over MQTT.
package cloudlink

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	jwt "github.com/dgrijalva/jwt-go"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// MQTT parameters
const (
	algorithm   = "RS256"
	username    = "unused" // always this value in GCP
	qos         = 1        // QoS 2 isn't supported in GCP
	retain      = false
	tokenExpiry = 24 * time.Hour

	connectTimeout = 5 * time.Second

	defaultConnectAttempts = 5
	defaultConnectDelay    = time.Second
)

type Options struct {
	Broker         string
	DeviceID       string
	PrivateKeyPath string
	ProjectID      string
	RegistryID     string
	Region         string
	// ConnectAttempts bounds the connection attempts, 5 when zero.
	ConnectAttempts uint
	// ConnectDelay is the first backoff delay between attempts, 1s when zero.
	ConnectDelay time.Duration
}

// Client is the part of the MQTT client the handlers need.
type Client interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, callback func(topic string, payload []byte)) error
	Disconnect()
}

type pahoClient struct {
	client mqtt.Client
}

func (c *pahoClient) Publish(topic string, payload []byte) error {
	tok := c.client.Publish(topic, qos, retain, payload)
	if !tok.WaitTimeout(connectTimeout) {
		return errors.Errorf("publish to %s timed out", topic)
	}
	return tok.Error()
}

func (c *pahoClient) Subscribe(topic string, callback func(topic string, payload []byte)) error {
	tok := c.client.Subscribe(topic, 0, func(client mqtt.Client, msg mqtt.Message) {
		callback(msg.Topic(), msg.Payload())
	})
	tok.Wait()
	return tok.Error()
}

func (c *pahoClient) Disconnect() {
	c.client.Disconnect(1000)
}

func clientID(opts Options) string {
	return fmt.Sprintf(
		"projects/%s/locations/%s/registries/%s/devices/%s",
		opts.ProjectID, opts.Region, opts.RegistryID, opts.DeviceID)
}

// signPassword generates the JWT used as the MQTT password.
func signPassword(keyData []byte, projectID string, now time.Time) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(keyData)
	if err != nil {
		return "", errors.Wrap(err, "parse private key")
	}

	token := jwt.NewWithClaims(jwt.GetSigningMethod(algorithm), &jwt.StandardClaims{
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(tokenExpiry).Unix(),
		Audience:  projectID,
	})
	pass, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return pass, nil
}

// Connect authenticates with a JWT signed by the device key and connects to
// the broker, retrying until it succeeds, attempts run out or ctx is done.
func Connect(ctx context.Context, opts Options) (Client, error) {
	keyData, err := os.ReadFile(opts.PrivateKeyPath)
	if err != nil {
		return nil, errors.Wrap(err, "read private key")
	}
	pass, err := signPassword(keyData, opts.ProjectID, time.Now())
	if err != nil {
		return nil, err
	}

	id := clientID(opts)
	log.Info().Msgf("MQTT broker %s, client id %s", opts.Broker, id)

	mqttOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(id).
		SetUsername(username).
		SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}).
		SetPassword(pass).
		SetProtocolVersion(4) // Use MQTT 3.1.1

	client := mqtt.NewClient(mqttOpts)

	attempts, delay := opts.ConnectAttempts, opts.ConnectDelay
	if attempts == 0 {
		attempts = defaultConnectAttempts
	}
	if delay <= 0 {
		delay = defaultConnectDelay
	}

	err = retry.Do(
		func() error {
			log.Info().Msg("Connecting MQTT...")
			tok := client.Connect()
			if !tok.WaitTimeout(connectTimeout) {
				return errors.New("connection timeout")
			}
			return tok.Error()
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.MaxDelay(30*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Msgf("MQTT connect attempt %d failed", n+1)
		}),
	)
	if err != nil {
		return nil, errors.WithMessage(err, "connect MQTT")
	}
	log.Info().Msg("..Connected")

	return &pahoClient{client}, nil
}
