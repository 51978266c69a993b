// Package config loads the supervisor settings. Each layer overrides the one
// before it: defaults, the yaml file, SUPERVISOR_* environment variables and
// finally command line flags.
package config

import (
	"flag"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/vrischmann/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	defaultServer     = "ssl://mqtt.googleapis.com:8883"
	defaultPrivateKey = "/enclave/rsa_private.pem"
)

type Config struct {
	// DeviceID is the vehicle name, also the ROS 2 namespace of the node.
	DeviceID string `yaml:"device_id" envconfig:"SUPERVISOR_DEVICE_ID"`

	TickPeriod              time.Duration `yaml:"tick_period" envconfig:"SUPERVISOR_TICK_PERIOD"`
	TakeoffHeight           float64       `yaml:"takeoff_height" envconfig:"SUPERVISOR_TAKEOFF_HEIGHT"`
	XYMaxVelocity           float64       `yaml:"xy_max_velocity" envconfig:"SUPERVISOR_XY_MAX_VELOCITY"`
	ReachedDistance         float64       `yaml:"reached_distance" envconfig:"SUPERVISOR_REACHED_DISTANCE"`
	DisableRotationDistance float64       `yaml:"disable_rotation_distance" envconfig:"SUPERVISOR_DISABLE_ROTATION_DISTANCE"`
	WatchdogTimeout         time.Duration `yaml:"watchdog_timeout" envconfig:"SUPERVISOR_WATCHDOG_TIMEOUT"`

	CommandAttempts uint          `yaml:"command_attempts" envconfig:"SUPERVISOR_COMMAND_ATTEMPTS"`
	CommandDelay    time.Duration `yaml:"command_delay" envconfig:"SUPERVISOR_COMMAND_DELAY"`
	CommandMaxDelay time.Duration `yaml:"command_max_delay" envconfig:"SUPERVISOR_COMMAND_MAX_DELAY"`
	CommandTimeout  time.Duration `yaml:"command_timeout" envconfig:"SUPERVISOR_COMMAND_TIMEOUT"`

	LogLevel string `yaml:"log_level" envconfig:"SUPERVISOR_LOG_LEVEL"`
	LogFile  string `yaml:"log_file" envconfig:"SUPERVISOR_LOG_FILE"`

	CloudEnabled     bool    `yaml:"cloud_enabled" envconfig:"SUPERVISOR_CLOUD_ENABLED"`
	MQTTBroker       string  `yaml:"mqtt_broker" envconfig:"SUPERVISOR_MQTT_BROKER"`
	PrivateKey       string  `yaml:"private_key" envconfig:"SUPERVISOR_PRIVATE_KEY"`
	ProjectID        string  `yaml:"project_id" envconfig:"SUPERVISOR_PROJECT_ID"`
	RegistryID       string  `yaml:"registry_id" envconfig:"SUPERVISOR_REGISTRY_ID"`
	Region           string  `yaml:"region" envconfig:"SUPERVISOR_REGION"`
	CloudPublishRate float64 `yaml:"cloud_publish_rate" envconfig:"SUPERVISOR_CLOUD_PUBLISH_RATE"`
	// CloudConnectAttempts bounds the MQTT connection attempts. The supervisor
	// runs without the cloud link once they are used up.
	CloudConnectAttempts uint `yaml:"cloud_connect_attempts" envconfig:"SUPERVISOR_CLOUD_CONNECT_ATTEMPTS"`
}

func Default() Config {
	return Config{
		TickPeriod:              100 * time.Millisecond,
		TakeoffHeight:           10.0,
		XYMaxVelocity:           10.0,
		ReachedDistance:         1.0,
		DisableRotationDistance: 2.0,
		WatchdogTimeout:         10 * time.Second,

		CommandAttempts: 5,
		CommandDelay:    time.Second,
		CommandMaxDelay: 8 * time.Second,
		CommandTimeout:  5 * time.Second,

		LogLevel: "info",

		MQTTBroker:       defaultServer,
		PrivateKey:       defaultPrivateKey,
		ProjectID:        "auto-fleet-mgnt",
		RegistryID:       "fleet-registry",
		Region:           "europe-west1",
		CloudPublishRate: 10,

		CloudConnectAttempts: 5,
	}
}

// Load builds the configuration from args (without the program name) and the
// process environment.
func Load(name string, args []string) (Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := fs.String("config", "", "Path of the yaml configuration file")
	deviceID := fs.String("device_id", "", "The provisioned device id")
	mqttBroker := fs.String("mqtt_broker", "", "MQTT broker protocol, address and port")
	privateKey := fs.String("private_key", "", "The private key for the MQTT authentication")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if *configPath != "" {
		if err := cfg.readFile(*configPath); err != nil {
			return Config{}, err
		}
	}

	if err := envconfig.InitWithOptions(&cfg, envconfig.Options{AllOptional: true}); err != nil {
		return Config{}, errors.Wrap(err, "read environment")
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device_id":
			cfg.DeviceID = *deviceID
		case "mqtt_broker":
			cfg.MQTTBroker = *mqttBroker
			cfg.CloudEnabled = true
		case "private_key":
			cfg.PrivateKey = *privateKey
		}
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	return nil
}

func (c Config) Validate() error {
	switch {
	case c.DeviceID == "":
		return errors.New("device id is required")
	case c.TickPeriod <= 0:
		return errors.Errorf("tick period must be positive, got %s", c.TickPeriod)
	case c.WatchdogTimeout <= 0:
		return errors.Errorf("watchdog timeout must be positive, got %s", c.WatchdogTimeout)
	case c.CommandAttempts == 0:
		return errors.New("command attempts must be at least 1")
	case c.CommandTimeout <= 0:
		return errors.Errorf("command timeout must be positive, got %s", c.CommandTimeout)
	case c.TakeoffHeight <= 0:
		return errors.Errorf("takeoff height must be positive, got %f", c.TakeoffHeight)
	case c.XYMaxVelocity <= 0:
		return errors.Errorf("xy max velocity must be positive, got %f", c.XYMaxVelocity)
	case c.ReachedDistance < 0 || c.DisableRotationDistance < 0:
		return errors.New("distance thresholds must not be negative")
	case c.CloudEnabled && c.CloudPublishRate <= 0:
		return errors.Errorf("cloud publish rate must be positive, got %f", c.CloudPublishRate)
	case c.CloudEnabled && c.CloudConnectAttempts == 0:
		return errors.New("cloud connect attempts must be at least 1")
	}
	return nil
}
