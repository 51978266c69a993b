package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/tiiuae/rclgo/pkg/rclgo"

	"github.com/tiiuae/communication_link/supervisor/internal/cloudlink"
	"github.com/tiiuae/communication_link/supervisor/internal/config"
	"github.com/tiiuae/communication_link/supervisor/internal/gateway"
	"github.com/tiiuae/communication_link/supervisor/internal/logging"
	"github.com/tiiuae/communication_link/supervisor/internal/mavros"
	"github.com/tiiuae/communication_link/supervisor/internal/supervisor"
	"github.com/tiiuae/communication_link/supervisor/internal/types"
)

func main() {
	cfg, err := config.Load(os.Args[0], os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logCloser := logging.Setup(cfg.LogLevel, cfg.LogFile)
	defer logCloser.Close()

	// attach sigint & sigterm listeners
	terminationSignals := make(chan os.Signal, 1)
	signal.Notify(terminationSignals, syscall.SIGINT, syscall.SIGTERM)

	// quitFunc will be called when process is terminated
	ctx, quitFunc := context.WithCancel(context.Background())

	// wait group will make sure all goroutines have time to clean up
	var wg sync.WaitGroup

	// Setup ROS nodes
	rclArgs, rclErr := rclgo.NewRCLArgs("")
	if rclErr != nil {
		log.Fatal().Err(rclErr).Msg("Failed to parse ROS arguments")
	}

	rclContext, rclErr := rclgo.NewContext(&wg, 0, rclArgs)
	if rclErr != nil {
		log.Fatal().Err(rclErr).Msg("Failed to create ROS context")
	}
	defer rclContext.Close()

	rclLocalNode, rclErr := rclContext.NewNode("supervisor_local", cfg.DeviceID)
	if rclErr != nil {
		log.Fatal().Err(rclErr).Msg("Failed to create ROS node")
	}

	bridge, err := mavros.New(ctx, rclContext, rclLocalNode, cfg.DeviceID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up flight controller bridge")
	}

	messagebus := make(chan types.Message, 100)
	bus := types.NewMessageBus(messagebus, types.NewLogger(), bridge)
	post := bus.Post(ctx)

	dispatcher := gateway.NewDispatcher(ctx, bridge, func(r gateway.CommandResult) {
		post(types.CreateMessage("command-result", cfg.DeviceID, cfg.DeviceID, r))
	}, gateway.Options{
		Attempts:       cfg.CommandAttempts,
		Delay:          cfg.CommandDelay,
		MaxDelay:       cfg.CommandMaxDelay,
		AttemptTimeout: cfg.CommandTimeout,
	})

	sup := supervisor.New(dispatcher, supervisor.Params{
		TakeoffHeight:           cfg.TakeoffHeight,
		XYMaxVelocity:           cfg.XYMaxVelocity,
		ReachedDistance:         cfg.ReachedDistance,
		DisableRotationDistance: cfg.DisableRotationDistance,
		WatchdogTimeout:         cfg.WatchdogTimeout,
	}, nil)
	bus.Add(supervisor.NewHandler(cfg.DeviceID, sup, cfg.TickPeriod))

	if cfg.CloudEnabled {
		opts := cloudlink.Options{
			Broker:          cfg.MQTTBroker,
			DeviceID:        cfg.DeviceID,
			PrivateKeyPath:  cfg.PrivateKey,
			ProjectID:       cfg.ProjectID,
			RegistryID:      cfg.RegistryID,
			Region:          cfg.Region,
			ConnectAttempts: cfg.CloudConnectAttempts,
		}
		dial := func(ctx context.Context) (cloudlink.Client, error) {
			return cloudlink.Connect(ctx, opts)
		}
		bus.Add(cloudlink.NewHandler(dial, cfg.DeviceID, cfg.CloudPublishRate))
	}

	wg.Add(1)
	go bus.Run(ctx, &wg)
	log.Info().Msgf("Supervisor running for %s", cfg.DeviceID)

	// wait for termination and close quit to signal all
	<-terminationSignals
	// cancel the main context
	log.Info().Msg("Shutting down..")
	quitFunc()

	// wait until goroutines have done their cleanup
	log.Info().Msg("Waiting for routines to finish...")
	dispatcher.Wait()
	wg.Wait()
	bridge.Close()
	log.Info().Msg("Signing off - BYE")
}
