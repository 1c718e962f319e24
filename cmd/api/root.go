package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	adactor "github.com/berfenger/easee2mqtt/internal/adapter/actor"
	"github.com/berfenger/easee2mqtt/internal/adapter/proxy"
	"github.com/berfenger/easee2mqtt/internal/config"
	"github.com/berfenger/easee2mqtt/internal/core/actor"
	"github.com/berfenger/easee2mqtt/internal/core/domain"
	"github.com/berfenger/easee2mqtt/internal/core/port"
	"github.com/berfenger/easee2mqtt/internal/core/service"
	"github.com/berfenger/easee2mqtt/internal/metrics"
	"github.com/berfenger/easee2mqtt/internal/mqtt"
	"github.com/berfenger/easee2mqtt/internal/server"
	"github.com/berfenger/easee2mqtt/internal/util/actorutil"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/carlmjohnson/versioninfo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "easee2mqtt",
	Short:   "Easee charger services over MQTT and HTTP",
	Version: versioninfo.Short(),
	RunE:    runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MQTT bridge and the HTTP API",
	RunE:  runServe,
}

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Print the registered services and their parameters",
	RunE:  runServices,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "configuration file (overrides CONFIG_FILE)")
	rootCmd.AddCommand(serveCmd, servicesCmd)
}

func Execute() error {
	return rootCmd.Execute()
}

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func runServe(cmd *cobra.Command, args []string) error {

	// load and print config
	cfg, err := initConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("config errors: %w", err)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	sink, err := metrics.NewPromSink(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	registry, closeRegistry, err := deviceRegistry(cfg, sink, logger)
	if err != nil {
		return err
	}
	defer closeRegistry()

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, registry, sink, mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return err
	}

	server := server.NewServer(*cfg, ctx, pid, prometheus.DefaultGatherer)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	logger.Info("http server listening", zap.String("addr", server.Addr))
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
	return nil
}

// deviceRegistry builds the device proxies for the configured backend.
func deviceRegistry(cfg *config.Config, sink *metrics.PromSink, logger *zap.Logger) (port.DeviceRegistry, func(), error) {
	switch cfg.Backend.Type {
	case config.BACKEND_MODBUS:
		registry, closer, err := proxy.NewModbusRegistry(cfg, proxy.ModbusTCPClientFactory(cfg, logger, sink.ModbusInstrument()))
		if err != nil {
			return nil, nil, err
		}
		return registry, func() {
			if err := closer(); err != nil {
				logger.Warn("modbus close", zap.Error(err))
			}
		}, nil
	case config.BACKEND_MQTT:
		publisher := mqtt.NewCommandPublisher(mqtt.PublisherOptsFromConfig(cfg), logger)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := publisher.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return proxy.NewMQTTRegistry(cfg, publisher, logger), func() {
			publisher.Disconnect(500 * time.Millisecond)
		}, nil
	}
	return nil, nil, errors.New("unknown backend " + cfg.Backend.Type)
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func() pactor.Actor {
		return adactor.NewMQTTActor(cfg, logger)
	}
}

func runServices(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tMETHOD\tDISPATCHER\tFIELDS")
	for _, desc := range service.Services() {
		var fields []string
		for _, f := range desc.Schema.Fields {
			field := fmt.Sprintf("%s:%s", f.Key, f.Type)
			if f.Required {
				field += "*"
			}
			fields = append(fields, field)
		}
		fmt.Fprintf(w, "%s.%s\t%s\t%s\t%s\n", domain.SERVICE_DOMAIN, desc.Name, desc.Method, desc.Kind, strings.Join(fields, " "))
	}
	return w.Flush()
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
