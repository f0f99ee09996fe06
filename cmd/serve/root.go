package serve

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	cmdUtil "github.com/ValentinKolb/dNT/cmd/util"
	"github.com/ValentinKolb/dNT/rpc/common"
	"github.com/ValentinKolb/dNT/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the dNT server",
		Long:    `Start the dNT server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DNT_<flag> (e.g. DNT_UPDATE_RATE=100ms)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(cmdUtil.InitConfig)

	key := "instances"
	ServeCmd.PersistentFlags().String(key, "1", cmdUtil.WrapString("Comma-separated list of network tables instances to serve. Format: ID or ID=ENGINE where ENGINE is one of: maple, sqlite"))

	key = "engine"
	ServeCmd.PersistentFlags().String(key, "maple", cmdUtil.WrapString("Storage engine of instances listed without an engine (maple, sqlite)"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Directory holding the persistence file of each instance. Empty keeps all entries in memory"))

	key = "update-rate"
	ServeCmd.PersistentFlags().Duration(key, 0, cmdUtil.WrapString("Interval of the periodic flush to the persistence files (0 disables it)"))

	key = "identity"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Network identity of the server (default dnt-<uuid>)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Read and write timeout of client connections in seconds (0 disables it, clients may idle)"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080, /tmp/dnt.sock, ...)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address of a separate /metrics listener (e.g. localhost:9090). The http transport always serves /metrics"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// parseInstances parses "ID[=ENGINE],..." into instance descriptions
func parseInstances(raw string, defaultEngine common.EngineType) ([]common.ServerInstance, error) {
	var instances []common.ServerInstance
	seen := make(map[uint64]bool)

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		idStr, engineStr, hasEngine := strings.Cut(part, "=")
		id, err := strconv.ParseUint(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid instance ID %s: %v", idStr, err)
		}
		if seen[id] {
			return nil, fmt.Errorf("instance %d listed twice", id)
		}
		seen[id] = true

		engine := defaultEngine
		if hasEngine {
			if engine, err = common.ParseEngineType(engineStr); err != nil {
				return nil, err
			}
		}

		instances = append(instances, common.ServerInstance{InstanceID: id, Engine: engine})
	}

	if len(instances) == 0 {
		return nil, errors.New("no instances configured")
	}
	return instances, nil
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	defaultEngine, err := common.ParseEngineType(viper.GetString("engine"))
	if err != nil {
		return err
	}
	if serveCmdConfig.Instances, err = parseInstances(viper.GetString("instances"), defaultEngine); err != nil {
		return err
	}

	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.UpdateRate = viper.GetDuration("update-rate")
	serveCmdConfig.Identity = viper.GetString("identity")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if serveCmdConfig.UpdateRate < 0 {
		return fmt.Errorf("update rate must not be negative")
	}

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the dNT server and stops it on SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(*serveCmdConfig, t, s)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() { errCh <- serv.Serve() }()

	select {
	case err := <-errCh:
		// close the instances created before the failure
		return errors.Join(err, serv.Close())
	case sig := <-sigCh:
		server.Logger.Infof("received %s, shutting down", sig)
		closeErr := serv.Close()
		return errors.Join(<-errCh, closeErr)
	}
}
