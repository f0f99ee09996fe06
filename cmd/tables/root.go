package tables

import (
	"github.com/ValentinKolb/dNT/cmd/util"
	"github.com/ValentinKolb/dNT/lib/nt"
	"github.com/ValentinKolb/dNT/rpc/client"
	"github.com/ValentinKolb/dNT/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	inst *nt.Instance

	// TableCommands represents the network tables command group
	TableCommands = &cobra.Command{
		Use:                "nt",
		Short:              "Perform network tables operations",
		PersistentPreRunE:  setupNTClient,
		PersistentPostRunE: closeNTClient,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	util.SetupRPCClientFlags(TableCommands)

	key := "output"
	TableCommands.PersistentFlags().StringP(key, "o", "text", util.WrapString("Output format (text, yaml)"))

	key = "log-level"
	TableCommands.PersistentFlags().String(key, "warn", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	TableCommands.AddCommand(getCmd)
	TableCommands.AddCommand(setCmd)
	TableCommands.AddCommand(editCmd)
	TableCommands.AddCommand(listCmd)
	TableCommands.AddCommand(connectionsCmd)
	TableCommands.AddCommand(deleteAllCmd)
	TableCommands.AddCommand(flushCmd)
	TableCommands.AddCommand(counterCmd)
	TableCommands.AddCommand(perfTestCmd)
}

// setupNTClient connects an nt.Instance to the configured server
func setupNTClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	svc, err := client.NewRPCService(
		util.GetInstanceID(),
		*util.GetClientConfig(),
		t,
		s,
	)
	if err != nil {
		return err
	}

	inst = nt.NewInstance(svc)
	return nil
}

func closeNTClient(_ *cobra.Command, _ []string) error {
	if inst == nil {
		return nil
	}
	return inst.Close()
}
