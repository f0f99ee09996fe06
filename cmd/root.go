package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dNT/cmd/serve"
	"github.com/ValentinKolb/dNT/cmd/tables"
	"github.com/ValentinKolb/dNT/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dnt",
		Short: "network tables server and client",
		Long: fmt.Sprintf(`dNT (v%s)

A network tables server and client written in Go. Entries are named,
typed values shared between a robot and its dashboards.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dNT",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dNT v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(tables.TableCommands)
	RootCmd.AddCommand(versionCmd)

	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
