package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/relaygate/relaygate/lib"
	"github.com/relaygate/relaygate/server"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "relaygate",
	Short: "relaygate API gateway data plane",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(startServerCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(configCmd)
	dbCmd.AddCommand(createTablesCmd)
	dbCmd.AddCommand(seedCmd)
	configCmd.AddCommand(showConfigCmd)
}

var startServerCmd = &cobra.Command{
	Use:   "start-server",
	Short: "Start the gateway server",
	Run: func(cmd *cobra.Command, args []string) {
		if err := server.StartServer(); err != nil {
			fmt.Printf("Error starting server: %v\n", err)
			os.Exit(1)
		}
	},
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database related commands",
}

var createTablesCmd = &cobra.Command{
	Use:   "create-tables",
	Short: "Create database tables from models",
	Run: func(cmd *cobra.Command, args []string) {
		lib.DB()
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo tenants, plans and keys",
	Run: func(cmd *cobra.Command, args []string) {
		createMockData()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration related commands",
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		encoded, err := json.MarshalIndent(lib.GetConfig(), "", "  ")
		if err != nil {
			fmt.Printf("Error encoding config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(encoded))
	},
}
