/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/axfrnet/ddnsd/ddns"
)

var cfgFile string
var debug, verbose bool

var rootCmd = &cobra.Command{
	Use:   "ddnsctl",
	Short: "ddnsctl is a tool for operators to exercise a ddnsd nameserver",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default is %s)", ddns.DefaultCliCfgFile))
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "debug output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initConfig() {
	ddns.Globals.Debug = debug
	ddns.Globals.Verbose = verbose
	ddns.Globals.App = ddns.AppTypeCli

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigFile(ddns.DefaultCliCfgFile)
	}
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if verbose {
			fmt.Fprintf(os.Stderr, "ddnsctl: no config file loaded: %v\n", err)
		}
	} else if verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
