/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var apiCommand, apiZone, apiOwner, apiType string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query ddnsd's admin HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		baseurl := viper.GetString("cli.ddnsd.baseurl")
		apikey := viper.GetString("cli.ddnsd.apikey")
		if baseurl == "" {
			fmt.Fprintln(os.Stderr, "ddnsctl status: cli.ddnsd.baseurl not configured")
			os.Exit(1)
		}

		body, _ := json.Marshal(map[string]string{"Command": apiCommand, "Zone": apiZone, "Owner": apiOwner, "Type": apiType})
		req, err := http.NewRequest("POST", baseurl+"/api/v1/command", bytes.NewReader(body))
		if err != nil {
			fmt.Fprintf(os.Stderr, "ddnsctl status: %v\n", err)
			os.Exit(1)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", apikey)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ddnsctl status: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		out, _ := io.ReadAll(resp.Body)
		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&apiCommand, "cmd", "c", "status", "admin command: status|list-zones|zone-owners|zone-rrset|reload-config|reload-zones|stop")
	statusCmd.Flags().StringVarP(&apiZone, "zone", "z", "", "zone name, for zone-owners and zone-rrset")
	statusCmd.Flags().StringVarP(&apiOwner, "owner", "o", "", "owner name, for zone-rrset")
	statusCmd.Flags().StringVarP(&apiType, "type", "t", "", "RR type, for zone-rrset")
}
