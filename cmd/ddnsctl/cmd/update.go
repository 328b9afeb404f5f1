/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package cmd

import (
	"fmt"
	"net"
	"os"

	"github.com/miekg/dns"
	"github.com/spf13/cobra"
)

var zone, server string
var addRecords, delRecords []string

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Build and send an RFC 2136 DNS UPDATE message",
}

var updateSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Build a DNS UPDATE from --add/--del records and send it to --server",
	Run: func(cmd *cobra.Command, args []string) {
		if zone == "" {
			fmt.Fprintln(os.Stderr, "ddnsctl update send: --zone is required")
			os.Exit(1)
		}
		if server == "" {
			fmt.Fprintln(os.Stderr, "ddnsctl update send: --server is required")
			os.Exit(1)
		}
		zone = dns.Fqdn(zone)

		var adds, removes []dns.RR
		for _, s := range addRecords {
			rr, err := dns.NewRR(s)
			if err != nil {
				fmt.Fprintf(os.Stderr, "ddnsctl update send: error parsing add record %q: %v\n", s, err)
				os.Exit(1)
			}
			adds = append(adds, rr)
		}
		for _, s := range delRecords {
			rr, err := dns.NewRR(s)
			if err != nil {
				fmt.Fprintf(os.Stderr, "ddnsctl update send: error parsing del record %q: %v\n", s, err)
				os.Exit(1)
			}
			removes = append(removes, rr)
		}

		m, err := CreateUpdate(zone, adds, removes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ddnsctl update send: %v\n", err)
			os.Exit(1)
		}

		if _, _, err := net.SplitHostPort(server); err != nil {
			server = net.JoinHostPort(server, "53")
		}

		if verbose {
			fmt.Printf("Sending update to %s:\n%s\n", server, m.String())
		}

		resp, err := SendUpdate(m, server)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ddnsctl update send: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Update sent, rcode: %s\n", dns.RcodeToString[resp.Rcode])
	},
}

// CreateUpdate builds an RFC 2136 UPDATE message for zone with removes
// applied before adds, matching dns.Msg.Remove/Insert ordering.
func CreateUpdate(zone string, adds, removes []dns.RR) (*dns.Msg, error) {
	if zone == "." || zone == "" {
		return nil, fmt.Errorf("CreateUpdate: zone not specified")
	}
	m := new(dns.Msg)
	m.SetUpdate(zone)
	m.Remove(removes)
	m.Insert(adds)
	return m, nil
}

// SendUpdate sends msg to addr and returns the response.
func SendUpdate(msg *dns.Msg, addr string) (*dns.Msg, error) {
	resp, _, err := new(dns.Client).Exchange(msg, addr)
	if err != nil {
		return nil, fmt.Errorf("SendUpdate: %w", err)
	}
	return resp, nil
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.AddCommand(updateSendCmd)

	updateSendCmd.Flags().StringVarP(&zone, "zone", "z", "", "zone to update")
	updateSendCmd.Flags().StringVarP(&server, "server", "s", "", "server address to send the update to (host:port)")
	updateSendCmd.Flags().StringArrayVarP(&addRecords, "add", "a", nil, "RR to add (repeatable), e.g. -a 'host.zone. 3600 IN A 1.2.3.4'")
	updateSendCmd.Flags().StringArrayVarP(&delRecords, "del", "D", nil, "RR to delete (repeatable)")
}
