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

var qname, qtype string

var zoneCmd = &cobra.Command{
	Use:   "zone",
	Short: "Query zone contents from a running ddnsd",
}

var zoneDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Query a name and type from --server and print the answer",
	Run: func(cmd *cobra.Command, args []string) {
		if qname == "" || server == "" {
			fmt.Fprintln(os.Stderr, "ddnsctl zone dump: --qname and --server are required")
			os.Exit(1)
		}
		if _, _, err := net.SplitHostPort(server); err != nil {
			server = net.JoinHostPort(server, "53")
		}

		rrtype, ok := dns.StringToType[qtype]
		if !ok {
			fmt.Fprintf(os.Stderr, "ddnsctl zone dump: unknown RR type %q\n", qtype)
			os.Exit(1)
		}

		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(qname), rrtype)

		resp, _, err := new(dns.Client).Exchange(m, server)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ddnsctl zone dump: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf(";; rcode: %s\n", dns.RcodeToString[resp.Rcode])
		for _, rr := range resp.Answer {
			fmt.Println(rr.String())
		}
	},
}

func init() {
	rootCmd.AddCommand(zoneCmd)
	zoneCmd.AddCommand(zoneDumpCmd)

	zoneDumpCmd.Flags().StringVarP(&qname, "qname", "q", "", "name to query")
	zoneDumpCmd.Flags().StringVarP(&qtype, "type", "t", "ANY", "RR type to query")
	zoneDumpCmd.Flags().StringVarP(&server, "server", "s", "", "server address to query (host:port)")
}
