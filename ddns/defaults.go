/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package ddns

const (
	DefaultServerCfgFile = "/etc/ddns/ddns-server.yaml"
	DefaultCliCfgFile    = "/etc/ddns/ddns-cli.yaml"
)
