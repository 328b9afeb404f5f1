/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package ddns

import (
	"fmt"
	"net"

	cmap "github.com/orcaman/concurrent-map/v2"
)

type GlobalStuff struct {
	Verbose bool
	Debug   bool
	App     AppType
	Port    uint16
	Address string
}

var Globals = GlobalStuff{
	Verbose: false,
	Debug:   false,
}

// Zones is the process-wide zone registry: the ZoneConfig of spec.md §3
// resolved into concrete DataSource handles, looked up by FindZone.
var Zones = cmap.New[*ZoneData]()

func (gs *GlobalStuff) Validate() error {
	if gs.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", gs.Port)
	}
	if gs.Address != "" && net.ParseIP(gs.Address) == nil {
		return fmt.Errorf("invalid address format: %s", gs.Address)
	}
	return nil
}
