/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package ddns

import "fmt"

type ZoneOption uint8

const (
	OptAllowUpdates ZoneOption = iota + 1
	OptFoldCase
	OptFrozen
	OptAutomaticZone
)

var ZoneOptionToString = map[ZoneOption]string{
	OptAllowUpdates:  "allow-updates",
	OptFoldCase:      "fold-case",
	OptFrozen:        "frozen",
	OptAutomaticZone: "automatic-zone",
}

var StringToZoneOption = map[string]ZoneOption{
	"allow-updates":  OptAllowUpdates,
	"fold-case":      OptFoldCase,
	"frozen":         OptFrozen,
	"automatic-zone": OptAutomaticZone,
}

type AppType uint8

const (
	AppTypeServer AppType = iota + 1
	AppTypeCli
)

var AppTypeToString = map[AppType]string{
	AppTypeServer: "server",
	AppTypeCli:    "cli",
}

var StringToAppType = map[string]AppType{
	"server": AppTypeServer,
	"cli":    AppTypeCli,
}

type ErrorType uint8

const (
	NoError ErrorType = iota
	ConfigError
	BackendError
)

var ErrorTypeToString = map[ErrorType]string{
	ConfigError:  "config",
	BackendError: "backend",
}

func (zd *ZoneData) SetError(errtype ErrorType, errmsg string, args ...interface{}) {
	if errtype == NoError {
		zd.Error = false
		zd.ErrorType = NoError
		zd.ErrorMsg = ""
	} else {
		zd.Error = true
		zd.ErrorType = errtype
		zd.ErrorMsg = fmt.Sprintf(errmsg, args...)
	}
	Zones.Set(zd.ZoneName, zd)
}
