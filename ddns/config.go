/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */

package ddns

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppDetails
	Service   ServiceConf
	DnsEngine DnsEngineConf
	Apiserver ApiserverConf
	Zones     map[string]ZoneConf
	Db        DbConf
	Log       struct {
		File string `validate:"required"`
	}
	Internal InternalConf
}

type AppDetails struct {
	Name             string
	Version          string
	Date             string
	ServerBootTime   time.Time
	ServerConfigTime time.Time
}

type ServiceConf struct {
	Name    string `validate:"required"`
	Debug   *bool
	Verbose *bool
}

type DnsEngineConf struct {
	Addresses []string `validate:"required"`
}

type ApiserverConf struct {
	Addresses []string `validate:"required"`
	ApiKey    string   `validate:"required"`
	UseTLS    bool
}

type DbConf struct {
	File string `validate:"required"`
}

// InternalConf carries the runtime-only state main and ParseConfig wire
// up: the channels the transport and UpdaterEngine goroutines communicate
// over, and handles (such as the JournalDB) that have no YAML
// representation.
type InternalConf struct {
	CfgFile      string
	ZonesCfgFile string
	JournalDB    *JournalDB
	StopCh       chan struct{}
	DnsUpdateQ   chan DnsUpdateRequest
	stopOnce     sync.Once
}

// Stop closes StopCh exactly once, however many call sites (a signal
// handler, the admin API's "stop" command) race to shut the engine down.
func (ic *InternalConf) Stop() {
	ic.stopOnce.Do(func() {
		close(ic.StopCh)
	})
}

func ValidateConfig(v *viper.Viper, cfgfile string) error {
	var config Config

	if v == nil {
		if err := viper.Unmarshal(&config); err != nil {
			log.Fatalf("ValidateConfig: Unmarshal error: %v", err)
		}
	} else {
		if err := v.Unmarshal(&config); err != nil {
			log.Fatalf("ValidateConfig: Unmarshal error: %v", err)
		}
	}

	configsections := map[string]interface{}{
		"log":       config.Log,
		"service":   config.Service,
		"db":        config.Db,
		"apiserver": config.Apiserver,
		"dnsengine": config.DnsEngine,
	}

	if err := ValidateBySection(&config, configsections, cfgfile); err != nil {
		log.Fatalf("Config %q is missing required attributes:\n%v\n", cfgfile, err)
	}
	return nil
}

func ValidateZones(c *Config, cfgfile string) error {
	zones := make(map[string]interface{}, len(c.Zones))
	for zname, val := range c.Zones {
		zones["zone:"+zname] = val
	}
	if err := ValidateBySection(c, zones, cfgfile); err != nil {
		log.Fatalf("Config %q is missing required attributes:\n%v\n", cfgfile, err)
	}
	return nil
}

func ValidateBySection(config *Config, configsections map[string]interface{}, cfgfile string) error {
	validate := validator.New()

	for k, data := range configsections {
		log.Printf("%s: validating config section %s", strings.ToUpper(config.App.Name), k)
		if err := validate.Struct(data); err != nil {
			log.Fatalf("%s: config %s, section %s: missing required attributes:\n%v\n",
				strings.ToUpper(config.App.Name), cfgfile, k, err)
		}
	}
	return nil
}

func (conf *Config) ReloadConfig() (string, error) {
	err := ParseConfig(conf, true)
	if err != nil {
		log.Printf("ReloadConfig: error parsing config: %v", err)
	}
	conf.App.ServerConfigTime = time.Now()
	return "Config reloaded.", err
}

func (conf *Config) ReloadZoneConfig() (string, error) {
	prezones := Zones.Keys()
	log.Printf("ReloadZoneConfig: zones prior to reloading: %v", prezones)

	zonelist, err := ParseZones(conf, true)
	if err != nil {
		log.Printf("ReloadZoneConfig: error parsing zones: %v", err)
	}

	for _, zname := range prezones {
		if slices.Contains(zonelist, zname) {
			continue
		}
		zd, exists := Zones.Get(zname)
		if !exists {
			continue
		}
		if zd.Options[OptAutomaticZone] {
			log.Printf("ReloadZoneConfig: zone %s is an automatic zone. Not removing.", zname)
			continue
		}
		log.Printf("ReloadZoneConfig: zone %s no longer in config. Removing.", zname)
		Zones.Remove(zname)
	}

	log.Printf("ReloadZoneConfig: zones after reloading: %v", zonelist)
	conf.App.ServerConfigTime = time.Now()
	return fmt.Sprintf("Zones reloaded. Before: %v, After: %v", prezones, zonelist), err
}
