/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */

package ddns

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/miekg/dns"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ConfigEntry preserves the order of configuration entries.
type ConfigEntry struct {
	Key   string
	Value interface{}
}

// processConfigFile reads and processes a YAML config file and any included files.
// IMPORTANT: All includes must be specified as a single array at the top level of the config:
//
//	include:
//	  - file1.yaml
//	  - file2.yaml
//
//	# Rest of configuration...
//	stuff1: value1
//	stuff2: value2
//
// The older style of multiple separate 'include' statements throughout the file
// is not supported.
func processConfigFile(file string, baseDir string, depth int) (map[string]interface{}, error) {
	if depth > 10 {
		return nil, errors.New("maximum include depth exceeded (10 levels)")
	}

	if Globals.Debug {
		log.Printf("processConfigFile: Reading %q", file)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %v", file, err)
	}

	var config map[string]interface{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		if Globals.Debug {
			log.Printf("processConfigFile: error unmarshalling YAML from %q to struct", file)
		}
		return nil, fmt.Errorf("error parsing YAML: %v", err)
	}

	if includes, ok := config["include"].([]interface{}); ok {
		delete(config, "include")
		for _, inc := range includes {
			if includeFile, ok := inc.(string); ok {
				var fullPath string
				if filepath.IsAbs(includeFile) {
					fullPath = includeFile
				} else {
					fullPath = filepath.Join(baseDir, includeFile)
				}
				fullPath = filepath.Clean(fullPath)

				included, err := processConfigFile(fullPath, filepath.Dir(fullPath), depth+1)
				if err != nil {
					return nil, err
				}

				for k, v := range included {
					if existing, exists := config[k]; exists {
						if existingMap, ok1 := existing.(map[string]interface{}); ok1 {
							if newMap, ok2 := v.(map[string]interface{}); ok2 {
								for k2, v2 := range newMap {
									existingMap[k2] = v2
								}
								continue
							}
						}
					}
					config[k] = v
				}
			}
		}
	}

	return config, nil
}

// ParseConfig loads conf.Internal.CfgFile (and any includes), decodes it
// into conf, validates it, and opens the commit journal. It is a free
// function rather than a method so ReloadConfig's call site and a
// from-scratch startup call look identical (config.go).
func ParseConfig(conf *Config, reload bool) error {
	if Globals.Debug {
		log.Printf("Enter ParseConfig")
	}

	cfgfile := conf.Internal.CfgFile
	if cfgfile == "" {
		log.Printf("No config file specified. Proceed at own risk.")
		return nil
	}

	configMap, err := processConfigFile(cfgfile, filepath.Dir(cfgfile), 0)
	if err != nil {
		return fmt.Errorf("error processing config: %v", err)
	}

	decoderConfig := &mapstructure.DecoderConfig{
		TagName: "yaml",
		Result:  conf,
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return fmt.Errorf("error creating decoder: %v", err)
	}

	// Default apiserver.usetls to true unless explicitly set.
	if apiserverMap, ok := configMap["apiserver"].(map[string]interface{}); ok {
		if _, explicitlySet := apiserverMap["usetls"]; !explicitlySet {
			apiserverMap["usetls"] = true
		}
	}

	if err := decoder.Decode(configMap); err != nil {
		return fmt.Errorf("error decoding config: %v", err)
	}

	// Keep viper's global view in sync for code that still reads from it
	// (ValidateConfig's nil-viper path, api handlers reloading config).
	processedConfig, err := yaml.Marshal(configMap)
	if err != nil {
		return fmt.Errorf("error marshaling processed config: %v", err)
	}
	viper.SetConfigType("yaml")
	if err := viper.ReadConfig(strings.NewReader(string(processedConfig))); err != nil {
		return fmt.Errorf("error reading processed config: %v", err)
	}

	if err := ValidateConfig(nil, conf.Internal.CfgFile); err != nil {
		return err
	}

	if !reload {
		journal, err := NewJournalDB(conf.Db.File)
		if err != nil {
			return fmt.Errorf("ParseConfig: %w", err)
		}
		conf.Internal.JournalDB = journal
	}

	if Globals.Debug {
		log.Printf("ParseConfig: exit")
	}
	return nil
}

// ParseZones constructs a ZoneData for each configured zone, loads its
// zonefile if one is given, and registers it in Zones. A bad zone entry
// does not abort the whole pass: an entry with invalid characters or an
// unknown type is skipped with a log message, and a zone whose zonefile
// fails to load is recorded via SetError (which stores it in Zones) and
// left out of the returned list.
func ParseZones(conf *Config, reload bool) ([]string, error) {
	if len(conf.Zones) == 0 {
		log.Printf("ParseZones: no zones defined.")
		return nil, nil
	}

	if Globals.Debug {
		log.Printf("ParseZones: %d zones defined. Parsing...", len(conf.Zones))
	}

	var allZones []string

	for name, zconf := range conf.Zones {
		zname := dns.Fqdn(zconf.Name)
		if zname == "." {
			zname = dns.Fqdn(name)
		}

		if strings.Contains(zname, "..") || strings.Contains(zname, "//") {
			log.Printf("ParseZones: zone %q contains invalid characters. Ignoring.", zname)
			continue
		}

		var ztype ZoneType
		switch strings.ToLower(zconf.Type) {
		case "primary":
			ztype = Primary
		case "secondary":
			ztype = Secondary
		default:
			log.Printf("ParseZones: zone %s: unknown zone type %q. Ignoring.", zname, zconf.Type)
			continue
		}

		zd := NewZoneData(zname, ztype)
		zd.Zonefile = zconf.Zonefile

		for _, optstr := range zconf.OptionsStrs {
			opt, exist := StringToZoneOption[strings.ToLower(optstr)]
			if !exist {
				log.Printf("ParseZones: zone %s: unknown option %q. Ignoring.", zname, optstr)
				continue
			}
			zd.SetOption(opt, true)
		}
		if zd.Zonefile != "" {
			zd.SetOption(OptAllowUpdates, true)
			if err := zd.LoadZoneFile(zd.Zonefile); err != nil {
				log.Printf("ParseZones: zone %s: error loading zonefile %q: %v", zname, zd.Zonefile, err)
				zd.SetError(BackendError, "zonefile load: %v", err)
				continue
			}
		}
		zd.Ready = true

		Zones.Set(zname, zd)
		allZones = append(allZones, zname)
		log.Printf("ParseZones: zone %s: type=%s store=%s zonefile=%q loaded",
			zname, zconf.Type, zconf.Store, zconf.Zonefile)
	}

	if Globals.Debug {
		log.Printf("ParseZones: exit, %d zones parsed", len(allZones))
	}
	return allZones, nil
}
