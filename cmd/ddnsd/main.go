/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */

package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/axfrnet/ddnsd/ddns"
)

var appVersion string
var appDate string

func mainloop(conf *ddns.Config) {
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		for {
			select {
			case <-exit:
				log.Println("mainloop: exit signal received, shutting down")
				conf.Internal.Stop()
				wg.Done()
				return

			case <-hup:
				log.Println("mainloop: SIGHUP received, reloading config and zones")
				if _, err := conf.ReloadConfig(); err != nil {
					log.Printf("mainloop: error reloading config: %v", err)
				}
				if _, err := conf.ReloadZoneConfig(); err != nil {
					log.Printf("mainloop: error reloading zones: %v", err)
				}

			case <-conf.Internal.StopCh:
				log.Println("mainloop: stop requested, shutting down")
				wg.Done()
				return
			}
		}
	}()
	wg.Wait()
}

func main() {
	conf := ddns.Config{
		App: ddns.AppDetails{
			Name:           "ddnsd",
			Version:        appVersion,
			Date:           appDate,
			ServerBootTime: time.Now(),
		},
	}
	conf.Internal.CfgFile = ddns.DefaultServerCfgFile
	conf.Internal.StopCh = make(chan struct{})
	conf.Internal.DnsUpdateQ = make(chan ddns.DnsUpdateRequest, 10)

	if len(os.Args) > 1 {
		conf.Internal.CfgFile = os.Args[1]
	}

	ddns.Globals.App = ddns.AppTypeServer

	if err := ddns.ParseConfig(&conf, false); err != nil {
		log.Fatalf("Error parsing config: %v", err)
	}

	ddns.SetupLogging(conf.Log.File)
	fmt.Printf("ddnsd %s starting, logging to %s\n", appVersion, conf.Log.File)

	if _, err := ddns.ParseZones(&conf, false); err != nil {
		log.Fatalf("Error parsing zones: %v", err)
	}
	conf.App.ServerConfigTime = time.Now()

	go ddns.UpdaterEngine(conf.Internal.JournalDB, conf.Internal.DnsUpdateQ, conf.Internal.StopCh)
	go DnsEngine(&conf)
	go APIdispatcher(&conf, conf.Internal.StopCh)

	mainloop(&conf)
}
