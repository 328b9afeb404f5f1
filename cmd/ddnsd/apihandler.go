/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/miekg/dns"

	"github.com/axfrnet/ddnsd/ddns"
)

// CommandPost and CommandResponse are the /command endpoint's request and
// response envelopes: status/reload introspection only, no zone mutation
// (zone mutation happens exclusively through RFC 2136 UPDATE messages on
// the DNS transport).
type CommandPost struct {
	Command string
	Zone    string
	Owner   string
	Type    string
}

type CommandResponse struct {
	Time     time.Time
	Status   string
	Msg      string
	Zones    []string `json:",omitempty"`
	Owners   []string `json:",omitempty"`
	RRs      []string `json:",omitempty"`
	Error    bool     `json:",omitempty"`
	ErrorMsg string   `json:",omitempty"`
}

func APIcommand(conf *ddns.Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		decoder := json.NewDecoder(r.Body)
		var cp CommandPost
		if err := decoder.Decode(&cp); err != nil {
			log.Println("APIcommand: error decoding command post:", err)
		}

		log.Printf("API: received /command request (cmd: %s) from %s.\n", cp.Command, r.RemoteAddr)

		resp := CommandResponse{Time: time.Now()}

		switch cp.Command {
		case "status":
			resp.Status = "ok"
			resp.Msg = fmt.Sprintf("%d zones loaded", ddns.Zones.Count())

		case "list-zones":
			resp.Status = "ok"
			resp.Zones = ddns.Zones.Keys()

		case "zone-owners":
			zd, exist := ddns.Zones.Get(dns.Fqdn(cp.Zone))
			if !exist {
				resp.Error = true
				resp.ErrorMsg = fmt.Sprintf("zone %s is unknown", cp.Zone)
				break
			}
			resp.Status = "ok"
			resp.Owners = zd.GetOwnerNames()

		case "zone-rrset":
			zd, exist := ddns.Zones.Get(dns.Fqdn(cp.Zone))
			if !exist {
				resp.Error = true
				resp.ErrorMsg = fmt.Sprintf("zone %s is unknown", cp.Zone)
				break
			}
			rrtype, ok := dns.StringToType[cp.Type]
			if !ok {
				resp.Error = true
				resp.ErrorMsg = fmt.Sprintf("unknown RR type: %s", cp.Type)
				break
			}
			rrset, err := zd.GetRRset(dns.Fqdn(cp.Owner), rrtype)
			if err != nil {
				resp.Error = true
				resp.ErrorMsg = err.Error()
				break
			}
			if rrset == nil {
				resp.Status = "ok"
				resp.Msg = fmt.Sprintf("no %s RRset at %s", cp.Type, cp.Owner)
				break
			}
			resp.Status = "ok"
			for _, rr := range rrset.RRs {
				resp.RRs = append(resp.RRs, rr.String())
			}

		case "reload-config":
			msg, err := conf.ReloadConfig()
			resp.Msg = msg
			if err != nil {
				resp.Error = true
				resp.ErrorMsg = err.Error()
			}

		case "reload-zones":
			msg, err := conf.ReloadZoneConfig()
			resp.Msg = msg
			if err != nil {
				resp.Error = true
				resp.ErrorMsg = err.Error()
			}

		case "stop":
			resp.Status = "stopping"
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
			go func() {
				time.Sleep(500 * time.Millisecond)
				conf.Internal.Stop()
			}()
			return

		default:
			resp.Error = true
			resp.ErrorMsg = fmt.Sprintf("unknown command: %s", cp.Command)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func APIping(appName string, bootTime time.Time) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"app":       appName,
			"uptime":    time.Since(bootTime).String(),
			"bootstamp": bootTime,
		})
	}
}

func SetupRouter(conf *ddns.Config) *mux.Router {
	r := mux.NewRouter().StrictSlash(true)

	sr := r.PathPrefix("/api/v1").Headers("X-API-Key", conf.Apiserver.ApiKey).Subrouter()
	sr.HandleFunc("/ping", APIping("ddnsd", conf.App.ServerBootTime)).Methods("POST")
	sr.HandleFunc("/command", APIcommand(conf)).Methods("POST")

	return r
}

func walkRoutes(router *mux.Router) {
	walker := func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		path, _ := route.GetPathTemplate()
		methods, _ := route.GetMethods()
		for m := range methods {
			log.Printf("%-6s %s\n", methods[m], path)
		}
		return nil
	}
	if err := router.Walk(walker); err != nil {
		log.Printf("SetupRouter: error walking routes: %v", err)
	}
}

// APIdispatcher starts the admin HTTP API on every configured address. It
// never mutates zone data: all writes go through the DNS UPDATE path.
func APIdispatcher(conf *ddns.Config, done <-chan struct{}) {
	router := SetupRouter(conf)
	walkRoutes(router)

	for _, address := range conf.Apiserver.Addresses {
		addr := address
		go func() {
			log.Printf("APIdispatcher: listening on %s", addr)
			if err := http.ListenAndServe(addr, router); err != nil {
				log.Printf("APIdispatcher: %s: %v", addr, err)
			}
		}()
	}
}
