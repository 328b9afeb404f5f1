/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */

package main

import (
	"log"

	"github.com/miekg/dns"

	"github.com/axfrnet/ddnsd/ddns"
)

var zonestore = ddns.ConcurrentZoneStore{}

// DnsEngine starts a UDP and TCP listener per configured address and
// dispatches incoming messages to createHandler. UPDATE requests are
// queued for the UpdaterEngine; QUERY requests are answered directly by
// ApexResponder, a minimal read-only responder that exists only so the
// engine has a transport to exercise (spec.md non-goals exclude full
// wire-protocol query handling: referrals, wildcards, DNSSEC).
func DnsEngine(conf *ddns.Config) error {
	addresses := conf.DnsEngine.Addresses
	dns.HandleFunc(".", createHandler(conf))

	log.Printf("DnsEngine: addresses: %v", addresses)
	for _, addr := range addresses {
		for _, net := range []string{"udp", "tcp"} {
			go func(addr, net string) {
				server := &dns.Server{
					Addr: addr,
					Net:  net,
				}
				server.UDPSize = dns.DefaultMsgSize
				if err := server.ListenAndServe(); err != nil {
					log.Printf("DnsEngine: failed to start %s listener on %s: %v", net, addr, err)
				}
			}(addr, net)
		}
	}
	return nil
}

func createHandler(conf *ddns.Config) func(w dns.ResponseWriter, r *dns.Msg) {
	dnsupdateq := conf.Internal.DnsUpdateQ

	return func(w dns.ResponseWriter, r *dns.Msg) {
		if len(r.Question) == 0 {
			m := new(dns.Msg)
			m.SetRcode(r, dns.RcodeFormatError)
			w.WriteMsg(m)
			return
		}
		qname := r.Question[0].Name
		log.Printf("DnsHandler: qname: %s opcode: %s", qname, dns.OpcodeToString[r.Opcode])

		switch r.Opcode {
		case dns.OpcodeUpdate:
			dnsupdateq <- ddns.DnsUpdateRequest{
				ResponseWriter: w,
				Msg:            r,
				Client:         w.RemoteAddr().String(),
			}
			return

		case dns.OpcodeQuery:
			qtype := r.Question[0].Qtype
			_, zf, zd := zonestore.FindZone(qname)
			if zf == nil {
				m := new(dns.Msg)
				m.SetRcode(r, dns.RcodeRefused)
				w.WriteMsg(m)
				return
			}
			if err := ApexResponder(w, r, zd, zf, qname, qtype); err != nil {
				log.Printf("DnsHandler: ApexResponder: %v", err)
			}
			return

		default:
			m := new(dns.Msg)
			m.SetRcode(r, dns.RcodeNotImplemented)
			w.WriteMsg(m)
		}
	}
}

// ApexResponder answers queries against the zone apex and any owner name,
// reading exclusively through the ZoneFinder a DataSource handed back for
// this zone. It does no delegation, wildcard, or DNSSEC processing.
func ApexResponder(w dns.ResponseWriter, r *dns.Msg, zd *ddns.ZoneData, zf ddns.ZoneFinder, qname string, qtype uint16) error {
	m := new(dns.Msg)
	m.SetReply(r)
	m.Authoritative = true

	if qtype == dns.TypeANY {
		status, sets, _ := zf.FindAll(qname, 0)
		if status != ddns.FindSuccess {
			if soa, err := zd.GetSOA(); err == nil {
				m.Ns = append(m.Ns, soa)
			}
			if status == ddns.FindNXDomain {
				m.Rcode = dns.RcodeNameError
			}
			return w.WriteMsg(m)
		}
		for _, rrset := range sets {
			m.Answer = append(m.Answer, rrset.RRs...)
		}
		return w.WriteMsg(m)
	}

	status, rrset, _ := zf.Find(qname, qtype, 0)
	if status != ddns.FindSuccess {
		if soa, err := zd.GetSOA(); err == nil {
			m.Ns = append(m.Ns, soa)
		}
		if status == ddns.FindNXDomain {
			m.Rcode = dns.RcodeNameError
		}
		return w.WriteMsg(m)
	}
	m.Answer = append(m.Answer, rrset.RRs...)
	return w.WriteMsg(m)
}
