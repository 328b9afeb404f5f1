/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package ddns

import (
	"log"

	"github.com/miekg/dns"
)

// ZoneRole is the result of a ZoneConfig lookup (spec.md §6).
type ZoneRole uint8

const (
	RolePrimary ZoneRole = iota
	RoleSecondary
	RoleNotFound
)

// resolveZoneRole implements ZoneConfig.find_zone(name, class): it looks
// the zone up in the registry and reports whether we're PRIMARY,
// SECONDARY, or don't serve it at all.
// resolveZoneRole looks up a zone by the (name, class) pair carried in the
// update's zone section. The zone registry only ever holds class IN zones
// (no zone config loader in this repository accepts anything else), so a
// non-IN request can never match and is treated the same as an unknown
// zone rather than silently resolved on name alone.
func resolveZoneRole(zname string, zclass uint16) (ZoneRole, *ZoneData) {
	if zclass != dns.ClassINET {
		return RoleNotFound, nil
	}
	zd, ok := Zones.Get(dns.Fqdn(zname))
	if !ok {
		return RoleNotFound, nil
	}
	if zd.ZoneType == Secondary {
		return RoleSecondary, zd
	}
	return RolePrimary, zd
}

// ResolveZone is the Zone Resolver (spec.md §4.2). Input is the request
// message; output is the DataSource-bound ZoneData plus zname/zclass, or
// a terminal rcode on failure.
func ResolveZone(r *dns.Msg) (zd *ZoneData, zname string, zclass uint16, rcode int, suppressLog bool) {
	if len(r.Question) != 1 {
		return nil, "", 0, dns.RcodeFormatError, false
	}
	q := r.Question[0]
	if q.Qtype != dns.TypeSOA {
		return nil, "", 0, dns.RcodeFormatError, false
	}
	zname = dns.Fqdn(q.Name)
	zclass = q.Qclass

	role, zonedata := resolveZoneRole(zname, zclass)
	switch role {
	case RolePrimary:
		if Globals.Debug {
			log.Printf("ResolveZone: %s resolved to primary zone %s", zname, zonedata.ZoneName)
		}
		return zonedata, zname, zclass, dns.RcodeSuccess, false
	case RoleSecondary:
		// Forwarding an update to the primary is out of scope (spec.md §1);
		// the engine reports NOTIMP and stays quiet about it.
		return nil, zname, zclass, dns.RcodeNotImplemented, true
	default:
		return nil, zname, zclass, dns.RcodeNotAuth, false
	}
}
