/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package ddns

import (
	"log"

	"github.com/miekg/dns"
)

// EvaluatePrerequisites walks the PREREQUISITE section (the UPDATE
// message's Answer section) and applies the RFC 2136 §2.4/§3.2 dispatch
// table. zclass-class records sharing (name,type) form one RRset-exists-
// with-value group and are compared together; ANY/NONE records are
// single-shot regardless of how they're grouped on the wire.
//
// All existence/value reads go through zf (a ZoneFinder), not zd directly,
// the way the backend this was distilled from routes every prereq check
// through datasrc_client.find_zone()/finder.find(). zd itself is only
// consulted for InZone, a zone-membership question the ZoneFinder
// interface doesn't answer.
func EvaluatePrerequisites(zd *ZoneData, zf ZoneFinder, prereqs []dns.RR, zclass uint16) int {
	valueGroups := map[string][]dns.RR{}

	for _, rr := range prereqs {
		hdr := rr.Header()
		if !zd.InZone(hdr.Name) {
			if Globals.Debug {
				log.Printf("EvaluatePrerequisites: %s not in zone %s", hdr.Name, zd.ZoneName)
			}
			return dns.RcodeNotZone
		}

		switch hdr.Class {
		case dns.ClassANY:
			if hdr.Ttl != 0 || !rdataEmpty(rr) {
				return dns.RcodeFormatError
			}
			if hdr.Rrtype == dns.TypeANY {
				if status, _, _ := zf.FindAll(hdr.Name, NoWildcard|FindGlueOK); status == FindNXDomain {
					return dns.RcodeNameError // NXDOMAIN
				}
			} else {
				status, rrset, _ := zf.Find(hdr.Name, hdr.Rrtype, NoWildcard|FindGlueOK)
				if status != FindSuccess || rrset == nil || len(rrset.RRs) == 0 {
					return dns.RcodeNXRrset
				}
			}

		case dns.ClassNONE:
			if hdr.Ttl != 0 || !rdataEmpty(rr) {
				return dns.RcodeFormatError
			}
			if hdr.Rrtype == dns.TypeANY {
				if status, _, _ := zf.FindAll(hdr.Name, NoWildcard|FindGlueOK); status != FindNXDomain {
					return dns.RcodeYXDomain
				}
			} else {
				status, rrset, _ := zf.Find(hdr.Name, hdr.Rrtype, NoWildcard|FindGlueOK)
				if status == FindSuccess && rrset != nil && len(rrset.RRs) > 0 {
					return dns.RcodeYXRrset
				}
			}

		case zclass:
			if hdr.Ttl != 0 {
				return dns.RcodeFormatError
			}
			key := hdr.Name + "/" + dns.TypeToString[hdr.Rrtype]
			valueGroups[key] = append(valueGroups[key], rr)

		default:
			return dns.RcodeFormatError
		}
	}

	for _, group := range valueGroups {
		hdr := group[0].Header()
		status, rrset, _ := zf.Find(hdr.Name, hdr.Rrtype, NoWildcard|FindGlueOK)
		if status != FindSuccess || rrset == nil || len(rrset.RRs) == 0 {
			return dns.RcodeNXRrset
		}
		if !rrsetMatchesExactly(rrset.RRs, group) {
			return dns.RcodeNXRrset
		}
	}
	return dns.RcodeSuccess
}

// rdataEmpty reports whether rr carries no rdata, as required of the
// prereq records for the ANY/NONE classes.
func rdataEmpty(rr dns.RR) bool {
	return rr.String() == rr.Header().String()
}

// rrsetMatchesExactly implements the "exact Rdata multiset" prereq test:
// order-independent, multiplicity-sensitive equality between the stored
// RRset and the queried group. A mutable shallow copy of the stored
// Rdata is consumed as matches are found; success requires every queried
// Rdata to be matched and the stored copy to end up exactly exhausted.
func rrsetMatchesExactly(stored []dns.RR, want []dns.RR) bool {
	if len(stored) != len(want) {
		return false
	}
	remaining := make([]dns.RR, len(stored))
	copy(remaining, stored)

	for _, w := range want {
		found := -1
		for i, rr := range remaining {
			if dns.IsDuplicate(rr, w) {
				found = i
				break
			}
		}
		if found == -1 {
			return false
		}
		remaining = append(remaining[:found], remaining[found+1:]...)
	}
	return len(remaining) == 0
}
