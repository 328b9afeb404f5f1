/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package ddns

import "github.com/miekg/dns"

// PrescanResult is what Prescan hands the Update Applier: the first
// offending rcode (NOERROR if clean) plus the captured candidate SOA, if
// any (spec.md §4.4, last-writer-wins).
type PrescanResult struct {
	Rcode        int
	CapturedSOA  *dns.SOA
}

// Prescan performs the RFC 2136 §3.4.1 single pass over the UPDATE
// section (the message's Ns/Authority section), validating classes and
// types before any mutation is applied.
func Prescan(zd *ZoneData, updates []dns.RR, zclass uint16) PrescanResult {
	var captured *dns.SOA

	for _, rr := range updates {
		hdr := rr.Header()
		if !zd.InZone(hdr.Name) {
			return PrescanResult{Rcode: dns.RcodeNotZone}
		}

		switch hdr.Class {
		case zclass:
			if hdr.Rrtype >= 249 {
				return PrescanResult{Rcode: dns.RcodeFormatError}
			}
			if hdr.Rrtype == dns.TypeSOA {
				if soa, ok := rr.(*dns.SOA); ok {
					captured = soa // last-writer-wins
				}
			}

		case dns.ClassANY:
			if hdr.Ttl != 0 {
				return PrescanResult{Rcode: dns.RcodeFormatError}
			}
			if !rdataEmpty(rr) {
				return PrescanResult{Rcode: dns.RcodeFormatError}
			}
			if hdr.Rrtype >= 249 && hdr.Rrtype <= 254 {
				return PrescanResult{Rcode: dns.RcodeFormatError}
			}

		case dns.ClassNONE:
			if hdr.Ttl != 0 {
				return PrescanResult{Rcode: dns.RcodeFormatError}
			}
			if hdr.Rrtype >= 249 {
				return PrescanResult{Rcode: dns.RcodeFormatError}
			}

		default:
			return PrescanResult{Rcode: dns.RcodeFormatError}
		}
	}

	return PrescanResult{Rcode: dns.RcodeSuccess, CapturedSOA: captured}
}
