/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package ddns

import (
	"log"

	"github.com/miekg/dns"
)

// ApplyUpdate is the Update Applier (RFC 2136 §3.4.2, spec.md §4.5). It
// opens a Diff in single-update mode, runs SOA finalization followed by
// per-record dispatch over the UPDATE section, and commits. Returns
// NOERROR on a successful commit, or SERVFAIL on any backend failure.
// Every existence read goes through zf; only the Diff writes back to zd.
func ApplyUpdate(zd *ZoneData, zf ZoneFinder, journal *JournalDB, updates []dns.RR, captured *dns.SOA, zclass uint16) int {
	diff, err := NewDiff(zd, journal)
	if err != nil {
		log.Printf("ApplyUpdate: zone %s: %v", zd.ZoneName, err)
		return dns.RcodeServerFailure
	}

	// Phase A: SOA finalization always runs first (spec.md §4.5-A).
	status, soaSet, _ := zf.Find(zd.ZoneName, dns.TypeSOA, NoWildcard|FindGlueOK)
	if status != FindSuccess || soaSet == nil || len(soaSet.RRs) == 0 {
		diff.Abandon()
		log.Printf("ApplyUpdate: zone %s: no apex SOA", zd.ZoneName)
		return dns.RcodeServerFailure
	}
	oldSOA := soaSet.RRs[0].(*dns.SOA)
	newSOA := oldSOA
	if captured != nil {
		newSOA = dns.Copy(captured).(*dns.SOA)
		newSOA.Hdr.Name = zd.ZoneName
	}
	diff.Delete(oldSOA)
	diff.Add(newSOA)

	// Phase B: per-record dispatch. NONE-class deletions of the apex NS
	// RRset are pulled out of the loop and applied as one group: RFC 2136
	// says deleting a requested Rdata must not empty the apex NS set, and
	// that check has to run against a single decrementing copy of the
	// RRset for the whole update, not once per RR (see
	// applyDeleteApexNSGroup).
	var apexNSDeletes []dns.RR
	for _, rr := range updates {
		hdr := rr.Header()
		if hdr.Rrtype == dns.TypeSOA && hdr.Class == zclass {
			continue // handled in phase A
		}
		if hdr.Class == dns.ClassNONE && hdr.Name == zd.ZoneName && hdr.Rrtype == dns.TypeNS {
			apexNSDeletes = append(apexNSDeletes, rr)
			continue
		}

		switch hdr.Class {
		case zclass:
			applyAddDispatch(zd, zf, diff, rr)

		case dns.ClassANY:
			if hdr.Rrtype == dns.TypeANY {
				applyDeleteAllAtName(zd, zf, diff, hdr.Name)
			} else {
				applyDeleteRRset(zd, zf, diff, hdr.Name, hdr.Rrtype)
			}

		case dns.ClassNONE:
			applyDeleteRR(zd, diff, rr, zclass)
		}
	}
	if len(apexNSDeletes) > 0 {
		applyDeleteApexNSGroup(zd, zf, diff, apexNSDeletes, zclass)
	}

	if err := diff.Commit(); err != nil {
		log.Printf("ApplyUpdate: zone %s: commit failed: %v", zd.ZoneName, err)
		return dns.RcodeServerFailure
	}
	return dns.RcodeSuccess
}

// applyAddDispatch implements the zclass "add RRs to RRset" branch,
// including CNAME coherence (spec.md §4.5-B).
func applyAddDispatch(zd *ZoneData, zf ZoneFinder, diff *Diff, rr dns.RR) {
	hdr := rr.Header()
	_, existing, _ := zf.Find(hdr.Name, hdr.Rrtype, NoWildcard|FindGlueOK)

	isCNAMEUpdate := hdr.Rrtype == dns.TypeCNAME
	_, existingCNAME, _ := zf.Find(hdr.Name, dns.TypeCNAME, NoWildcard|FindGlueOK)
	existingIsCNAME := existingCNAME != nil && len(existingCNAME.RRs) > 0

	if isCNAMEUpdate && !existingIsCNAME {
		// Non-CNAME data already present at this name: skip to preserve
		// coherence (can't coexist).
		_, allOthers, _ := zf.FindAll(hdr.Name, NoWildcard|FindGlueOK)
		for _, s := range allOthers {
			if s.RRtype != dns.TypeCNAME && len(s.RRs) > 0 {
				return
			}
		}
	}
	if !isCNAMEUpdate && existingIsCNAME {
		return // skip: CNAME already present, non-CNAME update rejected
	}
	if isCNAMEUpdate && existingIsCNAME {
		for _, old := range existingCNAME.RRs {
			diff.Delete(old)
		}
		diff.Add(rr)
		return
	}

	if existing != nil {
		for _, old := range existing.RRs {
			if dns.IsDuplicate(old, rr) {
				return // already present
			}
		}
	}
	diff.Add(rr)
}

// applyDeleteAllAtName is class=ANY, type=ANY: delete all RRsets at name,
// protecting the apex SOA/NS.
func applyDeleteAllAtName(zd *ZoneData, zf ZoneFinder, diff *Diff, name string) {
	_, sets, _ := zf.FindAll(name, NoWildcard|FindGlueOK)
	atApex := name == zd.ZoneName
	for _, rrset := range sets {
		if atApex && (rrset.RRtype == dns.TypeSOA || rrset.RRtype == dns.TypeNS) {
			continue
		}
		for _, rr := range rrset.RRs {
			diff.Delete(rr)
		}
	}
}

// applyDeleteRRset is class=ANY, type=T: delete RRset(name,T), protecting
// the apex SOA/NS.
func applyDeleteRRset(zd *ZoneData, zf ZoneFinder, diff *Diff, name string, rrtype uint16) {
	if name == zd.ZoneName && (rrtype == dns.TypeSOA || rrtype == dns.TypeNS) {
		return
	}
	status, rrset, _ := zf.Find(name, rrtype, NoWildcard|FindGlueOK)
	if status != FindSuccess || rrset == nil {
		return
	}
	for _, rr := range rrset.RRs {
		diff.Delete(rr)
	}
}

// applyDeleteRR is class=NONE: delete specific RRs, re-tagged to zclass
// (Rdata class is immutable; reconstruct via dns.Copy rather than
// mutating in place, per spec.md §9). The apex NS case is handled
// separately by applyDeleteApexNSGroup and never reaches here.
func applyDeleteRR(zd *ZoneData, diff *Diff, rr dns.RR, zclass uint16) {
	hdr := rr.Header()
	if hdr.Name == zd.ZoneName && hdr.Rrtype == dns.TypeSOA {
		return
	}
	retagged := dns.Copy(rr)
	retagged.Header().Class = zclass
	diff.Delete(retagged)
}

// applyDeleteApexNSGroup enforces invariant 4 (never let a NONE-class
// deletion empty the apex NS RRset) across every such deletion in a
// single update. The existing RRset is copied once and decremented as
// each requested Rdata is matched against it, so that deleting several
// NS records in one update still leaves at least one NS behind, rather
// than each RR independently seeing a full RRset and all of them
// succeeding.
func applyDeleteApexNSGroup(zd *ZoneData, zf ZoneFinder, diff *Diff, wanted []dns.RR, zclass uint16) {
	status, rrset, _ := zf.Find(zd.ZoneName, dns.TypeNS, NoWildcard|FindGlueOK)
	if status != FindSuccess || rrset == nil {
		return
	}
	remaining := make([]dns.RR, len(rrset.RRs))
	copy(remaining, rrset.RRs)

	for _, rr := range wanted {
		retagged := dns.Copy(rr)
		retagged.Header().Class = zclass
		for i, cur := range remaining {
			if dns.IsDuplicate(cur, retagged) {
				if len(remaining) <= 1 {
					break // would leave zero NS at the apex: skip this one
				}
				remaining = append(remaining[:i], remaining[i+1:]...)
				diff.Delete(cur)
				break
			}
		}
	}
}
