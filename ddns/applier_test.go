package ddns

import (
	"testing"

	"github.com/miekg/dns"
)

func newTestJournal(t *testing.T) *JournalDB {
	t.Helper()
	db, err := NewJournalDB(t.TempDir() + "/journal.db")
	if err != nil {
		t.Fatalf("newTestJournal: %v", err)
	}
	return db
}

func TestApplyUpdateAddsRecord(t *testing.T) {
	zd := newTestZone(t, "apply-add.example.")
	defer Zones.Remove(zd.ZoneName)
	journal := newTestJournal(t)

	add := mustRR(t, "host."+zd.ZoneName+" 3600 IN A 192.0.2.1")
	rcode := ApplyUpdate(zd, testFinder(zd), journal, []dns.RR{add}, nil, dns.ClassINET)
	if rcode != dns.RcodeSuccess {
		t.Fatalf("ApplyUpdate: rcode = %s, want NOERROR", dns.RcodeToString[rcode])
	}

	rrset, err := zd.GetRRset("host."+zd.ZoneName, dns.TypeA)
	if err != nil || rrset == nil || len(rrset.RRs) != 1 {
		t.Fatalf("ApplyUpdate: host A record not found after apply: %v %v", rrset, err)
	}
}

// ApplyUpdate leaves the serial unchanged when the update carries no
// candidate SOA, per spec's "no silent increment" rule.
func TestApplyUpdateNoSerialChangeWithoutCandidate(t *testing.T) {
	zd := newTestZone(t, "apply-serial.example.")
	defer Zones.Remove(zd.ZoneName)
	journal := newTestJournal(t)

	before := zd.CurrentSerial
	add := mustRR(t, "host."+zd.ZoneName+" 3600 IN A 192.0.2.1")
	rcode := ApplyUpdate(zd, testFinder(zd), journal, []dns.RR{add}, nil, dns.ClassINET)
	if rcode != dns.RcodeSuccess {
		t.Fatalf("ApplyUpdate: rcode = %s, want NOERROR", dns.RcodeToString[rcode])
	}
	soa, err := zd.GetSOA()
	if err != nil {
		t.Fatalf("ApplyUpdate: GetSOA: %v", err)
	}
	if soa.Serial != before {
		t.Errorf("ApplyUpdate: serial changed from %d to %d with no candidate SOA supplied", before, soa.Serial)
	}
}

// ApplyUpdate honors a captured SOA verbatim, including a serial lower
// than the zone's current one: spec leaves RFC 1982 comparison as a
// future extension and requires honoring the supplied value as-is.
func TestApplyUpdateHonorsExplicitSOAVerbatim(t *testing.T) {
	zd := newTestZone(t, "apply-soa-explicit.example.")
	defer Zones.Remove(zd.ZoneName)
	journal := newTestJournal(t)

	zd.CurrentSerial = 100
	candidate := mustRR(t, zd.ZoneName+" 3600 IN SOA ns1."+zd.ZoneName+" hostmaster."+zd.ZoneName+" 5 3600 1800 604800 3600").(*dns.SOA)

	rcode := ApplyUpdate(zd, testFinder(zd), journal, nil, candidate, dns.ClassINET)
	if rcode != dns.RcodeSuccess {
		t.Fatalf("ApplyUpdate: rcode = %s", dns.RcodeToString[rcode])
	}

	soa, err := zd.GetSOA()
	if err != nil {
		t.Fatalf("GetSOA: %v", err)
	}
	if soa.Serial != 5 {
		t.Errorf("ApplyUpdate: serial = %d, want the captured candidate's serial (5) honored verbatim", soa.Serial)
	}
}

func TestApplyUpdateLastApexNSSurvives(t *testing.T) {
	zd := newTestZone(t, "apply-lastns.example.")
	defer Zones.Remove(zd.ZoneName)
	journal := newTestJournal(t)

	del := mustRR(t, zd.ZoneName+" 3600 IN NS ns1."+zd.ZoneName)
	del.Header().Class = dns.ClassNONE
	del.Header().Ttl = 0

	rcode := ApplyUpdate(zd, testFinder(zd), journal, []dns.RR{del}, nil, dns.ClassINET)
	if rcode != dns.RcodeSuccess {
		t.Fatalf("ApplyUpdate: rcode = %s", dns.RcodeToString[rcode])
	}

	rrset, err := zd.GetRRset(zd.ZoneName, dns.TypeNS)
	if err != nil || rrset == nil || len(rrset.RRs) != 1 {
		t.Fatalf("ApplyUpdate: expected the sole apex NS record to survive deletion, got %v", rrset)
	}
}

// A single update that asks to delete every apex NS record in one go must
// still leave one behind, the same as deleting them one at a time would:
// the "at least one survives" check has to run across the whole group of
// requested deletions, not independently per RR (each of which would see
// a full, unaware-of-its-siblings RRset and let all of them through).
func TestApplyUpdateMultiNSDeletionInOneUpdateLeavesOneBehind(t *testing.T) {
	zd := newTestZone(t, "apply-multins.example.")
	defer Zones.Remove(zd.ZoneName)
	journal := newTestJournal(t)

	mustAdd(t, zd, mustRR(t, zd.ZoneName+" 3600 IN NS ns2."+zd.ZoneName))
	mustAdd(t, zd, mustRR(t, zd.ZoneName+" 3600 IN NS ns3."+zd.ZoneName))

	del1 := mustRR(t, zd.ZoneName+" 3600 IN NS ns1."+zd.ZoneName)
	del1.Header().Class, del1.Header().Ttl = dns.ClassNONE, 0
	del2 := mustRR(t, zd.ZoneName+" 3600 IN NS ns2."+zd.ZoneName)
	del2.Header().Class, del2.Header().Ttl = dns.ClassNONE, 0
	del3 := mustRR(t, zd.ZoneName+" 3600 IN NS ns3."+zd.ZoneName)
	del3.Header().Class, del3.Header().Ttl = dns.ClassNONE, 0

	rcode := ApplyUpdate(zd, testFinder(zd), journal, []dns.RR{del1, del2, del3}, nil, dns.ClassINET)
	if rcode != dns.RcodeSuccess {
		t.Fatalf("ApplyUpdate: rcode = %s", dns.RcodeToString[rcode])
	}

	rrset, err := zd.GetRRset(zd.ZoneName, dns.TypeNS)
	if err != nil || rrset == nil || len(rrset.RRs) != 1 {
		t.Fatalf("ApplyUpdate: deleting 3 NS records from a 3-NS apex in one update left %v, want exactly 1 survivor", rrset)
	}
}

func TestApplyUpdateCNAMEExclusivity(t *testing.T) {
	zd := newTestZone(t, "apply-cname.example.")
	defer Zones.Remove(zd.ZoneName)
	journal := newTestJournal(t)

	a := mustRR(t, "host."+zd.ZoneName+" 3600 IN A 192.0.2.1")
	if rcode := ApplyUpdate(zd, testFinder(zd), journal, []dns.RR{a}, nil, dns.ClassINET); rcode != dns.RcodeSuccess {
		t.Fatalf("ApplyUpdate (seed A): rcode = %s", dns.RcodeToString[rcode])
	}

	cname := mustRR(t, "host."+zd.ZoneName+" 3600 IN CNAME target."+zd.ZoneName)
	if rcode := ApplyUpdate(zd, testFinder(zd), journal, []dns.RR{cname}, nil, dns.ClassINET); rcode != dns.RcodeSuccess {
		t.Fatalf("ApplyUpdate (CNAME add): rcode = %s", dns.RcodeToString[rcode])
	}

	rrset, _ := zd.GetRRset("host."+zd.ZoneName, dns.TypeCNAME)
	if rrset != nil && len(rrset.RRs) > 0 {
		t.Errorf("ApplyUpdate: CNAME accepted at a name with existing non-CNAME data")
	}
}

func TestApplyUpdateDuplicateAddWithinOneUpdateIsSetUnion(t *testing.T) {
	zd := newTestZone(t, "apply-dedup-within.example.")
	defer Zones.Remove(zd.ZoneName)
	journal := newTestJournal(t)

	a := mustRR(t, "host."+zd.ZoneName+" 3600 IN A 192.0.2.1")
	dup := mustRR(t, "host."+zd.ZoneName+" 3600 IN A 192.0.2.1")
	rcode := ApplyUpdate(zd, testFinder(zd), journal, []dns.RR{a, dup}, nil, dns.ClassINET)
	if rcode != dns.RcodeSuccess {
		t.Fatalf("ApplyUpdate: rcode = %s", dns.RcodeToString[rcode])
	}

	rrset, err := zd.GetRRset("host."+zd.ZoneName, dns.TypeA)
	if err != nil || rrset == nil || len(rrset.RRs) != 1 {
		t.Errorf("ApplyUpdate: adding the same Rdata twice in one update produced %d records, want 1", len(rrset.RRs))
	}
}

func TestApplyUpdateDeleteAllAtNamePreservesApexSOAAndNS(t *testing.T) {
	zd := newTestZone(t, "apply-deleteall.example.")
	defer Zones.Remove(zd.ZoneName)
	journal := newTestJournal(t)

	del := emptyRR(t, zd.ZoneName, dns.TypeANY, dns.ClassANY)
	rcode := ApplyUpdate(zd, testFinder(zd), journal, []dns.RR{del}, nil, dns.ClassINET)
	if rcode != dns.RcodeSuccess {
		t.Fatalf("ApplyUpdate: rcode = %s", dns.RcodeToString[rcode])
	}

	if _, err := zd.GetSOA(); err != nil {
		t.Errorf("ApplyUpdate: apex SOA removed by a delete-all-at-name update: %v", err)
	}
	rrset, err := zd.GetRRset(zd.ZoneName, dns.TypeNS)
	if err != nil || rrset == nil || len(rrset.RRs) == 0 {
		t.Errorf("ApplyUpdate: apex NS removed by a delete-all-at-name update")
	}
}
