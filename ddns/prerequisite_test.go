package ddns

import (
	"testing"

	"github.com/miekg/dns"
)

func TestEvaluatePrerequisitesNameExists(t *testing.T) {
	zd := newTestZone(t, "prereq-exists.example.")
	defer Zones.Remove(zd.ZoneName)

	prereq := emptyRR(t, zd.ZoneName, dns.TypeANY, dns.ClassANY)
	rcode := EvaluatePrerequisites(zd, testFinder(zd), []dns.RR{prereq}, dns.ClassINET)
	if rcode != dns.RcodeSuccess {
		t.Errorf("EvaluatePrerequisites: rcode = %s, want NOERROR", dns.RcodeToString[rcode])
	}
}

func TestEvaluatePrerequisitesNameNotExists(t *testing.T) {
	zd := newTestZone(t, "prereq-notexists.example.")
	defer Zones.Remove(zd.ZoneName)

	prereq := emptyRR(t, "nosuchname."+zd.ZoneName, dns.TypeANY, dns.ClassANY)
	rcode := EvaluatePrerequisites(zd, testFinder(zd), []dns.RR{prereq}, dns.ClassINET)
	if rcode != dns.RcodeNameError {
		t.Errorf("EvaluatePrerequisites: rcode = %s, want NXDOMAIN", dns.RcodeToString[rcode])
	}
}

func TestEvaluatePrerequisitesRRsetExists(t *testing.T) {
	zd := newTestZone(t, "prereq-rrset.example.")
	defer Zones.Remove(zd.ZoneName)

	prereq := emptyRR(t, zd.ZoneName, dns.TypeNS, dns.ClassANY)
	rcode := EvaluatePrerequisites(zd, testFinder(zd), []dns.RR{prereq}, dns.ClassINET)
	if rcode != dns.RcodeSuccess {
		t.Errorf("EvaluatePrerequisites: rcode = %s, want NOERROR", dns.RcodeToString[rcode])
	}
}

func TestEvaluatePrerequisitesRRsetNotExists(t *testing.T) {
	zd := newTestZone(t, "prereq-rrset-none.example.")
	defer Zones.Remove(zd.ZoneName)

	prereq := emptyRR(t, zd.ZoneName, dns.TypeNS, dns.ClassNONE)
	rcode := EvaluatePrerequisites(zd, testFinder(zd), []dns.RR{prereq}, dns.ClassINET)
	if rcode != dns.RcodeYXRrset {
		t.Errorf("EvaluatePrerequisites: rcode = %s, want YXRRSET", dns.RcodeToString[rcode])
	}
}

func TestEvaluatePrerequisitesExactMatch(t *testing.T) {
	zd := newTestZone(t, "prereq-exact.example.")
	defer Zones.Remove(zd.ZoneName)

	want := mustRR(t, zd.ZoneName+" 0 IN NS ns1."+zd.ZoneName)
	rcode := EvaluatePrerequisites(zd, testFinder(zd), []dns.RR{want}, dns.ClassINET)
	if rcode != dns.RcodeSuccess {
		t.Errorf("EvaluatePrerequisites: rcode = %s, want NOERROR", dns.RcodeToString[rcode])
	}

	wrong := mustRR(t, zd.ZoneName+" 0 IN NS ns2."+zd.ZoneName)
	rcode = EvaluatePrerequisites(zd, testFinder(zd), []dns.RR{wrong}, dns.ClassINET)
	if rcode != dns.RcodeNXRrset {
		t.Errorf("EvaluatePrerequisites: rcode = %s, want NXRRSET for mismatched Rdata", dns.RcodeToString[rcode])
	}
}

func TestEvaluatePrerequisitesExactMatchOrderIndependent(t *testing.T) {
	zd := newTestZone(t, "prereq-order.example.")
	defer Zones.Remove(zd.ZoneName)

	a1 := mustRR(t, "www."+zd.ZoneName+" 3600 IN A 10.0.0.1")
	a2 := mustRR(t, "www."+zd.ZoneName+" 3600 IN A 10.0.0.2")
	mustAdd(t, zd, a1)
	mustAdd(t, zd, a2)

	reversed := mustRR(t, "www."+zd.ZoneName+" 0 IN A 10.0.0.2")
	forward := mustRR(t, "www."+zd.ZoneName+" 0 IN A 10.0.0.1")
	rcode := EvaluatePrerequisites(zd, testFinder(zd), []dns.RR{reversed, forward}, dns.ClassINET)
	if rcode != dns.RcodeSuccess {
		t.Errorf("EvaluatePrerequisites: rcode = %s, want NOERROR regardless of prereq Rdata order", dns.RcodeToString[rcode])
	}
}

func TestEvaluatePrerequisitesNotZone(t *testing.T) {
	zd := newTestZone(t, "prereq-outofzone.example.")
	defer Zones.Remove(zd.ZoneName)

	prereq := emptyRR(t, "outside.other-zone.example.", dns.TypeANY, dns.ClassANY)
	rcode := EvaluatePrerequisites(zd, testFinder(zd), []dns.RR{prereq}, dns.ClassINET)
	if rcode != dns.RcodeNotZone {
		t.Errorf("EvaluatePrerequisites: rcode = %s, want NOTZONE", dns.RcodeToString[rcode])
	}
}

func TestEvaluatePrerequisitesNonzeroTTLRejected(t *testing.T) {
	zd := newTestZone(t, "prereq-ttl.example.")
	defer Zones.Remove(zd.ZoneName)

	prereq := emptyRR(t, zd.ZoneName, dns.TypeANY, dns.ClassANY)
	prereq.Header().Ttl = 60
	rcode := EvaluatePrerequisites(zd, testFinder(zd), []dns.RR{prereq}, dns.ClassINET)
	if rcode != dns.RcodeFormatError {
		t.Errorf("EvaluatePrerequisites: rcode = %s, want FORMERR", dns.RcodeToString[rcode])
	}
}
