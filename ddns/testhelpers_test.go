package ddns

import (
	"testing"

	"github.com/miekg/dns"
)

// newTestZone builds a ready, in-memory primary zone with an apex SOA
// and NS record, the minimum every test in this package starts from.
func newTestZone(t *testing.T, name string) *ZoneData {
	t.Helper()
	zd := NewZoneData(name, Primary)
	zd.SetOption(OptAllowUpdates, true)

	soa, err := dns.NewRR(zd.ZoneName + " 3600 IN SOA ns1." + zd.ZoneName + " hostmaster." + zd.ZoneName + " 1 3600 1800 604800 3600")
	if err != nil {
		t.Fatalf("newTestZone: %v", err)
	}
	ns, err := dns.NewRR(zd.ZoneName + " 3600 IN NS ns1." + zd.ZoneName)
	if err != nil {
		t.Fatalf("newTestZone: %v", err)
	}
	mustAdd(t, zd, soa)
	mustAdd(t, zd, ns)
	zd.Ready = true
	Zones.Set(zd.ZoneName, zd)
	return zd
}

// testFinder returns the ZoneFinder the update pipeline would resolve for
// zd, for tests exercising EvaluatePrerequisites/ApplyUpdate directly.
func testFinder(zd *ZoneData) ZoneFinder {
	return &concurrentZoneFinder{zd: zd}
}

// mustAdd inserts rr directly into zd's store, bypassing the Diff Buffer,
// for seeding zone fixtures before a test exercises the update pipeline.
func mustAdd(t *testing.T, zd *ZoneData, rr dns.RR) {
	t.Helper()
	if err := applyAdd(zd, rr); err != nil {
		t.Fatalf("mustAdd: %v", err)
	}
}

func mustRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	if err != nil {
		t.Fatalf("mustRR(%q): %v", s, err)
	}
	return rr
}

// emptyRR builds a zero-rdata record of the given type, the shape RFC
// 2136 prerequisites use for "name is in use" / "rrset exists (value
// independent)" / "rrset does not exist" tests, where RDLENGTH is 0 and
// the zone-file text form has nothing to parse after the type.
func emptyRR(t *testing.T, name string, rrtype, class uint16) dns.RR {
	t.Helper()
	hdr := dns.RR_Header{Name: dns.Fqdn(name), Rrtype: rrtype, Class: class, Ttl: 0}
	switch rrtype {
	case dns.TypeANY:
		return &dns.ANY{Hdr: hdr}
	case dns.TypeNS:
		return &dns.NS{Hdr: hdr}
	case dns.TypeSOA:
		return &dns.SOA{Hdr: hdr}
	case dns.TypeA:
		return &dns.A{Hdr: hdr}
	case dns.TypeCNAME:
		return &dns.CNAME{Hdr: hdr}
	default:
		t.Fatalf("emptyRR: unsupported type %d", rrtype)
		return nil
	}
}
