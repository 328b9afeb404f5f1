package ddns

import (
	"testing"

	"github.com/miekg/dns"
)

func TestDiffCommitAppliesAdd(t *testing.T) {
	zd := newTestZone(t, "diff-commit.example.")
	defer Zones.Remove(zd.ZoneName)
	journal := newTestJournal(t)

	diff, err := NewDiff(zd, journal)
	if err != nil {
		t.Fatalf("NewDiff: %v", err)
	}
	diff.Add(mustRR(t, "host."+zd.ZoneName+" 3600 IN A 192.0.2.1"))
	if err := diff.Commit(); err != nil {
		t.Fatalf("Diff.Commit: %v", err)
	}

	rrset, err := zd.GetRRset("host."+zd.ZoneName, dns.TypeA)
	if err != nil || rrset == nil || len(rrset.RRs) != 1 {
		t.Fatalf("Diff.Commit: record not present after commit: %v %v", rrset, err)
	}
}

func TestDiffSingleUpdateMode(t *testing.T) {
	zd := newTestZone(t, "diff-singleupdate.example.")
	defer Zones.Remove(zd.ZoneName)
	journal := newTestJournal(t)

	diff1, err := NewDiff(zd, journal)
	if err != nil {
		t.Fatalf("NewDiff (first): %v", err)
	}
	if _, err := NewDiff(zd, journal); err == nil {
		t.Errorf("NewDiff: expected an error opening a second diff while one is already in flight")
	}
	diff1.Abandon()

	if _, err := NewDiff(zd, journal); err != nil {
		t.Errorf("NewDiff: expected success after the first diff was abandoned: %v", err)
	}
}

func TestDiffAbandonDiscardsChanges(t *testing.T) {
	zd := newTestZone(t, "diff-abandon.example.")
	defer Zones.Remove(zd.ZoneName)
	journal := newTestJournal(t)

	diff, err := NewDiff(zd, journal)
	if err != nil {
		t.Fatalf("NewDiff: %v", err)
	}
	diff.Add(mustRR(t, "host."+zd.ZoneName+" 3600 IN A 192.0.2.1"))
	diff.Abandon()

	rrset, _ := zd.GetRRset("host."+zd.ZoneName, dns.TypeA)
	if rrset != nil {
		t.Errorf("Diff.Abandon: record present after abandon, expected no-op")
	}
}

// The journal preserves the interleaved order Add/Delete were called in,
// not one batch of every delete followed by one batch of every add.
func TestDiffCommitPreservesCallOrderInJournal(t *testing.T) {
	zd := newTestZone(t, "diff-order.example.")
	defer Zones.Remove(zd.ZoneName)
	journal := newTestJournal(t)

	a := mustRR(t, "host."+zd.ZoneName+" 3600 IN A 192.0.2.1")
	mustAdd(t, zd, a)

	diff, err := NewDiff(zd, journal)
	if err != nil {
		t.Fatalf("NewDiff: %v", err)
	}
	b := mustRR(t, "host."+zd.ZoneName+" 3600 IN A 192.0.2.2")
	diff.Delete(a)
	diff.Add(b)
	c := mustRR(t, "host."+zd.ZoneName+" 3600 IN A 192.0.2.3")
	diff.Add(c)
	if err := diff.Commit(); err != nil {
		t.Fatalf("Diff.Commit: %v", err)
	}

	rows, err := journal.DB.Query(`SELECT op, rr FROM DiffJournal WHERE zonename = ? ORDER BY id`, zd.ZoneName)
	if err != nil {
		t.Fatalf("query journal: %v", err)
	}
	defer rows.Close()

	wantOps := []string{"del", "add", "add"}
	var gotOps []string
	for rows.Next() {
		var op, rr string
		if err := rows.Scan(&op, &rr); err != nil {
			t.Fatalf("scan: %v", err)
		}
		gotOps = append(gotOps, op)
	}
	if len(gotOps) != len(wantOps) {
		t.Fatalf("journal rows = %v, want %v", gotOps, wantOps)
	}
	for i := range wantOps {
		if gotOps[i] != wantOps[i] {
			t.Errorf("journal op order = %v, want %v (call order: delete, add, add)", gotOps, wantOps)
		}
	}
}

func TestDiffCommitDeduplicatesAdds(t *testing.T) {
	zd := newTestZone(t, "diff-dedup.example.")
	defer Zones.Remove(zd.ZoneName)
	journal := newTestJournal(t)

	rr := mustRR(t, "host."+zd.ZoneName+" 3600 IN A 192.0.2.1")
	mustAdd(t, zd, rr)

	diff, err := NewDiff(zd, journal)
	if err != nil {
		t.Fatalf("NewDiff: %v", err)
	}
	diff.Add(mustRR(t, "host."+zd.ZoneName+" 3600 IN A 192.0.2.1"))
	if err := diff.Commit(); err != nil {
		t.Fatalf("Diff.Commit: %v", err)
	}

	rrset, err := zd.GetRRset("host."+zd.ZoneName, dns.TypeA)
	if err != nil || rrset == nil || len(rrset.RRs) != 1 {
		t.Errorf("Diff.Commit: adding a duplicate Rdata produced %d records, want 1", len(rrset.RRs))
	}
}
