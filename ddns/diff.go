/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package ddns

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/miekg/dns"
)

var defaultJournalTables = map[string]string{
	"DiffJournal": `CREATE TABLE IF NOT EXISTS 'DiffJournal' (
id		  INTEGER PRIMARY KEY,
zonename	  TEXT,
fromserial	  INTEGER,
toserial	  INTEGER,
rr		  TEXT,
op		  TEXT,
UNIQUE (zonename, toserial, rr, op)
)`,
}

// NewJournalDB opens (creating if needed) the sqlite-backed commit
// journal that Diff.Commit() persists into for IXFR-out history.
func NewJournalDB(dbfile string) (*JournalDB, error) {
	if dbfile == "" {
		return nil, fmt.Errorf("NewJournalDB: db filename unspecified")
	}
	if _, err := os.Stat(dbfile); err != nil {
		if f, ferr := os.Create(dbfile); ferr == nil {
			f.Close()
		}
	}
	db, err := sql.Open("sqlite3", dbfile)
	if err != nil {
		return nil, fmt.Errorf("NewJournalDB: %w", err)
	}
	for name, schema := range defaultJournalTables {
		if _, err := db.Exec(schema); err != nil {
			return nil, fmt.Errorf("NewJournalDB: failed to create table %s: %w", name, err)
		}
	}
	return &JournalDB{DB: db}, nil
}

func (db *JournalDB) Begin(context string) (*Tx, error) {
	db.mu.Lock()
	if db.ctx != "" {
		db.mu.Unlock()
		return nil, fmt.Errorf("JournalDB.Begin(%s): transaction already in progress: %s", context, db.ctx)
	}
	db.ctx = context
	db.mu.Unlock()

	tx, err := db.DB.Begin()
	if err != nil {
		db.mu.Lock()
		db.ctx = ""
		db.mu.Unlock()
		return nil, fmt.Errorf("JournalDB.Begin(%s): %w", context, err)
	}
	return &Tx{Tx: tx, db: db, context: context}, nil
}

// diffOp is one buffered Add or Delete call, kept in call order so that
// Commit can replay the operations the way they were issued instead of
// batching all removes before all adds.
type diffOp struct {
	rr     dns.RR
	delete bool
}

// Diff is the Diff Buffer of spec.md §4.6: an ordered, journaling buffer
// bound to (DataSource, zone apex) that accumulates single-Rdata add/
// delete operations and commits them atomically. Single-update mode is
// enforced through ZoneData.diffInUse, a per-zone guard generalizing the
// teacher's process-wide KeyDB.Ctx guard (db.go) down to one zone.
type Diff struct {
	zd         *ZoneData
	journal    *JournalDB
	ops        []diffOp
	fromSerial uint32
	committed  bool
}

// NewDiff opens a Diff against zd, refusing composition with any other
// in-flight diff on the same zone (single-update mode).
func NewDiff(zd *ZoneData, journal *JournalDB) (*Diff, error) {
	zd.diffMu.Lock()
	defer zd.diffMu.Unlock()
	if zd.diffInUse {
		return nil, fmt.Errorf("NewDiff: zone %s already has a diff in progress", zd.ZoneName)
	}
	zd.diffInUse = true
	return &Diff{zd: zd, journal: journal, fromSerial: zd.CurrentSerial}, nil
}

// Add accepts a single-Rdata record for addition. Callers must decompose
// RRsets into individual RRs before calling, per spec.md §4.6.
func (d *Diff) Add(rr dns.RR) {
	d.ops = append(d.ops, diffOp{rr: rr})
}

// Delete accepts a single-Rdata record for removal.
func (d *Diff) Delete(rr dns.RR) {
	d.ops = append(d.ops, diffOp{rr: rr, delete: true})
}

// Abandon drops the buffered diff without applying or persisting
// anything, releasing the single-update-mode guard. Used when a caller
// cancels a session before commit (spec.md §5).
func (d *Diff) Abandon() {
	if d.committed {
		return
	}
	d.zd.diffMu.Lock()
	d.zd.diffInUse = false
	d.zd.diffMu.Unlock()
}

// Commit applies every buffered operation to the zone's in-memory store
// and persists the journal entry for IXFR-out, or does neither. Mutation
// of the in-memory store and the journal insert both happen only after
// both have been staged, so a journal failure leaves the zone state
// unchanged.
func (d *Diff) Commit() (err error) {
	defer func() {
		d.zd.diffMu.Lock()
		d.zd.diffInUse = false
		d.zd.diffMu.Unlock()
	}()

	var tx *Tx
	if d.journal != nil {
		tx, err = d.journal.Begin(d.zd.ZoneName)
		if err != nil {
			return fmt.Errorf("Diff.Commit: %w", err)
		}
		defer func() {
			if err != nil {
				if rerr := tx.Rollback(); rerr != nil {
					log.Printf("Diff.Commit: rollback error: %v", rerr)
				}
			}
		}()
	}

	for _, op := range d.ops {
		if op.delete {
			err = applyDelete(d.zd, op.rr)
		} else {
			err = applyAdd(d.zd, op.rr)
		}
		if err != nil {
			return fmt.Errorf("Diff.Commit: op failed: %w", err)
		}
	}

	if tx != nil {
		for _, op := range d.ops {
			verb := "add"
			if op.delete {
				verb = "del"
			}
			if _, err = tx.Exec(`INSERT OR REPLACE INTO DiffJournal (zonename, fromserial, toserial, rr, op) VALUES (?, ?, ?, ?, ?)`,
				d.zd.ZoneName, d.fromSerial, d.zd.CurrentSerial, op.rr.String(), verb); err != nil {
				return fmt.Errorf("Diff.Commit: journal insert failed: %w", err)
			}
		}
		if err = tx.Commit(); err != nil {
			return fmt.Errorf("Diff.Commit: %w", err)
		}
	}

	d.committed = true
	return nil
}

// applyAdd adds rr to its owner's RRset if not already present
// (dns.IsDuplicate), creating the owner if needed.
func applyAdd(zd *ZoneData, rr dns.RR) error {
	hdr := rr.Header()
	owner, err := zd.GetOwner(hdr.Name)
	if err != nil {
		return err
	}
	if owner == nil {
		owner = NewOwnerData(hdr.Name)
	}
	rrset, _ := owner.RRtypes.Get(hdr.Rrtype)
	rrset.Name = hdr.Name
	rrset.RRtype = hdr.Rrtype
	for _, old := range rrset.RRs {
		if dns.IsDuplicate(old, rr) {
			owner.RRtypes.Set(hdr.Rrtype, rrset)
			zd.AddOwner(owner)
			return nil
		}
	}
	rrset.RRs = append(rrset.RRs, dns.Copy(rr))
	owner.RRtypes.Set(hdr.Rrtype, rrset)
	zd.AddOwner(owner)
	if hdr.Rrtype == dns.TypeSOA {
		zd.CurrentSerial = rr.(*dns.SOA).Serial
	}
	return nil
}

// applyDelete removes one Rdata from its owner's RRset.
func applyDelete(zd *ZoneData, rr dns.RR) error {
	hdr := rr.Header()
	owner, err := zd.GetOwner(hdr.Name)
	if err != nil || owner == nil {
		return nil // deleting something absent is a no-op
	}
	rrset, exists := owner.RRtypes.Get(hdr.Rrtype)
	if !exists {
		return nil
	}
	kept := rrset.RRs[:0:0]
	for _, old := range rrset.RRs {
		if !dns.IsDuplicate(old, rr) {
			kept = append(kept, old)
		}
	}
	rrset.RRs = kept
	if len(kept) == 0 {
		owner.RRtypes.Delete(hdr.Rrtype)
	} else {
		owner.RRtypes.Set(hdr.Rrtype, rrset)
	}
	zd.AddOwner(owner)
	zd.RemoveOwnerIfEmpty(hdr.Name)
	return nil
}
