/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package ddns

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/miekg/dns"
	cmap "github.com/orcaman/concurrent-map/v2"
)

type ZoneStore uint8

const (
	MapZone ZoneStore = iota + 1
	SliceZone
)

var ZoneStoreToString = map[ZoneStore]string{
	MapZone:   "MapZone",
	SliceZone: "SliceZone",
}

type ZoneType uint8

const (
	Primary ZoneType = iota + 1
	Secondary
)

var ZoneTypeToString = map[ZoneType]string{
	Primary:   "primary",
	Secondary: "secondary",
}

// ZoneData is the in-memory representation of one authoritative zone: the
// OwnerData registry that backs the ZoneFinder interface, plus the
// bookkeeping an update session needs (current serial, options, the
// per-zone logger and the single-update-mode diff guard).
type ZoneData struct {
	mu         sync.Mutex
	ZoneName   string
	ZoneStore  ZoneStore
	ZoneType   ZoneType
	Owners     Owners
	OwnerIndex cmap.ConcurrentMap[string, int]
	Data       cmap.ConcurrentMap[string, OwnerData]
	Ready      bool
	Logger     *log.Logger
	Zonefile   string

	CurrentSerial uint32

	Options map[ZoneOption]bool

	Error    bool
	ErrorType ErrorType
	ErrorMsg string

	diffMu    sync.Mutex
	diffInUse bool
}

// ZoneConf is the external (YAML) configuration for one zone; it carries
// no zone data.
type ZoneConf struct {
	Name        string `validate:"required"`
	Zonefile    string
	Type        string `validate:"required"` // primary | secondary
	Store       string `validate:"required"` // map | slice
	OptionsStrs []string `yaml:"options"`
	Options     []ZoneOption `yaml:"-"`
}

type Owners []OwnerData

type OwnerData struct {
	Name    string
	RRtypes RRTypeStore
}

// RRset is this repository's stand-in for the wire concept of the same
// name: the set of records sharing owner, class and type. miekg/dns has
// no native RRset container, so the teacher codebase rolls its own.
type RRset struct {
	Name   string
	RRtype uint16
	RRs    []dns.RR
}

// oneRdataRRset builds the "per-Rdata one-shot RRset" idiom called for in
// spec.md's design notes: a way to hand the Diff Buffer a single Rdata
// without pushing RRset bookkeeping into every call site.
func oneRdataRRset(rr dns.RR) RRset {
	return RRset{
		Name:   rr.Header().Name,
		RRtype: rr.Header().Rrtype,
		RRs:    []dns.RR{rr},
	}
}

// DiffJournalEntry describes one committed Diff for IXFR-out history. The
// journal table itself stores one row per operation; nothing in this
// repository builds or persists a DiffJournalEntry.
type DiffJournalEntry struct {
	ZoneName   string
	FromSerial uint32
	ToSerial   uint32
	Adds       []dns.RR
	Removes    []dns.RR
	Time       time.Time
}

// Tx wraps *sql.Tx the way the teacher's KeyDB does: an error from any
// Exec/Commit/Rollback is logged, and Commit/Rollback release the owning DB's
// single-in-flight-transaction guard.
type Tx struct {
	*sql.Tx
	db      *JournalDB
	context string
}

func (tx *Tx) Commit() error {
	err := tx.Tx.Commit()
	tx.db.mu.Lock()
	tx.db.ctx = ""
	tx.db.mu.Unlock()
	if err != nil {
		log.Printf("Tx(%s): error committing journal transaction: %v", tx.context, err)
	}
	return err
}

func (tx *Tx) Rollback() error {
	err := tx.Tx.Rollback()
	tx.db.mu.Lock()
	tx.db.ctx = ""
	tx.db.mu.Unlock()
	if err != nil {
		log.Printf("Tx(%s): error rolling back journal transaction: %v", tx.context, err)
	}
	return err
}

func (tx *Tx) Exec(query string, args ...interface{}) (sql.Result, error) {
	result, err := tx.Tx.Exec(query, args...)
	if err != nil {
		log.Printf("Tx(%s): error executing %q: %v", tx.context, query, err)
	}
	return result, err
}

// JournalDB is the sqlite-backed durable store behind the Diff Buffer's
// commit journal. DB-level Ctx is a process-wide single-in-flight-
// transaction guard, grounded on the teacher's KeyDB.Ctx field; per-zone
// serialization additionally lives in ZoneData.diffInUse.
type JournalDB struct {
	DB  *sql.DB
	mu  sync.Mutex
	ctx string
}
