/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package ddns

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/miekg/dns"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/twotwotwo/sorts"
)

// NewZoneData constructs an empty, ready-to-populate zone. ZoneStore
// defaults to MapZone, the only store this repository ships a ZoneFinder
// implementation for (see datasource.go).
func NewZoneData(name string, zt ZoneType) *ZoneData {
	return &ZoneData{
		ZoneName:  dns.Fqdn(name),
		ZoneStore: MapZone,
		ZoneType:  zt,
		Data:      cmap.New[OwnerData](),
		Options:   map[ZoneOption]bool{},
		Logger:    log.Default(),
		Ready:     false,
	}
}

func (zd *ZoneData) SetOption(option ZoneOption, value bool) {
	zd.mu.Lock()
	zd.Options[option] = value
	zd.mu.Unlock()
}

func (zd *ZoneData) Debug() bool {
	return Globals.Debug
}

// GetOwner returns the owner data for qname, or (nil, nil) if the name
// does not exist in the zone.
func (zd *ZoneData) GetOwner(qname string) (*OwnerData, error) {
	if zd.Data.IsEmpty() {
		return nil, nil
	}
	owner, ok := zd.Data.Get(qname)
	if !ok {
		return nil, nil
	}
	return &owner, nil
}

// AddOwner inserts or replaces the owner data for owner.Name.
func (zd *ZoneData) AddOwner(owner *OwnerData) {
	zd.Data.Set(owner.Name, *owner)
}

// RemoveOwnerIfEmpty deletes the owner entry entirely once its RRTypeStore
// is empty, so that a fully-deleted name stops satisfying the "name exists"
// prerequisite test (ZoneFinder.FindAll returning FindNXDomain).
func (zd *ZoneData) RemoveOwnerIfEmpty(qname string) {
	if qname == zd.ZoneName {
		return
	}
	owner, ok := zd.Data.Get(qname)
	if !ok {
		return
	}
	if owner.RRtypes.Count() == 0 {
		zd.Data.Remove(qname)
	}
}

// GetRRset returns the RRset(name,type), or (nil, nil) if absent.
func (zd *ZoneData) GetRRset(qname string, rrtype uint16) (*RRset, error) {
	owner, err := zd.GetOwner(qname)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, nil
	}
	if rrset, exists := owner.RRtypes.Get(rrtype); exists {
		return &rrset, nil
	}
	return nil, nil
}

// GetAllRRsets returns every RRset stored at qname.
func (zd *ZoneData) GetAllRRsets(qname string) ([]RRset, error) {
	owner, err := zd.GetOwner(qname)
	if err != nil || owner == nil {
		return nil, err
	}
	var out []RRset
	for _, rrt := range owner.RRtypes.Keys() {
		out = append(out, owner.RRtypes.GetOnlyRRSet(rrt))
	}
	return out, nil
}

type ownerNames []string

func (n ownerNames) Len() int           { return len(n) }
func (n ownerNames) Swap(i, j int)      { n[i], n[j] = n[j], n[i] }
func (n ownerNames) Less(i, j int) bool { return n[i] < n[j] }

// GetOwnerNames returns the zone's owner names in sorted order.
// cmap.Keys() iterates its internal shards in no particular order, so
// callers that print or diff this list (the admin API's zone-owners
// command) need a stable ordering.
func (zd *ZoneData) GetOwnerNames() []string {
	if zd.Data.IsEmpty() {
		return nil
	}
	names := ownerNames(zd.Data.Keys())
	sorts.Quicksort(names)
	return []string(names)
}

var _ sort.Interface = ownerNames(nil)

func (zd *ZoneData) GetSOA() (*dns.SOA, error) {
	owner, err := zd.GetOwner(zd.ZoneName)
	if err != nil || owner == nil {
		return nil, fmt.Errorf("GetSOA: zone %s has no apex owner data", zd.ZoneName)
	}
	rrset := owner.RRtypes.GetOnlyRRSet(dns.TypeSOA)
	if len(rrset.RRs) == 0 {
		return nil, fmt.Errorf("GetSOA: zone %s apex has no SOA", zd.ZoneName)
	}
	return rrset.RRs[0].(*dns.SOA), nil
}

// FindZone walks qname's labels outward looking for the closest enclosing
// zone we are authoritative for, the way a real resolver's zone cut
// search works. This grounds the Zone Resolver's zone-config lookup
// (spec.md §4.2): everything below the matched apex is in-bailiwick.
func FindZone(qname string) (*ZoneData, bool) {
	qname = dns.Fqdn(qname)
	labels := dns.SplitDomainName(qname)
	for i := 0; i < len(labels); i++ {
		tzone := dns.Fqdn(strings.Join(labels[i:], "."))
		if zd, ok := Zones.Get(tzone); ok {
			return zd, false
		}
	}

	folded := strings.ToLower(qname)
	if folded != qname {
		labels = dns.SplitDomainName(folded)
		for i := 0; i < len(labels); i++ {
			tzone := dns.Fqdn(strings.Join(labels[i:], "."))
			if zd, ok := Zones.Get(tzone); ok {
				return zd, true
			}
		}
	}
	return nil, false
}

// InZone reports whether name is equal to or a subdomain of the zone
// apex, the in-bailiwick test required throughout spec.md §4.3/§4.4.
func (zd *ZoneData) InZone(name string) bool {
	name = dns.Fqdn(name)
	return name == zd.ZoneName || strings.HasSuffix(name, "."+zd.ZoneName)
}

// LoadZoneFile seeds a zone's in-memory store from an RFC 1035 zonefile.
// This is zonefile parsing for bootstrap purposes only, not wire-protocol
// parsing, and stays in scope as the one concrete DataSource the engine
// needs to be runnable (SPEC_FULL.md §11).
func (zd *ZoneData) LoadZoneFile(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("LoadZoneFile: %s: %w", zd.ZoneName, err)
	}
	defer f.Close()
	return zd.parseZoneFromReader(bufio.NewReader(f))
}

func (zd *ZoneData) parseZoneFromReader(r *bufio.Reader) error {
	zp := dns.NewZoneParser(r, "", "")
	zp.SetIncludeAllowed(true)

	for rr, ok := zp.Next(); ok; rr, ok = zp.Next() {
		owner := rr.Header().Name
		if zd.Options[OptFoldCase] {
			owner = strings.ToLower(owner)
		}
		od, exists := zd.Data.Get(owner)
		if !exists {
			od = OwnerData{Name: owner, RRtypes: NewRRTypeStore()}
		}
		rrtype := rr.Header().Rrtype
		rrset := od.RRtypes.GetOnlyRRSet(rrtype)
		rrset.Name = owner
		rrset.RRtype = rrtype
		rrset.RRs = append(rrset.RRs, rr)
		od.RRtypes.Set(rrtype, rrset)
		zd.Data.Set(owner, od)
	}
	if err := zp.Err(); err != nil {
		return fmt.Errorf("parseZoneFromReader: zone %s: %w", zd.ZoneName, err)
	}

	soa, err := zd.GetSOA()
	if err != nil {
		return err
	}
	zd.CurrentSerial = soa.Serial
	zd.Ready = true
	return nil
}
