/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package ddns

import "github.com/miekg/dns"

// FindStatus is the result status of a ZoneFinder query (spec.md §6).
type FindStatus uint8

const (
	FindSuccess FindStatus = iota
	FindNXDomain
	FindNXRRset
)

// FindFlags are the option/result flags threaded through find/find_all.
type FindFlags uint8

const (
	NoWildcard FindFlags = 1 << iota
	FindGlueOK
	ResultWildcard
)

// ZoneFinder is the read path of a DataSource, scoped to one zone.
type ZoneFinder interface {
	Find(name string, rrtype uint16, options FindFlags) (FindStatus, *RRset, FindFlags)
	FindAll(name string, options FindFlags) (FindStatus, []RRset, FindFlags)
}

// DataSource is the external collaborator spec.md §6 describes: the
// authoritative backend the engine reads from and, through a Diff, writes
// to. The engine never reaches into zone internals directly — it goes
// through this interface and through Diff.
type DataSource interface {
	FindZone(name string) (exact bool, zf ZoneFinder, zd *ZoneData)
}

// concurrentZoneFinder is the one concrete ZoneFinder this repository
// ships, backed by a ZoneData's in-memory owner map. Real deployments
// would swap in a different DataSource (sqlite-backed, an RFC 1035
// zonefile watcher, etc.) behind the same interface; per SPEC_FULL.md §11
// the backend's internals are intentionally thin.
type concurrentZoneFinder struct {
	zd *ZoneData
}

func (f *concurrentZoneFinder) Find(name string, rrtype uint16, options FindFlags) (FindStatus, *RRset, FindFlags) {
	owner, err := f.zd.GetOwner(name)
	if err != nil || owner == nil {
		return FindNXDomain, nil, 0
	}
	rrset, exists := owner.RRtypes.Get(rrtype)
	if !exists || len(rrset.RRs) == 0 {
		return FindNXRRset, nil, 0
	}
	return FindSuccess, &rrset, 0
}

func (f *concurrentZoneFinder) FindAll(name string, options FindFlags) (FindStatus, []RRset, FindFlags) {
	owner, err := f.zd.GetOwner(name)
	if err != nil || owner == nil {
		return FindNXDomain, nil, 0
	}
	all, err := f.zd.GetAllRRsets(name)
	if err != nil {
		return FindNXDomain, nil, 0
	}
	var sets []RRset
	for _, rrset := range all {
		if len(rrset.RRs) > 0 {
			sets = append(sets, rrset)
		}
	}
	if len(sets) == 0 {
		return FindNXRRset, nil, 0
	}
	return FindSuccess, sets, 0
}

// ConcurrentZoneStore is the supplemented in-memory DataSource
// (SPEC_FULL.md §11): it resolves a qname to the ZoneData registered in
// the global Zones map and hands back a ZoneFinder over it.
type ConcurrentZoneStore struct{}

// defaultZoneStore is the DataSource the update pipeline resolves its
// ZoneFinder from; the query path (cmd/ddnsd/dnshandler.go) keeps its own
// instance since it lives in a different package.
var defaultZoneStore = ConcurrentZoneStore{}

func (ConcurrentZoneStore) FindZone(name string) (bool, ZoneFinder, *ZoneData) {
	zd, folded := FindZone(name)
	if zd == nil {
		return false, nil, nil
	}
	return dns.Fqdn(name) == zd.ZoneName && !folded, &concurrentZoneFinder{zd: zd}, zd
}
