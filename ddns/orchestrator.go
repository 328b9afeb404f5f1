/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package ddns

import (
	"log"

	"github.com/miekg/dns"
)

// SessionState walks INIT -> ZONE_RESOLVED -> PREREQS_OK -> PRESCAN_OK ->
// COMMITTED -> DONE, with error transitions to RESPOND_ERR from any state
// except DONE (spec.md §4.5).
type SessionState uint8

const (
	StateInit SessionState = iota
	StateZoneResolved
	StatePrereqsOK
	StatePrescanOK
	StateCommitted
	StateDone
	StateRespondErr
)

// Outcome is the result HandleUpdate returns to its caller.
type Outcome uint8

const (
	OutcomeSuccess Outcome = iota
	OutcomeError
	OutcomeDrop
)

// Session is the per-request state spec.md §3 describes: created once
// per UPDATE request, mutated only by the orchestrator, discarded after a
// response is produced.
type Session struct {
	Request *dns.Msg
	Client  string
	State   SessionState

	zd      *ZoneData
	zname   string
	zclass  uint16
	journal *JournalDB
}

// DnsUpdateRequest is what the transport hands the orchestrator: a parsed
// UPDATE message bound to its response writer.
type DnsUpdateRequest struct {
	ResponseWriter dns.ResponseWriter
	Msg            *dns.Msg
	Client         string
}

// UpdaterEngine reads UPDATE requests off dnsupdateq one at a time and
// drives them through HandleUpdate, serializing update processing the way
// the teacher's UpdaterEngine goroutine serializes writes off a channel
// (dbupdater.go).
func UpdaterEngine(journal *JournalDB, dnsupdateq chan DnsUpdateRequest, stopchan chan struct{}) {
	log.Printf("UpdaterEngine: starting")
	for {
		select {
		case dur := <-dnsupdateq:
			m, outcome, zname, _ := HandleUpdate(dur.Msg, dur.Client, journal)
			if outcome != OutcomeDrop {
				if err := dur.ResponseWriter.WriteMsg(m); err != nil {
					log.Printf("UpdaterEngine: failed writing response for zone %s: %v", zname, err)
				}
			}
		case <-stopchan:
			log.Printf("UpdaterEngine: terminating")
			return
		}
	}
}

// HandleUpdate is the Session Orchestrator's entry point (spec.md §4.1):
// it drives zone resolution, prerequisite evaluation, prescan and update
// application in order, and builds the response message. Any phase may
// short-circuit with an rcode that becomes the response.
func HandleUpdate(r *dns.Msg, client string, journal *JournalDB) (resp *dns.Msg, outcome Outcome, zname string, zclass uint16) {
	sess := &Session{Request: r, Client: client, State: StateInit, journal: journal}

	zd, zn, zc, rcode, suppress := ResolveZone(r)
	zname, zclass = zn, zc
	if rcode != dns.RcodeSuccess {
		sess.State = StateRespondErr
		logPhaseFailure("ResolveZone", zn, rcode, suppress)
		return buildResponse(r, rcode), OutcomeError, zname, zclass
	}
	sess.zd, sess.zname, sess.zclass = zd, zn, zc
	sess.State = StateZoneResolved

	if zd.Options[OptFrozen] {
		sess.State = StateRespondErr
		return buildResponse(r, dns.RcodeRefused), OutcomeError, zname, zclass
	}

	_, zf, _ := defaultZoneStore.FindZone(zname)

	rcode = EvaluatePrerequisites(zd, zf, r.Answer, zclass)
	if rcode != dns.RcodeSuccess {
		sess.State = StateRespondErr
		logPhaseFailure("EvaluatePrerequisites", zn, rcode, false)
		return buildResponse(r, rcode), OutcomeError, zname, zclass
	}
	sess.State = StatePrereqsOK

	scan := Prescan(zd, r.Ns, zclass)
	if scan.Rcode != dns.RcodeSuccess {
		sess.State = StateRespondErr
		logPhaseFailure("Prescan", zn, scan.Rcode, false)
		return buildResponse(r, scan.Rcode), OutcomeError, zname, zclass
	}
	sess.State = StatePrescanOK

	rcode = ApplyUpdate(zd, zf, journal, r.Ns, scan.CapturedSOA, zclass)
	if rcode != dns.RcodeSuccess {
		sess.State = StateRespondErr
		logPhaseFailure("ApplyUpdate", zn, rcode, false)
		return buildResponse(r, rcode), OutcomeError, zname, zclass
	}
	sess.State = StateCommitted
	sess.State = StateDone

	return buildResponse(r, dns.RcodeSuccess), OutcomeSuccess, zname, zclass
}

// buildResponse converts the request into a response in place: QR=1, same
// ID, the given rcode, and the ZONE/PREREQUISITE/UPDATE/ADDITIONAL
// sections cleared per RFC 2136 §3.8.
func buildResponse(r *dns.Msg, rcode int) *dns.Msg {
	m := new(dns.Msg)
	m.SetReply(r)
	m.SetRcode(r, rcode)
	m.Question = nil
	m.Answer = nil
	m.Ns = nil
	m.Extra = nil
	return m
}

func logPhaseFailure(phase, zname string, rcode int, suppressLog bool) {
	if suppressLog {
		if Globals.Debug {
			log.Printf("%s: zone %s: %s", phase, zname, dns.RcodeToString[rcode])
		}
		return
	}
	log.Printf("%s: zone %s: %s", phase, zname, dns.RcodeToString[rcode])
}
