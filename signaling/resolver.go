// Package signaling walks PAT/PMT sections to resolve the PIDs a
// Service ID actually needs and reconstructs a wall-clock from PCR/PTS
// samples anchored to a TOT. It does not track EIT event boundaries.
package signaling

import "github.com/jstream/aribts/psi"

// subtitleComponentTag is the component_tag value ARIB reserves for
// the closed-caption/superimpose elementary stream.
const subtitleComponentTag = 0x30

// State is the dynamic signaling record for one Service ID: the
// resolved PMT/PCR/subtitle PIDs, mutated only by sections the
// Resolver observes. All fields start "unknown" (zero PID, matching
// tsio.PIDPAT never being a legal PMT/PCR/subtitle assignment for a
// real program).
type State struct {
	ServiceID    uint16
	PMTPID       uint16
	PCRPID       uint16
	SubtitlePID  uint16
	pmtResolved  bool
	pcrResolved  bool
	subResolved  bool
}

// Resolver observes PAT and PMT sections and maintains State for one
// configured Service ID.
type Resolver struct {
	state State
}

// NewResolver builds a Resolver watching serviceID.
func NewResolver(serviceID uint16) *Resolver {
	return &Resolver{state: State{ServiceID: serviceID}}
}

// State returns the resolver's current view. The returned value is a
// copy; callers must call State again to observe further updates.
func (r *Resolver) State() State { return r.state }

// ObservePAT records the PMT PID belonging to the resolver's Service
// ID, if present in this PAT.
func (r *Resolver) ObservePAT(pat *psi.PATData) {
	for _, p := range pat.Programs {
		if p.ProgramNumber == r.state.ServiceID {
			r.state.PMTPID = p.ProgramMapPID
			r.state.pmtResolved = true
			return
		}
	}
}

// ObservePMT records the PCR PID and subtitle elementary stream PID
// from a PMT already known (by the caller, via PMTPID) to belong to
// the resolver's service.
func (r *Resolver) ObservePMT(pmt *psi.PMTData) {
	r.state.PCRPID = pmt.PCRPID
	r.state.pcrResolved = true

	for _, es := range pmt.ElementaryStreams {
		if es.StreamType != psi.StreamTypeARIBSubtitle {
			continue
		}
		tag, ok := es.ComponentTag()
		if ok && tag == subtitleComponentTag {
			r.state.SubtitlePID = es.ElementaryPID
			r.state.subResolved = true
			return
		}
	}
}

// Resolved reports whether every PID this resolver tracks has been
// observed at least once.
func (r *Resolver) Resolved() bool {
	return r.state.pmtResolved && r.state.pcrResolved && r.state.subResolved
}
