/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"maps"
	"slices"
	"time"
)

// Views are value copies so deliveries never alias live game state.

// FactionSummary is the redacted roster entry students see for every faction.
type FactionSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// RosterEntry is a faction's public standing plus its live member count.
type RosterEntry struct {
	Identity
	Tokens        Tokens `json:"tokens"`
	VoterApproval int    `json:"voterApproval"`
	HasVoted      bool   `json:"hasVoted"`
	StudentCount  int    `json:"studentCount"`
}

// StudentView is a student as listed to the teacher.
type StudentView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FactionID string `json:"factionId,omitempty"`
	IsLeader  bool   `json:"isLeader"`
}

// ProposalView is the pending proposal with its proposer resolved.
type ProposalView struct {
	Policy   Policy          `json:"policy"`
	Proposer *FactionSummary `json:"proposer,omitempty"`
}

// State is the game snapshot sent as gameState. Students and
// FactionDetails are only filled in for the teacher.
type State struct {
	Started          bool          `json:"started"`
	Round            int           `json:"round"`
	Phase            Phase         `json:"phase"`
	CurrentProposal  *ProposalView `json:"currentProposal"`
	Metrics          Metrics       `json:"metrics"`
	Factions         []RosterEntry `json:"factions"`
	TeacherConnected bool          `json:"teacherConnected"`
	Students         []StudentView `json:"students,omitempty"`
	FactionDetails   []Faction     `json:"factionDetails,omitempty"`
}

// AvailableFaction is a catalog identity plus how many students chose it.
type AvailableFaction struct {
	Identity
	StudentCount int `json:"studentCount"`
}

type YourFaction struct {
	Faction     Faction          `json:"faction"`
	AllFactions []FactionSummary `json:"allFactions"`
	IsLeader    bool             `json:"isLeader"`
	StudentName string           `json:"studentName"`
	Teammates   []string         `json:"teammates"`
	Phase       Phase            `json:"phase"`
	Round       int              `json:"round"`
	Metrics     Metrics          `json:"metrics"`
}

type TeacherRegistered struct {
	Policies []Policy           `json:"policies"`
	Factions []AvailableFaction `json:"factions"`
}

type StudentRegistered struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FactionID string `json:"factionId"`
}

type FactionSelected struct {
	FactionID string        `json:"factionId"`
	Faction   Identity      `json:"faction"`
	IsLeader  bool          `json:"isLeader"`
	Factions  []RosterEntry `json:"factions"`
}

type ProposalSelected struct {
	Proposal ProposalView `json:"proposal"`
	Phase    Phase        `json:"phase"`
}

type VoteReceived struct {
	FactionID   string `json:"factionId"`
	FactionName string `json:"factionName"`
}

type VoteResults struct {
	Passed        bool               `json:"passed"`
	YesVotes      int                `json:"yesVotes"`
	NoVotes       int                `json:"noVotes"`
	Factions      []Faction          `json:"factions"`
	Metrics       Metrics            `json:"metrics"`
	PolicyID      string             `json:"policyId"`
	PolicyEffects map[Metric]float64 `json:"policyEffects"`
	ProposerID    string             `json:"proposerId,omitempty"`
	BonusAwarded  []string           `json:"bonusAwarded,omitempty"`
}

type RoundChanged struct {
	Round int   `json:"round"`
	Phase Phase `json:"phase"`
}

type GameEnded struct {
	Winner   *Faction  `json:"winner"`
	Factions []Faction `json:"factions"`
	Metrics  Metrics   `json:"metrics"`
}

type Message struct {
	FromFactionID   string    `json:"fromFactionId"`
	FromFactionName string    `json:"fromFactionName"`
	FromFactionIcon string    `json:"fromFactionIcon"`
	ToFactionID     string    `json:"toFactionId"`
	ToFactionName   string    `json:"toFactionName"`
	Message         string    `json:"message"`
	IsResponse      bool      `json:"isResponse"`
	Timestamp       time.Time `json:"timestamp"`
}

type ScandalExecuted struct {
	AttackerID       string `json:"attackerId"`
	AttackerName     string `json:"attackerName"`
	TargetID         string `json:"targetId"`
	TargetName       string `json:"targetName"`
	AttackerApproval int    `json:"attackerApproval"`
	TargetApproval   int    `json:"targetApproval"`
}

// snapshot deep-copies a faction.
func (f *Faction) snapshot() Faction {
	c := *f
	if f.Vote != nil {
		v := *f.Vote
		c.Vote = &v
	}
	if f.FinalScore != nil {
		s := *f.FinalScore
		c.FinalScore = &s
	}
	c.Objectives = make([]*Objective, len(f.Objectives))
	for i, o := range f.Objectives {
		oc := *o
		oc.Target.Policies = slices.Clone(o.Target.Policies)
		c.Objectives[i] = &oc
	}
	return c
}

func (f *Faction) summary() FactionSummary {
	return FactionSummary{ID: f.ID, Name: f.Name, Icon: f.Icon, Color: f.Color}
}

func (g *Game) factionSnapshots() []Faction {
	out := make([]Faction, len(g.Factions))
	for i, f := range g.Factions {
		out[i] = f.snapshot()
	}
	return out
}

func (g *Game) summaries() []FactionSummary {
	out := make([]FactionSummary, len(g.Factions))
	for i, f := range g.Factions {
		out[i] = f.summary()
	}
	return out
}

func (g *Game) roster() []RosterEntry {
	counts := g.studentCounts()
	out := make([]RosterEntry, len(g.Factions))
	for i, f := range g.Factions {
		out[i] = RosterEntry{
			Identity:      f.Identity,
			Tokens:        f.Tokens,
			VoterApproval: f.VoterApproval,
			HasVoted:      f.HasVoted,
			StudentCount:  counts[f.ID],
		}
	}
	return out
}

func (g *Game) availableFactions() []AvailableFaction {
	counts := g.studentCounts()
	out := make([]AvailableFaction, 0, len(factionCatalog))
	for _, ident := range factionCatalog {
		out = append(out, AvailableFaction{Identity: ident, StudentCount: counts[ident.ID]})
	}
	return out
}

func (g *Game) studentViews() []StudentView {
	students := g.orderedStudents()
	out := make([]StudentView, len(students))
	for i, s := range students {
		out[i] = StudentView{ID: s.ConnID, Name: s.Name, FactionID: s.FactionID, IsLeader: s.IsLeader}
	}
	return out
}

func (g *Game) proposalView() *ProposalView {
	if g.CurrentProposal == nil {
		return nil
	}
	p := g.CurrentProposal.Policy
	p.Effects = g.CurrentProposal.Policy.effectsCopy()
	v := &ProposalView{Policy: p}
	if f := g.faction(g.CurrentProposal.ProposerID); f != nil {
		s := f.summary()
		v.Proposer = &s
	}
	return v
}

func (p Policy) effectsCopy() map[Metric]float64 {
	return maps.Clone(p.Effects)
}

func (g *Game) publicState() State {
	return State{
		Started:          g.Started,
		Round:            g.Round,
		Phase:            g.Phase,
		CurrentProposal:  g.proposalView(),
		Metrics:          g.Metrics.clone(),
		Factions:         g.roster(),
		TeacherConnected: g.TeacherConn != "",
	}
}

func (g *Game) teacherState() State {
	s := g.publicState()
	s.Students = g.studentViews()
	s.FactionDetails = g.factionSnapshots()
	return s
}

func (g *Game) yourFaction(s *Student) (YourFaction, bool) {
	f := g.faction(s.FactionID)
	if f == nil {
		return YourFaction{}, false
	}

	var mates []string
	for _, other := range g.orderedStudents() {
		if other.FactionID == s.FactionID && other.ConnID != s.ConnID {
			mates = append(mates, other.Name)
		}
	}

	return YourFaction{
		Faction:     f.snapshot(),
		AllFactions: g.summaries(),
		IsLeader:    s.IsLeader,
		StudentName: s.Name,
		Teammates:   mates,
		Phase:       g.Phase,
		Round:       g.Round,
		Metrics:     g.Metrics.clone(),
	}, true
}

func (g *Game) sendYourFaction(s *Student, out *outbox) {
	if v, ok := g.yourFaction(s); ok {
		out.send(s.ConnID, EventYourFaction, v)
	}
}

// refreshStudents resends every student's faction view, so no client keeps
// stale leadership or faction data.
func (g *Game) refreshStudents(out *outbox) {
	for _, s := range g.orderedStudents() {
		g.sendYourFaction(s, out)
	}
}

// sendStates broadcasts the public snapshot, then follows up with the full
// one for the teacher.
func (g *Game) sendStates(out *outbox) {
	out.broadcast(EventGameState, g.publicState())
	out.send(g.TeacherConn, EventGameState, g.teacherState())
}
