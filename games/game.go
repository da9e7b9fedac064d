/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"slices"
	"time"
)

// Phase drives client UI gating.
type Phase string

const (
	PhaseSetup       Phase = "setup"
	PhaseProposal    Phase = "proposal"
	PhaseNegotiation Phase = "negotiation"
	PhaseVoting      Phase = "voting"
	PhaseResults     Phase = "results"
)

// Game balance.
const (
	startingCapital = 5
	minStudents     = 2
	minFactions     = 2

	winningVoteCapital  = 1
	winningVoteApproval = 2

	proposerPassCapital  = 2
	proposerPassApproval = 5
	proposerFailApproval = -3

	scandalCost             = 1
	scandalAttackerApproval = 2
	scandalTargetApproval   = -2
)

// Proposal is a policy pending a vote, with the proposing faction's id.
type Proposal struct {
	Policy     Policy `json:"policy"`
	ProposerID string `json:"proposer,omitempty"`
}

// Logf receives the game's log lines.
type Logf func(format string, args ...any)

// Game is the single authoritative session. It is not safe for concurrent
// use: one goroutine must own it and feed it events one at a time.
type Game struct {
	Started         bool
	Round           int
	Phase           Phase
	Factions        []*Faction
	CurrentProposal *Proposal
	Metrics         Metrics
	TeacherConn     string
	Students        map[string]*Student

	leaders    map[string]string // factionID -> connID of its first member
	studentSeq uint64
	catalog    *Catalog
	logf       Logf
	now        func() time.Time
}

// NewGame returns a game in the setup phase. A nil catalog disables id-only
// proposals; a nil logf discards log output.
func NewGame(catalog *Catalog, logf Logf) *Game {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	g := &Game{
		Students: make(map[string]*Student),
		catalog:  catalog,
		logf:     logf,
		now:      time.Now,
	}
	g.reset()
	return g
}

// reset returns the session to its initial state. Connected students stay
// registered but must choose a faction again.
func (g *Game) reset() {
	g.Started = false
	g.Round = 1
	g.Phase = PhaseSetup
	g.Factions = nil
	g.CurrentProposal = nil
	g.Metrics = initialMetrics()
	g.leaders = make(map[string]string)
	for _, s := range g.Students {
		s.FactionID = ""
		s.IsLeader = false
	}
}

// Catalog returns the policy catalog the game resolves proposals against.
func (g *Game) Catalog() *Catalog {
	return g.catalog
}

func (g *Game) faction(id string) *Faction {
	if id == "" {
		return nil
	}
	for _, f := range g.Factions {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func (g *Game) isTeacher(connID string) bool {
	return connID != "" && connID == g.TeacherConn
}

// Handle applies one command from a connection and returns the resulting
// notifications in delivery order.
func (g *Game) Handle(connID string, cmd Command) []Delivery {
	var out outbox

	switch c := cmd.(type) {
	case RegisterTeacher:
		g.registerTeacher(connID, &out)
	case RegisterStudent:
		g.registerStudent(connID, c.StudentName, &out)
	case SelectFaction:
		g.selectFaction(connID, c.FactionID, &out)
	case StartGame:
		g.startGame(connID, &out)
	case SelectProposal:
		g.selectProposal(connID, c.Proposal, &out)
	case SendToken:
		g.sendToken(connID, c.ToFactionID, &out)
	case SendMessage:
		g.sendMessage(connID, c.ToFactionID, c.Message, false, &out)
	case RespondToMessage:
		g.sendMessage(connID, c.ToFactionID, c.Response, true, &out)
	case StartVoting:
		g.startVoting(connID, false, &out)
	case RestartVoting:
		g.startVoting(connID, true, &out)
	case SubmitVote:
		g.submitVote(connID, c.Vote, &out)
	case TallyVotes:
		g.tallyVotes(connID, &out)
	case NextRound:
		g.nextRound(connID, &out)
	case EndGame:
		g.endGame(connID, &out)
	case ScandalCampaign:
		g.scandalCampaign(connID, c.AttackerID, c.TargetID, &out)
	case Rejected:
		g.logf("GAMES: Dropped %q from %s: %s", c.Type, connID, c.Reason)
	}

	return out
}

func (g *Game) startGame(connID string, out *outbox) {
	if !g.isTeacher(connID) {
		return
	}

	fail := func(reason string) {
		out.send(connID, EventGameStartError, Rejection{Command: StartGame{}.Name(), Reason: reason})
	}

	if g.Started {
		fail("A game is already in progress.")
		return
	}
	if len(g.Students) < minStudents {
		fail("At least 2 students must join before the game can start.")
		return
	}

	counts := g.studentCounts()
	if len(counts) < minFactions {
		fail("Students must choose at least 2 different factions.")
		return
	}

	// Factions every member has left are not part of the game.
	g.Factions = slices.DeleteFunc(g.Factions, func(f *Faction) bool {
		return counts[f.ID] == 0
	})
	for _, f := range g.Factions {
		f.Tokens.Capital = startingCapital
		f.resetVote()
	}

	g.Started = true
	g.Phase = PhaseProposal
	g.Round = 1
	g.CurrentProposal = nil

	g.logf("GAMES: Game started with %d factions and %d students", len(g.Factions), len(g.Students))

	out.broadcast(EventGameStarted, g.publicState())
	out.send(connID, EventGameState, g.teacherState())
	g.refreshStudents(out)
}

func (g *Game) selectProposal(connID string, p Proposal, out *outbox) {
	if !g.isTeacher(connID) {
		return
	}

	if p.Policy.Effects == nil {
		known, ok := g.catalog.Lookup(p.Policy.ID)
		if !ok {
			g.logf("GAMES: Ignored proposal for unknown policy %q", p.Policy.ID)
			return
		}
		p.Policy = known
	} else if p.Policy.Name == "" {
		if known, ok := g.catalog.Lookup(p.Policy.ID); ok {
			p.Policy.Name = known.Name
		}
	}

	if g.faction(p.ProposerID) == nil {
		p.ProposerID = ""
	}

	g.CurrentProposal = &p
	g.Phase = PhaseNegotiation

	g.logf("GAMES: Proposal %q selected", p.Policy.Name)

	out.broadcast(EventProposalSelected, ProposalSelected{
		Proposal: *g.proposalView(),
		Phase:    g.Phase,
	})
	g.refreshStudents(out)
}

// leaderFaction resolves a leader's faction or explains why the caller may
// not act for it. Unregistered connections are dropped silently.
func (g *Game) leaderFaction(connID, command, rejectEvent string, out *outbox) (*Faction, bool) {
	s, ok := g.Students[connID]
	if !ok {
		return nil, false
	}

	f := g.faction(s.FactionID)
	if f == nil {
		out.send(connID, rejectEvent, Rejection{Command: command, Reason: "You have not joined a faction."})
		return nil, false
	}

	if !s.IsLeader {
		out.send(connID, rejectEvent, Rejection{Command: command, Reason: "Only your faction leader can do that."})
		return nil, false
	}

	return f, true
}

func (g *Game) sendToken(connID, toFactionID string, out *outbox) {
	command := SendToken{}.Name()

	from, ok := g.leaderFaction(connID, command, EventActionRejected, out)
	if !ok {
		return
	}

	to := g.faction(toFactionID)
	if to == nil {
		return
	}
	if to == from {
		out.send(connID, EventActionRejected, Rejection{Command: command, Reason: "You cannot send tokens to your own faction."})
		return
	}
	if from.Tokens.Capital <= 0 {
		out.send(connID, EventActionRejected, Rejection{Command: command, Reason: "Your faction has no political capital left."})
		return
	}

	from.adjustCapital(-1)
	to.adjustCapital(1)

	g.logf("GAMES: %q sent 1 token to %q", from.Name, to.Name)

	out.broadcast(EventFactionsUpdated, g.roster())
	g.refreshStudents(out)
}

func (g *Game) sendMessage(connID, toFactionID, text string, response bool, out *outbox) {
	command := SendMessage{}.Name()
	if response {
		command = RespondToMessage{}.Name()
	}

	from, ok := g.leaderFaction(connID, command, EventActionRejected, out)
	if !ok {
		return
	}

	to := g.faction(toFactionID)
	if to == nil {
		return
	}
	if to == from {
		out.send(connID, EventActionRejected, Rejection{Command: command, Reason: "You cannot message your own faction."})
		return
	}

	msg := Message{
		FromFactionID:   from.ID,
		FromFactionName: from.Name,
		FromFactionIcon: from.Icon,
		ToFactionID:     to.ID,
		ToFactionName:   to.Name,
		Message:         text,
		IsResponse:      response,
		Timestamp:       g.now(),
	}

	g.logf("GAMES: %q messaged %q", from.Name, to.Name)

	out.sendMany(g.membersOf(to.ID), EventMessageReceived, msg)
	out.sendMany(g.membersOf(from.ID), EventMessageSent, msg)
}

func (g *Game) startVoting(connID string, restart bool, out *outbox) {
	if !g.isTeacher(connID) {
		return
	}

	for _, f := range g.Factions {
		f.resetVote()
	}
	g.Phase = PhaseVoting

	event := EventVotingStarted
	if restart {
		event = EventVotingRestarted
		g.logf("GAMES: Voting restarted")
	} else {
		g.logf("GAMES: Voting started")
	}

	out.broadcast(event, g.proposalView())
	out.broadcast(EventFactionsUpdated, g.roster())
	g.refreshStudents(out)
}

func (g *Game) submitVote(connID string, vote bool, out *outbox) {
	command := SubmitVote{}.Name()

	f, ok := g.leaderFaction(connID, command, EventVoteRejected, out)
	if !ok {
		return
	}

	// first vote wins
	if f.HasVoted {
		out.send(connID, EventVoteRejected, Rejection{Command: command, Reason: "Your faction has already voted."})
		return
	}

	v := vote
	f.Vote = &v
	f.HasVoted = true

	g.logf("GAMES: %q voted %t", f.Name, vote)

	out.broadcast(EventVoteReceived, VoteReceived{FactionID: f.ID, FactionName: f.Name})
	g.refreshStudents(out)

	if g.allVoted() {
		g.logf("GAMES: All votes received")
		out.broadcast(EventAllVotesIn, nil)
	}
}

func (g *Game) allVoted() bool {
	if len(g.Factions) == 0 {
		return false
	}
	for _, f := range g.Factions {
		if !f.HasVoted {
			return false
		}
	}
	return true
}

// tallyVotes re-applies the proposal's effects every time it is called
// until nextRound clears the proposal.
func (g *Game) tallyVotes(connID string, out *outbox) {
	if !g.isTeacher(connID) {
		return
	}

	var yes, no int
	for _, f := range g.Factions {
		switch {
		case f.votedYes():
			yes++
		case f.votedNo():
			no++
		}
	}
	if yes+no == 0 {
		out.send(connID, EventActionRejected, Rejection{Command: TallyVotes{}.Name(), Reason: "No votes have been cast."})
		return
	}

	// ties fail
	passed := yes > no

	outcome := Outcome{Passed: passed}
	if g.CurrentProposal != nil {
		outcome.PolicyID = g.CurrentProposal.Policy.ID
		outcome.Effects = g.CurrentProposal.Policy.effectsCopy()
		outcome.ProposerID = g.CurrentProposal.ProposerID
	}

	if passed {
		g.Metrics.Apply(outcome.Effects)
	}

	for _, f := range g.Factions {
		if (f.votedYes() && passed) || (f.votedNo() && !passed) {
			f.adjustCapital(winningVoteCapital)
			f.adjustApproval(winningVoteApproval)
		}
	}

	if proposer := g.faction(outcome.ProposerID); proposer != nil {
		if passed {
			proposer.adjustCapital(proposerPassCapital)
			proposer.adjustApproval(proposerPassApproval)
		} else {
			proposer.adjustApproval(proposerFailApproval)
		}
	}

	bonused := EvaluateAfterVote(g.Factions, outcome)
	for _, id := range bonused {
		g.logf("GAMES: %q completed every objective", g.faction(id).Name)
	}

	g.Phase = PhaseResults

	result := "failed"
	if passed {
		result = "passed"
	}
	g.logf("GAMES: Vote %s (%d yes, %d no)", result, yes, no)

	out.broadcast(EventVoteResults, VoteResults{
		Passed:        passed,
		YesVotes:      yes,
		NoVotes:       no,
		Factions:      g.factionSnapshots(),
		Metrics:       g.Metrics.clone(),
		PolicyID:      outcome.PolicyID,
		PolicyEffects: outcome.Effects,
		ProposerID:    outcome.ProposerID,
		BonusAwarded:  bonused,
	})
	g.refreshStudents(out)
	g.sendStates(out)
}

func (g *Game) nextRound(connID string, out *outbox) {
	if !g.isTeacher(connID) {
		return
	}

	g.Round++
	g.Phase = PhaseProposal
	g.CurrentProposal = nil
	for _, f := range g.Factions {
		f.resetVote()
	}

	g.logf("GAMES: Round %d", g.Round)

	out.broadcast(EventRoundChanged, RoundChanged{Round: g.Round, Phase: g.Phase})
	g.sendStates(out)
	g.refreshStudents(out)
}

// Ranking returns snapshots of the factions ordered by final score, highest
// first. Equal scores keep their join order.
func Ranking(factions []*Faction) []Faction {
	ranked := make([]Faction, len(factions))
	for i, f := range factions {
		ranked[i] = f.snapshot()
	}
	slices.SortStableFunc(ranked, func(a, b Faction) int {
		as, bs := a.score(), b.score()
		switch {
		case as > bs:
			return -1
		case as < bs:
			return 1
		}
		return 0
	})
	return ranked
}

func (g *Game) endGame(connID string, out *outbox) {
	if !g.isTeacher(connID) {
		return
	}

	for _, id := range EvaluateAtEnd(g.Factions, g.Metrics) {
		g.logf("GAMES: %q completed every objective at game end", g.faction(id).Name)
	}

	for _, f := range g.Factions {
		score := f.score()
		f.FinalScore = &score
	}

	ranked := Ranking(g.Factions)

	ended := GameEnded{
		Factions: ranked,
		Metrics:  g.Metrics.clone(),
	}
	if len(ranked) > 0 {
		winner := ranked[0]
		ended.Winner = &winner
		g.logf("GAMES: Game over, %q wins with %.1f", winner.Name, *winner.FinalScore)
	} else {
		g.logf("GAMES: Game over with no factions")
	}

	out.broadcast(EventGameEnded, ended)

	g.reset()

	g.sendStates(out)
	out.broadcast(EventAvailableFactions, g.availableFactions())
	g.sendRegistrations(out)
	g.sendStudentsUpdate(out)
}

func (g *Game) scandalCampaign(connID, attackerID, targetID string, out *outbox) {
	command := ScandalCampaign{}.Name()

	attacker, ok := g.leaderFaction(connID, command, EventScandalFailed, out)
	if !ok {
		return
	}

	fail := func(reason string) {
		out.send(connID, EventScandalFailed, Rejection{Command: command, Reason: reason})
	}

	if attackerID != "" && attackerID != attacker.ID {
		fail("You can only run campaigns for your own faction.")
		return
	}

	target := g.faction(targetID)
	if target == nil {
		return
	}
	if target == attacker {
		fail("You cannot run a scandal campaign against your own faction.")
		return
	}
	if attacker.Tokens.Capital < scandalCost {
		fail("A scandal campaign costs 1 political capital.")
		return
	}

	attacker.adjustCapital(-scandalCost)
	attacker.adjustApproval(scandalAttackerApproval)
	target.adjustApproval(scandalTargetApproval)

	g.logf("GAMES: %q ran a scandal campaign against %q", attacker.Name, target.Name)

	out.broadcast(EventScandalExecuted, ScandalExecuted{
		AttackerID:       attacker.ID,
		AttackerName:     attacker.Name,
		TargetID:         target.ID,
		TargetName:       target.Name,
		AttackerApproval: attacker.VoterApproval,
		TargetApproval:   target.VoterApproval,
	})
	out.broadcast(EventFactionsUpdated, g.roster())
	g.refreshStudents(out)
}
