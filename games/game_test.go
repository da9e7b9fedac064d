/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"slices"
	"testing"
	"time"
)

const (
	teacher = "teacher-conn"
	alice   = "alice-conn"
	bob     = "bob-conn"
	carol   = "carol-conn"
)

func newTestGame(t *testing.T) *Game {
	t.Helper()

	catalog, err := NewCatalog(DefaultPolicies())
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	g := NewGame(catalog, t.Logf)
	g.now = func() time.Time { return time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC) }

	return g
}

// startedGame registers a teacher, puts alice and bob into the given
// factions and starts the game.
func startedGame(t *testing.T, aliceFaction, bobFaction string) *Game {
	t.Helper()

	g := newTestGame(t)
	g.Handle(teacher, RegisterTeacher{})
	g.Handle(alice, RegisterStudent{StudentName: "Alice"})
	g.Handle(bob, RegisterStudent{StudentName: "Bob"})
	g.Handle(alice, SelectFaction{FactionID: aliceFaction})
	g.Handle(bob, SelectFaction{FactionID: bobFaction})

	out := g.Handle(teacher, StartGame{})
	if _, ok := lastEvent(out, EventGameStartError); ok {
		t.Fatalf("game did not start")
	}

	return g
}

func lastEvent(out []Delivery, event string) (Delivery, bool) {
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Event == event {
			return out[i], true
		}
	}
	return Delivery{}, false
}

func eventsFor(out []Delivery, connID string) []string {
	var events []string
	for _, d := range out {
		if d.Broadcast() || slices.Contains(d.To, connID) {
			events = append(events, d.Event)
		}
	}
	return events
}

func propose(t *testing.T, g *Game, p Proposal) {
	t.Helper()

	out := g.Handle(teacher, SelectProposal{Proposal: p})
	if _, ok := lastEvent(out, EventProposalSelected); !ok {
		t.Fatalf("proposal %q was not selected", p.Policy.ID)
	}
	g.Handle(teacher, StartVoting{})
}

func tally(t *testing.T, g *Game) VoteResults {
	t.Helper()

	d, ok := lastEvent(g.Handle(teacher, TallyVotes{}), EventVoteResults)
	if !ok {
		t.Fatalf("tally produced no voteResults")
	}
	return d.Payload.(VoteResults)
}

func TestStartGame(t *testing.T) {
	g := startedGame(t, "socialist", "conservative")

	if !g.Started || g.Round != 1 || g.Phase != PhaseProposal {
		t.Fatalf("started=%t round=%d phase=%q", g.Started, g.Round, g.Phase)
	}

	for _, id := range []string{"socialist", "conservative"} {
		f := g.faction(id)
		if f == nil {
			t.Fatalf("faction %q missing", id)
		}
		if f.Tokens.Capital != 5 || f.VoterApproval != 50 {
			t.Errorf("%s: capital=%d approval=%d, want 5 and 50", id, f.Tokens.Capital, f.VoterApproval)
		}
		if len(f.Objectives) != 3 {
			t.Errorf("%s: %d objectives, want 3", id, len(f.Objectives))
		}
	}
}

func TestStartGameRejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(g *Game)
	}{
		{"one student", func(g *Game) {
			g.Handle(alice, RegisterStudent{StudentName: "Alice"})
			g.Handle(alice, SelectFaction{FactionID: "green"})
		}},
		{"one faction", func(g *Game) {
			g.Handle(alice, RegisterStudent{StudentName: "Alice"})
			g.Handle(bob, RegisterStudent{StudentName: "Bob"})
			g.Handle(alice, SelectFaction{FactionID: "green"})
			g.Handle(bob, SelectFaction{FactionID: "green"})
		}},
		{"students without factions", func(g *Game) {
			g.Handle(alice, RegisterStudent{StudentName: "Alice"})
			g.Handle(bob, RegisterStudent{StudentName: "Bob"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGame(t)
			g.Handle(teacher, RegisterTeacher{})
			tt.setup(g)

			d, ok := lastEvent(g.Handle(teacher, StartGame{}), EventGameStartError)
			if !ok {
				t.Fatal("expected gameStartError")
			}
			if !slices.Equal(d.To, []string{teacher}) {
				t.Errorf("gameStartError sent to %v", d.To)
			}
			if g.Started {
				t.Error("game started anyway")
			}
		})
	}
}

func TestStartGameRequiresTeacher(t *testing.T) {
	g := newTestGame(t)
	g.Handle(alice, RegisterStudent{StudentName: "Alice"})
	g.Handle(bob, RegisterStudent{StudentName: "Bob"})
	g.Handle(alice, SelectFaction{FactionID: "green"})
	g.Handle(bob, SelectFaction{FactionID: "liberal"})

	if out := g.Handle(alice, StartGame{}); len(out) != 0 {
		t.Errorf("student startGame produced %d deliveries", len(out))
	}
	if g.Started {
		t.Error("student was able to start the game")
	}
}

func TestStartGamePrunesEmptyFactions(t *testing.T) {
	g := newTestGame(t)
	g.Handle(teacher, RegisterTeacher{})
	g.Handle(alice, RegisterStudent{StudentName: "Alice"})
	g.Handle(bob, RegisterStudent{StudentName: "Bob"})
	g.Handle(alice, SelectFaction{FactionID: "green"})
	g.Handle(alice, SelectFaction{FactionID: "liberal"})
	g.Handle(bob, SelectFaction{FactionID: "populist"})
	g.Handle(teacher, StartGame{})

	if g.faction("green") != nil {
		t.Error("abandoned faction survived startGame")
	}
	if len(g.Factions) != 2 {
		t.Errorf("%d factions, want 2", len(g.Factions))
	}
}

func TestVotePasses(t *testing.T) {
	g := startedGame(t, "socialist", "conservative")

	propose(t, g, Proposal{Policy: Policy{ID: "stimulus", Name: "Stimulus", Effects: map[Metric]float64{MetricGDP: 10}}})
	// socialist abstains; every cast vote counts and ties fail
	g.Handle(bob, SubmitVote{Vote: true})

	res := tally(t, g)

	if !res.Passed || res.YesVotes != 1 || res.NoVotes != 0 {
		t.Fatalf("passed=%t yes=%d no=%d", res.Passed, res.YesVotes, res.NoVotes)
	}
	if got := g.Metrics[MetricGDP]; got != 110 {
		t.Errorf("gdp = %v, want 110", got)
	}

	con := g.faction("conservative")
	if con.Tokens.Capital != 6 || con.VoterApproval != 52 {
		t.Errorf("conservative capital=%d approval=%d, want 6 and 52", con.Tokens.Capital, con.VoterApproval)
	}

	soc := g.faction("socialist")
	if soc.Tokens.Capital != 5 || soc.VoterApproval != 50 {
		t.Errorf("socialist capital=%d approval=%d, want 5 and 50", soc.Tokens.Capital, soc.VoterApproval)
	}

	if g.Phase != PhaseResults {
		t.Errorf("phase = %q, want results", g.Phase)
	}
	if con.Objectives[0].Progress != 1 {
		t.Errorf("gdp objective progress = %v, want 1", con.Objectives[0].Progress)
	}
}

func TestVoteTieFails(t *testing.T) {
	tests := []struct {
		name       string
		alice, bob bool
		blocker    string
		loser      string
	}{
		{"socialist no, conservative yes", false, true, "socialist", "conservative"},
		{"socialist yes, conservative no", true, false, "conservative", "socialist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := startedGame(t, "socialist", "conservative")

			propose(t, g, Proposal{Policy: Policy{ID: "stimulus", Effects: map[Metric]float64{MetricGDP: 10}}})
			g.Handle(alice, SubmitVote{Vote: tt.alice})
			g.Handle(bob, SubmitVote{Vote: tt.bob})

			res := tally(t, g)

			if res.Passed || res.YesVotes != 1 || res.NoVotes != 1 {
				t.Fatalf("passed=%t yes=%d no=%d, want a failed 1-1 tie", res.Passed, res.YesVotes, res.NoVotes)
			}
			if got := g.Metrics[MetricGDP]; got != 100 {
				t.Errorf("gdp = %v, want 100", got)
			}
			if got := g.faction(tt.blocker).Tokens.Capital; got != 6 {
				t.Errorf("blocking faction capital = %d, want 6", got)
			}
			if got := g.faction(tt.loser).Tokens.Capital; got != 5 {
				t.Errorf("losing faction capital = %d, want 5", got)
			}
		})
	}
}

func TestProposerRewards(t *testing.T) {
	tests := []struct {
		name         string
		bobVote      bool
		wantApproval int
		wantCapital  int
	}{
		// proposer also wins the vote: +2/+1 and +5/+2
		{"passed", true, 57, 8},
		// 1-1 tie, proposer voted yes: -3 only
		{"failed", false, 47, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := startedGame(t, "populist", "green")

			propose(t, g, Proposal{Policy: Policy{ID: "carbon_tax"}, ProposerID: "populist"})
			g.Handle(alice, SubmitVote{Vote: true})
			g.Handle(bob, SubmitVote{Vote: tt.bobVote})
			tally(t, g)

			f := g.faction("populist")
			if f.VoterApproval != tt.wantApproval || f.Tokens.Capital != tt.wantCapital {
				t.Errorf("approval=%d capital=%d, want %d and %d",
					f.VoterApproval, f.Tokens.Capital, tt.wantApproval, tt.wantCapital)
			}
		})
	}
}

func TestFirstVoteWins(t *testing.T) {
	g := startedGame(t, "socialist", "conservative")
	propose(t, g, Proposal{Policy: Policy{ID: "tax_cuts"}})

	g.Handle(alice, SubmitVote{Vote: true})

	out := g.Handle(alice, SubmitVote{Vote: false})
	d, ok := lastEvent(out, EventVoteRejected)
	if !ok || !slices.Equal(d.To, []string{alice}) {
		t.Fatalf("second vote not rejected to alice: %v", out)
	}

	f := g.faction("socialist")
	if !f.HasVoted || !f.votedYes() {
		t.Errorf("vote = %v, want the first vote (yes)", f.Vote)
	}
}

func TestAllVotesIn(t *testing.T) {
	g := startedGame(t, "socialist", "conservative")
	propose(t, g, Proposal{Policy: Policy{ID: "tax_cuts"}})

	if _, ok := lastEvent(g.Handle(alice, SubmitVote{Vote: true}), EventAllVotesIn); ok {
		t.Error("allVotesIn sent after the first vote")
	}
	if _, ok := lastEvent(g.Handle(bob, SubmitVote{Vote: true}), EventAllVotesIn); !ok {
		t.Error("allVotesIn missing after the last vote")
	}
}

func TestTallyWithoutVotes(t *testing.T) {
	g := startedGame(t, "socialist", "conservative")
	propose(t, g, Proposal{Policy: Policy{ID: "tax_cuts"}})

	out := g.Handle(teacher, TallyVotes{})
	if _, ok := lastEvent(out, EventVoteResults); ok {
		t.Fatal("tallied with no votes")
	}
	if _, ok := lastEvent(out, EventActionRejected); !ok {
		t.Error("expected actionRejected")
	}
}

func TestTallyTwiceReappliesEffects(t *testing.T) {
	g := startedGame(t, "socialist", "conservative")

	propose(t, g, Proposal{Policy: Policy{ID: "boom", Effects: map[Metric]float64{
		MetricGDP:         60,
		MetricEnvironment: -30,
	}}})
	g.Handle(alice, SubmitVote{Vote: true})

	tally(t, g)
	if g.Metrics[MetricGDP] != 160 || g.Metrics[MetricEnvironment] != 20 {
		t.Fatalf("after one tally: %v", g.Metrics)
	}

	tally(t, g)
	if g.Metrics[MetricGDP] != 200 {
		t.Errorf("gdp = %v, want 200 (clamped)", g.Metrics[MetricGDP])
	}
	if g.Metrics[MetricEnvironment] != 0 {
		t.Errorf("environment = %v, want 0 (clamped)", g.Metrics[MetricEnvironment])
	}
}

func TestScandalWithoutCapital(t *testing.T) {
	g := startedGame(t, "socialist", "conservative")
	g.faction("socialist").Tokens.Capital = 0

	out := g.Handle(alice, ScandalCampaign{AttackerID: "socialist", TargetID: "conservative"})

	d, ok := lastEvent(out, EventScandalFailed)
	if !ok || !slices.Equal(d.To, []string{alice}) {
		t.Fatalf("expected scandalFailed for alice, got %v", out)
	}
	if _, ok := lastEvent(out, EventScandalExecuted); ok {
		t.Error("scandal executed without capital")
	}
	if a, b := g.faction("socialist").VoterApproval, g.faction("conservative").VoterApproval; a != 50 || b != 50 {
		t.Errorf("approvals changed: %d, %d", a, b)
	}
}

func TestScandalCampaign(t *testing.T) {
	g := startedGame(t, "socialist", "conservative")

	out := g.Handle(alice, ScandalCampaign{TargetID: "conservative"})
	if _, ok := lastEvent(out, EventScandalExecuted); !ok {
		t.Fatalf("scandal not executed: %v", out)
	}

	soc, con := g.faction("socialist"), g.faction("conservative")
	if soc.Tokens.Capital != 4 || soc.VoterApproval != 52 || con.VoterApproval != 48 {
		t.Errorf("attacker capital=%d approval=%d, target approval=%d", soc.Tokens.Capital, soc.VoterApproval, con.VoterApproval)
	}

	for name, cmd := range map[string]ScandalCampaign{
		"self":         {TargetID: "socialist"},
		"wrong sender": {AttackerID: "conservative", TargetID: "socialist"},
	} {
		if _, ok := lastEvent(g.Handle(alice, cmd), EventScandalFailed); !ok {
			t.Errorf("%s: expected scandalFailed", name)
		}
	}
}

func TestSendToken(t *testing.T) {
	g := startedGame(t, "socialist", "conservative")

	g.Handle(alice, SendToken{ToFactionID: "conservative"})
	if s, c := g.faction("socialist").Tokens.Capital, g.faction("conservative").Tokens.Capital; s != 4 || c != 6 {
		t.Fatalf("capital after transfer: %d, %d", s, c)
	}

	if _, ok := lastEvent(g.Handle(alice, SendToken{ToFactionID: "socialist"}), EventActionRejected); !ok {
		t.Error("self transfer not rejected")
	}

	g.faction("socialist").Tokens.Capital = 0
	if _, ok := lastEvent(g.Handle(alice, SendToken{ToFactionID: "conservative"}), EventActionRejected); !ok {
		t.Error("transfer without capital not rejected")
	}
	if c := g.faction("conservative").Tokens.Capital; c != 6 {
		t.Errorf("conservative capital = %d, want 6", c)
	}
}

func TestSendMessage(t *testing.T) {
	g := startedGame(t, "socialist", "conservative")
	g.Handle(carol, RegisterStudent{StudentName: "Carol"})

	out := g.Handle(alice, SendMessage{ToFactionID: "conservative", Message: "Deal?"})

	recv, ok := lastEvent(out, EventMessageReceived)
	if !ok || !slices.Equal(recv.To, []string{bob}) {
		t.Fatalf("messageReceived to %v", recv.To)
	}
	sent, ok := lastEvent(out, EventMessageSent)
	if !ok || !slices.Equal(sent.To, []string{alice}) {
		t.Fatalf("messageSent to %v", sent.To)
	}

	msg := recv.Payload.(Message)
	if msg.FromFactionID != "socialist" || msg.Message != "Deal?" || msg.IsResponse {
		t.Errorf("unexpected message %+v", msg)
	}
	if slices.Contains(eventsFor(out, carol), EventMessageReceived) {
		t.Error("unaffiliated student saw the message")
	}

	out = g.Handle(bob, RespondToMessage{ToFactionID: "socialist", Response: "Yes"})
	recv, _ = lastEvent(out, EventMessageReceived)
	if !recv.Payload.(Message).IsResponse {
		t.Error("response not flagged")
	}
}

func TestLeaderOnlyActions(t *testing.T) {
	g := newTestGame(t)
	g.Handle(teacher, RegisterTeacher{})
	g.Handle(alice, RegisterStudent{StudentName: "Alice"})
	g.Handle(bob, RegisterStudent{StudentName: "Bob"})
	g.Handle(carol, RegisterStudent{StudentName: "Carol"})
	g.Handle(alice, SelectFaction{FactionID: "green"})
	g.Handle(bob, SelectFaction{FactionID: "green"})
	g.Handle(carol, SelectFaction{FactionID: "liberal"})
	g.Handle(teacher, StartGame{})

	if !g.Students[alice].IsLeader || g.Students[bob].IsLeader {
		t.Fatalf("leaders: alice=%t bob=%t", g.Students[alice].IsLeader, g.Students[bob].IsLeader)
	}

	propose(t, g, Proposal{Policy: Policy{ID: "carbon_tax"}})

	tests := []struct {
		cmd   Command
		event string
	}{
		{SubmitVote{Vote: true}, EventVoteRejected},
		{SendToken{ToFactionID: "liberal"}, EventActionRejected},
		{SendMessage{ToFactionID: "liberal", Message: "hi"}, EventActionRejected},
		{ScandalCampaign{TargetID: "liberal"}, EventScandalFailed},
	}
	for _, tt := range tests {
		if _, ok := lastEvent(g.Handle(bob, tt.cmd), tt.event); !ok {
			t.Errorf("%s by non-leader: expected %s", tt.cmd.Name(), tt.event)
		}
	}

	if g.faction("green").HasVoted {
		t.Error("non-leader vote counted")
	}
}

func TestLeadershipIsNeverReassigned(t *testing.T) {
	g := newTestGame(t)
	g.Handle(alice, RegisterStudent{StudentName: "Alice"})
	g.Handle(bob, RegisterStudent{StudentName: "Bob"})
	g.Handle(alice, SelectFaction{FactionID: "green"})
	g.Handle(bob, SelectFaction{FactionID: "green"})
	g.Handle(bob, SelectFaction{FactionID: "green"})

	leaders := func() int {
		n := 0
		for _, s := range g.Students {
			if s.FactionID == "green" && s.IsLeader {
				n++
			}
		}
		return n
	}

	if n := leaders(); n != 1 {
		t.Fatalf("%d leaders, want 1", n)
	}

	g.Disconnect(alice)
	g.Handle(carol, RegisterStudent{StudentName: "Carol"})
	g.Handle(carol, SelectFaction{FactionID: "green"})

	if n := leaders(); n != 0 {
		t.Errorf("%d leaders after the leader left, want 0", n)
	}
}

func yourFactionFor(t *testing.T, out []Delivery, connID string) YourFaction {
	t.Helper()

	for i := len(out) - 1; i >= 0; i-- {
		d := out[i]
		if d.Event == EventYourFaction && slices.Equal(d.To, []string{connID}) {
			return d.Payload.(YourFaction)
		}
	}
	t.Fatalf("no yourFaction for %s", connID)
	return YourFaction{}
}

func TestTeammatesRefreshOnJoinAndLeave(t *testing.T) {
	g := newTestGame(t)
	g.Handle(alice, RegisterStudent{StudentName: "Alice"})
	g.Handle(bob, RegisterStudent{StudentName: "Bob"})
	g.Handle(alice, SelectFaction{FactionID: "green"})

	view := yourFactionFor(t, g.Handle(bob, SelectFaction{FactionID: "green"}), alice)
	if !slices.Equal(view.Teammates, []string{"Bob"}) || !view.IsLeader {
		t.Errorf("alice after bob joined: teammates=%v leader=%t", view.Teammates, view.IsLeader)
	}

	view = yourFactionFor(t, g.Disconnect(bob), alice)
	if len(view.Teammates) != 0 {
		t.Errorf("alice after bob left: teammates=%v", view.Teammates)
	}
}

func TestEndGameClearsStudentViews(t *testing.T) {
	g := startedGame(t, "socialist", "conservative")

	out := g.Handle(teacher, EndGame{})

	for _, id := range []string{alice, bob} {
		var reg *StudentRegistered
		for _, d := range out {
			if d.Event == EventStudentRegistered && slices.Equal(d.To, []string{id}) {
				r := d.Payload.(StudentRegistered)
				reg = &r
			}
		}
		if reg == nil {
			t.Fatalf("%s got no registration after endGame", id)
		}
		if reg.FactionID != "" {
			t.Errorf("%s still in %q", id, reg.FactionID)
		}
	}
}

func TestLeaderLeavingBeforeStart(t *testing.T) {
	g := newTestGame(t)
	g.Handle(teacher, RegisterTeacher{})
	g.Handle(alice, RegisterStudent{StudentName: "Alice"})
	g.Handle(bob, RegisterStudent{StudentName: "Bob"})
	g.Handle(alice, SelectFaction{FactionID: "green"})
	g.Handle(alice, SelectFaction{FactionID: "liberal"})
	g.Handle(bob, SelectFaction{FactionID: "green"})

	if g.Students[bob].IsLeader {
		t.Fatal("a later member inherited green's leadership")
	}

	g.Handle(teacher, StartGame{})
	propose(t, g, Proposal{Policy: Policy{ID: "carbon_tax"}})

	if _, ok := lastEvent(g.Handle(bob, SubmitVote{Vote: true}), EventVoteRejected); !ok {
		t.Error("leaderless faction voted")
	}
	if _, ok := lastEvent(g.Handle(alice, SubmitVote{Vote: true}), EventAllVotesIn); ok {
		t.Error("allVotesIn fired without the leaderless faction")
	}
}

func TestSelectFactionAfterStart(t *testing.T) {
	g := startedGame(t, "socialist", "conservative")
	g.Handle(carol, RegisterStudent{StudentName: "Carol"})

	if _, ok := lastEvent(g.Handle(carol, SelectFaction{FactionID: "green"}), EventActionRejected); !ok {
		t.Error("late faction selection not rejected")
	}
	if g.faction("green") != nil {
		t.Error("faction created after start")
	}
}

func TestUnknownFactionIsIndependent(t *testing.T) {
	g := newTestGame(t)
	g.Handle(alice, RegisterStudent{StudentName: "Alice"})
	g.Handle(alice, SelectFaction{FactionID: "pirates"})

	f := g.faction("pirates")
	if f == nil {
		t.Fatal("faction not created")
	}
	if f.Name != "Independent" || len(f.Objectives) != 0 {
		t.Errorf("name=%q objectives=%d", f.Name, len(f.Objectives))
	}
}

func TestObjectivesBonusOnce(t *testing.T) {
	g := startedGame(t, "technocrat", "socialist")

	// education_reform covers the specific and proposer objectives, +5 gdp
	propose(t, g, Proposal{Policy: Policy{ID: "education_reform"}, ProposerID: "technocrat"})
	g.Handle(alice, SubmitVote{Vote: true})
	g.Handle(bob, SubmitVote{Vote: true})
	if res := tally(t, g); len(res.BonusAwarded) != 0 {
		t.Fatalf("bonus awarded early: %v", res.BonusAwarded)
	}

	f := g.faction("technocrat")
	before := f.VoterApproval

	g.Handle(teacher, NextRound{})
	propose(t, g, Proposal{Policy: Policy{ID: "stimulus", Effects: map[Metric]float64{MetricGDP: 10}}})
	g.Handle(alice, SubmitVote{Vote: true})
	res := tally(t, g)

	if !slices.Equal(res.BonusAwarded, []string{"technocrat"}) {
		t.Fatalf("bonusAwarded = %v", res.BonusAwarded)
	}
	if !f.ObjectivesBonus || f.VoterApproval != before+2+10 {
		t.Errorf("bonus=%t approval=%d, want %d", f.ObjectivesBonus, f.VoterApproval, before+12)
	}

	before = f.VoterApproval
	g.Handle(teacher, NextRound{})
	propose(t, g, Proposal{Policy: Policy{ID: "stimulus", Effects: map[Metric]float64{MetricGDP: 10}}})
	g.Handle(alice, SubmitVote{Vote: true})
	res = tally(t, g)

	if len(res.BonusAwarded) != 0 || f.VoterApproval != before+2 {
		t.Errorf("bonus granted twice: awarded=%v approval=%d", res.BonusAwarded, f.VoterApproval)
	}

	g.Handle(teacher, EndGame{})
	if !f.ObjectivesBonus {
		t.Error("bonus reverted")
	}
}

func TestEndGameScoring(t *testing.T) {
	g := startedGame(t, "socialist", "conservative")
	soc := g.faction("socialist")
	soc.VoterApproval = 80
	soc.Tokens.Capital = 4

	d, ok := lastEvent(g.Handle(teacher, EndGame{}), EventGameEnded)
	if !ok {
		t.Fatal("no gameEnded")
	}
	ended := d.Payload.(GameEnded)

	if ended.Winner == nil || ended.Winner.ID != "socialist" {
		t.Fatalf("winner = %+v", ended.Winner)
	}
	if got := *ended.Winner.FinalScore; got != 50 {
		t.Errorf("finalScore = %v, want 50", got)
	}
	if got := *ended.Factions[1].FinalScore; got != 37.5 {
		t.Errorf("runner-up finalScore = %v, want 37.5", got)
	}

	if g.Started || g.Phase != PhaseSetup || len(g.Factions) != 0 {
		t.Errorf("game not reset: started=%t phase=%q factions=%d", g.Started, g.Phase, len(g.Factions))
	}
	if g.Students[alice].FactionID != "" || g.Students[alice].IsLeader {
		t.Error("student kept faction after reset")
	}
	if g.Metrics[MetricGDP] != 100 {
		t.Error("metrics not reset")
	}
}

func TestBoundsHold(t *testing.T) {
	g := startedGame(t, "socialist", "conservative")

	for i := 0; i < 20; i++ {
		g.faction("socialist").Tokens.Capital = 10
		g.Handle(alice, ScandalCampaign{TargetID: "conservative"})
		g.Handle(bob, ScandalCampaign{TargetID: "socialist"})
	}

	for round := 0; round < 10; round++ {
		sign := float64(1 - 2*(round%2))
		propose(t, g, Proposal{Policy: Policy{ID: "swing", Effects: map[Metric]float64{
			MetricGDP:        150 * sign,
			MetricInequality: -150 * sign,
		}}, ProposerID: "conservative"})
		g.Handle(alice, SubmitVote{Vote: true})
		g.Handle(bob, SubmitVote{Vote: round%3 == 0})
		tally(t, g)
		g.Handle(teacher, NextRound{})

		for m, v := range g.Metrics {
			if v < 0 || v > 200 {
				t.Fatalf("round %d: %s = %v", round, m, v)
			}
		}
		for _, f := range g.Factions {
			if f.VoterApproval < 0 || f.VoterApproval > 100 || f.Tokens.Capital < 0 {
				t.Fatalf("round %d: %s approval=%d capital=%d", round, f.ID, f.VoterApproval, f.Tokens.Capital)
			}
		}
	}
}

func TestSelectProposal(t *testing.T) {
	g := startedGame(t, "socialist", "conservative")

	if out := g.Handle(teacher, SelectProposal{Proposal: Proposal{Policy: Policy{ID: "nope"}}}); len(out) != 0 {
		t.Errorf("unknown policy produced %d deliveries", len(out))
	}
	if g.CurrentProposal != nil {
		t.Fatal("unknown policy selected")
	}

	g.Handle(teacher, SelectProposal{Proposal: Proposal{Policy: Policy{ID: "wealth_tax"}, ProposerID: "ghosts"}})

	p := g.CurrentProposal
	if p == nil || p.Policy.Name != "Wealth Tax" || p.Policy.Effects[MetricInequality] != -15 {
		t.Fatalf("proposal = %+v", p)
	}
	if p.ProposerID != "" {
		t.Errorf("unknown proposer kept: %q", p.ProposerID)
	}
	if g.Phase != PhaseNegotiation {
		t.Errorf("phase = %q, want negotiation", g.Phase)
	}

	if out := g.Handle(alice, SelectProposal{Proposal: Proposal{Policy: Policy{ID: "tax_cuts"}}}); len(out) != 0 {
		t.Error("student selected a proposal")
	}
}

func TestViewsAreRedacted(t *testing.T) {
	g := startedGame(t, "socialist", "conservative")

	out := g.Handle(teacher, NextRound{})

	var public, full *State
	for _, d := range out {
		if d.Event != EventGameState {
			continue
		}
		s := d.Payload.(State)
		if d.Broadcast() {
			public = &s
		} else if slices.Equal(d.To, []string{teacher}) {
			full = &s
		}
	}

	if public == nil || full == nil {
		t.Fatal("missing gameState deliveries")
	}
	if len(public.Students) != 0 || len(public.FactionDetails) != 0 {
		t.Error("public state leaks teacher detail")
	}
	if len(full.Students) != 2 || len(full.FactionDetails) != 2 {
		t.Errorf("teacher state has %d students, %d factions", len(full.Students), len(full.FactionDetails))
	}

	d, ok := lastEvent(out, EventYourFaction)
	if !ok {
		t.Fatal("no yourFaction")
	}
	yf := d.Payload.(YourFaction)
	if yf.Round != 2 || len(yf.AllFactions) != 2 {
		t.Errorf("yourFaction round=%d factions=%d", yf.Round, len(yf.AllFactions))
	}
}

func TestSnapshotsDoNotAlias(t *testing.T) {
	g := startedGame(t, "socialist", "conservative")

	d, _ := lastEvent(g.Handle(teacher, NextRound{}), EventGameState)
	view := d.Payload.(State)

	g.faction("socialist").Objectives[0].Progress = 99
	g.Metrics[MetricGDP] = 1

	for _, f := range view.FactionDetails {
		if f.ID == "socialist" && f.Objectives[0].Progress == 99 {
			t.Error("view shares objectives with live state")
		}
	}
	if view.Metrics[MetricGDP] == 1 {
		t.Error("view shares metrics with live state")
	}
}

func TestRoles(t *testing.T) {
	g := newTestGame(t)

	g.Handle(alice, RegisterTeacher{})
	g.Handle(alice, RegisterStudent{StudentName: "  "})

	if g.RoleOf(alice) != RoleStudent || g.TeacherConn != "" {
		t.Fatalf("role = %v, teacher = %q", g.RoleOf(alice), g.TeacherConn)
	}
	if s := g.Students[alice]; s.Name != "Anonymous" {
		t.Errorf("name = %q, want Anonymous", s.Name)
	}

	g.Handle(bob, RegisterTeacher{})
	g.Handle(carol, RegisterTeacher{})
	if g.TeacherConn != carol {
		t.Errorf("teacher = %q, want the latest registration", g.TeacherConn)
	}

	g.Disconnect(carol)
	if g.TeacherConn != "" || g.RoleOf(carol) != RoleNone {
		t.Error("teacher slot not released")
	}

	g.Disconnect(alice)
	if _, ok := g.Students[alice]; ok {
		t.Error("student not removed")
	}
}

func TestConnect(t *testing.T) {
	g := newTestGame(t)

	events := eventsFor(g.Connect(alice), alice)
	if !slices.Equal(events, []string{EventGameState, EventAvailableFactions}) {
		t.Errorf("connect events = %v", events)
	}
}
