/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"slices"
	"strings"
)

const maxNameLength = 40

// Student is a registered non-teacher connection.
type Student struct {
	ConnID    string
	Name      string
	FactionID string
	IsLeader  bool

	joined uint64
}

// Role is what a connection is allowed to do.
type Role int

const (
	RoleNone Role = iota
	RoleTeacher
	RoleStudent
)

// RoleOf reports the role currently held by a connection.
func (g *Game) RoleOf(connID string) Role {
	switch {
	case connID != "" && connID == g.TeacherConn:
		return RoleTeacher
	case g.Students[connID] != nil:
		return RoleStudent
	}
	return RoleNone
}

func (r Role) String() string {
	switch r {
	case RoleTeacher:
		return "teacher"
	case RoleStudent:
		return "student"
	}
	return "spectator"
}

// orderedStudents lists students in registration order.
func (g *Game) orderedStudents() []*Student {
	out := make([]*Student, 0, len(g.Students))
	for _, s := range g.Students {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *Student) int {
		switch {
		case a.joined < b.joined:
			return -1
		case a.joined > b.joined:
			return 1
		}
		return 0
	})
	return out
}

func (g *Game) membersOf(factionID string) []string {
	var ids []string
	for _, s := range g.orderedStudents() {
		if s.FactionID == factionID {
			ids = append(ids, s.ConnID)
		}
	}
	return ids
}

func (g *Game) studentCounts() map[string]int {
	counts := make(map[string]int, len(g.Factions))
	for _, s := range g.Students {
		if s.FactionID != "" {
			counts[s.FactionID]++
		}
	}
	return counts
}

// Connect produces the deliveries a newly opened connection receives.
func (g *Game) Connect(connID string) []Delivery {
	var out outbox
	out.send(connID, EventGameState, g.publicState())
	out.send(connID, EventAvailableFactions, g.availableFactions())
	return out
}

// Disconnect releases whatever role a connection held. A departing leader
// is not replaced.
func (g *Game) Disconnect(connID string) []Delivery {
	var out outbox

	if connID != "" && connID == g.TeacherConn {
		g.TeacherConn = ""
		g.logf("GAMES: Teacher disconnected")
	}

	s, ok := g.Students[connID]
	if !ok {
		return out
	}
	delete(g.Students, connID)
	g.logf("GAMES: Student %q disconnected", s.Name)

	g.sendStudentsUpdate(&out)
	if s.FactionID != "" {
		out.broadcast(EventFactionsUpdated, g.roster())
		g.refreshStudents(&out)
	}

	return out
}

func (g *Game) registerTeacher(connID string, out *outbox) {
	// one role per connection
	if s, ok := g.Students[connID]; ok {
		delete(g.Students, connID)
		if s.FactionID != "" {
			out.broadcast(EventFactionsUpdated, g.roster())
		}
	}

	if g.TeacherConn != "" && g.TeacherConn != connID {
		g.logf("GAMES: Teacher role moved from %s to %s", g.TeacherConn, connID)
	}
	g.TeacherConn = connID
	g.logf("GAMES: Teacher registered on %s", connID)

	out.send(connID, EventTeacherRegistered, TeacherRegistered{
		Policies: g.catalog.Policies(),
		Factions: g.availableFactions(),
	})
	out.send(connID, EventGameState, g.teacherState())
	g.sendStudentsUpdate(out)
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Anonymous"
	}
	return truncate(name, maxNameLength)
}

func (g *Game) registerStudent(connID, name string, out *outbox) {
	if connID == g.TeacherConn {
		g.TeacherConn = ""
	}

	name = cleanName(name)

	s, ok := g.Students[connID]
	if ok {
		s.Name = name
	} else {
		g.studentSeq++
		s = &Student{ConnID: connID, Name: name, joined: g.studentSeq}
		g.Students[connID] = s
	}
	g.logf("GAMES: Student %q registered on %s", name, connID)

	g.sendRegistration(s, out)
	out.send(connID, EventAvailableFactions, g.availableFactions())
	g.sendStudentsUpdate(out)
}

func (g *Game) selectFaction(connID, factionID string, out *outbox) {
	s, ok := g.Students[connID]
	if !ok {
		return
	}

	if g.Started {
		out.send(connID, EventActionRejected, Rejection{
			Command: SelectFaction{}.Name(),
			Reason:  "Factions are locked once the game has started.",
		})
		return
	}

	factionID = truncate(factionID, maxNameLength)

	f := g.faction(factionID)
	if f == nil {
		f = NewFaction(factionID)
		g.Factions = append(g.Factions, f)
		g.logf("GAMES: Faction %q created", f.Name)
	}

	if s.IsLeader && s.FactionID != factionID {
		if old := g.faction(s.FactionID); old != nil {
			g.logf("GAMES: Leader %q left %q; it keeps no leader", s.Name, old.Name)
		}
	}

	// Leadership goes to the first student ever assigned to the faction and
	// is never handed on.
	if _, taken := g.leaders[factionID]; !taken {
		g.leaders[factionID] = connID
	}
	s.FactionID = factionID
	s.IsLeader = g.leaders[factionID] == connID

	g.logf("GAMES: Student %q joined %q (leader: %t)", s.Name, f.Name, s.IsLeader)

	roster := g.roster()
	out.send(connID, EventFactionSelected, FactionSelected{
		FactionID: factionID,
		Faction:   f.Identity,
		IsLeader:  s.IsLeader,
		Factions:  roster,
	})
	out.broadcast(EventFactionsUpdated, roster)
	// teammates' views list the newcomer, and a faction left behind loses one
	g.refreshStudents(out)
	g.sendStudentsUpdate(out)
}

func (g *Game) sendRegistration(s *Student, out *outbox) {
	out.send(s.ConnID, EventStudentRegistered, StudentRegistered{
		ID:        s.ConnID,
		Name:      s.Name,
		FactionID: s.FactionID,
	})
}

// sendRegistrations tells every student their current faction, which after
// a reset is none.
func (g *Game) sendRegistrations(out *outbox) {
	for _, s := range g.orderedStudents() {
		g.sendRegistration(s, out)
	}
}

func (g *Game) sendStudentsUpdate(out *outbox) {
	out.send(g.TeacherConn, EventStudentsUpdate, g.studentViews())
}
