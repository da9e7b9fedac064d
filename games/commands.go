/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Command is an inbound client event with a validated payload.
type Command interface {
	Name() string
}

type (
	RegisterTeacher struct{}
	RegisterStudent struct{ StudentName string }
	SelectFaction   struct{ FactionID string }
	StartGame       struct{}
	SelectProposal  struct{ Proposal Proposal }
	SendToken       struct{ ToFactionID string }
	SendMessage     struct {
		ToFactionID string
		Message     string
	}
	RespondToMessage struct {
		ToFactionID string
		Response    string
	}
	StartVoting     struct{}
	RestartVoting   struct{}
	SubmitVote      struct{ Vote bool }
	TallyVotes      struct{}
	NextRound       struct{}
	EndGame         struct{}
	ScandalCampaign struct{ AttackerID, TargetID string }

	// Rejected stands in for a command that could not be decoded.
	Rejected struct{ Type, Reason string }
)

func (RegisterTeacher) Name() string  { return "registerTeacher" }
func (RegisterStudent) Name() string  { return "registerStudent" }
func (SelectFaction) Name() string    { return "selectFaction" }
func (StartGame) Name() string        { return "startGame" }
func (SelectProposal) Name() string   { return "selectProposal" }
func (SendToken) Name() string        { return "sendToken" }
func (SendMessage) Name() string      { return "sendMessage" }
func (RespondToMessage) Name() string { return "respondToMessage" }
func (StartVoting) Name() string      { return "startVoting" }
func (RestartVoting) Name() string    { return "restartVoting" }
func (SubmitVote) Name() string       { return "submitVote" }
func (TallyVotes) Name() string       { return "tallyVotes" }
func (NextRound) Name() string        { return "nextRound" }
func (EndGame) Name() string          { return "endGame" }
func (ScandalCampaign) Name() string  { return "scandalCampaign" }
func (Rejected) Name() string         { return "rejected" }

const maxMessageLength = 500

// proposerRef accepts a proposer given either as a bare faction id or as a
// faction object carrying an id.
type proposerRef string

func (p *proposerRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = proposerRef(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*p = proposerRef(obj.ID)
	return nil
}

type policyPayload struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Effects map[string]float64 `json:"effects"`
}

type proposalPayload struct {
	Policy   *policyPayload `json:"policy"`
	Proposer proposerRef    `json:"proposer"`
}

func (p proposalPayload) toProposal() (Proposal, string) {
	if p.Policy == nil {
		return Proposal{}, "proposal has no policy"
	}
	if p.Policy.ID == "" && len(p.Policy.Effects) == 0 {
		return Proposal{}, "policy has neither id nor effects"
	}

	var effects map[Metric]float64
	if p.Policy.Effects != nil {
		effects = make(map[Metric]float64, len(p.Policy.Effects))
		for name, delta := range p.Policy.Effects {
			m, ok := ParseMetric(name)
			if !ok {
				// unknown gauges cannot move anything
				continue
			}
			effects[m] = delta
		}
	}

	return Proposal{
		Policy: Policy{
			ID:      p.Policy.ID,
			Name:    p.Policy.Name,
			Effects: effects,
		},
		ProposerID: string(p.Proposer),
	}, ""
}

func reject(typ, reason string) Command {
	return Rejected{Type: typ, Reason: reason}
}

func emptyPayload(payload json.RawMessage) bool {
	trimmed := bytes.TrimSpace(payload)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decode(payload json.RawMessage, v any) bool {
	if emptyPayload(payload) {
		return false
	}
	return json.Unmarshal(payload, v) == nil
}

// DecodeCommand maps a named inbound message onto its command variant.
// Malformed payloads and unknown names decode to Rejected.
func DecodeCommand(typ string, payload json.RawMessage) Command {
	switch typ {
	case "registerTeacher":
		return RegisterTeacher{}

	case "registerStudent":
		var p struct {
			Name string `json:"name"`
		}
		// a missing payload registers an anonymous student
		if !emptyPayload(payload) && !decode(payload, &p) {
			return reject(typ, "malformed payload")
		}
		return RegisterStudent{StudentName: p.Name}

	case "selectFaction":
		var p struct {
			FactionID string `json:"factionId"`
		}
		if !decode(payload, &p) || strings.TrimSpace(p.FactionID) == "" {
			return reject(typ, "missing factionId")
		}
		return SelectFaction{FactionID: strings.TrimSpace(p.FactionID)}

	case "startGame":
		return StartGame{}

	case "selectProposal":
		var wrapped struct {
			Proposal *proposalPayload `json:"proposal"`
			proposalPayload
		}
		if !decode(payload, &wrapped) {
			return reject(typ, "malformed payload")
		}
		p := wrapped.proposalPayload
		if wrapped.Proposal != nil {
			p.Policy = wrapped.Proposal.Policy
			if wrapped.Proposal.Proposer != "" {
				p.Proposer = wrapped.Proposal.Proposer
			}
		}
		proposal, reason := p.toProposal()
		if reason != "" {
			return reject(typ, reason)
		}
		return SelectProposal{Proposal: proposal}

	case "sendToken":
		var p struct {
			ToFactionID string `json:"toFactionId"`
		}
		if !decode(payload, &p) || p.ToFactionID == "" {
			return reject(typ, "missing toFactionId")
		}
		return SendToken{ToFactionID: p.ToFactionID}

	case "sendMessage":
		var p struct {
			ToFactionID string `json:"toFactionId"`
			Message     string `json:"message"`
		}
		if !decode(payload, &p) || p.ToFactionID == "" || strings.TrimSpace(p.Message) == "" {
			return reject(typ, "missing toFactionId or message")
		}
		return SendMessage{ToFactionID: p.ToFactionID, Message: truncate(p.Message, maxMessageLength)}

	case "respondToMessage":
		var p struct {
			ToFactionID string `json:"toFactionId"`
			Response    string `json:"response"`
		}
		if !decode(payload, &p) || p.ToFactionID == "" || strings.TrimSpace(p.Response) == "" {
			return reject(typ, "missing toFactionId or response")
		}
		return RespondToMessage{ToFactionID: p.ToFactionID, Response: truncate(p.Response, maxMessageLength)}

	case "startVoting":
		return StartVoting{}

	case "restartVoting":
		return RestartVoting{}

	case "submitVote":
		var v bool
		if !decode(payload, &v) {
			// also accept {"vote": true}
			var p struct {
				Vote *bool `json:"vote"`
			}
			if !decode(payload, &p) || p.Vote == nil {
				return reject(typ, "vote must be a boolean")
			}
			v = *p.Vote
		}
		return SubmitVote{Vote: v}

	case "tallyVotes":
		return TallyVotes{}

	case "nextRound":
		return NextRound{}

	case "endGame":
		return EndGame{}

	case "scandalCampaign":
		var p struct {
			AttackerID string `json:"attackerId"`
			TargetID   string `json:"targetId"`
		}
		if !decode(payload, &p) || p.TargetID == "" {
			return reject(typ, "missing targetId")
		}
		return ScandalCampaign{AttackerID: p.AttackerID, TargetID: p.TargetID}
	}

	return reject(typ, "unknown command")
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
