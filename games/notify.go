/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

// Outbound notification names.
const (
	EventGameState         = "gameState"
	EventConnectionInfo    = "connectionInfo"
	EventTeacherRegistered = "teacherRegistered"
	EventStudentRegistered = "studentRegistered"
	EventAvailableFactions = "availableFactions"
	EventFactionSelected   = "factionSelected"
	EventFactionsUpdated   = "factionsUpdated"
	EventStudentsUpdate    = "studentsUpdate"
	EventGameStarted       = "gameStarted"
	EventGameStartError    = "gameStartError"
	EventProposalSelected  = "proposalSelected"
	EventYourFaction       = "yourFaction"
	EventVotingStarted     = "votingStarted"
	EventVotingRestarted   = "votingRestarted"
	EventVoteReceived      = "voteReceived"
	EventAllVotesIn        = "allVotesIn"
	EventVoteResults       = "voteResults"
	EventRoundChanged      = "roundChanged"
	EventGameEnded         = "gameEnded"
	EventMessageReceived   = "messageReceived"
	EventMessageSent       = "messageSent"
	EventActionRejected    = "actionRejected"
	EventVoteRejected      = "voteRejected"
	EventScandalFailed     = "scandalFailed"
	EventScandalExecuted   = "scandalExecuted"
)

// Delivery is one outbound notification. A nil To means every connection.
type Delivery struct {
	To      []string
	Event   string
	Payload any
}

// Broadcast reports whether the delivery targets every connection.
func (d Delivery) Broadcast() bool {
	return d.To == nil
}

// outbox collects deliveries in the order a handler produces them.
type outbox []Delivery

func (o *outbox) broadcast(event string, payload any) {
	*o = append(*o, Delivery{Event: event, Payload: payload})
}

func (o *outbox) send(to string, event string, payload any) {
	if to == "" {
		return
	}
	*o = append(*o, Delivery{To: []string{to}, Event: event, Payload: payload})
}

func (o *outbox) sendMany(to []string, event string, payload any) {
	if len(to) == 0 {
		return
	}
	*o = append(*o, Delivery{To: to, Event: event, Payload: payload})
}

// Rejection carries the human-readable reason a command was refused.
type Rejection struct {
	Command string `json:"command,omitempty"`
	Reason  string `json:"reason"`
}
