/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

const (
	startingApproval = 50
	maxApproval      = 100
)

// Identity is the static, catalog-defined part of a faction.
type Identity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// Tokens holds a faction's tradeable resources.
type Tokens struct {
	Capital int `json:"capital"`
}

// Faction is a student bloc: catalog identity plus mutable play state.
type Faction struct {
	Identity

	Tokens          Tokens       `json:"tokens"`
	VoterApproval   int          `json:"voterApproval"`
	HasVoted        bool         `json:"hasVoted"`
	Vote            *bool        `json:"vote"`
	Objectives      []*Objective `json:"objectives"`
	ObjectivesBonus bool         `json:"objectivesBonus"`
	FinalScore      *float64     `json:"finalScore,omitempty"`
}

var factionCatalog = []Identity{
	{
		ID:          "socialist",
		Name:        "Socialist Alliance",
		Icon:        "✊",
		Color:       "#d32f2f",
		Description: "Workers first. Public ownership, strong unions and a fair share for everyone.",
	},
	{
		ID:          "conservative",
		Name:        "Conservative Party",
		Icon:        "🏛️",
		Color:       "#1565c0",
		Description: "Tradition, family and fiscal restraint. Growth comes from a steady hand.",
	},
	{
		ID:          "liberal",
		Name:        "Liberal Democrats",
		Icon:        "🕊️",
		Color:       "#f9a825",
		Description: "Civil liberties, open markets and institutions that protect the individual.",
	},
	{
		ID:          "green",
		Name:        "Green Coalition",
		Icon:        "🌿",
		Color:       "#2e7d32",
		Description: "There is no economy on a dead planet. Sustainability above all.",
	},
	{
		ID:          "libertarian",
		Name:        "Libertarian Front",
		Icon:        "🗽",
		Color:       "#ff8f00",
		Description: "Smaller government, lower taxes and maximum personal freedom.",
	},
	{
		ID:          "nationalist",
		Name:        "National Unity",
		Icon:        "🦅",
		Color:       "#4e342e",
		Description: "Secure borders, national pride and a cohesive society.",
	},
	{
		ID:          "populist",
		Name:        "People's Movement",
		Icon:        "📣",
		Color:       "#6a1b9a",
		Description: "Against the elites, for ordinary people. Wins by getting its own bills through.",
	},
	{
		ID:          "technocrat",
		Name:        "Technocratic Union",
		Icon:        "🔬",
		Color:       "#00838f",
		Description: "Evidence-based policy, expert governance and long-term growth.",
	},
}

// defaultIdentity backs faction ids missing from the catalog.
var defaultIdentity = Identity{
	Name:        "Independent",
	Icon:        "🏳️",
	Color:       "#757575",
	Description: "An unaffiliated bloc of independents.",
}

// FactionCatalog returns the static identities of every known faction.
func FactionCatalog() []Identity {
	out := make([]Identity, len(factionCatalog))
	copy(out, factionCatalog)
	return out
}

func lookupIdentity(id string) (Identity, bool) {
	for _, ident := range factionCatalog {
		if ident.ID == id {
			return ident, true
		}
	}
	return Identity{}, false
}

// NewFaction instantiates play state for a faction id. Unknown ids get the
// default identity under the requested id and no objectives.
func NewFaction(id string) *Faction {
	ident, ok := lookupIdentity(id)
	if !ok {
		ident = defaultIdentity
		ident.ID = id
	}

	return &Faction{
		Identity:      ident,
		VoterApproval: startingApproval,
		Objectives:    GenerateObjectives(id),
	}
}

func (f *Faction) adjustApproval(delta int) {
	f.VoterApproval = clampInt(f.VoterApproval+delta, 0, maxApproval)
}

func (f *Faction) adjustCapital(delta int) {
	f.Tokens.Capital = max(f.Tokens.Capital+delta, 0)
}

func (f *Faction) resetVote() {
	f.HasVoted = false
	f.Vote = nil
}

func (f *Faction) votedYes() bool {
	return f.Vote != nil && *f.Vote
}

func (f *Faction) votedNo() bool {
	return f.Vote != nil && !*f.Vote
}

func (f *Faction) score() float64 {
	return 0.5*float64(f.VoterApproval) + 0.5*float64(f.Tokens.Capital*5)
}
