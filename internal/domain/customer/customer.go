package customer

import "fmt"

// ReservedID is the one customer id that the HTTP read paths treat as a true
// not-found, regardless of store contents. Every other unknown id gets a
// synthesized default record instead.
const ReservedID = "missing"

type Tier string

const (
	TierStandard Tier = "STANDARD"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
)

func (t Tier) Valid() bool {
	switch t {
	case TierStandard, TierGold, TierPlatinum:
		return true
	}
	return false
}

type Preferences struct {
	Newsletter bool   `json:"newsletter"`
	Language   string `json:"language"`
}

type Customer struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	Tier        Tier        `json:"tier"`
	Preferences Preferences `json:"preferences"`
}

func DefaultPreferences() Preferences {
	return Preferences{Newsletter: true, Language: "en-US"}
}

// Synthesize fabricates a default record for an id that is not in the store.
// The result is never persisted by the lookup itself.
func Synthesize(id string) *Customer {
	return &Customer{
		ID:          id,
		Email:       fmt.Sprintf("%s@example.com", id),
		Tier:        TierStandard,
		Preferences: DefaultPreferences(),
	}
}
