package booking

import (
	"errors"

	"rentcal/internal/domain/listings"
)

var ErrUnknownGuestKind = errors.New("booking: unknown guest kind")

type GuestKind string

const (
	Adults   GuestKind = "adults"
	Children GuestKind = "children"
	Infants  GuestKind = "infants"
	Pets     GuestKind = "pets"
)

// GuestCount is the party composition chosen in the guest picker. Increment
// and Decrement are the picker's counter controls; counts that arrive from a
// client go through Clamp before validation.
type GuestCount struct {
	Adults   int
	Children int
	Infants  int
	Pets     int
}

// Occupants counts people against the listing capacity. Pets are tracked on
// their own counter and never count towards it.
func (g GuestCount) Occupants() int {
	return g.Adults + g.Children + g.Infants
}

// PetsEnabled reports whether the pet counter control is active.
func PetsEnabled(rules listings.HouseRules) bool {
	return rules.PetsAllowed
}

// Increment bumps one counter. The pet counter stays clamped at zero when the
// listing does not allow pets.
func (g GuestCount) Increment(kind GuestKind, rules listings.HouseRules) (GuestCount, error) {
	switch kind {
	case Adults:
		g.Adults++
	case Children:
		g.Children++
	case Infants:
		g.Infants++
	case Pets:
		if !PetsEnabled(rules) {
			g.Pets = 0
			return g, nil
		}
		g.Pets++
	default:
		return g, ErrUnknownGuestKind
	}
	return g, nil
}

func (g GuestCount) Decrement(kind GuestKind) (GuestCount, error) {
	switch kind {
	case Adults:
		g.Adults = floorZero(g.Adults - 1)
	case Children:
		g.Children = floorZero(g.Children - 1)
	case Infants:
		g.Infants = floorZero(g.Infants - 1)
	case Pets:
		g.Pets = floorZero(g.Pets - 1)
	default:
		return g, ErrUnknownGuestKind
	}
	return g, nil
}

// Clamp applies the control-level limits to a count received from a client.
func (g GuestCount) Clamp(rules listings.HouseRules) GuestCount {
	g.Adults = floorZero(g.Adults)
	g.Children = floorZero(g.Children)
	g.Infants = floorZero(g.Infants)
	g.Pets = floorZero(g.Pets)
	if !PetsEnabled(rules) {
		g.Pets = 0
	}
	return g
}

func floorZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
