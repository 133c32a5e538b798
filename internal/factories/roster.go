package factories

import (
	"fmt"

	"github.com/jaswdr/faker"
	"github.com/lucsky/cuid"
)

// DriverIdentity is the cosmetic identity attached to an agent id for
// external display. Generated outside the engine so the dynamics of a run
// never depend on it.
type DriverIdentity struct {
	Name  string
	Plate string
}

// FleetRoster maps agent ids to display identities.
type FleetRoster struct {
	RunID   string
	Drivers []DriverIdentity
}

type RosterFactory struct{}

// CreateRoster builds identities for a fleet of the given size.
func (rf *RosterFactory) CreateRoster(fleetSize int) *FleetRoster {
	fake := faker.New()
	roster := &FleetRoster{
		RunID:   cuid.New(),
		Drivers: make([]DriverIdentity, fleetSize),
	}
	for i := range roster.Drivers {
		roster.Drivers[i] = DriverIdentity{
			Name:  fake.Person().Name(),
			Plate: fmt.Sprintf("%s-%d", fake.RandomStringWithLength(3), fake.IntBetween(100, 999)),
		}
	}
	return roster
}
