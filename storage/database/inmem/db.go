// Package inmemdb provides in-memory repository implementations,
// mainly useful for tests.
package inmemdb

import (
	"sync"

	"github.com/hucares/hucares/core/checkin"
	"github.com/hucares/hucares/core/group"
	"github.com/hucares/hucares/core/user"
)

type DB struct {
	user    *userTable
	group   *groupTable
	checkIn *checkInTable
}

func NewDB() *DB {
	return &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		group:   &groupTable{groups: make(map[string]*group.Group), memberships: make(map[string]*group.Membership)},
		checkIn: &checkInTable{table: make(map[string]*checkin.CheckIn)},
	}
}

type userTable struct {
	mutex sync.RWMutex
	table map[string]*user.User
}

type groupTable struct {
	mutex       sync.RWMutex
	groups      map[string]*group.Group
	memberships map[string]*group.Membership
}

type checkInTable struct {
	mutex sync.RWMutex
	table map[string]*checkin.CheckIn
}
