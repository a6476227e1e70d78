package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/hucares/hucares/core/group"
)

type groupRepository struct {
	db    *groupTable
	users *userTable
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *DB) *groupRepository {
	return &groupRepository{db: db.group, users: db.user}
}

func (repo *groupRepository) CreateGroup(ctx context.Context, grp group.Group) (group.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, g := range repo.db.groups {
		if g.AccessCode == grp.AccessCode {
			return group.Group{}, group.ErrAccessCodeUsed
		}
	}
	grp.ID = uuid.New().String()
	grp.CreatorUsername = repo.username(grp.CreatedBy)
	repo.db.groups[grp.ID] = &grp
	return grp, nil
}

func (repo *groupRepository) username(userID string) string {
	repo.users.mutex.RLock()
	defer repo.users.mutex.RUnlock()

	if usr, ok := repo.users.table[userID]; ok {
		return usr.Username
	}
	return ""
}

func (repo *groupRepository) GetGroupByID(ctx context.Context, id string) (group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if grp, ok := repo.db.groups[id]; ok {
		g := *grp
		g.CreatorUsername = repo.username(g.CreatedBy)
		return g, nil
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) GetActiveGroupByAccessCode(ctx context.Context, code string) (group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, grp := range repo.db.groups {
		if grp.AccessCode == code && grp.IsActive {
			g := *grp
			g.CreatorUsername = repo.username(g.CreatedBy)
			return g, nil
		}
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) UpdateGroup(ctx context.Context, grp group.Group) (group.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.groups[grp.ID]
	if !ok {
		return group.Group{}, group.ErrNotFound
	}
	orig.Name = grp.Name
	orig.Description = grp.Description
	orig.MaxMembers = grp.MaxMembers
	orig.IsActive = grp.IsActive
	orig.UpdatedAt = grp.UpdatedAt
	return *orig, nil
}

func (repo *groupRepository) CreateMembership(ctx context.Context, mbr group.Membership) (group.Membership, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, m := range repo.db.memberships {
		if m.UserID == mbr.UserID && m.GroupID == mbr.GroupID && m.IsActive {
			return group.Membership{}, group.ErrAlreadyMember
		}
	}
	mbr.ID = uuid.New().String()
	repo.db.memberships[mbr.ID] = &mbr
	return mbr, nil
}

func (repo *groupRepository) GetActiveMembership(ctx context.Context, userID, groupID string) (group.Membership, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, mbr := range repo.db.memberships {
		if mbr.UserID == userID && mbr.GroupID == groupID && mbr.IsActive {
			return *mbr, nil
		}
	}
	return group.Membership{}, group.ErrNotFound
}

func (repo *groupRepository) QueryActiveMembershipsByUser(ctx context.Context, userID string) ([]group.Membership, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var mbrs []group.Membership
	for _, mbr := range repo.db.memberships {
		if mbr.UserID == userID && mbr.IsActive {
			mbrs = append(mbrs, *mbr)
		}
	}
	sort.Slice(mbrs, func(i, j int) bool { return mbrs[i].JoinedAt.After(mbrs[j].JoinedAt) })
	return mbrs, nil
}

func (repo *groupRepository) CountActiveMembers(ctx context.Context, groupID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var count int
	for _, mbr := range repo.db.memberships {
		if mbr.GroupID == groupID && mbr.IsActive {
			count++
		}
	}
	return count, nil
}

func (repo *groupRepository) CountOtherActiveAdmins(ctx context.Context, groupID, excludedUserID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var count int
	for _, mbr := range repo.db.memberships {
		if mbr.GroupID == groupID && mbr.IsActive && mbr.Role == group.RoleAdmin && mbr.UserID != excludedUserID {
			count++
		}
	}
	return count, nil
}

func (repo *groupRepository) QueryMembers(ctx context.Context, groupID string) ([]group.Member, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var members []group.Member
	for _, mbr := range repo.db.memberships {
		if mbr.GroupID != groupID || !mbr.IsActive {
			continue
		}
		member := group.Member{ID: mbr.UserID, Role: mbr.Role, JoinedAt: mbr.JoinedAt}
		repo.users.mutex.RLock()
		if usr, ok := repo.users.table[mbr.UserID]; ok {
			member.Username = usr.Username
			member.Email = usr.Email
			member.LastLogin = usr.LastLogin
		}
		repo.users.mutex.RUnlock()
		members = append(members, member)
	}
	// admins first, then by join date
	sort.Slice(members, func(i, j int) bool {
		if members[i].Role != members[j].Role {
			return members[i].Role < members[j].Role
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

func (repo *groupRepository) DeactivateMembership(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	mbr, ok := repo.db.memberships[id]
	if !ok {
		return group.ErrNotFound
	}
	mbr.IsActive = false
	return nil
}

