package group

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/hucares/hucares/core"
	"github.com/hucares/hucares/core/user"
)

var (
	// errors
	ErrNotFound          = errors.New("group not found")
	ErrInvalidAccessCode = errors.New("invalid access code")
	// ErrNotMember deliberately covers both "not a member" and "group
	// inactive" so callers cannot probe for group existence.
	ErrNotMember      = errors.New("you are not a member of this group or group is inactive")
	ErrNotAdmin       = errors.New("only group admins can update group settings")
	ErrAlreadyMember  = errors.New("you are already a member of this group")
	ErrGroupFull      = errors.New("this group is full")
	ErrCodeExhausted  = errors.New("unable to generate unique access code")
	ErrAccessCodeUsed = errors.New("access code already in use")
)

type (
	Repository interface {
		CreateGroup(ctx context.Context, grp Group) (Group, error)
		GetGroupByID(ctx context.Context, id string) (Group, error)
		GetActiveGroupByAccessCode(ctx context.Context, code string) (Group, error)
		UpdateGroup(ctx context.Context, grp Group) (Group, error)

		CreateMembership(ctx context.Context, mbr Membership) (Membership, error)
		GetActiveMembership(ctx context.Context, userID, groupID string) (Membership, error)
		QueryActiveMembershipsByUser(ctx context.Context, userID string) ([]Membership, error)
		CountActiveMembers(ctx context.Context, groupID string) (int, error)
		CountOtherActiveAdmins(ctx context.Context, groupID, excludedUserID string) (int, error)
		QueryMembers(ctx context.Context, groupID string) ([]Member, error)
		DeactivateMembership(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
		log  core.Logger
	}
)

func NewService(repo Repository, log core.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// ActiveMembership is the membership guard: it succeeds only when the user
// holds an active membership AND the group itself is still active.
func (svc *Service) ActiveMembership(ctx context.Context, userID, groupID string) (Membership, error) {
	mbr, err := svc.repo.GetActiveMembership(ctx, userID, groupID)
	if err != nil {
		if err == ErrNotFound {
			return Membership{}, ErrNotMember
		}
		return Membership{}, err
	}
	grp, err := svc.repo.GetGroupByID(ctx, groupID)
	if err != nil {
		if err == ErrNotFound {
			return Membership{}, ErrNotMember
		}
		return Membership{}, err
	}
	if !grp.IsActive {
		return Membership{}, ErrNotMember
	}
	return mbr, nil
}

// GroupByID fetches a group without authorization checks; for use by other
// services that have already run the membership guard.
func (svc *Service) GroupByID(ctx context.Context, id string) (Group, error) {
	return svc.repo.GetGroupByID(ctx, id)
}

// ActiveGroupsForUser returns the active groups the user actively belongs
// to, most recently joined first.
func (svc *Service) ActiveGroupsForUser(ctx context.Context, userID string) ([]Group, error) {
	mbrs, err := svc.repo.QueryActiveMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	groups := make([]Group, 0, len(mbrs))
	for _, mbr := range mbrs {
		grp, err := svc.repo.GetGroupByID(ctx, mbr.GroupID)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		if grp.IsActive {
			groups = append(groups, grp)
		}
	}
	return groups, nil
}

// Create creates a Group with a fresh unique access code and makes the
// creator its first ADMIN member.
func (svc *Service) Create(ctx context.Context, usr user.User, ng NewGroup) (Detail, error) {
	var grp Group
	created := false
	for attempts := 0; attempts < 10; attempts++ {
		code, err := NewAccessCode()
		if err != nil {
			return Detail{}, pkgerrors.Wrap(err, "generating access code")
		}

		now := time.Now().UTC()
		grp, err = svc.repo.CreateGroup(ctx, Group{
			Name:        ng.Name,
			Description: ng.Description,
			AccessCode:  code,
			CreatedBy:   usr.ID,
			MaxMembers:  ng.MaxMembers,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err == ErrAccessCodeUsed {
			continue
		}
		if err != nil {
			return Detail{}, err
		}
		created = true
		break
	}
	if !created {
		return Detail{}, ErrCodeExhausted
	}

	mbr, err := svc.repo.CreateMembership(ctx, Membership{
		UserID:   usr.ID,
		GroupID:  grp.ID,
		Role:     RoleAdmin,
		JoinedAt: time.Now().UTC(),
		IsActive: true,
	})
	if err != nil {
		return Detail{}, err
	}

	svc.log.Info(fmt.Sprintf("group created: %s (%s)", grp.Name, grp.AccessCode))
	grp.CreatorUsername = usr.Username
	return Detail{
		Group:       grp,
		UserRole:    mbr.Role,
		JoinedAt:    mbr.JoinedAt,
		MemberCount: 1,
		Members: []Member{{
			ID:        usr.ID,
			Username:  usr.Username,
			Email:     usr.Email,
			Role:      mbr.Role,
			JoinedAt:  mbr.JoinedAt,
			LastLogin: usr.LastLogin,
		}},
	}, nil
}

// Join adds the user to the group identified by the access code.
func (svc *Service) Join(ctx context.Context, usr user.User, accessCode string) (Detail, error) {
	grp, err := svc.repo.GetActiveGroupByAccessCode(ctx, accessCode)
	if err != nil {
		if err == ErrNotFound {
			return Detail{}, ErrInvalidAccessCode
		}
		return Detail{}, err
	}

	if _, err = svc.repo.GetActiveMembership(ctx, usr.ID, grp.ID); err == nil {
		return Detail{}, ErrAlreadyMember
	} else if err != ErrNotFound {
		return Detail{}, err
	}

	count, err := svc.repo.CountActiveMembers(ctx, grp.ID)
	if err != nil {
		return Detail{}, err
	}
	if count >= grp.MaxMembers {
		return Detail{}, ErrGroupFull
	}

	mbr, err := svc.repo.CreateMembership(ctx, Membership{
		UserID:   usr.ID,
		GroupID:  grp.ID,
		Role:     RoleMember,
		JoinedAt: time.Now().UTC(),
		IsActive: true,
	})
	if err != nil {
		return Detail{}, err
	}

	svc.log.Info(fmt.Sprintf("user %s joined group: %s", usr.Username, grp.Name))
	return Detail{
		Group:       grp,
		UserRole:    mbr.Role,
		JoinedAt:    mbr.JoinedAt,
		MemberCount: count + 1,
	}, nil
}

// Leave soft-deactivates the user's membership. The group creator cannot
// leave while they are the only remaining active admin.
func (svc *Service) Leave(ctx context.Context, usr user.User, groupID string) error {
	mbr, err := svc.repo.GetActiveMembership(ctx, usr.ID, groupID)
	if err != nil {
		return err
	}
	grp, err := svc.repo.GetGroupByID(ctx, groupID)
	if err != nil {
		return err
	}

	if grp.CreatedBy == usr.ID {
		otherAdmins, err := svc.repo.CountOtherActiveAdmins(ctx, groupID, usr.ID)
		if err != nil {
			return err
		}
		if otherAdmins == 0 {
			msg := "cannot leave group as the only admin; promote another member to admin first"
			return core.NewValidationError(errors.New(msg))
		}
	}

	if err = svc.repo.DeactivateMembership(ctx, mbr.ID); err != nil {
		return err
	}
	svc.log.Info(fmt.Sprintf("user %s left group: %s", usr.Username, grp.Name))
	return nil
}

// Update applies admin-only group setting changes.
func (svc *Service) Update(ctx context.Context, usr user.User, groupID string, ug UpdateGroup) (Detail, error) {
	mbr, err := svc.ActiveMembership(ctx, usr.ID, groupID)
	if err != nil {
		return Detail{}, err
	}
	if mbr.Role != RoleAdmin {
		return Detail{}, ErrNotAdmin
	}

	grp, err := svc.repo.GetGroupByID(ctx, groupID)
	if err != nil {
		return Detail{}, err
	}

	count, err := svc.repo.CountActiveMembers(ctx, groupID)
	if err != nil {
		return Detail{}, err
	}
	if ug.MaxMembers != 0 && ug.MaxMembers < count {
		msg := fmt.Sprintf("cannot set max members below current member count (%d)", count)
		return Detail{}, core.NewValidationError(
			errors.New(msg), core.FieldError{Field: "maxMembers", Error: msg})
	}

	if ug.Name != "" {
		grp.Name = ug.Name
	}
	if ug.Description != nil {
		grp.Description = *ug.Description
	}
	if ug.MaxMembers != 0 {
		grp.MaxMembers = ug.MaxMembers
	}
	grp.UpdatedAt = time.Now().UTC()

	grp, err = svc.repo.UpdateGroup(ctx, grp)
	if err != nil {
		return Detail{}, err
	}

	svc.log.Info(fmt.Sprintf("group updated by %s: %s", usr.Username, grp.Name))
	return Detail{Group: grp, UserRole: mbr.Role, JoinedAt: mbr.JoinedAt, MemberCount: count}, nil
}

// ForUser returns all groups the user actively belongs to, most recently
// joined first, with full member lists.
func (svc *Service) ForUser(ctx context.Context, usr user.User) ([]Detail, error) {
	mbrs, err := svc.repo.QueryActiveMembershipsByUser(ctx, usr.ID)
	if err != nil {
		return nil, err
	}

	details := make([]Detail, 0, len(mbrs))
	for _, mbr := range mbrs {
		grp, err := svc.repo.GetGroupByID(ctx, mbr.GroupID)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		if !grp.IsActive {
			continue
		}
		members, err := svc.repo.QueryMembers(ctx, grp.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, Detail{
			Group:       grp,
			UserRole:    mbr.Role,
			JoinedAt:    mbr.JoinedAt,
			MemberCount: len(members),
			Members:     members,
		})
	}
	return details, nil
}

// Get returns one group's details; the caller must be an active member.
func (svc *Service) Get(ctx context.Context, usr user.User, groupID string) (Detail, error) {
	mbr, err := svc.ActiveMembership(ctx, usr.ID, groupID)
	if err != nil {
		return Detail{}, err
	}
	grp, err := svc.repo.GetGroupByID(ctx, groupID)
	if err != nil {
		return Detail{}, err
	}
	members, err := svc.repo.QueryMembers(ctx, groupID)
	if err != nil {
		return Detail{}, err
	}
	return Detail{
		Group:       grp,
		UserRole:    mbr.Role,
		JoinedAt:    mbr.JoinedAt,
		MemberCount: len(members),
		Members:     members,
	}, nil
}

// Members returns the group's active members, admins first then by join
// date; the caller must be an active member.
func (svc *Service) Members(ctx context.Context, usr user.User, groupID string) ([]Member, error) {
	if _, err := svc.ActiveMembership(ctx, usr.ID, groupID); err != nil {
		return nil, err
	}
	return svc.repo.QueryMembers(ctx, groupID)
}
