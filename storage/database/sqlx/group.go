package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hucares/hucares/core"
	"github.com/hucares/hucares/core/group"
)

const uniqueViolation = "23505"

type groupRepository struct {
	exec core.DBExecutor
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(exec core.DBExecutor) *groupRepository {
	return &groupRepository{exec: exec}
}

func (repo groupRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return group.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (repo groupRepository) CreateGroup(ctx context.Context, grp group.Group) (group.Group, error) {
	grp.ID = uuid.New().String()
	_, err := repo.exec.ExecContext(ctx,
		`INSERT INTO "group" (id, name, description, access_code, created_by, max_members, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		grp.ID, grp.Name, grp.Description, grp.AccessCode, grp.CreatedBy,
		grp.MaxMembers, grp.IsActive, grp.CreatedAt, grp.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return group.Group{}, group.ErrAccessCodeUsed
		}
		return group.Group{}, errors.Wrap(err, "inserting group")
	}
	return grp, nil
}

func (repo groupRepository) GetGroupByID(ctx context.Context, id string) (group.Group, error) {
	if _, err := uuid.Parse(id); err != nil {
		return group.Group{}, group.ErrNotFound
	}
	var grp group.Group
	err := repo.exec.GetContext(ctx, &grp,
		`SELECT g.*, u.username AS creator_username
		 FROM "group" g JOIN "user" u ON u.id = g.created_by
		 WHERE g.id = $1`, id)
	if err != nil {
		return group.Group{}, repo.trapNoRowsErr(err, "finding group by ID")
	}
	return grp, nil
}

func (repo groupRepository) GetActiveGroupByAccessCode(ctx context.Context, code string) (group.Group, error) {
	var grp group.Group
	err := repo.exec.GetContext(ctx, &grp,
		`SELECT g.*, u.username AS creator_username
		 FROM "group" g JOIN "user" u ON u.id = g.created_by
		 WHERE g.access_code = $1 AND g.is_active`, code)
	if err != nil {
		return group.Group{}, repo.trapNoRowsErr(err, "finding group by access code")
	}
	return grp, nil
}

func (repo groupRepository) UpdateGroup(ctx context.Context, grp group.Group) (group.Group, error) {
	res, err := repo.exec.ExecContext(ctx,
		`UPDATE "group" SET name = $2, description = $3, max_members = $4, is_active = $5, updated_at = $6
		 WHERE id = $1`,
		grp.ID, grp.Name, grp.Description, grp.MaxMembers, grp.IsActive, grp.UpdatedAt,
	)
	if err != nil {
		return group.Group{}, errors.Wrap(err, "updating group")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return group.Group{}, group.ErrNotFound
	}
	return grp, nil
}

func (repo groupRepository) CreateMembership(ctx context.Context, mbr group.Membership) (group.Membership, error) {
	mbr.ID = uuid.New().String()
	_, err := repo.exec.ExecContext(ctx,
		`INSERT INTO group_membership (id, user_id, group_id, role, joined_at, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		mbr.ID, mbr.UserID, mbr.GroupID, mbr.Role, mbr.JoinedAt, mbr.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return group.Membership{}, group.ErrAlreadyMember
		}
		return group.Membership{}, errors.Wrap(err, "inserting membership")
	}
	return mbr, nil
}

func (repo groupRepository) GetActiveMembership(ctx context.Context, userID, groupID string) (group.Membership, error) {
	var mbr group.Membership
	err := repo.exec.GetContext(ctx, &mbr,
		`SELECT * FROM group_membership WHERE user_id = $1 AND group_id = $2 AND is_active`,
		userID, groupID)
	if err != nil {
		return group.Membership{}, repo.trapNoRowsErr(err, "finding active membership")
	}
	return mbr, nil
}

func (repo groupRepository) QueryActiveMembershipsByUser(ctx context.Context, userID string) ([]group.Membership, error) {
	var mbrs []group.Membership
	err := repo.exec.SelectContext(ctx, &mbrs,
		`SELECT * FROM group_membership WHERE user_id = $1 AND is_active ORDER BY joined_at DESC`,
		userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying memberships by user")
	}
	return mbrs, nil
}

func (repo groupRepository) CountActiveMembers(ctx context.Context, groupID string) (int, error) {
	var count int
	err := repo.exec.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM group_membership WHERE group_id = $1 AND is_active`, groupID)
	if err != nil {
		return 0, errors.Wrap(err, "counting active members")
	}
	return count, nil
}

func (repo groupRepository) CountOtherActiveAdmins(ctx context.Context, groupID, excludedUserID string) (int, error) {
	var count int
	err := repo.exec.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM group_membership
		 WHERE group_id = $1 AND is_active AND role = $2 AND user_id <> $3`,
		groupID, group.RoleAdmin, excludedUserID)
	if err != nil {
		return 0, errors.Wrap(err, "counting other admins")
	}
	return count, nil
}

func (repo groupRepository) QueryMembers(ctx context.Context, groupID string) ([]group.Member, error) {
	var members []group.Member
	// admins first, then by join date
	err := repo.exec.SelectContext(ctx, &members,
		`SELECT u.id, u.username, u.email, u.last_login, m.role, m.joined_at
		 FROM group_membership m JOIN "user" u ON u.id = m.user_id
		 WHERE m.group_id = $1 AND m.is_active
		 ORDER BY m.role ASC, m.joined_at ASC`, groupID)
	if err != nil {
		return nil, errors.Wrap(err, "querying group members")
	}
	return members, nil
}

func (repo groupRepository) DeactivateMembership(ctx context.Context, id string) error {
	res, err := repo.exec.ExecContext(ctx,
		`UPDATE group_membership SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deactivating membership")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return group.ErrNotFound
	}
	return nil
}
