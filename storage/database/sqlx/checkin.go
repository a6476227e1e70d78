package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hucares/hucares/core"
	"github.com/hucares/hucares/core/checkin"
)

const dateLayout = "2006-01-02"

type checkInRepository struct {
	exec core.DBExecutor
}

var _ checkin.Repository = (*checkInRepository)(nil) // interface compliance check

func NewCheckInRepository(exec core.DBExecutor) *checkInRepository {
	return &checkInRepository{exec: exec}
}

func (repo checkInRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return checkin.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo checkInRepository) CreateCheckIn(ctx context.Context, c checkin.CheckIn) (checkin.CheckIn, error) {
	c.ID = uuid.New().String()
	_, err := repo.exec.ExecContext(ctx,
		`INSERT INTO check_in (id, user_id, group_id, week_start_date, productive_score,
		                       satisfied_score, body_score, care_score, hu_cares_score,
		                       submitted_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.UserID, c.GroupID, c.WeekStartDate.Format(dateLayout),
		c.ProductiveScore, c.SatisfiedScore, c.BodyScore, c.CareScore, c.HuCaresScore,
		c.SubmittedAt, c.CreatedAt,
	)
	if err != nil {
		// the unique (user, group, week) constraint is the authoritative
		// duplicate guard under concurrent submissions
		if isUniqueViolation(err) {
			return checkin.CheckIn{}, checkin.ErrDuplicate
		}
		return checkin.CheckIn{}, errors.Wrap(err, "inserting check-in")
	}
	return c, nil
}

func (repo checkInRepository) GetCheckIn(ctx context.Context, userID, groupID string, week time.Time) (checkin.CheckIn, error) {
	var c checkin.CheckIn
	err := repo.exec.GetContext(ctx, &c,
		`SELECT c.*, u.username
		 FROM check_in c JOIN "user" u ON u.id = c.user_id
		 WHERE c.user_id = $1 AND c.group_id = $2 AND c.week_start_date = $3`,
		userID, groupID, week.Format(dateLayout))
	if err != nil {
		return checkin.CheckIn{}, repo.trapNoRowsErr(err, "finding check-in")
	}
	return c, nil
}

func (repo checkInRepository) QueryByGroupWeek(ctx context.Context, groupID string, week time.Time) ([]checkin.CheckIn, error) {
	var checkIns []checkin.CheckIn
	err := repo.exec.SelectContext(ctx, &checkIns,
		`SELECT c.*, u.username
		 FROM check_in c JOIN "user" u ON u.id = c.user_id
		 WHERE c.group_id = $1 AND c.week_start_date = $2
		 ORDER BY c.submitted_at DESC`,
		groupID, week.Format(dateLayout))
	if err != nil {
		return nil, errors.Wrap(err, "querying group-week check-ins")
	}
	return checkIns, nil
}

func (repo checkInRepository) QueryByUser(ctx context.Context, userID, groupID string, limit, offset int) ([]checkin.CheckIn, int, error) {
	where := `WHERE c.user_id = $1`
	args := []interface{}{userID}
	if groupID != "" {
		where += ` AND c.group_id = $2`
		args = append(args, groupID)
	}

	var total int
	err := repo.exec.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM check_in c `+where, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting user check-ins")
	}

	var checkIns []checkin.CheckIn
	query := `SELECT c.*, u.username
	          FROM check_in c JOIN "user" u ON u.id = c.user_id ` + where +
		` ORDER BY c.week_start_date DESC` +
		` LIMIT ` + strconv.Itoa(limit) + ` OFFSET ` + strconv.Itoa(offset)
	if err = repo.exec.SelectContext(ctx, &checkIns, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying user check-ins")
	}
	return checkIns, total, nil
}

func (repo checkInRepository) QueryByGroup(ctx context.Context, groupID string, week time.Time, limit, offset int) ([]checkin.CheckIn, int, error) {
	where := `WHERE c.group_id = $1`
	args := []interface{}{groupID}
	if !week.IsZero() {
		where += ` AND c.week_start_date = $2`
		args = append(args, week.Format(dateLayout))
	}

	var total int
	err := repo.exec.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM check_in c `+where, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting group check-ins")
	}

	var checkIns []checkin.CheckIn
	query := `SELECT c.*, u.username
	          FROM check_in c JOIN "user" u ON u.id = c.user_id ` + where +
		` ORDER BY c.week_start_date DESC, c.submitted_at DESC` +
		` LIMIT ` + strconv.Itoa(limit) + ` OFFSET ` + strconv.Itoa(offset)
	if err = repo.exec.SelectContext(ctx, &checkIns, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying group check-ins")
	}
	return checkIns, total, nil
}
