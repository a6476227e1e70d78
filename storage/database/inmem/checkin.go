package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hucares/hucares/core/checkin"
)

type checkInRepository struct {
	db    *checkInTable
	users *userTable
}

var _ checkin.Repository = (*checkInRepository)(nil) // interface compliance check

func NewCheckInRepository(db *DB) *checkInRepository {
	return &checkInRepository{db: db.checkIn, users: db.user}
}

func sameWeek(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

func (repo *checkInRepository) withUsername(c checkin.CheckIn) checkin.CheckIn {
	repo.users.mutex.RLock()
	defer repo.users.mutex.RUnlock()

	if usr, ok := repo.users.table[c.UserID]; ok {
		c.Username = usr.Username
	}
	return c
}

func (repo *checkInRepository) CreateCheckIn(ctx context.Context, c checkin.CheckIn) (checkin.CheckIn, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.table {
		if existing.UserID == c.UserID && existing.GroupID == c.GroupID && sameWeek(existing.WeekStartDate, c.WeekStartDate) {
			return checkin.CheckIn{}, checkin.ErrDuplicate
		}
	}
	c.ID = uuid.New().String()
	repo.db.table[c.ID] = &c
	return repo.withUsername(c), nil
}

func (repo *checkInRepository) GetCheckIn(ctx context.Context, userID, groupID string, week time.Time) (checkin.CheckIn, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, c := range repo.db.table {
		if c.UserID == userID && c.GroupID == groupID && sameWeek(c.WeekStartDate, week) {
			return repo.withUsername(*c), nil
		}
	}
	return checkin.CheckIn{}, checkin.ErrNotFound
}

func (repo *checkInRepository) QueryByGroupWeek(ctx context.Context, groupID string, week time.Time) ([]checkin.CheckIn, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var checkIns []checkin.CheckIn
	for _, c := range repo.db.table {
		if c.GroupID == groupID && sameWeek(c.WeekStartDate, week) {
			checkIns = append(checkIns, repo.withUsername(*c))
		}
	}
	sort.Slice(checkIns, func(i, j int) bool { return checkIns[i].SubmittedAt.After(checkIns[j].SubmittedAt) })
	return checkIns, nil
}

func (repo *checkInRepository) QueryByUser(ctx context.Context, userID, groupID string, limit, offset int) ([]checkin.CheckIn, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var checkIns []checkin.CheckIn
	for _, c := range repo.db.table {
		if c.UserID != userID {
			continue
		}
		if groupID != "" && c.GroupID != groupID {
			continue
		}
		checkIns = append(checkIns, repo.withUsername(*c))
	}
	sort.Slice(checkIns, func(i, j int) bool { return checkIns[i].WeekStartDate.After(checkIns[j].WeekStartDate) })
	return paginate(checkIns, limit, offset), len(checkIns), nil
}

func (repo *checkInRepository) QueryByGroup(ctx context.Context, groupID string, week time.Time, limit, offset int) ([]checkin.CheckIn, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var checkIns []checkin.CheckIn
	for _, c := range repo.db.table {
		if c.GroupID != groupID {
			continue
		}
		if !week.IsZero() && !sameWeek(c.WeekStartDate, week) {
			continue
		}
		checkIns = append(checkIns, repo.withUsername(*c))
	}
	sort.Slice(checkIns, func(i, j int) bool {
		if !checkIns[i].WeekStartDate.Equal(checkIns[j].WeekStartDate) {
			return checkIns[i].WeekStartDate.After(checkIns[j].WeekStartDate)
		}
		return checkIns[i].SubmittedAt.After(checkIns[j].SubmittedAt)
	})
	return paginate(checkIns, limit, offset), len(checkIns), nil
}

func paginate(checkIns []checkin.CheckIn, limit, offset int) []checkin.CheckIn {
	if offset >= len(checkIns) {
		return nil
	}
	checkIns = checkIns[offset:]
	if limit > 0 && limit < len(checkIns) {
		checkIns = checkIns[:limit]
	}
	return checkIns
}
