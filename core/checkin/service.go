package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hucares/hucares/core"
	"github.com/hucares/hucares/core/group"
	"github.com/hucares/hucares/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("check-in not found")
	// ErrDuplicate is returned by repositories when the storage layer's
	// unique (user, group, week) constraint rejects an insert.
	ErrDuplicate = errors.New("check-in already exists for this week")

	NowFunc = time.Now // mockable
)

// AlreadySubmittedError reports a duplicate weekly submission along with the
// existing record, so clients can show it without a follow-up query.
type AlreadySubmittedError struct {
	ID           string    `json:"id"`
	HuCaresScore int       `json:"huCaresScore"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

func (e *AlreadySubmittedError) Error() string {
	return "you have already submitted a check-in for this week in this group"
}

type (
	Repository interface {
		CreateCheckIn(ctx context.Context, c CheckIn) (CheckIn, error)
		GetCheckIn(ctx context.Context, userID, groupID string, week time.Time) (CheckIn, error)
		// QueryByGroupWeek returns a group-week's check-ins, most recent submission first.
		QueryByGroupWeek(ctx context.Context, groupID string, week time.Time) ([]CheckIn, error)
		// QueryByUser pages through a user's history, newest week first.
		QueryByUser(ctx context.Context, userID, groupID string, limit, offset int) ([]CheckIn, int, error)
		// QueryByGroup pages through a group's history, newest week first then
		// newest submission; week narrows to a single bucket when non-zero.
		QueryByGroup(ctx context.Context, groupID string, week time.Time, limit, offset int) ([]CheckIn, int, error)
	}

	// GroupService is the slice of the group service the check-in workflow needs.
	GroupService interface {
		ActiveMembership(ctx context.Context, userID, groupID string) (group.Membership, error)
		GroupByID(ctx context.Context, id string) (group.Group, error)
		ActiveGroupsForUser(ctx context.Context, userID string) ([]group.Group, error)
	}

	Service struct {
		repo   Repository
		groups GroupService
		loc    *time.Location
		log    core.Logger
	}
)

func NewService(repo Repository, groups GroupService, loc *time.Location, log core.Logger) *Service {
	return &Service{repo: repo, groups: groups, loc: loc, log: log}
}

// Submission is the result of a successful weekly check-in.
type Submission struct {
	CheckIn        CheckIn
	GroupName      string
	Stats          GroupStats
	WeeklyCheckIns []CheckIn
}

// Submit runs the weekly check-in workflow: membership guard, week
// resolution, duplicate check, score computation, insert and fresh group
// aggregates. Exactly one row is created; nothing else is mutated.
func (svc *Service) Submit(ctx context.Context, usr user.User, nc NewCheckIn) (Submission, error) {
	if _, err := svc.groups.ActiveMembership(ctx, usr.ID, nc.GroupID); err != nil {
		return Submission{}, err
	}
	grp, err := svc.groups.GroupByID(ctx, nc.GroupID)
	if err != nil {
		return Submission{}, err
	}

	var week time.Time
	if nc.WeekStartDate != "" {
		if week, err = ParseWeekDate(nc.WeekStartDate, svc.loc); err != nil {
			return Submission{}, core.NewValidationError(
				errors.New("week start date must be a valid date"),
				core.FieldError{Field: "weekStartDate", Error: "week start date must be a valid date"},
			)
		}
	} else {
		week = WeekStart(NowFunc(), svc.loc)
	}

	if existing, err := svc.repo.GetCheckIn(ctx, usr.ID, nc.GroupID, week); err == nil {
		return Submission{}, &AlreadySubmittedError{
			ID:           existing.ID,
			HuCaresScore: existing.HuCaresScore,
			SubmittedAt:  existing.SubmittedAt,
		}
	} else if err != ErrNotFound {
		return Submission{}, err
	}

	now := NowFunc().UTC()
	created, err := svc.repo.CreateCheckIn(ctx, CheckIn{
		UserID:          usr.ID,
		GroupID:         nc.GroupID,
		WeekStartDate:   week,
		ProductiveScore: nc.ProductiveScore,
		SatisfiedScore:  nc.SatisfiedScore,
		BodyScore:       nc.BodyScore,
		CareScore:       nc.CareScore,
		HuCaresScore:    Score(nc.ProductiveScore, nc.SatisfiedScore, nc.BodyScore, nc.CareScore),
		SubmittedAt:     now,
		CreatedAt:       now,
		Username:        usr.Username,
	})
	if err == ErrDuplicate {
		// lost the race to a concurrent submission; report the winner
		existing, getErr := svc.repo.GetCheckIn(ctx, usr.ID, nc.GroupID, week)
		if getErr != nil {
			return Submission{}, getErr
		}
		return Submission{}, &AlreadySubmittedError{
			ID:           existing.ID,
			HuCaresScore: existing.HuCaresScore,
			SubmittedAt:  existing.SubmittedAt,
		}
	}
	if err != nil {
		return Submission{}, err
	}

	weekly, err := svc.repo.QueryByGroupWeek(ctx, nc.GroupID, week)
	if err != nil {
		return Submission{}, err
	}

	svc.log.Info(fmt.Sprintf("check-in submitted: score %d by %s in %s", created.HuCaresScore, usr.Username, grp.Name))
	return Submission{
		CheckIn:        created,
		GroupName:      grp.Name,
		Stats:          Aggregate(weekly),
		WeeklyCheckIns: weekly,
	}, nil
}

// ListUser returns the user's check-in history, optionally narrowed to one
// group (which requires an active membership).
func (svc *Service) ListUser(ctx context.Context, usr user.User, groupID string, limit, offset int) ([]CheckIn, int, error) {
	if groupID != "" {
		if _, err := svc.groups.ActiveMembership(ctx, usr.ID, groupID); err != nil {
			return nil, 0, err
		}
	}
	return svc.repo.QueryByUser(ctx, usr.ID, groupID, limit, offset)
}

// ListGroup returns a group's check-in history for active members,
// optionally narrowed to one week bucket.
func (svc *Service) ListGroup(ctx context.Context, usr user.User, groupID string, week time.Time, limit, offset int) (string, []CheckIn, int, error) {
	if _, err := svc.groups.ActiveMembership(ctx, usr.ID, groupID); err != nil {
		return "", nil, 0, err
	}
	grp, err := svc.groups.GroupByID(ctx, groupID)
	if err != nil {
		return "", nil, 0, err
	}
	checkIns, total, err := svc.repo.QueryByGroup(ctx, groupID, week, limit, offset)
	if err != nil {
		return "", nil, 0, err
	}
	return grp.Name, checkIns, total, nil
}

// GroupWeek is one group's slice of the current-week summary.
type GroupWeek struct {
	Group          group.Group
	UserSubmitted  bool
	UserCheckIn    *CheckIn
	Stats          GroupStats
	RecentCheckIns []CheckIn
}

// WeekSummary reports the current week across all of the user's groups.
type WeekSummary struct {
	WeekStartDate  time.Time
	TotalGroups    int
	SubmittedCount int
	Groups         []GroupWeek
}

// CurrentWeek assembles the current week bucket's stats for every group the
// user actively belongs to, including whether they submitted yet.
func (svc *Service) CurrentWeek(ctx context.Context, usr user.User) (WeekSummary, error) {
	week := WeekStart(NowFunc(), svc.loc)

	groups, err := svc.groups.ActiveGroupsForUser(ctx, usr.ID)
	if err != nil {
		return WeekSummary{}, err
	}

	summary := WeekSummary{
		WeekStartDate: week,
		TotalGroups:   len(groups),
		Groups:        make([]GroupWeek, 0, len(groups)),
	}
	for _, grp := range groups {
		checkIns, err := svc.repo.QueryByGroupWeek(ctx, grp.ID, week)
		if err != nil {
			return WeekSummary{}, err
		}

		gw := GroupWeek{
			Group: grp,
			Stats: Aggregate(checkIns),
		}
		for i := range checkIns {
			if checkIns[i].UserID == usr.ID {
				gw.UserSubmitted = true
				gw.UserCheckIn = &checkIns[i]
				break
			}
		}
		if gw.UserSubmitted {
			summary.SubmittedCount++
		}
		if len(checkIns) > 5 {
			checkIns = checkIns[:5]
		}
		gw.RecentCheckIns = checkIns
		summary.Groups = append(summary.Groups, gw)
	}
	return summary, nil
}
