package checkin_test

import (
	"context"
	"testing"
	"time"

	"github.com/hucares/hucares/core"
	"github.com/hucares/hucares/core/checkin"
	"github.com/hucares/hucares/core/group"
	"github.com/hucares/hucares/core/user"
	inmemdb "github.com/hucares/hucares/storage/database/inmem"
	testutil "github.com/hucares/hucares/tests"
)

type checkinFixture struct {
	usrRepo user.Repository
	grpSvc  *group.Service
	svc     *checkin.Service
}

func newFixture(t *testing.T) *checkinFixture {
	t.Helper()

	db := inmemdb.NewDB()
	logger := testutil.Logger{}
	grpSvc := group.NewService(inmemdb.NewGroupRepository(db), logger)
	return &checkinFixture{
		usrRepo: inmemdb.NewUserRepository(db),
		grpSvc:  grpSvc,
		svc:     checkin.NewService(inmemdb.NewCheckInRepository(db), grpSvc, time.UTC, logger),
	}
}

func (f *checkinFixture) createGroup(t *testing.T, creator user.User, name string) group.Detail {
	t.Helper()

	detail, err := f.grpSvc.Create(context.Background(), creator, group.NewGroup{Name: name, MaxMembers: group.DefaultMaxMembers})
	if err != nil {
		t.Fatalf("createGroup(): %v", err)
	}
	return detail
}

func (f *checkinFixture) join(t *testing.T, usr user.User, accessCode string) group.Detail {
	t.Helper()

	detail, err := f.grpSvc.Join(context.Background(), usr, accessCode)
	if err != nil {
		t.Fatalf("join(): %v", err)
	}
	return detail
}

// wednesday noon; the containing week starts monday 2024-05-27
var testNow = time.Date(2024, time.May, 29, 12, 0, 0, 0, time.UTC)

func mockNow(t *testing.T) {
	t.Helper()
	checkin.NowFunc = func() time.Time { return testNow }
	t.Cleanup(func() { checkin.NowFunc = time.Now })
}

func TestService_Submit(t *testing.T) {
	mockNow(t)
	ctx := context.Background()
	f := newFixture(t)

	alice := testutil.CreateUser(t, f.usrRepo, "alice", "alice@test.cd", "", true)
	bob := testutil.CreateUser(t, f.usrRepo, "bob", "bob@test.cd", "", true)
	mallory := testutil.CreateUser(t, f.usrRepo, "mallory", "mallory@test.cd", "", true)

	grp := f.createGroup(t, alice, "Wellness Crew")
	f.join(t, bob, grp.AccessCode)

	sub, err := f.svc.Submit(ctx, alice, checkin.NewCheckIn{
		GroupID: grp.ID, ProductiveScore: 8, SatisfiedScore: 7, BodyScore: 6, CareScore: 5,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if sub.CheckIn.HuCaresScore != 16 {
		t.Errorf("HuCaresScore = %v, want 16", sub.CheckIn.HuCaresScore)
	}
	wantWeek := time.Date(2024, time.May, 27, 0, 0, 0, 0, time.UTC)
	if !sub.CheckIn.WeekStartDate.Equal(wantWeek) {
		t.Errorf("WeekStartDate = %v, want %v", sub.CheckIn.WeekStartDate, wantWeek)
	}
	if sub.GroupName != "Wellness Crew" {
		t.Errorf("GroupName = %q", sub.GroupName)
	}
	if sub.Stats.TotalCheckins != 1 || sub.Stats.AverageScore != 16 {
		t.Errorf("Stats = %+v", sub.Stats)
	}

	// second member's stats fold in
	sub2, err := f.svc.Submit(ctx, bob, checkin.NewCheckIn{
		GroupID: grp.ID, ProductiveScore: 5, SatisfiedScore: 5, BodyScore: 5, CareScore: 3,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	want := checkin.GroupStats{TotalCheckins: 2, AverageScore: 14, HighestScore: 16, LowestScore: 12}
	if sub2.Stats != want {
		t.Errorf("Stats = %+v, want %+v", sub2.Stats, want)
	}
	if len(sub2.WeeklyCheckIns) != 2 {
		t.Errorf("len(WeeklyCheckIns) = %v, want 2", len(sub2.WeeklyCheckIns))
	}

	// duplicate submission reports the existing check-in
	_, err = f.svc.Submit(ctx, alice, checkin.NewCheckIn{
		GroupID: grp.ID, ProductiveScore: 1, SatisfiedScore: 1, BodyScore: 1, CareScore: 1,
	})
	dupErr, ok := err.(*checkin.AlreadySubmittedError)
	if !ok {
		t.Fatalf("Submit() error = %v, want *AlreadySubmittedError", err)
	}
	if dupErr.ID != sub.CheckIn.ID || dupErr.HuCaresScore != 16 {
		t.Errorf("AlreadySubmittedError = %+v", dupErr)
	}

	// non-member is rejected without leaking group existence
	if _, err = f.svc.Submit(ctx, mallory, checkin.NewCheckIn{
		GroupID: grp.ID, ProductiveScore: 5, SatisfiedScore: 5, BodyScore: 5, CareScore: 5,
	}); err != group.ErrNotMember {
		t.Errorf("Submit() error = %v, want ErrNotMember", err)
	}
}

// racingRepository makes the next GetCheckIn miss, as when another submission
// lands between the service's duplicate check and its insert.
type racingRepository struct {
	checkin.Repository
	missNext bool
}

func (repo *racingRepository) GetCheckIn(ctx context.Context, userID, groupID string, week time.Time) (checkin.CheckIn, error) {
	if repo.missNext {
		repo.missNext = false
		return checkin.CheckIn{}, checkin.ErrNotFound
	}
	return repo.Repository.GetCheckIn(ctx, userID, groupID, week)
}

func TestService_Submit_concurrentDuplicate(t *testing.T) {
	mockNow(t)
	ctx := context.Background()

	db := inmemdb.NewDB()
	logger := testutil.Logger{}
	grpSvc := group.NewService(inmemdb.NewGroupRepository(db), logger)
	usrRepo := inmemdb.NewUserRepository(db)
	repo := &racingRepository{Repository: inmemdb.NewCheckInRepository(db)}
	svc := checkin.NewService(repo, grpSvc, time.UTC, logger)

	alice := testutil.CreateUser(t, usrRepo, "alice", "alice@test.cd", "", true)
	grp, err := grpSvc.Create(ctx, alice, group.NewGroup{Name: "Racers", MaxMembers: group.DefaultMaxMembers})
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	winner, err := svc.Submit(ctx, alice, checkin.NewCheckIn{
		GroupID: grp.ID, ProductiveScore: 4, SatisfiedScore: 4, BodyScore: 4, CareScore: 0,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// the loser's duplicate check misses, so the storage constraint has to catch it
	repo.missNext = true
	_, err = svc.Submit(ctx, alice, checkin.NewCheckIn{
		GroupID: grp.ID, ProductiveScore: 9, SatisfiedScore: 9, BodyScore: 9, CareScore: 9,
	})
	dupErr, ok := err.(*checkin.AlreadySubmittedError)
	if !ok {
		t.Fatalf("Submit() error = %v, want *AlreadySubmittedError", err)
	}
	if dupErr.ID != winner.CheckIn.ID || dupErr.HuCaresScore != 12 {
		t.Errorf("AlreadySubmittedError = %+v, want winner %q score 12", dupErr, winner.CheckIn.ID)
	}
}

func TestService_Submit_explicitWeek(t *testing.T) {
	mockNow(t)
	ctx := context.Background()
	f := newFixture(t)

	alice := testutil.CreateUser(t, f.usrRepo, "alice", "alice@test.cd", "", true)
	grp := f.createGroup(t, alice, "Backfillers")

	// a past week may be backfilled; the date is used verbatim
	sub, err := f.svc.Submit(ctx, alice, checkin.NewCheckIn{
		GroupID: grp.ID, ProductiveScore: 3, SatisfiedScore: 3, BodyScore: 3, CareScore: 3,
		WeekStartDate: "2024-05-20",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if want := time.Date(2024, time.May, 20, 0, 0, 0, 0, time.UTC); !sub.CheckIn.WeekStartDate.Equal(want) {
		t.Errorf("WeekStartDate = %v, want %v", sub.CheckIn.WeekStartDate, want)
	}

	// same user, same group, current week is a distinct bucket
	if _, err = f.svc.Submit(ctx, alice, checkin.NewCheckIn{
		GroupID: grp.ID, ProductiveScore: 4, SatisfiedScore: 4, BodyScore: 4, CareScore: 4,
	}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// unparseable date
	_, err = f.svc.Submit(ctx, alice, checkin.NewCheckIn{
		GroupID: grp.ID, ProductiveScore: 4, SatisfiedScore: 4, BodyScore: 4, CareScore: 4,
		WeekStartDate: "2024-13-40",
	})
	if _, ok := err.(*core.ValidationError); !ok {
		t.Errorf("Submit() error = %v, want *core.ValidationError", err)
	}
}

func TestService_ListUser(t *testing.T) {
	mockNow(t)
	ctx := context.Background()
	f := newFixture(t)

	alice := testutil.CreateUser(t, f.usrRepo, "alice", "alice@test.cd", "", true)
	bob := testutil.CreateUser(t, f.usrRepo, "bob", "bob@test.cd", "", true)
	grp1 := f.createGroup(t, alice, "One")
	grp2 := f.createGroup(t, alice, "Two")

	weeks := []string{"2024-05-06", "2024-05-13", "2024-05-20"}
	for _, w := range weeks {
		if _, err := f.svc.Submit(ctx, alice, checkin.NewCheckIn{
			GroupID: grp1.ID, ProductiveScore: 5, SatisfiedScore: 5, BodyScore: 5, CareScore: 5, WeekStartDate: w,
		}); err != nil {
			t.Fatalf("Submit(): %v", err)
		}
	}
	if _, err := f.svc.Submit(ctx, alice, checkin.NewCheckIn{
		GroupID: grp2.ID, ProductiveScore: 5, SatisfiedScore: 5, BodyScore: 5, CareScore: 5,
	}); err != nil {
		t.Fatalf("Submit(): %v", err)
	}

	// all groups
	checkIns, total, err := f.svc.ListUser(ctx, alice, "", 20, 0)
	if err != nil {
		t.Fatalf("ListUser() error = %v", err)
	}
	if total != 4 || len(checkIns) != 4 {
		t.Errorf("ListUser() total = %v, len = %v, want 4", total, len(checkIns))
	}
	// newest week first
	if !checkIns[0].WeekStartDate.Equal(time.Date(2024, time.May, 27, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first WeekStartDate = %v", checkIns[0].WeekStartDate)
	}

	// filtered by group, paginated
	checkIns, total, err = f.svc.ListUser(ctx, alice, grp1.ID, 2, 0)
	if err != nil {
		t.Fatalf("ListUser() error = %v", err)
	}
	if total != 3 || len(checkIns) != 2 {
		t.Errorf("ListUser() total = %v, len = %v, want 3/2", total, len(checkIns))
	}

	// group filter requires membership
	if _, _, err = f.svc.ListUser(ctx, bob, grp1.ID, 20, 0); err != group.ErrNotMember {
		t.Errorf("ListUser() error = %v, want ErrNotMember", err)
	}
}

func TestService_ListGroup(t *testing.T) {
	mockNow(t)
	ctx := context.Background()
	f := newFixture(t)

	alice := testutil.CreateUser(t, f.usrRepo, "alice", "alice@test.cd", "", true)
	bob := testutil.CreateUser(t, f.usrRepo, "bob", "bob@test.cd", "", true)
	outsider := testutil.CreateUser(t, f.usrRepo, "carol", "carol@test.cd", "", true)

	grp := f.createGroup(t, alice, "History Buffs")
	f.join(t, bob, grp.AccessCode)

	for _, w := range []string{"2024-05-13", "2024-05-20", ""} {
		for _, u := range []user.User{alice, bob} {
			if _, err := f.svc.Submit(ctx, u, checkin.NewCheckIn{
				GroupID: grp.ID, ProductiveScore: 6, SatisfiedScore: 6, BodyScore: 6, CareScore: 6, WeekStartDate: w,
			}); err != nil {
				t.Fatalf("Submit(): %v", err)
			}
		}
	}

	name, checkIns, total, err := f.svc.ListGroup(ctx, alice, grp.ID, time.Time{}, 50, 0)
	if err != nil {
		t.Fatalf("ListGroup() error = %v", err)
	}
	if name != "History Buffs" || total != 6 || len(checkIns) != 6 {
		t.Errorf("ListGroup() = %q, total %v, len %v", name, total, len(checkIns))
	}

	// narrowed to one week
	week := time.Date(2024, time.May, 20, 0, 0, 0, 0, time.UTC)
	_, checkIns, total, err = f.svc.ListGroup(ctx, alice, grp.ID, week, 50, 0)
	if err != nil {
		t.Fatalf("ListGroup() error = %v", err)
	}
	if total != 2 || len(checkIns) != 2 {
		t.Errorf("ListGroup(week) total = %v, len %v, want 2", total, len(checkIns))
	}

	if _, _, _, err = f.svc.ListGroup(ctx, outsider, grp.ID, time.Time{}, 50, 0); err != group.ErrNotMember {
		t.Errorf("ListGroup() error = %v, want ErrNotMember", err)
	}
}

func TestService_CurrentWeek(t *testing.T) {
	mockNow(t)
	ctx := context.Background()
	f := newFixture(t)

	alice := testutil.CreateUser(t, f.usrRepo, "alice", "alice@test.cd", "", true)
	bob := testutil.CreateUser(t, f.usrRepo, "bob", "bob@test.cd", "", true)

	grp1 := f.createGroup(t, alice, "One")
	grp2 := f.createGroup(t, alice, "Two")
	f.join(t, bob, grp1.AccessCode)

	if _, err := f.svc.Submit(ctx, alice, checkin.NewCheckIn{
		GroupID: grp1.ID, ProductiveScore: 8, SatisfiedScore: 7, BodyScore: 6, CareScore: 5,
	}); err != nil {
		t.Fatalf("Submit(): %v", err)
	}
	if _, err := f.svc.Submit(ctx, bob, checkin.NewCheckIn{
		GroupID: grp1.ID, ProductiveScore: 5, SatisfiedScore: 5, BodyScore: 5, CareScore: 3,
	}); err != nil {
		t.Fatalf("Submit(): %v", err)
	}

	summary, err := f.svc.CurrentWeek(ctx, alice)
	if err != nil {
		t.Fatalf("CurrentWeek() error = %v", err)
	}
	if want := time.Date(2024, time.May, 27, 0, 0, 0, 0, time.UTC); !summary.WeekStartDate.Equal(want) {
		t.Errorf("WeekStartDate = %v, want %v", summary.WeekStartDate, want)
	}
	if summary.TotalGroups != 2 || summary.SubmittedCount != 1 {
		t.Errorf("TotalGroups = %v, SubmittedCount = %v", summary.TotalGroups, summary.SubmittedCount)
	}

	for _, gw := range summary.Groups {
		switch gw.Group.ID {
		case grp1.ID:
			if !gw.UserSubmitted || gw.UserCheckIn == nil || gw.UserCheckIn.HuCaresScore != 16 {
				t.Errorf("grp1 UserSubmitted = %v, UserCheckIn = %+v", gw.UserSubmitted, gw.UserCheckIn)
			}
			if gw.Stats.TotalCheckins != 2 {
				t.Errorf("grp1 Stats = %+v", gw.Stats)
			}
			if len(gw.RecentCheckIns) != 2 {
				t.Errorf("grp1 len(RecentCheckIns) = %v", len(gw.RecentCheckIns))
			}
		case grp2.ID:
			if gw.UserSubmitted || gw.UserCheckIn != nil {
				t.Errorf("grp2 should have no submission")
			}
			if gw.Stats != (checkin.GroupStats{}) {
				t.Errorf("grp2 Stats = %+v, want zeros", gw.Stats)
			}
		default:
			t.Errorf("unexpected group %q", gw.Group.ID)
		}
	}
}
