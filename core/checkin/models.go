package checkin

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hucares/hucares/core/user"
)

type CheckIn struct {
	ID              string    `json:"id" db:"id"`
	UserID          string    `json:"-" db:"user_id"`
	GroupID         string    `json:"-" db:"group_id"`
	WeekStartDate   time.Time `json:"weekStartDate" db:"week_start_date"`
	ProductiveScore int       `json:"productiveScore" db:"productive_score"`
	SatisfiedScore  int       `json:"satisfiedScore" db:"satisfied_score"`
	BodyScore       int       `json:"bodyScore" db:"body_score"`
	CareScore       int       `json:"careScore" db:"care_score"`
	HuCaresScore    int       `json:"huCaresScore" db:"hu_cares_score"`
	SubmittedAt     time.Time `json:"submittedAt" db:"submitted_at"`
	CreatedAt       time.Time `json:"-" db:"created_at"`

	// Username is populated by repository joins; not a column of check_in.
	Username string `json:"-" db:"username"`
}

func (c CheckIn) User() user.Public {
	return user.Public{ID: c.UserID, Username: c.Username}
}

// Score combines the four weekly ratings into the HuCares score. Inputs are
// validated to [1,10] by the caller; outputs span [-7,29].
func Score(productive, satisfied, body, care int) int {
	return productive + satisfied + body - care
}

// GroupStats aggregates one group-week's check-ins.
type GroupStats struct {
	TotalCheckins int     `json:"totalCheckins"`
	AverageScore  float64 `json:"averageScore"`
	HighestScore  int     `json:"highestScore"`
	LowestScore   int     `json:"lowestScore"`
}

// Aggregate reduces a set of check-ins to count/average/max/min. An empty
// input yields all zeros; that is a defined result, not an error.
func Aggregate(checkIns []CheckIn) GroupStats {
	if len(checkIns) == 0 {
		return GroupStats{}
	}

	var sum int
	max, min := checkIns[0].HuCaresScore, checkIns[0].HuCaresScore
	for _, c := range checkIns {
		sum += c.HuCaresScore
		if c.HuCaresScore > max {
			max = c.HuCaresScore
		}
		if c.HuCaresScore < min {
			min = c.HuCaresScore
		}
	}
	mean := float64(sum) / float64(len(checkIns))
	return GroupStats{
		TotalCheckins: len(checkIns),
		// half-cents round up towards +Inf, so -0.125 becomes -0.12
		AverageScore:  math.Floor(mean*100+0.5) / 100,
		HighestScore:  max,
		LowestScore:   min,
	}
}

// NewCheckIn contains a weekly check-in submission.
type NewCheckIn struct {
	GroupID         string `json:"groupId" validate:"required"`
	ProductiveScore int    `json:"productiveScore" validate:"required,min=1,max=10"`
	SatisfiedScore  int    `json:"satisfiedScore" validate:"required,min=1,max=10"`
	BodyScore       int    `json:"bodyScore" validate:"required,min=1,max=10"`
	CareScore       int    `json:"careScore" validate:"required,min=1,max=10"`
	WeekStartDate   string `json:"weekStartDate" validate:"omitempty,datetime=2006-01-02"`
}

func (nc NewCheckIn) Validate(validate *validator.Validate) error {
	return validate.Struct(nc)
}
