package echoapi

import (
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hucares/hucares/core"
	"github.com/hucares/hucares/core/checkin"
	"github.com/hucares/hucares/core/group"
	"github.com/hucares/hucares/core/user"
)

const (
	userListDefaultLimit  = 20
	userListMaxLimit      = 100
	groupListDefaultLimit = 50
	groupListMaxLimit     = 100
)

type checkInApi struct {
	conf       *core.Config
	svc        *checkin.Service
	userSvc    *user.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerCheckInAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := checkInApi{
		conf:       deps.Conf,
		svc:        deps.CheckInSvc,
		userSvc:    deps.UserSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	cg := g.Group("/checkins", jwt)
	cg.POST("", api.submit)
	cg.GET("", api.query)
	cg.GET("/current", api.currentWeek)
	cg.GET("/group/:id", api.queryGroup)
}

// Handlers

func (api *checkInApi) submit(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data checkin.NewCheckIn
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCheckIn")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "submitting check-in")
	}

	weekly := sub.WeeklyCheckIns
	if weekly == nil {
		weekly = []checkin.CheckIn{}
	}
	return ctx.JSON(http.StatusCreated, SubmissionResponse{
		Message:        "check-in submitted successfully",
		CheckIn:        sub.CheckIn,
		GroupName:      sub.GroupName,
		GroupStats:     sub.Stats,
		WeeklyCheckIns: weekly,
	})
}

func (api *checkInApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var page Pagination
	page.Bind(ctx, userListDefaultLimit, userListMaxLimit)

	checkIns, total, err := api.svc.ListUser(
		ctx.Request().Context(), usr, ctx.QueryParam("groupId"), page.Limit, page.Offset)
	if err != nil {
		return errors.Wrap(err, "querying check-ins")
	}
	if checkIns == nil {
		checkIns = []checkin.CheckIn{}
	}

	return ctx.JSON(http.StatusOK, CheckInListResponse{
		CheckIns:   checkIns,
		Pagination: newPaginationResponse(total, page),
	})
}

func (api *checkInApi) queryGroup(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var week time.Time
	if val := ctx.QueryParam("week"); val != "" {
		week, err = checkin.ParseWeekDate(val, api.conf.WeekLocation())
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "week", Error: "invalid date, expected YYYY-MM-DD"})
		}
	}

	var page Pagination
	page.Bind(ctx, groupListDefaultLimit, groupListMaxLimit)

	groupName, checkIns, total, err := api.svc.ListGroup(
		ctx.Request().Context(), usr, ctx.Param("id"), week, page.Limit, page.Offset)
	if err != nil {
		return errors.Wrap(err, "querying group check-ins")
	}
	if checkIns == nil {
		checkIns = []checkin.CheckIn{}
	}

	return ctx.JSON(http.StatusOK, GroupCheckInListResponse{
		GroupName:  groupName,
		CheckIns:   checkIns,
		Pagination: newPaginationResponse(total, page),
	})
}

func (api *checkInApi) currentWeek(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	summary, err := api.svc.CurrentWeek(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "assembling current week")
	}

	groups := make([]GroupWeekResponse, 0, len(summary.Groups))
	for _, gw := range summary.Groups {
		recent := gw.RecentCheckIns
		if recent == nil {
			recent = []checkin.CheckIn{}
		}
		groups = append(groups, GroupWeekResponse{
			Group:          gw.Group,
			UserSubmitted:  gw.UserSubmitted,
			UserCheckIn:    gw.UserCheckIn,
			GroupStats:     gw.Stats,
			RecentCheckIns: recent,
		})
	}
	return ctx.JSON(http.StatusOK, WeekSummaryResponse{
		WeekStartDate:  summary.WeekStartDate.Format("2006-01-02"),
		TotalGroups:    summary.TotalGroups,
		SubmittedCount: summary.SubmittedCount,
		Groups:         groups,
	})
}

type (
	SubmissionResponse struct {
		Message        string             `json:"message"`
		CheckIn        checkin.CheckIn    `json:"checkin"`
		GroupName      string             `json:"groupName"`
		GroupStats     checkin.GroupStats `json:"groupStats"`
		WeeklyCheckIns []checkin.CheckIn  `json:"weeklyCheckins"`
	}

	PaginationResponse struct {
		Total   int  `json:"total"`
		Limit   int  `json:"limit"`
		Offset  int  `json:"offset"`
		HasMore bool `json:"hasMore"`
	}

	CheckInListResponse struct {
		CheckIns   []checkin.CheckIn  `json:"checkins"`
		Pagination PaginationResponse `json:"pagination"`
	}

	GroupCheckInListResponse struct {
		GroupName  string             `json:"groupName"`
		CheckIns   []checkin.CheckIn  `json:"checkins"`
		Pagination PaginationResponse `json:"pagination"`
	}

	GroupWeekResponse struct {
		Group          group.Group        `json:"group"`
		UserSubmitted  bool               `json:"userSubmitted"`
		UserCheckIn    *checkin.CheckIn   `json:"userCheckin,omitempty"`
		GroupStats     checkin.GroupStats `json:"groupStats"`
		RecentCheckIns []checkin.CheckIn  `json:"recentCheckins"`
	}

	WeekSummaryResponse struct {
		WeekStartDate  string              `json:"weekStartDate"`
		TotalGroups    int                 `json:"totalGroups"`
		SubmittedCount int                 `json:"submittedCount"`
		Groups         []GroupWeekResponse `json:"groups"`
	}
)

func newPaginationResponse(total int, page Pagination) PaginationResponse {
	return PaginationResponse{
		Total:   total,
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: page.Offset+page.Limit < total,
	}
}
