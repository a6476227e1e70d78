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

const recentCheckInsLimit = 10

type groupApi struct {
	conf       *core.Config
	svc        *group.Service
	userSvc    *user.Service
	checkInSvc *checkin.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerGroupAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := groupApi{
		conf:       deps.Conf,
		svc:        deps.GroupSvc,
		userSvc:    deps.UserSvc,
		checkInSvc: deps.CheckInSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	gg := g.Group("/groups", jwt)
	gg.POST("", api.create)
	gg.GET("", api.query)
	gg.POST("/join", api.join)

	// detail endpoints
	dg := gg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("/leave", api.leave)
	dg.GET("/members", api.members)
}

// Handlers

func (api *groupApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data group.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	detail, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}

	return ctx.JSON(http.StatusCreated, newGroupDetailResponse(detail))
}

func (api *groupApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	details, err := api.svc.ForUser(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying user groups")
	}

	groups := make([]GroupDetailResponse, 0, len(details))
	for _, detail := range details {
		groups = append(groups, newGroupDetailResponse(detail))
	}
	return ctx.JSON(http.StatusOK, GroupListResponse{Groups: groups, TotalGroups: len(groups)})
}

func (api *groupApi) join(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data group.JoinGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	detail, err := api.svc.Join(ctx.Request().Context(), usr, data.AccessCode)
	if err != nil {
		return errors.Wrap(err, "joining group")
	}

	return ctx.JSON(http.StatusOK, JoinResponse{
		Message: "joined group successfully",
		Group:   newGroupDetailResponse(detail),
	})
}

func (api *groupApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	detail, err := api.svc.Get(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding group")
	}

	_, recent, _, err := api.checkInSvc.ListGroup(
		ctx.Request().Context(), usr, detail.ID, time.Time{}, recentCheckInsLimit, 0)
	if err != nil {
		return errors.Wrap(err, "querying recent check-ins")
	}

	resp := newGroupDetailResponse(detail)
	resp.RecentCheckIns = recent
	if resp.RecentCheckIns == nil {
		resp.RecentCheckIns = []checkin.CheckIn{}
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *groupApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data group.UpdateGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	detail, err := api.svc.Update(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating group")
	}

	return ctx.JSON(http.StatusOK, newGroupDetailResponse(detail))
}

func (api *groupApi) leave(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Leave(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "leaving group")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "left group successfully"})
}

func (api *groupApi) members(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	members, err := api.svc.Members(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying group members")
	}

	var adminCount int
	resp := make([]MemberResponse, 0, len(members))
	for _, member := range members {
		if member.Role == group.RoleAdmin {
			adminCount++
		}
		resp = append(resp, MemberResponse{Member: member, IsCurrentUser: member.ID == usr.ID})
	}
	return ctx.JSON(http.StatusOK, MembersResponse{
		Members:      resp,
		TotalMembers: len(resp),
		AdminCount:   adminCount,
	})
}

type (
	GroupDetailResponse struct {
		group.Group
		Creator        user.Public       `json:"creator"`
		UserRole       string            `json:"userRole"`
		JoinedAt       time.Time         `json:"joinedAt"`
		MemberCount    int               `json:"memberCount"`
		Members        []group.Member    `json:"members"`
		RecentCheckIns []checkin.CheckIn `json:"recentCheckins,omitempty"`
	}

	GroupListResponse struct {
		Groups      []GroupDetailResponse `json:"groups"`
		TotalGroups int                   `json:"totalGroups"`
	}

	JoinResponse struct {
		Message string              `json:"message"`
		Group   GroupDetailResponse `json:"group"`
	}

	MemberResponse struct {
		group.Member
		IsCurrentUser bool `json:"isCurrentUser"`
	}

	MembersResponse struct {
		Members      []MemberResponse `json:"members"`
		TotalMembers int              `json:"totalMembers"`
		AdminCount   int              `json:"adminCount"`
	}
)

func newGroupDetailResponse(detail group.Detail) GroupDetailResponse {
	if detail.Members == nil {
		detail.Members = []group.Member{}
	}
	return GroupDetailResponse{
		Group:       detail.Group,
		Creator:     detail.Creator(),
		UserRole:    detail.UserRole,
		JoinedAt:    detail.JoinedAt,
		MemberCount: detail.MemberCount,
		Members:     detail.Members,
	}
}
