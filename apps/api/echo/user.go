package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hucares/hucares/core"
	"github.com/hucares/hucares/core/group"
	"github.com/hucares/hucares/core/user"
)

type authApi struct {
	conf       *core.Config
	svc        *user.Service
	groupSvc   *group.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := authApi{
		conf:       deps.Conf,
		svc:        deps.UserSvc,
		groupSvc:   deps.GroupSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	// TODO: rate limit `/register` & `/login`
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)

	// authed endpoints
	authed := ag.Group("", jwt)
	authed.GET("/me", api.me)
	authed.POST("/refresh", api.refreshToken)
	authed.PUT("/change-password", api.changePassword)
	authed.POST("/logout", api.logout)
	authed.DELETE("/account", api.deactivate)
}

// Handlers

func (api *authApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}

	token, err := GenerateToken(api.conf, GetUserClaims(api.conf, usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusCreated, AuthResponse{
		Message:   "registration successful",
		User:      usr,
		Token:     token,
		ExpiresIn: int(api.conf.Server.JWTExpirationDelta.Seconds()),
	})
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := authenticate(ctx.Request().Context(), data.Username, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}

	token, err := GenerateToken(api.conf, GetUserClaims(api.conf, usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, AuthResponse{
		Message:   "login successful",
		User:      usr,
		Token:     token,
		ExpiresIn: int(api.conf.Server.JWTExpirationDelta.Seconds()),
	})
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	groups, err := api.groupSvc.ActiveGroupsForUser(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying user groups")
	}
	if groups == nil {
		groups = []group.Group{}
	}

	return ctx.JSON(http.StatusOK, ProfileResponse{User: usr, Groups: groups})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}

	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	return ctx.JSON(http.StatusOK, AuthResponse{
		Message:   "token refreshed",
		User:      usr,
		Token:     token,
		ExpiresIn: int(api.conf.Server.JWTExpirationDelta.Seconds()),
	})
}

func (api *authApi) changePassword(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data user.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ChangePassword(ctx.Request().Context(), usr.ID, data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "password changed successfully"})
}

// logout is a no-op: tokens are stateless and expire on their own. The
// endpoint exists so clients have a uniform auth surface.
func (api *authApi) logout(ctx echo.Context) error {
	if _, err := getContextClaims(ctx); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "logout successful"})
}

func (api *authApi) deactivate(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Deactivate(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deactivating account")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "account deactivated"})
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	AuthResponse struct {
		Message   string    `json:"message"`
		User      user.User `json:"user"`
		Token     string    `json:"token"`
		ExpiresIn int       `json:"expiresIn"`
	}

	ProfileResponse struct {
		User   user.User     `json:"user"`
		Groups []group.Group `json:"groups"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}
