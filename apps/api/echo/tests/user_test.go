package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	echoapi "github.com/hucares/hucares/apps/api/echo"
	"github.com/hucares/hucares/core/group"
	"github.com/hucares/hucares/core/user"
	testutil "github.com/hucares/hucares/tests"
)

func Test_authApi_register(t *testing.T) {
	setup(t)

	testutil.CreateUser(t, usrRepo, "taken", "taken@test.cd", "Sup3rSecret", true)

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": reqMsg, "password": reqMsg}),
		},
		{
			name:     "reserved username",
			body:     marchallObj(t, user.NewUser{Username: "admin", Password: "Sup3rSecret"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this username is reserved"}),
		},
		{
			name:     "weak password",
			body:     marchallObj(t, user.NewUser{Username: "hero", Password: "alllowercase"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"password": "password must contain at least one uppercase letter, one lowercase letter, and one number",
			}),
		},
		{
			name:     "duplicate username",
			body:     marchallObj(t, user.NewUser{Username: "Taken", Password: "Sup3rSecret"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "username already exists"}),
		},
		{
			name:     "duplicate email",
			body:     marchallObj(t, user.NewUser{Username: "hero", Email: "Taken@test.cd", Password: "Sup3rSecret"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "email already registered"}),
		},
		{
			name:     "registered",
			body:     marchallObj(t, user.NewUser{Username: "Hero", Email: "hero@test.cd", Password: "Sup3rSecret"}),
			wantCode: http.StatusCreated,
			extra:    true, // check response payload
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/auth/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if ok, _ := tt.extra.(bool); ok {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.AuthResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if respData.Message != "registration successful" {
					t.Errorf("failed! message = %q", respData.Message)
				}
				if respData.User.Username != "hero" { // normalized
					t.Errorf("failed! username = %q", respData.User.Username)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				if respData.ExpiresIn != int(conf.Server.JWTExpirationDelta.Seconds()) {
					t.Errorf("failed! expiresIn = %d", respData.ExpiresIn)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_login(t *testing.T) {
	setup(t)

	testutil.CreateUser(t, usrRepo, "hero", "hero@test.cd", "Sup3rSecret", true)
	testutil.CreateUser(t, usrRepo, "ndog", "ndog@test.cd", "Sup3rSecret", false) // 😂

	reqMsg := "this field is required"
	badCreds := marchallObj(t, httpErr{Error: "invalid username or password"})
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": reqMsg, "password": reqMsg}),
		},
		{
			name:     "unknown user",
			body:     marchallObj(t, echoapi.LoginRequest{Username: "ghost", Password: "Sup3rSecret"}),
			wantCode: http.StatusUnauthorized, wantData: badCreds,
		},
		{
			name:     "wrong password",
			body:     marchallObj(t, echoapi.LoginRequest{Username: "hero", Password: "wrong"}),
			wantCode: http.StatusUnauthorized, wantData: badCreds,
		},
		{
			name:     "inactive user",
			body:     marchallObj(t, echoapi.LoginRequest{Username: "ndog", Password: "Sup3rSecret"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "logged in",
			body:     marchallObj(t, echoapi.LoginRequest{Username: " Hero ", Password: "Sup3rSecret"}), // normalized
			wantCode: http.StatusOK,
			extra:    true,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/auth/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if ok, _ := tt.extra.(bool); ok {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.AuthResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if respData.Message != "login successful" {
					t.Errorf("failed! message = %q", respData.Message)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_me(t *testing.T) {
	setup(t)
	ctx := context.Background()

	hero := testutil.CreateUser(t, usrRepo, "hero", "hero@test.cd", "Sup3rSecret", true)
	naughty := testutil.CreateUser(t, usrRepo, "ndog", "ndog@test.cd", "Sup3rSecret", false)

	detail, err := grpSvc.Create(ctx, hero, group.NewGroup{Name: "The Crew", MaxMembers: 10})
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Invalid token", token: "lol.lol.lol", wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Get profile", token: getToken(t, hero), wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.ProfileResponse{User: hero, Groups: []group.Group{detail.Group}}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/auth/me"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_refreshToken(t *testing.T) {
	setup(t)

	hero := testutil.CreateUser(t, usrRepo, "hero", "hero@test.cd", "Sup3rSecret", true)
	naughty := testutil.CreateUser(t, usrRepo, "ndog", "ndog@test.cd", "Sup3rSecret", false)

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "hucares-api",
			Subject:   hero.ID,
			Audience:  jwt.ClaimStrings{"hucares-app"},
			ExpiresAt: jwt.NewNumericDate(now.Add(conf.Server.JWTExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: now.Add(-2 * conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		Username:     hero.Username,
	}
	unrefreshableToken, err := echoapi.GenerateToken(conf, unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: getToken(t, hero), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/auth/refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess the new token, just check that one came back
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.AuthResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if respData.Message != "token refreshed" {
					t.Errorf("failed! message = %q", respData.Message)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_changePassword(t *testing.T) {
	setup(t)

	hero := testutil.CreateUser(t, usrRepo, "hero", "hero@test.cd", "Sup3rSecret", true)
	token := getToken(t, hero)

	reqMsg := "this field is required"
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "required fields", token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"currentPassword": reqMsg, "newPassword": reqMsg}),
		},
		{
			name:  "wrong current password",
			token: token, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ChangePassword{CurrentPassword: "wrong", NewPassword: "N3wPassword"}),
			wantData: marchallObj(t, map[string]string{"currentPassword": "current password is incorrect"}),
		},
		{
			name:  "password changed",
			token: token, wantCode: http.StatusOK,
			body:     marchallObj(t, user.ChangePassword{CurrentPassword: "Sup3rSecret", NewPassword: "N3wPassword"}),
			wantData: marchallObj(t, echoapi.MessageResponse{Message: "password changed successfully"}),
			extra:    true,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut
		tt.path = "/v1/auth/change-password"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if ok, _ := tt.extra.(bool); ok {
				refreshed, err := usrSvc.GetByID(context.Background(), hero.ID)
				if err != nil {
					t.Fatalf("GetByID(): %v", err)
				}
				if err = refreshed.CheckPassword("N3wPassword"); err != nil {
					t.Errorf("failed to update new password: %v", err)
				}
			}
		})
	}
}

func Test_authApi_logout(t *testing.T) {
	setup(t)

	hero := testutil.CreateUser(t, usrRepo, "hero", "hero@test.cd", "Sup3rSecret", true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "logged out", token: getToken(t, hero), wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.MessageResponse{Message: "logout successful"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/auth/logout"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_deactivate(t *testing.T) {
	setup(t)

	hero := testutil.CreateUser(t, usrRepo, "hero", "hero@test.cd", "Sup3rSecret", true)
	token := getToken(t, hero)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "account deactivated", token: token, wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.MessageResponse{Message: "account deactivated"}),
		},
		{
			// token is still valid but the account is gone
			name: "deactivated account locked out", token: token, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodDelete
		tt.path = "/v1/auth/account"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
