package testutil

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hucares/hucares/core"
	"github.com/hucares/hucares/core/user"
)

// NewConfig returns a Config suitable for tests: cheap bcrypt, TEST mode,
// UTC week buckets.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:    "HuCares",
		Env:        "TEST",
		TestMode:   true,
		Build:      "test",
		SecretKey:  "secret",
		BcryptCost: bcrypt.MinCost,
		Server: core.ServerConfig{
			Host:                      "127.0.0.1",
			Port:                      "8000",
			ShutdownTimeout:           5 * time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: time.Hour,
		},
		CheckIn: core.CheckInConfig{WeekTimezone: "UTC"},
	}
}

// Logger is a no-op core.Logger.
type Logger struct{}

var _ core.Logger = (*Logger)(nil)

func (Logger) Debug(msg string, args ...interface{}) {}
func (Logger) Info(msg string, args ...interface{})  {}
func (Logger) Warn(msg string, args ...interface{})  {}
func (Logger) Error(msg string, args ...interface{}) {}
func (Logger) Fatal(msg string, args ...interface{}) {}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, email, pwd string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
		LastLogin: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd, bcrypt.MinCost); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}
