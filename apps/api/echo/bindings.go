package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

var (
	limitParam  = "limit"
	offsetParam = "offset"
)

// Pagination binds limit/offset query params, clamping bad values.
type Pagination struct {
	Limit  int
	Offset int
}

func (p *Pagination) Bind(ctx echo.Context, defaultLimit, maxLimit int) {
	p.Limit = defaultLimit
	if val := ctx.QueryParam(limitParam); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			p.Limit = n
		}
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if val := ctx.QueryParam(offsetParam); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n >= 0 {
			p.Offset = n
		}
	}
}
