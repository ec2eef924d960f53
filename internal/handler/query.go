package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-library-api/internal/middleware"
	"github.com/noah-isme/sma-library-api/internal/policy"
	appErrors "github.com/noah-isme/sma-library-api/pkg/errors"
)

// listQuery collects the query parameters shared by every list endpoint.
type listQuery struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// queryParser accumulates malformed parameters so a request reports all of them at once.
type queryParser struct {
	c      *gin.Context
	fields []appErrors.FieldError
}

func newQueryParser(c *gin.Context) *queryParser {
	return &queryParser{c: c}
}

func (p *queryParser) list() listQuery {
	return listQuery{
		Search:    strings.TrimSpace(p.c.Query("search")),
		Page:      p.intOr("page", 1),
		PageSize:  p.intOr("limit", 20),
		SortBy:    strings.TrimSpace(p.c.Query("sort")),
		SortOrder: strings.TrimSpace(p.c.Query("order")),
	}
}

func (p *queryParser) str(key string) string {
	return strings.TrimSpace(p.c.Query(key))
}

func (p *queryParser) intOr(key string, fallback int) int {
	v := p.optionalInt(key)
	if v == nil {
		return fallback
	}
	return *v
}

func (p *queryParser) optionalInt(key string) *int {
	raw := strings.TrimSpace(p.c.Query(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fields = append(p.fields, appErrors.FieldError{Field: key, Kind: appErrors.KindFormat, Reason: "must be an integer"})
		return nil
	}
	return &v
}

func (p *queryParser) optionalBool(key string) *bool {
	raw := strings.TrimSpace(p.c.Query(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fields = append(p.fields, appErrors.FieldError{Field: key, Kind: appErrors.KindFormat, Reason: "must be true or false"})
		return nil
	}
	return &v
}

// err returns a validation error when any parameter failed to parse.
func (p *queryParser) err() error {
	if len(p.fields) == 0 {
		return nil
	}
	return appErrors.Validation(p.fields...)
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}

func actorOf(c *gin.Context) policy.Actor {
	return middleware.Actor(c)
}
