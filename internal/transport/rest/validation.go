package rest

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" {
			name, _, _ = strings.Cut(field.Tag.Get("query"), ",")
		}
		if name == "-" {
			return ""
		}
		return name
	})

	// numeric rules such as gte=0 compare decimals by value
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	return v
}

// validateStruct runs the struct's validate tags and renders the first violation as a client message.
func validateStruct(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	return errors.New(fieldMessage(fieldErrs[0]))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "len", "alpha", "uppercase":
		return field + " must be a single uppercase letter"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		if fe.Param() == "0" {
			return field + " must be a non-negative number"
		}
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return field + " must be in YYYY-MM-DD format"
	}

	return fmt.Sprintf("%s is invalid", field)
}

// queryInt reads an integer query parameter, trying names in order; def applies when none is set.
func queryInt(r *http.Request, def int, names ...string) (int, error) {
	for _, name := range names {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return n, nil
	}
	return def, nil
}

func queryString(r *http.Request, name, def string) string {
	if raw := r.URL.Query().Get(name); raw != "" {
		return raw
	}
	return def
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type navHistoryQuery struct {
	Limit int `query:"limit" validate:"min=1,max=365"`
}

func parseNavHistoryQuery(r *http.Request) (navHistoryQuery, error) {
	limit, err := queryInt(r, 30, "limit", "days")
	if err != nil {
		return navHistoryQuery{}, err
	}
	q := navHistoryQuery{Limit: limit}
	return q, validateStruct(q)
}

type assetPerformanceQuery struct {
	Symbol string `query:"symbol" validate:"omitempty,oneof=BTC ETH USDC"`
	Limit  int    `query:"limit" validate:"min=1,max=100"`
}

func parseAssetPerformanceQuery(r *http.Request) (assetPerformanceQuery, error) {
	limit, err := queryInt(r, 7, "limit", "days")
	if err != nil {
		return assetPerformanceQuery{}, err
	}
	q := assetPerformanceQuery{Symbol: r.URL.Query().Get("symbol"), Limit: limit}
	return q, validateStruct(q)
}

type chartQuery struct {
	Period string `query:"period" validate:"oneof=7d 30d 90d 1y"`
}

func parseChartQuery(r *http.Request) (chartQuery, error) {
	q := chartQuery{Period: queryString(r, "period", "7d")}
	return q, validateStruct(q)
}

type dateQuery struct {
	Date string `query:"date" validate:"omitempty,datetime=2006-01-02"`
}

func parseDateQuery(r *http.Request) (*string, error) {
	q := dateQuery{Date: r.URL.Query().Get("date")}
	if err := validateStruct(q); err != nil {
		return nil, err
	}
	return optional(q.Date), nil
}

type allocationKey struct {
	Key string `json:"key" validate:"required,len=1,alpha,uppercase"`
}

type usersQuery struct {
	Search string `query:"search" validate:"max=100"`
	Page   int    `query:"page" validate:"min=1"`
	Limit  int    `query:"limit" validate:"min=1,max=100"`
}

func parseUsersQuery(r *http.Request) (usersQuery, error) {
	page, err := queryInt(r, 1, "page")
	if err != nil {
		return usersQuery{}, err
	}
	limit, err := queryInt(r, 10, "limit")
	if err != nil {
		return usersQuery{}, err
	}
	q := usersQuery{Search: strings.TrimSpace(r.URL.Query().Get("search")), Page: page, Limit: limit}
	return q, validateStruct(q)
}

type createAllocationRequest struct {
	Key            string           `json:"key" validate:"required,len=1,alpha,uppercase"`
	Name           string           `json:"name" validate:"required,min=3"`
	InitialBalance *decimal.Decimal `json:"initialBalance" validate:"required,gte=0"`
	Date           *string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type updateAllocationRequest struct {
	Name           *string          `json:"name" validate:"omitempty,min=3"`
	InitialBalance *decimal.Decimal `json:"initialBalance" validate:"omitempty,gte=0"`
	Date           *string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"fullName" validate:"required,min=3"`
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"fullName" validate:"required,min=3"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN USER"`
}

type updateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6"`
	FullName *string `json:"fullName" validate:"omitempty,min=3"`
	Role     *string `json:"role" validate:"omitempty,oneof=ADMIN USER"`
}
