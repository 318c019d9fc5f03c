package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const maxBodyBytes = 1 << 20

// RegisterRequest is the body of POST /auth/register. Top-level keys other
// than email, username and password are kept as the user's profile.
type RegisterRequest struct {
	Email    string         `json:"email"`
	Username string         `json:"username"`
	Password string         `json:"password"`
	Profile  map[string]any `json:"-"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Username, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 72)),
	)
}

func (r RegisterRequest) toService() services.RegisterRequest {
	return services.RegisterRequest{
		Email:    r.Email,
		UserName: r.Username,
		Password: r.Password,
		Profile:  r.Profile,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// UpdateRequest is the body of PATCH /users/me. Absent fields are kept.
type UpdateRequest struct {
	Email    *string        `json:"email"`
	Username *string        `json:"username"`
	Password *string        `json:"password"`
	Profile  map[string]any `json:"profile"`
}

func (r UpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.NilOrNotEmpty, validation.Length(3, 254), is.Email),
		validation.Field(&r.Username, validation.NilOrNotEmpty, validation.Length(1, 64)),
		validation.Field(&r.Password, validation.NilOrNotEmpty, validation.Length(1, 72)),
	)
}

func (r UpdateRequest) toService() services.UpdateRequest {
	return services.UpdateRequest{
		Email:    r.Email,
		UserName: r.Username,
		Password: r.Password,
		Profile:  r.Profile,
	}
}

// UserResponse is the outward view of a user; it has no password field.
type UserResponse struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Username  string         `json:"username"`
	Profile   map[string]any `json:"profile,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func newUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.UserName,
		Profile:   u.Profile,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type RegisterResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

type PrincipalSummary struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type LoginResponse struct {
	Message     string           `json:"message"`
	AccessToken string           `json:"accessToken"`
	User        PrincipalSummary `json:"user"`
}

// decodeJSON reads one JSON value from body into v. Numbers are kept as
// json.Number so profile values pass through untouched.
func decodeJSON(body io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", common.ErrorValidation, err)
	}
	return nil
}

func decodeRegister(body io.Reader) (RegisterRequest, error) {
	var raw map[string]any
	if err := decodeJSON(body, &raw); err != nil {
		return RegisterRequest{}, err
	}

	var req RegisterRequest
	var err error
	if req.Email, err = takeString(raw, "email"); err != nil {
		return req, err
	}
	if req.Username, err = takeString(raw, "username"); err != nil {
		return req, err
	}
	if req.Password, err = takeString(raw, "password"); err != nil {
		return req, err
	}
	if len(raw) > 0 {
		req.Profile = raw
	}
	return req, nil
}

// takeString removes key from m and returns it as a string. A missing key
// yields "".
func takeString(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", nil
	}
	delete(m, key)

	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", common.ErrorValidation, key)
	}
	return s, nil
}

// validationError wraps ozzo errors so the boundary maps them to 400.
func validationError(err error) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, strings.TrimSpace(err.Error()))
}
