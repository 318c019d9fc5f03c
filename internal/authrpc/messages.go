package authrpc

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"google.golang.org/protobuf/types/known/structpb"
)

// RegisterRequest travels as one flat object: email, username and password
// plus any other keys, which form the profile.
type RegisterRequest struct {
	Email    string
	Username string
	Password string
	Profile  map[string]any
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Username, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 72)),
	)
}

// Struct flattens the request into a wire message.
func (r RegisterRequest) Struct() (*structpb.Struct, error) {
	m := make(map[string]any, len(r.Profile)+3)
	for k, v := range r.Profile {
		m[k] = v
	}
	m["email"] = r.Email
	m["username"] = r.Username
	m["password"] = r.Password

	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("%w: profile: %v", common.ErrorValidation, err)
	}
	return s, nil
}

// DecodeRegister splits a wire message into credentials and profile.
func DecodeRegister(s *structpb.Struct) (RegisterRequest, error) {
	m := s.AsMap()

	var req RegisterRequest
	var err error
	if req.Email, err = takeString(m, "email"); err != nil {
		return req, err
	}
	if req.Username, err = takeString(m, "username"); err != nil {
		return req, err
	}
	if req.Password, err = takeString(m, "password"); err != nil {
		return req, err
	}
	if len(m) > 0 {
		req.Profile = m
	}
	return req, nil
}

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

// ValidateLogin checks login input without turning the password into a
// string.
func ValidateLogin(email string, password []byte) error {
	return validation.Errors{
		"email":    validation.Validate(email, validation.Required),
		"password": validation.Validate(password, validation.Required),
	}.Filter()
}

// LoginStruct builds the Login message from a password buffer. The message
// keeps its own copy, so the caller may wipe password once the call returns.
func LoginStruct(email string, password []byte) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"email":    structpb.NewStringValue(email),
		"password": structpb.NewStringValue(string(password)),
	}}
}

// UpdateRequest changes only the fields that are set.
type UpdateRequest struct {
	Email    *string        `json:"email,omitempty"`
	Username *string        `json:"username,omitempty"`
	Password *string        `json:"password,omitempty"`
	Profile  map[string]any `json:"profile,omitempty"`
}

func (r UpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.NilOrNotEmpty, validation.Length(3, 254), is.Email),
		validation.Field(&r.Username, validation.NilOrNotEmpty, validation.Length(1, 64)),
		validation.Field(&r.Password, validation.NilOrNotEmpty, validation.Length(1, 72)),
	)
}

type User struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Username  string         `json:"username"`
	Profile   map[string]any `json:"profile,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
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

type PingResponse struct {
	Status string `json:"status"`
}
