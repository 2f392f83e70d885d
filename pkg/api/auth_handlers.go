package api

import (
	"net/http"

	"github.com/kasugai-cloud/aichat/pkg/accounts"
	"github.com/kasugai-cloud/aichat/pkg/httputil"
	"github.com/kasugai-cloud/aichat/pkg/middleware"
	"github.com/kasugai-cloud/aichat/pkg/models"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// signUp handles POST /auth/signup
func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	result, err := s.accounts.SignUp(r.Context(), accounts.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

type confirmRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// confirm handles POST /auth/confirm
func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := s.accounts.Confirm(r.Context(), req.Email, req.Code); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"status": "confirmed"})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signIn handles POST /auth/signin
func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	result, err := s.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// getProfile handles GET /auth/profile
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())

	// Admins may look up other profiles by query.
	userID := httputil.ParseQueryString(r, "userId", actor.UserID)
	if userID != actor.UserID && actor.Role == models.RoleUser {
		httputil.WriteForbidden(w, "cannot read another user's profile")
		return
	}

	user, err := s.accounts.Profile(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

type profileUpdateRequest struct {
	Name string `json:"name"`
}

// updateProfile handles PUT /auth/profile
func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	var req profileUpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := s.accounts.UpdateProfile(r.Context(), actor.UserID, accounts.ProfileUpdate{Name: req.Name})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// listUsers handles GET /admin/users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())

	users, err := s.accounts.ListUsers(r.Context(), accounts.ListUsersInput{
		Actor:          actor,
		OrganizationID: httputil.ParseQueryString(r, "organizationId", ""),
		CompanyID:      httputil.ParseQueryString(r, "companyId", ""),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"users": users})
}

type createUserRequest struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	OrganizationID    string `json:"organizationId"`
	CompanyID         string `json:"companyId"`
	DepartmentID      string `json:"departmentId"`
	TemporaryPassword string `json:"temporaryPassword"`
}

// createUser handles POST /admin/users
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	var req createUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result, err := s.accounts.CreateUser(r.Context(), accounts.CreateUserInput{
		Actor: actor,
		Email: req.Email,
		Name:  req.Name,
		Role:  models.Role(req.Role),
		Scope: models.Scope{
			OrganizationID: req.OrganizationID,
			CompanyID:      req.CompanyID,
			DepartmentID:   req.DepartmentID,
		},
		TemporaryPassword: req.TemporaryPassword,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}
