package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	tenantAuth "github.com/MrEthical07/tenantAuth"
	"github.com/MrEthical07/tenantAuth/middleware"
)

// ProvisionResponse is returned by the provisioning routes. Password is the
// generated plaintext and appears only in this response.
type ProvisionResponse struct {
	Status        int    `json:"status"`
	Message       string `json:"message"`
	AccountID     string `json:"accountId"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	EntityID      string `json:"entityId,omitempty"`
	RoleBindingID string `json:"roleBindingId,omitempty"`
	Policy        string `json:"policy"`
}

func newProvisionResponse(message string, acc *tenantAuth.ProvisionedAccount) ProvisionResponse {
	return ProvisionResponse{
		Status:        http.StatusCreated,
		Message:       message,
		AccountID:     acc.AccountID,
		Username:      acc.Username,
		Password:      acc.Password,
		EntityID:      acc.EntityID,
		RoleBindingID: acc.RoleBindingID,
		Policy:        acc.Policy,
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteMessage(w, http.StatusRequestEntityTooLarge, "Request body too large.")
			return false
		}
		middleware.WriteError(w, fmt.Errorf("%w: malformed JSON body", tenantAuth.ErrInvalidRequest))
		return false
	}
	return true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req tenantAuth.LoginRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.engine.Login(r.Context(), req, middleware.Metadata(r))
	if err != nil {
		s.logger.ErrorContext(r.Context(), "login failed", "error", err)
		middleware.WriteError(w, err)
		return
	}

	if res.Succeeded() {
		middleware.SetSessionCookie(w, s.session, res.SessionHandle, res.Session.ExpiresAt)
	}
	middleware.WriteJSON(w, res.StatusCode, middleware.NewLoginResponse(res))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	v, err := s.engine.Logout(r.Context(), middleware.SessionHandle(r, s.session.CookieName))
	if err != nil {
		s.logger.ErrorContext(r.Context(), "logout failed", "error", err)
		middleware.WriteError(w, err)
		return
	}
	middleware.ClearSessionCookie(w, s.session)
	middleware.WriteMessage(w, v.StatusCode, v.Message)
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	sc, _ := tenantAuth.SessionFromContext(r.Context())
	n, err := s.engine.LogoutAll(r.Context(), sc.UserID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "logout all failed", "error", err)
		middleware.WriteError(w, err)
		return
	}
	middleware.ClearSessionCookie(w, s.session)
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"status":   http.StatusOK,
		"message":  tenantAuth.MessageLogoutSuccessful,
		"sessions": n,
	})
}

func (s *Server) handleValidateSession(w http.ResponseWriter, r *http.Request) {
	v, err := s.engine.ValidateSession(r.Context(), middleware.SessionHandle(r, s.session.CookieName))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteVerdict(w, v)
}

func (s *Server) handleValidateEmployeeSession(w http.ResponseWriter, r *http.Request) {
	v, err := s.engine.RequireEmployee(r.Context(), middleware.SessionHandle(r, s.session.CookieName))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteVerdict(w, v)
}

func (s *Server) handleAdminDashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Welcome to the SuperAdmin Dashboard"))
}

func (s *Server) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	actor, _ := tenantAuth.SessionFromContext(r.Context())

	var req tenantAuth.ProvisionOrganizationRequest
	if !s.decode(w, r, &req) {
		return
	}

	acc, err := s.engine.ProvisionOrganization(r.Context(), req, actor.UserID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, newProvisionResponse("User created successfully For Organization", acc))
}

func (s *Server) handleAddEmployee(w http.ResponseWriter, r *http.Request) {
	actor, _ := tenantAuth.SessionFromContext(r.Context())

	var req tenantAuth.AddEmployeeRequest
	if !s.decode(w, r, &req) {
		return
	}

	acc, err := s.engine.AddEmployee(r.Context(), actor, req)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, newProvisionResponse("User created successfully for Employee", acc))
}
