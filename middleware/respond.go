package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	tenantAuth "github.com/MrEthical07/tenantAuth"
)

// SessionResponse is the JSON body written for session verdicts.
type SessionResponse struct {
	SessionValid           bool   `json:"sessionValid"`
	StatusCode             int    `json:"statusCode"`
	Message                string `json:"message"`
	UserID                 string `json:"userId,omitempty"`
	Username               string `json:"username,omitempty"`
	Email                  string `json:"email,omitempty"`
	Phone                  string `json:"phone,omitempty"`
	EntityType             string `json:"entityType,omitempty"`
	EntityID               string `json:"entityID,omitempty"`
	EntityTableName        string `json:"entityTableName,omitempty"`
	EntityTableDescription string `json:"entityTableDescription,omitempty"`
	EntityTablePolicy      string `json:"entityTablePolicy,omitempty"`
}

// LoginResponse is the JSON body written for login attempts.
type LoginResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Username   string `json:"username,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	EntityType string `json:"entityType,omitempty"`
	SessionKey string `json:"sessionKey,omitempty"`
}

// NewSessionResponse flattens a verdict into its response body.
func NewSessionResponse(v *tenantAuth.Verdict) SessionResponse {
	resp := SessionResponse{
		SessionValid: v.SessionValid,
		StatusCode:   v.StatusCode,
		Message:      v.Message,
	}
	if sc := v.Session; sc != nil {
		resp.UserID = sc.UserID
		resp.Username = sc.Username
		resp.Email = sc.Email
		resp.Phone = sc.Phone
		resp.EntityType = string(sc.EntityType)
		if t, ok := sc.Tenant.(tenantAuth.Tenant); ok {
			resp.EntityID = t.ID
			resp.EntityTableName = t.Name
			resp.EntityTableDescription = t.Description
			resp.EntityTablePolicy = t.Policy
		}
	}
	return resp
}

// NewLoginResponse flattens a login result into its response body.
func NewLoginResponse(res *tenantAuth.LoginResult) LoginResponse {
	resp := LoginResponse{StatusCode: res.StatusCode, Message: res.Message}
	if res.Succeeded() && res.Session != nil {
		resp.Username = res.Session.Username
		resp.Email = res.Session.Email
		resp.Phone = res.Session.Phone
		resp.EntityType = string(res.Session.EntityType)
		resp.SessionKey = res.SessionHandle
	}
	return resp
}

// WriteJSON writes body with status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteVerdict writes v with its own status code.
func WriteVerdict(w http.ResponseWriter, v *tenantAuth.Verdict) {
	WriteJSON(w, v.StatusCode, NewSessionResponse(v))
}

// WriteMessage writes {"status": status, "message": message}.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]any{
		"status":  status,
		"message": message,
	})
}

// WriteError maps err to a status and a fixed message. Store outages
// become 503; anything unrecognised becomes 500. Validation failures keep
// their detail.
func WriteError(w http.ResponseWriter, err error) {
	if errors.Is(err, tenantAuth.ErrStoreUnavailable) {
		WriteMessage(w, http.StatusServiceUnavailable, "Service temporarily unavailable.")
		return
	}
	v := tenantAuth.VerdictForError(err)
	if errors.Is(err, tenantAuth.ErrInvalidRequest) {
		WriteMessage(w, v.StatusCode, err.Error())
		return
	}
	WriteMessage(w, v.StatusCode, v.Message)
}
