// Package spaces implements the two inbound HTTP callbacks a Lucy-built web
// app ("Space") uses to reach back into its owning workspace: sending email
// and invoking one of a small fixed set of hosted tool roles. Both endpoints
// authenticate the caller via a project_secret JWT minted when the Space was
// provisioned.
package spaces

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

// Role names a hosted tool invokable via /tools/call.
type Role string

const (
	RoleQuickAISearch  Role = "quick_ai_search"
	RoleText2Im        Role = "text2im"
	RoleFileToMarkdown Role = "file_to_markdown"
)

// EmailSender delivers an email on behalf of a Space.
type EmailSender interface {
	SendEmail(ctx context.Context, toEmail, subject, htmlContent, textContent, emailType string) error
}

// RoleInvoker runs one hosted tool role and returns its JSON-able result.
type RoleInvoker interface {
	InvokeRole(ctx context.Context, role Role, arguments map[string]any) (any, error)
}

// projectClaims is the payload signed into a project_secret at Space
// provisioning time.
type projectClaims struct {
	jwt.RegisteredClaims
	ProjectName string `json:"project_name"`
}

// Handler serves the two lucy-spaces endpoints.
type Handler struct {
	secret []byte
	email  EmailSender
	roles  RoleInvoker
	logger *slog.Logger
}

// NewHandler builds a Handler. secret verifies every inbound project_secret.
func NewHandler(secret []byte, email EmailSender, roles RoleInvoker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{secret: secret, email: email, roles: roles, logger: logger.With("component", "spaces")}
}

// Register mounts both endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/lucy-spaces/send-email", h.handleSendEmail)
	mux.HandleFunc("/api/lucy-spaces/tools/call", h.handleToolsCall)
}

// verifyProjectSecret checks secret was signed for projectName and has not
// expired.
func (h *Handler) verifyProjectSecret(secret, projectName string) bool {
	token, err := jwt.ParseWithClaims(secret, &projectClaims{}, func(t *jwt.Token) (any, error) {
		return h.secret, nil
	})
	if err != nil || !token.Valid {
		return false
	}
	claims, ok := token.Claims.(*projectClaims)
	return ok && claims.ProjectName == projectName
}

type sendEmailRequest struct {
	ProjectName   string `json:"project_name"`
	ProjectSecret string `json:"project_secret"`
	ToEmail       string `json:"to_email"`
	Subject       string `json:"subject"`
	HTMLContent   string `json:"html_content"`
	TextContent   string `json:"text_content,omitempty"`
	EmailType     string `json:"email_type,omitempty"`
}

type sendEmailResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, sendEmailResponse{Success: false, Error: "invalid request body"})
		return
	}
	if !h.verifyProjectSecret(req.ProjectSecret, req.ProjectName) {
		writeJSON(w, http.StatusForbidden, sendEmailResponse{Success: false, Error: "invalid project secret"})
		return
	}
	if h.email == nil {
		writeJSON(w, http.StatusServiceUnavailable, sendEmailResponse{Success: false, Error: "email sending not configured"})
		return
	}

	if err := h.email.SendEmail(r.Context(), req.ToEmail, req.Subject, req.HTMLContent, req.TextContent, req.EmailType); err != nil {
		h.logger.Error("send email failed", "project", req.ProjectName, "error", err)
		writeJSON(w, http.StatusOK, sendEmailResponse{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sendEmailResponse{Success: true})
}

type toolsCallRequest struct {
	ProjectName   string         `json:"project_name"`
	ProjectSecret string         `json:"project_secret"`
	Role          Role           `json:"role"`
	Arguments     map[string]any `json:"arguments"`
}

type toolsCallResponse struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

var validRoles = map[Role]bool{RoleQuickAISearch: true, RoleText2Im: true, RoleFileToMarkdown: true}

func (h *Handler) handleToolsCall(w http.ResponseWriter, r *http.Request) {
	var req toolsCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, toolsCallResponse{Success: false, Error: "invalid request body"})
		return
	}
	if !h.verifyProjectSecret(req.ProjectSecret, req.ProjectName) {
		writeJSON(w, http.StatusForbidden, toolsCallResponse{Success: false, Error: "invalid project secret"})
		return
	}
	if !validRoles[req.Role] {
		writeJSON(w, http.StatusBadRequest, toolsCallResponse{Success: false, Error: "unknown role"})
		return
	}
	if h.roles == nil {
		writeJSON(w, http.StatusServiceUnavailable, toolsCallResponse{Success: false, Error: "tool roles not configured"})
		return
	}

	result, err := h.roles.InvokeRole(r.Context(), req.Role, req.Arguments)
	if err != nil {
		h.logger.Error("role invocation failed", "project", req.ProjectName, "role", req.Role, "error", err)
		writeJSON(w, http.StatusOK, toolsCallResponse{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, toolsCallResponse{Success: true, Result: result})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
