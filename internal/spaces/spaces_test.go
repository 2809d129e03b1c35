package spaces

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func signProjectSecret(t *testing.T, projectName string) string {
	t.Helper()
	claims := projectClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		ProjectName:      projectName,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign project secret: %v", err)
	}
	return signed
}

type stubEmailSender struct {
	called bool
	err    error
}

func (s *stubEmailSender) SendEmail(ctx context.Context, toEmail, subject, htmlContent, textContent, emailType string) error {
	s.called = true
	return s.err
}

type stubRoleInvoker struct {
	result any
	err    error
}

func (s *stubRoleInvoker) InvokeRole(ctx context.Context, role Role, arguments map[string]any) (any, error) {
	return s.result, s.err
}

func TestHandleSendEmailRejectsInvalidSecret(t *testing.T) {
	h := NewHandler(testSecret, &stubEmailSender{}, nil, nil)
	body, _ := json.Marshal(sendEmailRequest{ProjectName: "proj", ProjectSecret: "garbage", ToEmail: "a@b.com"})
	req := httptest.NewRequest(http.MethodPost, "/api/lucy-spaces/send-email", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.handleSendEmail(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandleSendEmailSucceeds(t *testing.T) {
	sender := &stubEmailSender{}
	h := NewHandler(testSecret, sender, nil, nil)
	secret := signProjectSecret(t, "proj")
	body, _ := json.Marshal(sendEmailRequest{ProjectName: "proj", ProjectSecret: secret, ToEmail: "a@b.com", Subject: "hi", HTMLContent: "<p>hi</p>"})
	req := httptest.NewRequest(http.MethodPost, "/api/lucy-spaces/send-email", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.handleSendEmail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp sendEmailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || !sender.called {
		t.Fatalf("expected success and sender invocation, got %+v", resp)
	}
}

func TestHandleToolsCallRejectsUnknownRole(t *testing.T) {
	h := NewHandler(testSecret, nil, &stubRoleInvoker{}, nil)
	secret := signProjectSecret(t, "proj")
	body, _ := json.Marshal(toolsCallRequest{ProjectName: "proj", ProjectSecret: secret, Role: Role("not_a_role")})
	req := httptest.NewRequest(http.MethodPost, "/api/lucy-spaces/tools/call", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.handleToolsCall(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleToolsCallSucceeds(t *testing.T) {
	invoker := &stubRoleInvoker{result: map[string]any{"ok": true}}
	h := NewHandler(testSecret, nil, invoker, nil)
	secret := signProjectSecret(t, "proj")
	body, _ := json.Marshal(toolsCallRequest{ProjectName: "proj", ProjectSecret: secret, Role: RoleQuickAISearch, Arguments: map[string]any{"q": "go"}})
	req := httptest.NewRequest(http.MethodPost, "/api/lucy-spaces/tools/call", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.handleToolsCall(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp toolsCallResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
}

func TestHandleToolsCallPropagatesRoleError(t *testing.T) {
	invoker := &stubRoleInvoker{err: context.DeadlineExceeded}
	h := NewHandler(testSecret, nil, invoker, nil)
	secret := signProjectSecret(t, "proj")
	body, _ := json.Marshal(toolsCallRequest{ProjectName: "proj", ProjectSecret: secret, Role: RoleText2Im})
	req := httptest.NewRequest(http.MethodPost, "/api/lucy-spaces/tools/call", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.handleToolsCall(rec, req)

	var resp toolsCallResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success || resp.Error == "" {
		t.Fatalf("expected failure with error message, got %+v", resp)
	}
}
