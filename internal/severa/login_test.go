package severa

import (
	"strings"
	"testing"
)

// Captured (and heavily trimmed) markup in the shape the Visma pages use.
const loginPageFixture = `<!DOCTYPE html>
<html>
<body>
  <form method="post" action="/password">
    <input type="hidden" name="ReturnUrl" value="/connect/authorize/callback?client_id=severa" />
    <input type="text" name="Username" value="" />
    <input type="password" name="Password" value="" />
    <input name="__RequestVerificationToken" type="hidden" value="CfDJ8-csrf-token" />
  </form>
</body>
</html>`

const consentPageFixture = `<html>
<body>
  <form method="post" action="https://severa.visma.com/signin-oidc">
    <input type="hidden" name="id_token" value="eyJ.id.token" />
    <input type="hidden" name="scope" value="openid severa" />
    <input type="hidden" name="code" value="auth-code-123" />
    <input type="hidden" name="session_state" value="state-456" />
  </form>
</body>
</html>`

func TestParseLoginForm(t *testing.T) {
	form, err := parseLoginForm(strings.NewReader(loginPageFixture))
	if err != nil {
		t.Fatalf("parseLoginForm: %v", err)
	}
	if form.CSRFToken != "CfDJ8-csrf-token" {
		t.Errorf("CSRFToken = %q, want %q", form.CSRFToken, "CfDJ8-csrf-token")
	}
	if form.ReturnURL != "/connect/authorize/callback?client_id=severa" {
		t.Errorf("ReturnURL = %q", form.ReturnURL)
	}
}

func TestParseLoginFormMissingToken(t *testing.T) {
	page := `<html><body><form><input name="ReturnUrl" value="/x"/></form></body></html>`
	if _, err := parseLoginForm(strings.NewReader(page)); err == nil {
		t.Error("expected error for page without CSRF token")
	}
}

func TestParseConsentForm(t *testing.T) {
	form, err := parseConsentForm(strings.NewReader(consentPageFixture))
	if err != nil {
		t.Fatalf("parseConsentForm: %v", err)
	}
	if form.IDToken != "eyJ.id.token" {
		t.Errorf("IDToken = %q", form.IDToken)
	}
	if form.Scope != "openid severa" {
		t.Errorf("Scope = %q", form.Scope)
	}
	if form.Code != "auth-code-123" {
		t.Errorf("Code = %q", form.Code)
	}
	if form.SessionState != "state-456" {
		t.Errorf("SessionState = %q", form.SessionState)
	}
}

func TestParseConsentFormRejectedLogin(t *testing.T) {
	// A failed login renders the login form again instead of the consent
	// fields; that must surface as an error, not empty tokens.
	if _, err := parseConsentForm(strings.NewReader(loginPageFixture)); err == nil {
		t.Error("expected error when consent fields are absent")
	}
}
