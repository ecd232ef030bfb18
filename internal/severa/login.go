package severa

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// loginForm is what the ExternalLogin page gives us: the anti-forgery token
// and return URL the identity provider expects back.
type loginForm struct {
	CSRFToken string
	ReturnURL string
}

// consentForm holds the hidden fields of the post-login consent page, which
// are exchanged for a local access token.
type consentForm struct {
	IDToken      string
	Scope        string
	Code         string
	SessionState string
}

// parseLoginForm extracts the CSRF token and return URL from the external
// login page. The markup belongs to a third party and can change without
// notice, so failures carry the missing field name.
func parseLoginForm(r io.Reader) (*loginForm, error) {
	inputs, err := formInputs(r)
	if err != nil {
		return nil, err
	}
	form := &loginForm{
		CSRFToken: inputs["__RequestVerificationToken"],
		ReturnURL: inputs["ReturnUrl"],
	}
	if form.CSRFToken == "" {
		return nil, fmt.Errorf("login page is missing the __RequestVerificationToken field")
	}
	if form.ReturnURL == "" {
		return nil, fmt.Errorf("login page is missing the ReturnUrl field")
	}
	return form, nil
}

// parseConsentForm extracts the token-exchange fields from the page returned
// after posting credentials.
func parseConsentForm(r io.Reader) (*consentForm, error) {
	inputs, err := formInputs(r)
	if err != nil {
		return nil, err
	}
	form := &consentForm{
		IDToken:      inputs["id_token"],
		Scope:        inputs["scope"],
		Code:         inputs["code"],
		SessionState: inputs["session_state"],
	}
	for name, value := range map[string]string{
		"id_token":      form.IDToken,
		"scope":         form.Scope,
		"code":          form.Code,
		"session_state": form.SessionState,
	} {
		if value == "" {
			return nil, fmt.Errorf("login response is missing the %s field, check your severa username and password", name)
		}
	}
	return form, nil
}

// formInputs collects the name/value pairs of every <input> element in the
// document.
func formInputs(r io.Reader) (map[string]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing login html: %w", err)
	}

	inputs := make(map[string]string)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "input" {
			var name, value string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "name":
					name = attr.Val
				case "value":
					value = attr.Val
				}
			}
			if name != "" {
				inputs[name] = value
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return inputs, nil
}
