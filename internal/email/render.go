package email

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/unclebandit/crm-campaigns/internal/model"
)

// Renderer turns a template into a per-recipient MIME message with
// open/click/unsubscribe tracking wired in.
type Renderer struct {
	From            string
	TrackingBaseURL string
	// Secret signs click links; see SignClick.
	Secret []byte
}

var hrefPattern = regexp.MustCompile(`href="(https?://[^"]+)"`)

// RenderTemplate replaces {key} placeholders with the raw values.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

// RenderHTML is RenderTemplate with values escaped for HTML content.
func RenderHTML(template string, data map[string]string) string {
	escaped := make(map[string]string, len(data))
	for k, v := range data {
		escaped[k] = html.EscapeString(v)
	}
	return RenderTemplate(template, escaped)
}

func (r Renderer) Render(t model.Template, c model.Campaign, rc model.Recipient) *gomail.Message {
	email := model.NormalizeEmail(rc.Email)

	m := gomail.NewMessage()
	m.SetHeader("From", r.From)
	m.SetHeader("To", email)
	m.SetHeader("Subject", RenderTemplate(t.Subject, rc.Fields()))
	m.SetHeader("List-Unsubscribe", "<"+r.UnsubscribeURL(c.ID, email)+">")
	m.SetHeader("X-Campaign-ID", c.ID)
	m.SetBody("text/html", r.Body(t, c, rc))
	return m
}

// Body renders the HTML for one recipient: placeholders filled, links routed
// through click tracking and an open pixel appended.
func (r Renderer) Body(t model.Template, c model.Campaign, rc model.Recipient) string {
	email := model.NormalizeEmail(rc.Email)
	body := RenderHTML(t.Content, rc.Fields())
	body = hrefPattern.ReplaceAllStringFunc(body, func(match string) string {
		target := hrefPattern.FindStringSubmatch(match)[1]
		return fmt.Sprintf(`href="%s"`, html.EscapeString(r.ClickURL(c.ID, email, html.UnescapeString(target))))
	})
	return body + fmt.Sprintf(`<img src="%s" width="1" height="1" alt="" style="display:none">`, html.EscapeString(r.OpenURL(c.ID, email)))
}

func (r Renderer) OpenURL(campaignID, email string) string {
	return r.trackURL("open", campaignID, url.Values{"e": {email}})
}

func (r Renderer) ClickURL(campaignID, email, target string) string {
	return r.trackURL("click", campaignID, url.Values{
		"e": {email},
		"u": {target},
		"s": {SignClick(r.Secret, campaignID, email, target)},
	})
}

func (r Renderer) UnsubscribeURL(campaignID, email string) string {
	return r.trackURL("unsubscribe", campaignID, url.Values{"e": {email}})
}

func (r Renderer) trackURL(kind, campaignID string, q url.Values) string {
	base := strings.TrimRight(r.TrackingBaseURL, "/")
	return fmt.Sprintf("%s/track/%s/%s?%s", base, kind, url.PathEscape(campaignID), q.Encode())
}
