package email

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/unclebandit/crm-campaigns/internal/model"
)

func TestRenderTemplate(t *testing.T) {
	data := map[string]string{"first_name": "Ada", "last_name": "<L>"}
	assert.Equal(t, "Hi Ada <L>!", RenderTemplate("Hi {first_name} {last_name}!", data))
	assert.Equal(t, "Hi Ada &lt;L&gt;!", RenderHTML("Hi {first_name} {last_name}!", data))
}

func TestRenderAddsTracking(t *testing.T) {
	r := Renderer{From: "from@example.com", TrackingBaseURL: "https://t.example.com/", Secret: []byte("k")}
	tpl := model.Template{Subject: "Hello {first_name}", Content: `<p>Hi {first_name}</p><a href="https://shop.example.com/x?a=1&amp;b=2">go</a>`}
	c := model.Campaign{ID: "c1"}
	rc := model.Recipient{Email: "Ada@Example.com", FirstName: "Ada"}

	m := r.Render(tpl, c, rc)

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"ada@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Hello Ada"}, m.GetHeader("Subject"))
	assert.Contains(t, m.GetHeader("List-Unsubscribe")[0], "/track/unsubscribe/c1?e=ada%40example.com")

	body := r.Body(tpl, c, rc)
	assert.Contains(t, body, "<p>Hi Ada</p>")
	assert.Contains(t, body, `src="https://t.example.com/track/open/c1?e=ada%40example.com"`)
	assert.Contains(t, body, "https://t.example.com/track/click/c1?")
	assert.Contains(t, body, "u=https%3A%2F%2Fshop.example.com%2Fx%3Fa%3D1%26b%3D2")
	assert.False(t, strings.Contains(body, `href="https://shop.example.com`))
	sig := SignClick(r.Secret, "c1", "ada@example.com", "https://shop.example.com/x?a=1&b=2")
	assert.Contains(t, body, "s="+sig)
}

func TestClickSignature(t *testing.T) {
	secret := []byte("tracking-secret")
	target := "https://shop.example.com/offer"
	sig := SignClick(secret, "c1", "Ada@Example.com", target)

	assert.True(t, VerifyClick(secret, "c1", "ada@example.com", target, sig))
	assert.False(t, VerifyClick(secret, "c2", "ada@example.com", target, sig))
	assert.False(t, VerifyClick(secret, "c1", "eve@example.com", target, sig))
	assert.False(t, VerifyClick(secret, "c1", "ada@example.com", "https://evil.example/phish", sig))
	assert.False(t, VerifyClick([]byte("other"), "c1", "ada@example.com", target, sig))
	assert.False(t, VerifyClick(nil, "c1", "ada@example.com", target, SignClick(nil, "c1", "ada@example.com", target)))
	assert.False(t, VerifyClick(secret, "c1", "ada@example.com", target, ""))
}

func TestSimulatedSenderPausesOnce(t *testing.T) {
	var out bytes.Buffer
	s := &SimulatedSender{Delay: 20 * time.Millisecond, Out: &out, Log: zap.NewNop()}

	msgs := []*gomail.Message{gomail.NewMessage(), gomail.NewMessage()}
	for _, m := range msgs {
		m.SetHeader("To", "a@b.com")
		m.SetBody("text/plain", "x")
	}

	start := time.Now()
	require.NoError(t, s.Send(context.Background(), msgs))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.NotZero(t, out.Len())
}

func TestSimulatedSenderHonoursContext(t *testing.T) {
	s := &SimulatedSender{Delay: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
