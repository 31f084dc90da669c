package email

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/unclebandit/crm-campaigns/internal/model"
)

// SignClick binds a click-tracking link to its campaign, recipient and
// target so the redirect endpoint only follows links this service issued.
func SignClick(secret []byte, campaignID, email, target string) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(campaignID + "\x00" + model.NormalizeEmail(email) + "\x00" + target))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyClick reports whether signature was issued by SignClick with secret.
// Without a secret nothing verifies.
func VerifyClick(secret []byte, campaignID, email, target, signature string) bool {
	if len(secret) == 0 || signature == "" {
		return false
	}
	expected := SignClick(secret, campaignID, email, target)
	return hmac.Equal([]byte(expected), []byte(signature))
}
