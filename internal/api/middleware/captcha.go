package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"greendrake/realty/internal/captcha"
)

// ContextKeyIsHumanVerified is true once the client passed a Turnstile challenge.
const ContextKeyIsHumanVerified = "isHumanVerified"

// Captcha checks the X-C-T pass token and, failing that, the X-C-V Turnstile challenge.
// A solved challenge yields a fresh X-C-T response header valid for tokenTTL.
// It never rejects a request; the rate limiter reads the result.
func Captcha(verifier captcha.ITurnstileVerifier, tokenTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		fingerprint := c.GetHeader("X-BFP")
		spaSession := c.GetHeader("X-SPA")
		humanToken := c.GetHeader("X-C-T")
		challenge := c.GetHeader("X-C-V")

		isHuman := false

		if humanToken != "" && verifier.ValidateHumanToken(humanToken, clientIP, fingerprint, spaSession) {
			isHuman = true
		}

		if !isHuman && challenge != "" {
			verified, err := verifier.Verify(c.Request.Context(), challenge, clientIP)
			if err != nil {
				log.Printf("Error verifying Turnstile token: %v", err)
			} else if verified {
				isHuman = true
				userID := ""
				if id, err := GetUserID(c); err == nil {
					userID = id.Hex()
				}
				newToken, err := verifier.GenerateHumanToken(userID, clientIP, fingerprint, spaSession, tokenTTL)
				if err != nil {
					log.Printf("Error generating X-C-T token after successful verification: %v", err)
				} else {
					c.Header("X-C-T", newToken)
				}
			}
		}

		c.Set(ContextKeyIsHumanVerified, isHuman)
		c.Next()
	}
}
