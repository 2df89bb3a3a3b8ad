package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vocespace/spacekeeper/internal/config"
	"github.com/vocespace/spacekeeper/internal/modules/serializer"
	"github.com/vocespace/spacekeeper/internal/pkg/secrets"
)

// tokenChecker verifies a presented bearer token against either the plain
// configured token or its argon2id hash.
type tokenChecker struct {
	plain  []byte
	hash   string
	pepper string

	// digests of tokens that already passed the argon2 check
	mu       sync.RWMutex
	verified map[[sha256.Size]byte]struct{}
}

func newTokenChecker(cfg *config.Config) *tokenChecker {
	return &tokenChecker{
		plain:    []byte(cfg.Root.APIBearerToken),
		hash:     cfg.Root.APITokenHash,
		pepper:   cfg.Root.TokenPepper,
		verified: make(map[[sha256.Size]byte]struct{}),
	}
}

func (t *tokenChecker) disabled() bool {
	return t.hash == "" && len(t.plain) == 0
}

func (t *tokenChecker) check(raw string) bool {
	if t.hash == "" {
		return subtle.ConstantTimeCompare([]byte(raw), t.plain) == 1
	}

	sum := sha256.Sum256([]byte(raw))
	t.mu.RLock()
	_, ok := t.verified[sum]
	t.mu.RUnlock()
	if ok {
		return true
	}

	ok, err := secrets.VerifyToken(raw, t.pepper, t.hash)
	if err != nil || !ok {
		return false
	}
	t.mu.Lock()
	t.verified[sum] = struct{}{}
	t.mu.Unlock()
	return true
}

// BearerAuth guards the API with the configured token. With neither
// root.api_token_hash nor root.api_bearer_token set the check is disabled.
func BearerAuth(cfg *config.Config) gin.HandlerFunc {
	tc := newTokenChecker(cfg)
	return func(c *gin.Context) {
		if tc.disabled() {
			c.Next()
			return
		}

		_, span := otel.Tracer("middleware").Start(c.Request.Context(), "bearer_auth",
			trace.WithAttributes(attribute.String("middleware", "bearer_auth")))

		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" || !tc.check(raw) {
			span.SetAttributes(attribute.Bool("authenticated", false))
			span.End()
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
			return
		}

		span.SetAttributes(attribute.Bool("authenticated", true))
		span.End()
		c.Next()
	}
}
