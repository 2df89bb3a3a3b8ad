package rtc

import (
	"errors"
	"fmt"

	"github.com/livekit/protocol/auth"
	"github.com/vocespace/spacekeeper/internal/config"
)

var (
	ErrTokenInvalid   = errors.New("invalid access token")
	ErrTokenNoRoom    = errors.New("access token grants no room join")
	ErrVerifierNotSet = errors.New("livekit api key or secret not configured")
)

// TokenVerifier checks the LiveKit access token a client already holds for
// its room and resolves it to the space and participant identity.
type TokenVerifier struct {
	apiKey    string
	apiSecret string
}

func NewTokenVerifier(cfg *config.Config) *TokenVerifier {
	return &TokenVerifier{apiKey: cfg.LiveKit.APIKey, apiSecret: cfg.LiveKit.APISecret}
}

func (v *TokenVerifier) Authenticate(raw string) (string, string, error) {
	if v.apiKey == "" || v.apiSecret == "" {
		return "", "", ErrVerifierNotSet
	}
	parsed, err := auth.ParseAPIToken(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if parsed.APIKey() != v.apiKey {
		return "", "", fmt.Errorf("%w: unknown api key", ErrTokenInvalid)
	}
	grants, err := parsed.Verify(v.apiSecret)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if grants.Identity == "" {
		return "", "", fmt.Errorf("%w: no identity", ErrTokenInvalid)
	}
	if grants.Video == nil || !grants.Video.RoomJoin || grants.Video.Room == "" {
		return "", "", ErrTokenNoRoom
	}
	return grants.Video.Room, grants.Identity, nil
}
