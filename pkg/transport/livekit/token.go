package livekit

import (
	"errors"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"
)

// defaultTokenTTL is used when [TokenParams.TTL] is zero.
const defaultTokenTTL = time.Hour

// TokenParams describes the access token to mint for joining a room.
type TokenParams struct {
	// APIKey and APISecret are the LiveKit API key pair.
	APIKey    string
	APISecret string

	// Room is the room name the token grants access to.
	Room string

	// Identity is the participant identity the caller joins with.
	Identity string

	// TTL is the token validity period. Defaults to one hour.
	TTL time.Duration
}

// NewToken mints a room-join access token that can publish and subscribe.
// Intended for development and test setups where the client holds the API
// key pair; production callers normally receive a token from their own
// backend instead.
func NewToken(p TokenParams) (string, error) {
	if p.APIKey == "" || p.APISecret == "" {
		return "", errors.New("livekit: API key and secret are required")
	}
	if p.Room == "" {
		return "", errors.New("livekit: room name is required")
	}
	if p.Identity == "" {
		return "", errors.New("livekit: participant identity is required")
	}
	ttl := p.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	canPublish := true
	canSubscribe := true
	grant := &auth.VideoGrant{
		RoomJoin:     true,
		Room:         p.Room,
		CanPublish:   &canPublish,
		CanSubscribe: &canSubscribe,
	}

	at := auth.NewAccessToken(p.APIKey, p.APISecret)
	at.SetVideoGrant(grant).
		SetIdentity(p.Identity).
		SetValidFor(ttl)

	token, err := at.ToJWT()
	if err != nil {
		return "", fmt.Errorf("livekit: sign access token: %w", err)
	}
	return token, nil
}
