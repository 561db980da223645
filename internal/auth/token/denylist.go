package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Denylist records tokens revoked by logout until their natural expiry.
// Tokens are stateless, so without this an issued token stays valid for its
// whole ttl no matter what the user does; the denylist trades a Redis lookup
// per authenticated request for working logout. Keys hold a SHA-256 of the
// compact token, never the token itself.
type Denylist struct {
	client *goredis.Client
	prefix string
}

func NewDenylist(client *goredis.Client) *Denylist {
	return &Denylist{
		client: client,
		prefix: "revoked:",
	}
}

func (d *Denylist) key(tokenStr string) string {
	sum := sha256.Sum256([]byte(tokenStr))
	return d.prefix + hex.EncodeToString(sum[:])
}

// Revoke marks a token unusable until expiresAt. Revoking an already-expired
// token is a no-op.
func (d *Denylist) Revoke(ctx context.Context, tokenStr string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, d.key(tokenStr), "1", ttl).Err()
}

// IsRevoked reports whether a token was denylisted. A Redis failure is
// surfaced to the caller rather than silently treated as "not revoked".
func (d *Denylist) IsRevoked(ctx context.Context, tokenStr string) (bool, error) {
	_, err := d.client.Get(ctx, d.key(tokenStr)).Result()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
