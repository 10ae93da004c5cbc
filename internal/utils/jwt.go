package utils // package utils provides helper functions for token creation and hashing

import (
    "crypto/rand"  // secure random number generation for the jti claim
    "encoding/hex" // hex encoding of random bytes
    "errors"       // sentinel errors for decode failures
    "time"         // expiry computation

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Decode failure modes. Expired and malformed/forged tokens are distinct
// outcomes; callers map them to their own error taxonomy.
var (
    ErrTokenExpired = errors.New("token expired")
    ErrTokenInvalid = errors.New("invalid token")
)

// SignedToken is a serialized HS256 JWT together with its expiration time.
// The same shape is used for user access, user refresh and device tokens;
// only the claims and lifetime differ.
type SignedToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// TokenClaims is the decoded content of a bearer token. DeviceID is zero
// for user tokens; for device tokens it identifies the display device the
// token was registered for, while Username names the user who registered
// it (ownership attribution).
type TokenClaims struct {
    Username  string
    DeviceID  uint64
    ExpiresAt time.Time
}

// NewUserToken builds and signs an HS256 JWT for a user session. The token
// embeds the username as subject, the expiry, the issue time and a random
// jti so that two tokens issued within the same second never collide on the
// unique token column.
func NewUserToken(secret, username string, ttl time.Duration) (SignedToken, error) {
    return signToken(secret, jwt.MapClaims{"sub": username}, ttl)
}

// NewDeviceToken builds and signs an HS256 JWT for a display device. The
// subject is the registering user's username and display_device_id carries
// the device identity, so device traffic can always be attributed to a
// human owner.
func NewDeviceToken(secret, username string, deviceID uint64, ttl time.Duration) (SignedToken, error) {
    return signToken(secret, jwt.MapClaims{"sub": username, "display_device_id": deviceID}, ttl)
}

func signToken(secret string, claims jwt.MapClaims, ttl time.Duration) (SignedToken, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims["exp"] = exp.Unix()
    claims["iat"] = now.Unix()
    jti, err := randomHex(8)
    if err != nil {
        return SignedToken{}, err
    }
    claims["jti"] = jti

    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return SignedToken{}, err
    }
    return SignedToken{Token: signed, Exp: exp}, nil
}

// DecodeToken verifies the signature and expiry of a bearer token and
// returns its claims. It is a pure function of the token string and the
// secret; whether the token is still active is a separate storage check.
func DecodeToken(secret, raw string) (TokenClaims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // Reject tokens signed with a different algorithm.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrTokenInvalid
        }
        return []byte(secret), nil
    })
    if err != nil {
        if errors.Is(err, jwt.ErrTokenExpired) {
            return TokenClaims{}, ErrTokenExpired
        }
        return TokenClaims{}, ErrTokenInvalid
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok || !tok.Valid {
        return TokenClaims{}, ErrTokenInvalid
    }

    out := TokenClaims{}
    if sub, ok := claims["sub"].(string); ok {
        out.Username = sub
    }
    if out.Username == "" {
        return TokenClaims{}, ErrTokenInvalid
    }
    // JWT numeric values decode as float64.
    if dev, ok := claims["display_device_id"].(float64); ok {
        out.DeviceID = uint64(dev)
    }
    if exp, ok := claims["exp"].(float64); ok {
        out.ExpiresAt = time.Unix(int64(exp), 0).UTC()
    }
    return out, nil
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
