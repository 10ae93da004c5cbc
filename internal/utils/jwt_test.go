package utils

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestUserTokenRoundTrip(t *testing.T) {
	st, err := NewUserToken(testSecret, "alice", time.Hour)
	if err != nil {
		t.Fatalf("NewUserToken: %v", err)
	}
	if st.Token == "" {
		t.Fatal("empty token")
	}
	claims, err := DecodeToken(testSecret, st.Token)
	if err != nil {
		t.Fatalf("DecodeToken: %v", err)
	}
	if claims.Username != "alice" {
		t.Errorf("username = %q, want alice", claims.Username)
	}
	if claims.DeviceID != 0 {
		t.Errorf("user token carries device id %d", claims.DeviceID)
	}
	if d := claims.ExpiresAt.Sub(st.Exp); d < -time.Second || d > time.Second {
		t.Errorf("claims expiry %v differs from signed expiry %v", claims.ExpiresAt, st.Exp)
	}
}

func TestDeviceTokenRoundTrip(t *testing.T) {
	st, err := NewDeviceToken(testSecret, "alice", 42, time.Hour)
	if err != nil {
		t.Fatalf("NewDeviceToken: %v", err)
	}
	claims, err := DecodeToken(testSecret, st.Token)
	if err != nil {
		t.Fatalf("DecodeToken: %v", err)
	}
	if claims.Username != "alice" || claims.DeviceID != 42 {
		t.Errorf("claims = %+v, want alice/42", claims)
	}
}

func TestTokensAreUnique(t *testing.T) {
	a, err := NewUserToken(testSecret, "alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewUserToken(testSecret, "alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if a.Token == b.Token {
		t.Error("two tokens issued back to back are identical")
	}
}

func TestDecodeExpired(t *testing.T) {
	st, err := NewUserToken(testSecret, "alice", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeToken(testSecret, st.Token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestDecodeRejects(t *testing.T) {
	good, err := NewUserToken(testSecret, "alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name   string
		secret string
		raw    string
	}{
		{"wrong secret", "other-secret", good.Token},
		{"garbage", testSecret, "not-a-jwt"},
		{"empty", testSecret, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeToken(tc.secret, tc.raw); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("err = %v, want ErrTokenInvalid", err)
			}
		})
	}
}
