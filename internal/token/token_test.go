package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
)

var testSecret = []byte("super-secret")

func mintValid(t *testing.T, now time.Time) (string, Payload) {
	t.Helper()

	p := Payload{
		Identity:  "3912607696116679",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}
	tok, err := Sign(p, testSecret)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	return tok, p
}

func TestSignVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tok, want := mintValid(t, now)

	got, err := Verify(tok, testSecret, now)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if got != want {
		t.Fatalf("payload mismatch: got %+v want %+v", got, want)
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tok, p := mintValid(t, now)

	// Exactly at expiry is already invalid.
	at := time.Unix(p.ExpiresAt, 0)
	if _, err := Verify(tok, testSecret, at); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken at expiry, got %v", err)
	}
	if _, err := Verify(tok, testSecret, at.Add(time.Minute)); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tok, _ := mintValid(t, now)

	if _, err := Verify(tok, []byte("other-secret"), now); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_AnyFlippedSignatureCharInvalidates(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tok, _ := mintValid(t, now)

	parts := strings.Split(tok, ".")
	sig := parts[2]

	for i := 0; i < len(sig); i++ {
		flipped := []byte(sig)
		if flipped[i] == 'A' {
			flipped[i] = 'B'
		} else {
			flipped[i] = 'A'
		}
		bad := parts[0] + "." + parts[1] + "." + string(flipped)
		if _, err := Verify(bad, testSecret, now); !errors.Is(err, common.ErrInvalidToken) {
			t.Fatalf("flip at %d: expected ErrInvalidToken, got %v", i, err)
		}
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tok, _ := mintValid(t, now)
	parts := strings.Split(tok, ".")

	cases := []string{
		"",
		"v1",
		"v1.",
		"v1..",
		"v1.a.b.c",
		"." + parts[1] + "." + parts[2],
		"v1." + parts[1] + ".",
		"v1.!!!." + parts[2],
		"v2." + parts[1] + "." + parts[2], // unsupported version
	}

	for _, bad := range cases {
		if _, err := Verify(bad, testSecret, now); !errors.Is(err, common.ErrInvalidToken) {
			t.Fatalf("Verify(%q): expected ErrInvalidToken, got %v", bad, err)
		}
	}
}

func TestVerify_ExpiredAndForgedAreIndistinguishable(t *testing.T) {
	t.Parallel()

	now := time.Now()

	expired, err := Sign(Payload{
		Identity:  "3912607696116679",
		IssuedAt:  now.Add(-2 * time.Hour).Unix(),
		ExpiresAt: now.Add(-time.Hour).Unix(),
	}, testSecret)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	tok, _ := mintValid(t, now)
	forged := tok[:len(tok)-2] + "xx"

	_, errExpired := Verify(expired, testSecret, now)
	_, errForged := Verify(forged, testSecret, now)

	if !errors.Is(errExpired, common.ErrInvalidToken) || !errors.Is(errForged, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for both, got %v / %v", errExpired, errForged)
	}
	if errExpired.Error() != errForged.Error() {
		t.Fatalf("error text differs between expired and forged tokens")
	}
}
