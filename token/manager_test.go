package token

import (
	"errors"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    24 * time.Hour,
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestNewManagerRejectsSharedSecret(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshSecret = cfg.AccessSecret
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected shared access/refresh secret to be rejected")
	}
}

func TestAccessRoundTrip(t *testing.T) {
	m := newTestManager(t)

	tok, err := m.IssueAccess("user-1", []string{"USER", "SUBSCRIBER"})
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	claims, err := m.ParseAccess(tok)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "USER" || claims.Roles[1] != "SUBSCRIBER" {
		t.Fatalf("unexpected roles %v", claims.Roles)
	}
}

func TestRefreshRoundTrip(t *testing.T) {
	m := newTestManager(t)
	fp := Fingerprint{UserAgent: "test-agent", IP: "10.0.0.1"}

	tok, err := m.IssueRefresh("alice", fp)
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}

	claims, err := m.ParseRefresh(tok)
	if err != nil {
		t.Fatalf("ParseRefresh failed: %v", err)
	}
	if claims.Subject != "alice" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.Fingerprint() != fp {
		t.Fatalf("unexpected fingerprint %+v", claims.Fingerprint())
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}
}

func TestRefreshJTIUniqueAcrossIssues(t *testing.T) {
	m := newTestManager(t)
	fp := Fingerprint{UserAgent: "test-agent", IP: "10.0.0.1"}

	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		tok, err := m.IssueRefresh("alice", fp)
		if err != nil {
			t.Fatalf("IssueRefresh failed: %v", err)
		}
		claims, err := m.ParseRefresh(tok)
		if err != nil {
			t.Fatalf("ParseRefresh failed: %v", err)
		}
		if seen[claims.ID] {
			t.Fatalf("duplicate jti %q", claims.ID)
		}
		seen[claims.ID] = true
	}
}

func TestKeySeparation(t *testing.T) {
	m := newTestManager(t)

	access, err := m.IssueAccess("user-1", nil)
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}
	refresh, err := m.IssueRefresh("alice", Fingerprint{UserAgent: "ua", IP: "ip"})
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}

	if _, err := m.ParseRefresh(access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken parsing access as refresh, got %v", err)
	}
	if _, err := m.ParseAccess(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken parsing refresh as access, got %v", err)
	}
}

func TestExpiredAccessRejected(t *testing.T) {
	m := newTestManager(t)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	tok, err := m.IssueAccess("user-1", nil)
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	m.now = time.Now
	if _, err := m.ParseAccess(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestRefreshMissingFingerprintMalformed(t *testing.T) {
	m := newTestManager(t)

	tok, err := m.IssueRefresh("alice", Fingerprint{UserAgent: "", IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}

	if _, err := m.ParseRefresh(tok); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	m := newTestManager(t)

	tok, err := m.IssueAccess("user-1", []string{"USER"})
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	tampered := tok[:len(tok)-2] + "xx"
	if _, err := m.ParseAccess(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for tampered token, got %v", err)
	}
}
