package room

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"net/url"
	"strings"
)

// Room codes are short uppercase alphanumerics so they survive being read
// over the phone or pasted into a chat. No collision check against active
// rooms: an accepted risk at interview-session scale.
const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// GenerateCode produces a fresh room code like "X7K2QP".
func GenerateCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[randomIndex(len(codeAlphabet))]
	}
	return string(b)
}

// randomIndex returns a cryptographically secure random index below max.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		log.Panic("failed to generate random index:", err)
	}
	return int(n.Int64())
}

// Normalize trims and uppercases a user-supplied code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code is a plausible room code. The relay itself
// never validates codes; this only guards client-side typos.
func Valid(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			return false
		}
	}
	return true
}

// BuildLink returns the shareable deep link for a room code, matching the
// webapp's join route.
func BuildLink(origin, code string) string {
	return fmt.Sprintf("%s/interview/live?room=%s", strings.TrimRight(origin, "/"), code)
}

// ParseInput accepts either a bare room code or a shareable link and
// extracts the normalized code.
func ParseInput(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty room code")
	}

	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		u, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("invalid room link: %w", err)
		}
		code := Normalize(u.Query().Get("room"))
		if !Valid(code) {
			return "", fmt.Errorf("room link carries no valid code")
		}
		return code, nil
	}

	code := Normalize(s)
	if !Valid(code) {
		return "", fmt.Errorf("invalid room code %q", s)
	}
	return code, nil
}
