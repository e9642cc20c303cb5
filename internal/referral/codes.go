package referral

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	referralPrefix  = "AAYAM"
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeSuffixLen   = 6
	maxCodeAttempts = 10
)

// newReferralCode returns AAYAM followed by six random [A-Z0-9] characters.
func newReferralCode() (string, error) {
	// 252 is the largest multiple of 36 below 256; rejecting bytes at or
	// above it keeps every character equally likely.
	const limit = 252
	suffix := make([]byte, 0, codeSuffixLen)
	buf := make([]byte, 16)
	for len(suffix) < codeSuffixLen {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("referral code: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			suffix = append(suffix, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(suffix) == codeSuffixLen {
				break
			}
		}
	}
	return referralPrefix + string(suffix), nil
}

// NormalizeCode canonicalises a referral code for lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
