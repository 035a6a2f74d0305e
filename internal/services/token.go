package services

import (
	"crypto/rand"
	"io"
)

const (
	tokenLength  = 32
	tokenCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// TokenGenerator produces fixed-length session tokens drawn uniformly
// from a 62-symbol alphanumeric alphabet. The random source is injected
// so tests can swap in a deterministic reader; production code uses
// crypto/rand.
type TokenGenerator struct {
	source io.Reader
}

func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{source: rand.Reader}
}

func NewTokenGeneratorWithSource(source io.Reader) *TokenGenerator {
	return &TokenGenerator{source: source}
}

// Generate returns a new 32-character token. Uniformity over the
// alphabet is preserved by rejection sampling: bytes >= 248 (the largest
// multiple of 62 below 256) are discarded instead of folded.
func (g *TokenGenerator) Generate() (string, error) {
	const limit = byte(len(tokenCharset) * (256 / len(tokenCharset))) // 248

	token := make([]byte, 0, tokenLength)
	buf := make([]byte, tokenLength)

	for len(token) < tokenLength {
		if _, err := io.ReadFull(g.source, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			token = append(token, tokenCharset[int(b)%len(tokenCharset)])
			if len(token) == tokenLength {
				break
			}
		}
	}

	return string(token), nil
}
