package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
)

const (
	// CodeAlphabet is Crockford base32: no I, L, O or U.
	CodeAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
	CodeLength   = 12

	defaultGenerateAttempts = 8
)

// ExistingCodesFunc reports which of codes are already stored.
type ExistingCodesFunc func(ctx context.Context, codes []string) ([]string, error)

// CodeGenerator draws coupon codes from a cryptographic random source.
type CodeGenerator struct {
	random      io.Reader
	length      int
	maxAttempts int
}

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{
		random:      rand.Reader,
		length:      CodeLength,
		maxAttempts: defaultGenerateAttempts,
	}
}

// Generate returns n pairwise-distinct codes that existing does not report.
// Colliding entries are redrawn on their own; the rest of the batch is kept.
func (g *CodeGenerator) Generate(ctx context.Context, n int, existing ExistingCodesFunc) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	codes := make([]string, n)
	pending := make([]int, n)
	for i := range pending {
		pending[i] = i
	}

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fresh := make([]string, 0, len(pending))
		for _, i := range pending {
			code, err := g.code()
			if err != nil {
				return nil, err
			}
			codes[i] = code
			fresh = append(fresh, code)
		}

		taken := map[string]bool{}
		if existing != nil {
			stored, err := existing(ctx, fresh)
			if err != nil {
				return nil, fmt.Errorf("failed to check existing codes: %w", err)
			}
			for _, code := range stored {
				taken[code] = true
			}
		}

		seen := make(map[string]bool, n)
		pending = pending[:0]
		for i, code := range codes {
			if seen[code] || taken[code] {
				pending = append(pending, i)
				continue
			}
			seen[code] = true
		}

		if len(pending) == 0 {
			return codes, nil
		}
	}

	return nil, ErrGenerationExhausted
}

func (g *CodeGenerator) code() (string, error) {
	buf := make([]byte, g.length)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	// 256 is a multiple of 32, so masking keeps the draw uniform
	for i, b := range buf {
		buf[i] = CodeAlphabet[b&31]
	}
	return string(buf), nil
}
