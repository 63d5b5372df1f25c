package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

// zeroReader always yields zero bytes, so every code is identical.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func seqBytes(start byte) []byte {
	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = start + byte(i)
	}
	return b
}

func TestCodeGenerator_AlphabetAndLength(t *testing.T) {
	g := NewCodeGenerator()

	codes, err := g.Generate(context.Background(), 200, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(codes) != 200 {
		t.Fatalf("got %d codes", len(codes))
	}

	seen := map[string]bool{}
	for _, code := range codes {
		if len(code) != CodeLength {
			t.Errorf("code %q has length %d", code, len(code))
		}
		for _, r := range code {
			if !strings.ContainsRune(CodeAlphabet, r) {
				t.Errorf("code %q has character %q outside the alphabet", code, r)
			}
		}
		if seen[code] {
			t.Errorf("duplicate code %q", code)
		}
		seen[code] = true
	}
}

func TestCodeGenerator_RedrawsBatchCollision(t *testing.T) {
	first := seqBytes(0)
	second := seqBytes(1)

	var stream []byte
	stream = append(stream, first...)
	stream = append(stream, first...)
	stream = append(stream, second...)

	g := &CodeGenerator{random: bytes.NewReader(stream), length: CodeLength, maxAttempts: 3}

	codes, err := g.Generate(context.Background(), 2, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if codes[0] == codes[1] {
		t.Fatalf("codes not distinct: %v", codes)
	}
	if codes[0] != "0123456789AB" {
		t.Errorf("first code = %q, want it kept from the first draw", codes[0])
	}
	if codes[1] != "123456789ABC" {
		t.Errorf("second code = %q, want the redrawn value", codes[1])
	}
}

func TestCodeGenerator_RedrawsStoredCollision(t *testing.T) {
	stream := append(seqBytes(0), seqBytes(2)...)
	g := &CodeGenerator{random: bytes.NewReader(stream), length: CodeLength, maxAttempts: 3}

	calls := 0
	existing := func(_ context.Context, codes []string) ([]string, error) {
		calls++
		if calls == 1 {
			return codes, nil
		}
		return nil, nil
	}

	codes, err := g.Generate(context.Background(), 1, existing)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if codes[0] != "23456789ABCD" {
		t.Errorf("code = %q, want the redrawn value", codes[0])
	}
	if calls != 2 {
		t.Errorf("existing called %d times, want 2", calls)
	}
}

func TestCodeGenerator_Exhausted(t *testing.T) {
	g := &CodeGenerator{random: zeroReader{}, length: CodeLength, maxAttempts: 4}

	_, err := g.Generate(context.Background(), 2, nil)
	if !errors.Is(err, ErrGenerationExhausted) {
		t.Errorf("err = %v, want ErrGenerationExhausted", err)
	}
}

func TestCodeGenerator_ExistingError(t *testing.T) {
	g := NewCodeGenerator()
	boom := errors.New("db down")

	_, err := g.Generate(context.Background(), 1, func(context.Context, []string) ([]string, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped lookup error", err)
	}
}

func TestCodeGenerator_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCodeGenerator().Generate(ctx, 1, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
