package resilience

import (
	"context"
	"errors"
	"testing"

	tmock "github.com/orangeburn/Realtime-Caption/pkg/provider/translate/mock"
)

func TestTranslateFallback_PrimarySuccess(t *testing.T) {
	primary := &tmock.Engine{Result: "Hello"}
	secondary := &tmock.Engine{Result: "unused"}

	fb := NewTranslateFallback(primary, "nllb", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("openai", secondary)

	out, err := fb.Translate(context.Background(), "你好", "zho_Hans", "eng_Latn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hello" {
		t.Fatalf("out = %q, want Hello", out)
	}
	if len(secondary.TranslateCalls) != 0 {
		t.Fatalf("secondary called %d times, want 0", len(secondary.TranslateCalls))
	}
}

func TestTranslateFallback_Failover(t *testing.T) {
	primary := &tmock.Engine{TranslateErr: errors.New("nllb down")}
	secondary := &tmock.Engine{Result: "Hello"}

	fb := NewTranslateFallback(primary, "nllb", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("openai", secondary)

	out, err := fb.Translate(context.Background(), "你好", "zho_Hans", "eng_Latn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hello" {
		t.Fatalf("out = %q, want Hello", out)
	}
	if len(primary.TranslateCalls) != 1 || len(secondary.TranslateCalls) != 1 {
		t.Fatalf("calls = (%d, %d), want (1, 1)",
			len(primary.TranslateCalls), len(secondary.TranslateCalls))
	}
}

func TestTranslateFallback_OpenCircuitSkipsPrimary(t *testing.T) {
	primary := &tmock.Engine{TranslateErr: errors.New("nllb down")}
	secondary := &tmock.Engine{Result: "ok"}

	fb := NewTranslateFallback(primary, "nllb", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2},
	})
	fb.AddFallback("openai", secondary)

	for range 3 {
		if _, err := fb.Translate(context.Background(), "x", "zho_Hans", "eng_Latn"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// Two failures trip the primary's breaker; the third round goes straight
	// to the fallback.
	if len(primary.TranslateCalls) != 2 {
		t.Fatalf("primary called %d times, want 2", len(primary.TranslateCalls))
	}
	if len(secondary.TranslateCalls) != 3 {
		t.Fatalf("secondary called %d times, want 3", len(secondary.TranslateCalls))
	}
}

func TestTranslateFallback_AllFail(t *testing.T) {
	primary := &tmock.Engine{TranslateErr: errors.New("nllb down")}

	fb := NewTranslateFallback(primary, "nllb", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})

	if _, err := fb.Translate(context.Background(), "x", "zho_Hans", "eng_Latn"); !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}
