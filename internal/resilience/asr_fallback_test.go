package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/orangeburn/Realtime-Caption/pkg/provider/asr"
	asrmock "github.com/orangeburn/Realtime-Caption/pkg/provider/asr/mock"
)

func TestASRFallback_PrimarySuccess(t *testing.T) {
	primary := &asrmock.Engine{
		Script: [][]asr.Result{{{Text: "<|zh|>你好"}}},
	}
	secondary := &asrmock.Engine{}

	fb := NewASRFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	results, err := fb.Recognize(context.Background(), make([]float32, 160), "auto")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Text != "<|zh|>你好" {
		t.Fatalf("results = %+v", results)
	}
	if len(primary.RecognizeCalls) != 1 {
		t.Fatalf("primary called %d times, want 1", len(primary.RecognizeCalls))
	}
	if len(secondary.RecognizeCalls) != 0 {
		t.Fatalf("secondary called %d times, want 0", len(secondary.RecognizeCalls))
	}
}

func TestASRFallback_Failover(t *testing.T) {
	primary := &asrmock.Engine{RecognizeErr: errors.New("primary down")}
	secondary := &asrmock.Engine{
		Script: [][]asr.Result{{{Text: "<|en|>hello"}}},
	}

	fb := NewASRFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	results, err := fb.Recognize(context.Background(), make([]float32, 160), "auto")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Text != "<|en|>hello" {
		t.Fatalf("results = %+v", results)
	}
	if len(secondary.RecognizeCalls) != 1 {
		t.Fatalf("secondary called %d times, want 1", len(secondary.RecognizeCalls))
	}
}

func TestASRFallback_AllFail(t *testing.T) {
	primary := &asrmock.Engine{RecognizeErr: errors.New("primary down")}
	secondary := &asrmock.Engine{RecognizeErr: errors.New("secondary down")}

	fb := NewASRFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	if _, err := fb.Recognize(context.Background(), make([]float32, 160), "auto"); !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}
