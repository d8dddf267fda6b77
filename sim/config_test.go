package sim

import "testing"

func TestDefaultConfig_TimedByDefault(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Timed {
		t.Error("DefaultConfig should default to timed scheduling")
	}
	if cfg.MainProcess != "main" {
		t.Errorf("DefaultConfig.MainProcess = %q, want \"main\"", cfg.MainProcess)
	}
}

func TestNewContext_BuildsSchedulerMatchingConfigMode(t *testing.T) {
	timed := NewContext(Config{Timed: true}, nil)
	if timed.Scheduler.mode != ModeTimed {
		t.Errorf("Timed config should build a timed scheduler, got %v", timed.Scheduler.mode)
	}

	random := NewContext(Config{Timed: false}, nil)
	if random.Scheduler.mode != ModeRandomised {
		t.Errorf("non-timed config should build a randomised scheduler, got %v", random.Scheduler.mode)
	}
}

func TestWarnf_PromotesToErrorUnderStrictWarnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StrictWarnings = true
	ctx := NewContext(cfg, nil)

	ctx.Warnf("something suspicious: %d", 42)
	if ctx.Err == nil {
		t.Fatal("expected Warnf to promote a warning to ctx.Err under -strict-warnings")
	}
}

func TestWarnf_DoesNotSetErrWithoutStrictWarnings(t *testing.T) {
	ctx := NewContext(DefaultConfig(), nil)
	ctx.Warnf("benign notice")
	if ctx.Err != nil {
		t.Errorf("Warnf without -strict-warnings should not set ctx.Err, got %v", ctx.Err)
	}
}

func TestTrace_NonBlockingWhenUnconsumed(t *testing.T) {
	ctx := NewContext(DefaultConfig(), nil)
	for i := 0; i < 300; i++ {
		ctx.Trace(TraceEvent{Kind: TraceWireChange, Wire: "w"})
	}
	// Should not deadlock or panic even though nothing drains ctx.Traces().
}
