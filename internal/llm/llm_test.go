package llm

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type fakeProvider struct {
	calls int
	text  string
	err   error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(_ context.Context, _ string, _ Request) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestInvokeNoProviderFallsBack(t *testing.T) {
	svc := NewService(nil, nil, 0, 0, nil)

	res, err := svc.Invoke(context.Background(), Request{Prompt: "summarize"})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if res.Source != SourceFallback {
		t.Errorf("expected fallback source, got %q", res.Source)
	}
}

func TestInvokeSuccess(t *testing.T) {
	p := &fakeProvider{text: "the port reopened this morning"}
	keys := NewKeyManager([]string{"k1"}, 60, time.Minute)
	svc := NewService(p, keys, 256, time.Second, nil)

	res, err := svc.Invoke(context.Background(), Request{Prompt: "summarize"})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if res.Source != SourceLLM {
		t.Errorf("expected llm source, got %q", res.Source)
	}
	if res.Text != p.text {
		t.Errorf("unexpected text %q", res.Text)
	}
}

func TestInvokeProviderErrorFallsBack(t *testing.T) {
	p := &fakeProvider{err: fmt.Errorf("upstream exploded")}
	keys := NewKeyManager([]string{"k1"}, 60, time.Minute)
	svc := NewService(p, keys, 256, time.Second, nil)

	res, err := svc.Invoke(context.Background(), Request{Prompt: "summarize"})
	if err != nil {
		t.Fatalf("provider errors must not propagate, got %v", err)
	}
	if res.Source != SourceFallback {
		t.Errorf("expected fallback source, got %q", res.Source)
	}
}

func TestInvokeAllKeysLimitedFallsBack(t *testing.T) {
	p := &fakeProvider{text: "ok"}
	keys := NewKeyManager([]string{"k1"}, 1, time.Hour)
	svc := NewService(p, keys, 256, time.Second, nil)
	ctx := context.Background()

	// First call consumes the key's budget.
	if _, err := svc.Invoke(ctx, Request{Prompt: "a"}); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	res, err := svc.Invoke(ctx, Request{Prompt: "b"})
	if err != nil {
		t.Fatalf("exhausted keys must not error: %v", err)
	}
	if res.Source != SourceFallback {
		t.Errorf("expected fallback when limited, got %q", res.Source)
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1", p.calls)
	}
}

func TestInvokeWantJSON(t *testing.T) {
	p := &fakeProvider{text: "Here you go:\n```json\n{\"headline\": \"rates rising\"}\n```"}
	keys := NewKeyManager([]string{"k1"}, 60, time.Minute)
	svc := NewService(p, keys, 256, time.Second, nil)

	res, err := svc.Invoke(context.Background(), Request{Prompt: "label", WantJSON: true})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if res.JSON != `{"headline": "rates rising"}` {
		t.Errorf("unexpected JSON %q", res.JSON)
	}
}

func TestInvokeWantJSONGarbageFallsBack(t *testing.T) {
	p := &fakeProvider{text: "I cannot produce structured output today."}
	keys := NewKeyManager([]string{"k1"}, 60, time.Minute)
	svc := NewService(p, keys, 256, time.Second, nil)

	res, err := svc.Invoke(context.Background(), Request{Prompt: "label", WantJSON: true})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if res.Source != SourceFallback {
		t.Errorf("expected fallback for unparsable JSON, got %q", res.Source)
	}
}

func TestKeyManagerRotation(t *testing.T) {
	m := NewKeyManager([]string{"a", "b"}, 60, time.Minute)
	now := time.Now()

	k1, ok := m.Acquire(now)
	if !ok {
		t.Fatal("expected a key")
	}
	k2, ok := m.Acquire(now)
	if !ok {
		t.Fatal("expected a key")
	}
	if k1 == k2 {
		t.Errorf("expected rotation, got %q twice", k1)
	}
}

func TestKeyManagerCooldownSkipsKey(t *testing.T) {
	m := NewKeyManager([]string{"a", "b"}, 60, time.Hour)
	m.Cooldown("a")

	now := time.Now()
	for i := 0; i < 4; i++ {
		k, ok := m.Acquire(now)
		if !ok {
			t.Fatal("expected key b to stay available")
		}
		if k == "a" {
			t.Fatal("cooling key was handed out")
		}
	}
}

func TestExtractJSONNested(t *testing.T) {
	in := `prefix {"a": {"b": "c}"}, "d": 1} suffix`
	got, err := ExtractJSON(in)
	if err != nil {
		t.Fatalf("ExtractJSON failed: %v", err)
	}
	want := `{"a": {"b": "c}"}, "d": 1}`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractJSONMissing(t *testing.T) {
	if _, err := ExtractJSON("no objects here"); err == nil {
		t.Error("expected error for object-free text")
	}
}
