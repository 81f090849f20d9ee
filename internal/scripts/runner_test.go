package scripts_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JDRQlabs/LLM-Chatbot/internal/scripts"
)

func TestRun_RegisteredScript(t *testing.T) {
	r := scripts.NewRunner()
	r.Register("greet", func(_ context.Context, args map[string]interface{}) (interface{}, error) {
		return "hola " + args["name"].(string), nil
	})

	got, err := r.Run(context.Background(), "greet", map[string]interface{}{"name": "Ana"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "hola Ana" {
		t.Errorf("Run = %v, want hola Ana", got)
	}
}

func TestRun_UnknownScript(t *testing.T) {
	r := scripts.NewRunner()

	_, err := r.Run(context.Background(), "ghost", nil)
	if err == nil {
		t.Fatal("Run succeeded, want error")
	}
	if err.Error() != "script 'ghost' not registered" {
		t.Errorf("err = %q", err.Error())
	}
}

func TestRun_ScriptErrorPropagates(t *testing.T) {
	r := scripts.NewRunner()
	boom := errors.New("boom")
	r.Register("fail", func(context.Context, map[string]interface{}) (interface{}, error) {
		return nil, boom
	})

	_, err := r.Run(context.Background(), "fail", nil)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestRun_PanicBecomesError(t *testing.T) {
	r := scripts.NewRunner()
	r.Register("crash", func(context.Context, map[string]interface{}) (interface{}, error) {
		panic("nil map write")
	})

	_, err := r.Run(context.Background(), "crash", nil)
	if err == nil {
		t.Fatal("Run succeeded, want panic converted to error")
	}
	if !strings.Contains(err.Error(), "panicked") {
		t.Errorf("err = %v", err)
	}
}

func TestRun_ContextDeadline(t *testing.T) {
	r := scripts.NewRunner()
	r.Register("slow", func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
		select {
		case <-time.After(5 * time.Second):
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Run(ctx, "slow", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestList_Sorted(t *testing.T) {
	r := scripts.NewRunner()
	r.Register("zeta", func(context.Context, map[string]interface{}) (interface{}, error) { return nil, nil })
	r.Register("alfa", func(context.Context, map[string]interface{}) (interface{}, error) { return nil, nil })

	got := r.List()
	if len(got) != 2 || got[0] != "alfa" || got[1] != "zeta" {
		t.Errorf("List = %v, want sorted refs", got)
	}
}
