package node

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ksd-co/logicgraph-go/graph"
)

func failingOp(name string) Operation {
	return OperationFunc{OpName: name, Fn: func(context.Context, *graph.Context) (any, error) {
		return nil, errors.New(name + " unavailable")
	}}
}

func countingOp(name string, calls *int32, failUntil int32) Operation {
	return OperationFunc{OpName: name, Fn: func(context.Context, *graph.Context) (any, error) {
		n := atomic.AddInt32(calls, 1)
		if n <= failUntil {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}}
}

func TestRuleNode(t *testing.T) {
	n, err := NewRuleNode("check", "available > 100")
	if err != nil {
		t.Fatalf("NewRuleNode: %v", err)
	}
	if n.Kind() != graph.KindRule {
		t.Errorf("Kind = %v", n.Kind())
	}
	if keys := n.InputKeys(); len(keys) != 1 || keys[0] != "available" {
		t.Errorf("InputKeys = %v", keys)
	}

	c := graph.NewContext()
	c.Set("available", 150)
	v, err := n.Run(context.Background(), c)
	if err != nil || v != true {
		t.Errorf("Run = %v, %v; want true", v, err)
	}

	c.Delete("available")
	if _, err := n.Run(context.Background(), c); !graph.HasCode(err, graph.CodeEval) {
		t.Errorf("missing identifier error = %v, want Eval", err)
	}
}

func TestRuleNode_ParseError(t *testing.T) {
	if _, err := NewRuleNode("bad", "available >"); !graph.HasCode(err, graph.CodeParse) {
		t.Errorf("error = %v, want Parse", err)
	}
}

func TestConditionalNode(t *testing.T) {
	n, err := NewConditionalNode("router", "available > 100")
	if err != nil {
		t.Fatalf("NewConditionalNode: %v", err)
	}
	n.WithBranches("process_order", "notify_supplier")

	c := graph.NewContext()
	c.Set("available", 150)
	v, err := n.Run(context.Background(), c)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result := v.(map[string]any)
	if result["condition"] != true || result["branch"] != "process_order" {
		t.Errorf("result = %v", result)
	}
	if taken, _ := c.Get(graph.BranchTakenKey); taken != "process_order" {
		t.Errorf("_branch_taken = %v", taken)
	}

	c.Set("available", 50)
	v, _ = n.Run(context.Background(), c)
	if v.(map[string]any)["branch"] != "notify_supplier" {
		t.Errorf("else branch result = %v", v)
	}
	if taken, _ := c.Get(graph.BranchTakenKey); taken != "notify_supplier" {
		t.Errorf("_branch_taken = %v", taken)
	}
}

func TestForeachLoop(t *testing.T) {
	n := NewForeachLoop("process_products", "products")

	var seen []any
	n.WithBody(OperationFunc{OpName: "collect", Fn: func(_ context.Context, c *graph.Context) (any, error) {
		item, _ := c.Get(graph.CurrentItemKey)
		seen = append(seen, item)
		return nil, nil
	}})

	c := graph.NewContext()
	c.Set("products", []any{"PROD-001", "PROD-002", "PROD-003"})

	v, err := n.Run(context.Background(), c)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result := v.(map[string]any)
	if result["iterations"] != int64(3) || result["status"] != LoopCompleted {
		t.Errorf("result = %v", result)
	}
	if len(seen) != 3 || seen[0] != "PROD-001" || seen[2] != "PROD-003" {
		t.Errorf("seen = %v", seen)
	}
	if idx, _ := c.Get(graph.CurrentIndexKey); idx != int64(2) {
		t.Errorf("final index = %v", idx)
	}
}

func TestForeachLoop_Errors(t *testing.T) {
	n := NewForeachLoop("loop", "missing")
	if _, err := n.Run(context.Background(), graph.NewContext()); !graph.HasCode(err, graph.CodeEval) {
		t.Errorf("missing collection error = %v", err)
	}

	c := graph.NewContext()
	c.Set("missing", "not an array")
	if _, err := n.Run(context.Background(), c); !graph.HasCode(err, graph.CodeEval) {
		t.Errorf("non-array error = %v", err)
	}
}

func TestWhileLoop(t *testing.T) {
	n, err := NewWhileLoop("count_to_five", "counter < 5", 10)
	if err != nil {
		t.Fatalf("NewWhileLoop: %v", err)
	}
	n.WithBody(OperationFunc{OpName: "increment", Fn: func(_ context.Context, c *graph.Context) (any, error) {
		v, _ := c.Get("counter")
		c.Set("counter", v.(int64)+1)
		return nil, nil
	}})

	c := graph.NewContext()
	c.Set("counter", int64(0))
	v, err := n.Run(context.Background(), c)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result := v.(map[string]any)
	if result["iterations"] != int64(5) || result["status"] != LoopCompleted {
		t.Errorf("result = %v", result)
	}
}

func TestWhileLoop_MaxIterations(t *testing.T) {
	n, err := NewWhileLoop("infinite_protection", "true", 5)
	if err != nil {
		t.Fatalf("NewWhileLoop: %v", err)
	}
	v, err := n.Run(context.Background(), graph.NewContext())
	if err != nil {
		t.Fatalf("Run: %v; the cap is not an error", err)
	}
	result := v.(map[string]any)
	if result["iterations"] != int64(5) || result["status"] != LoopMaxIterations {
		t.Errorf("result = %v", result)
	}
}

func TestRetryNode_SucceedsAfterRetries(t *testing.T) {
	var calls int32
	n := NewRetryNode("api_call_with_retry", countingOp("call_external_api", &calls, 2), 3).
		WithBackoff(time.Millisecond, 2.0)

	v, err := n.Run(context.Background(), graph.NewContext())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result := v.(map[string]any)
	if result["status"] != RetrySucceeded || result["attempts"] != int64(3) {
		t.Errorf("result = %v", result)
	}
	if calls != 3 {
		t.Errorf("inner calls = %d, want 3", calls)
	}
}

func TestRetryNode_Exhaustion(t *testing.T) {
	// Scenario: max_retries=2, always failing inner. The node must
	// invoke the operation exactly 3 times, wait at least
	// d + d*m between attempts, and complete without error.
	const d = 10 * time.Millisecond
	const m = 2.0

	var calls int32
	op := OperationFunc{OpName: "call_flaky_service", Fn: func(context.Context, *graph.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("still down")
	}}
	n := NewRetryNode("failing_operation", op, 2).WithBackoff(d, m)

	start := time.Now()
	v, err := n.Run(context.Background(), graph.NewContext())
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Run returned error %v; exhaustion is a terminal value", err)
	}
	result := v.(map[string]any)
	if result["status"] != RetryExhausted || result["attempts"] != int64(3) {
		t.Errorf("result = %v", result)
	}
	if calls != 3 {
		t.Errorf("inner calls = %d, want max_retries+1 = 3", calls)
	}
	if min := d + time.Duration(m*float64(d)); elapsed < min {
		t.Errorf("elapsed = %v, want >= %v", elapsed, min)
	}
}

func TestRetryNode_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := NewRetryNode("cancelled", failingOp("op"), 5).WithBackoff(time.Hour, 2.0)
	_, err := n.Run(ctx, graph.NewContext())
	if !graph.HasCode(err, graph.CodeCancelled) {
		t.Errorf("error = %v, want Cancelled", err)
	}
}

func TestTryCatchNode_Succeeded(t *testing.T) {
	n := NewTryCatchNode("safe_operation", OperationFunc{OpName: "ok", Fn: func(context.Context, *graph.Context) (any, error) {
		return "fine", nil
	}})
	finallyRan := false
	n.WithFinally(OperationFunc{OpName: "cleanup", Fn: func(context.Context, *graph.Context) (any, error) {
		finallyRan = true
		return nil, nil
	}})

	c := graph.NewContext()
	v, err := n.Run(context.Background(), c)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.(map[string]any)["status"] != TrySucceeded {
		t.Errorf("status = %v", v)
	}
	if !finallyRan {
		t.Error("finally did not run on the success path")
	}
	if _, ok := c.Get(graph.ErrorKey); ok {
		t.Error("_error set on success path")
	}
}

func TestTryCatchNode_Recovered(t *testing.T) {
	n := NewTryCatchNode("error_prone_task", failingOp("might_fail_operation"))
	caught := false
	n.WithCatch(OperationFunc{OpName: "error_recovery", Fn: func(_ context.Context, c *graph.Context) (any, error) {
		caught = true
		return nil, nil
	}})

	c := graph.NewContext()
	v, err := n.Run(context.Background(), c)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.(map[string]any)["status"] != TryRecovered {
		t.Errorf("status = %v", v)
	}
	if !caught {
		t.Error("catch did not run")
	}
	if msg, _ := c.Get(graph.ErrorKey); msg != "might_fail_operation unavailable" {
		t.Errorf("_error = %v", msg)
	}
}

func TestTryCatchNode_FailedPaths(t *testing.T) {
	t.Run("no catch", func(t *testing.T) {
		finallyRan := false
		n := NewTryCatchNode("t", failingOp("op")).
			WithFinally(OperationFunc{OpName: "f", Fn: func(context.Context, *graph.Context) (any, error) {
				finallyRan = true
				return nil, nil
			}})
		v, err := n.Run(context.Background(), graph.NewContext())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if v.(map[string]any)["status"] != TryFailed {
			t.Errorf("status = %v", v)
		}
		if !finallyRan {
			t.Error("finally skipped on failure path")
		}
	})

	t.Run("catch also fails", func(t *testing.T) {
		n := NewTryCatchNode("t", failingOp("op")).WithCatch(failingOp("recovery"))
		v, err := n.Run(context.Background(), graph.NewContext())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if v.(map[string]any)["status"] != TryFailed {
			t.Errorf("status = %v", v)
		}
	})
}

func TestCircuitBreakerNode_OpensAndRejects(t *testing.T) {
	// Scenario: threshold 2, protected op fails twice, third call is
	// rejected without reaching the operation.
	var calls int32
	op := OperationFunc{OpName: "unreliable_endpoint", Fn: func(context.Context, *graph.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("down")
	}}
	n := NewCircuitBreakerNodeWithThreshold("failing_service", op, 2)

	c := graph.NewContext()
	for i := 0; i < 2; i++ {
		v, err := n.Run(context.Background(), c)
		if err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
		if v.(map[string]any)["status"] != CircuitFailed {
			t.Errorf("call %d status = %v", i, v)
		}
	}

	v, err := n.Run(context.Background(), c)
	if err != nil {
		t.Fatalf("third Run: %v", err)
	}
	result := v.(map[string]any)
	if result["status"] != CircuitRejected || result["circuit_state"] != "open" {
		t.Errorf("third call result = %v", result)
	}
	if calls != 2 {
		t.Errorf("protected op ran %d times, want 2 (no invocation while open)", calls)
	}
}

func TestCircuitBreakerNode_SuccessCloses(t *testing.T) {
	n := NewCircuitBreakerNodeWithThreshold("svc", OperationFunc{OpName: "ok", Fn: func(context.Context, *graph.Context) (any, error) {
		return "result", nil
	}}, 2)

	v, err := n.Run(context.Background(), graph.NewContext())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result := v.(map[string]any)
	if result["status"] != CircuitExecuted || result["circuit_state"] != "closed" {
		t.Errorf("result = %v", result)
	}
	if n.Breaker().Failures() != 0 {
		t.Errorf("failures = %d", n.Breaker().Failures())
	}
}

func TestDBNode_EchoWithoutExecutor(t *testing.T) {
	n := NewDBNode("fetch_product", "SELECT * FROM products WHERE product_id = $1").
		WithParams("product_id")

	c := graph.NewContext()
	c.Set("product_id", "PROD-001")
	v, err := n.Run(context.Background(), c)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result := v.(map[string]any)
	if result["executed"] != false {
		t.Errorf("result = %v", result)
	}
	if params := result["params"].([]string); params[0] != "PROD-001" {
		t.Errorf("params = %v", params)
	}
}

func TestDBNode_MissingParam(t *testing.T) {
	n := NewDBNode("fetch", "SELECT 1").WithParams("absent")
	_, err := n.Run(context.Background(), graph.NewContext())
	if !graph.HasCode(err, graph.CodeEval) {
		t.Errorf("error = %v, want Eval", err)
	}
}

type fakeDB struct {
	query  string
	params []string
	result any
	err    error
}

func (f *fakeDB) Execute(_ context.Context, query string, params []string) (any, error) {
	f.query, f.params = query, params
	return f.result, f.err
}

func TestDBNode_DelegatesToExecutor(t *testing.T) {
	db := &fakeDB{result: map[string]any{"id": "PROD-001", "stock": int64(42)}}
	n := NewDBNode("fetch", "SELECT * FROM products WHERE product_id = ?").
		WithParams("product_id").
		WithExecutor(db)

	c := graph.NewContext()
	c.Set("product_id", "PROD-001")
	v, err := n.Run(context.Background(), c)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.(map[string]any)["stock"] != int64(42) {
		t.Errorf("result = %v", v)
	}
	if db.params[0] != "PROD-001" {
		t.Errorf("executor params = %v", db.params)
	}

	db.err = errors.New("connection refused")
	_, err = n.Run(context.Background(), c)
	if !graph.HasCode(err, graph.CodeEval) {
		t.Fatalf("driver error = %v, want Eval", err)
	}
	var ge *graph.Error
	errors.As(err, &ge)
	if ge.NodeID != "fetch" {
		t.Errorf("error NodeID = %q, want fetch", ge.NodeID)
	}
}

type fakeModel struct {
	name     string
	response string
	err      error
}

func (f *fakeModel) Name() string { return f.name }
func (f *fakeModel) Complete(context.Context, string) (string, error) {
	return f.response, f.err
}

func TestAINode(t *testing.T) {
	n := NewAINode("generate_report", "Generate comprehensive analytics report", &fakeModel{
		name: "mock-1", response: "report text",
	})
	v, err := n.Run(context.Background(), graph.NewContext())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result := v.(map[string]any)
	if result["response"] != "report text" || result["model"] != "mock-1" {
		t.Errorf("result = %v", result)
	}

	none := NewAINode("no_model", "p", nil)
	if _, err := none.Run(context.Background(), graph.NewContext()); !graph.HasCode(err, graph.CodeConfig) {
		t.Errorf("nil model error = %v, want Config", err)
	}
}
