package signals

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Predicate is a pre-compiled CEL boolean expression over transaction
// fields. Operators keep signal thresholds in configuration instead of
// recompiling the binary.
type Predicate struct {
	expr    string
	program cel.Program
}

// newPredicateEnv creates the CEL environment with transaction variables.
func newPredicateEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("tx_type", cel.StringType),
		cel.Variable("origin_id", cel.StringType),
		cel.Variable("dest_id", cel.StringType),
		cel.Variable("old_balance", cel.DoubleType),
		cel.Variable("new_balance", cel.DoubleType),
		cel.Variable("dest_old_balance", cel.DoubleType),
		cel.Variable("dest_new_balance", cel.DoubleType),
		cel.Variable("step", cel.IntType),
	)
}

// CompilePredicate compiles an expression and verifies it yields a bool.
func CompilePredicate(expr string) (*Predicate, error) {
	env, err := newPredicateEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile predicate %q: %w", expr, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("predicate %q: expression must return bool, got %s", expr, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for predicate %q: %w", expr, err)
	}

	return &Predicate{expr: expr, program: program}, nil
}

// Eval evaluates the predicate against a transaction.
func (p *Predicate) Eval(tx *domain.Transaction) (bool, error) {
	activation := map[string]any{
		"amount":           tx.Amount,
		"tx_type":          string(tx.Type),
		"origin_id":        tx.OriginID,
		"dest_id":          tx.DestID,
		"old_balance":      tx.OriginOldBalance,
		"new_balance":      tx.OriginNewBalance,
		"dest_old_balance": tx.DestOldBalance,
		"dest_new_balance": tx.DestNewBalance,
		"step":             int64(tx.Step),
	}

	out, _, err := p.program.Eval(activation)
	if err != nil {
		return false, fmt.Errorf("predicate %q evaluation failed: %w", p.expr, err)
	}

	v, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("predicate %q returned non-bool %v", p.expr, out)
	}
	return bool(v), nil
}

// String returns the source expression.
func (p *Predicate) String() string {
	return p.expr
}
