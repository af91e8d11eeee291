package engine

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"attendance-tracker/backend/internal/policy/repository"
)

const (
	allowQuery  = "data.attendance.clock_in.allow"
	reasonQuery = "data.attendance.clock_in.reason"
)

// DefaultRegoPolicy allows clock-in at an active store for assigned users and admins.
const DefaultRegoPolicy = `package attendance.clock_in

default allow := false

allow if {
	input.store.is_active
	input.user.role == "Admin"
}

allow if {
	input.store.is_active
	input.user.store_ids[_] == input.store.id
}

reason = "store_inactive" if {
	not input.store.is_active
}

reason = "not_assigned" if {
	input.store.is_active
	not allow
}
`

// OPAEvaluator evaluates the clock-in policy using OPA Rego.
// Enabled policies from the repository replace the built-in module; if they fail to compile the built-in one is used.
type OPAEvaluator struct {
	policyRepo repository.Repository

	once        sync.Once
	defaultErr  error
	defaultComp *ast.Compiler
}

// NewOPAEvaluator returns an OPA-based policy evaluator. policyRepo may be nil.
func NewOPAEvaluator(policyRepo repository.Repository) *OPAEvaluator {
	return &OPAEvaluator{policyRepo: policyRepo}
}

func (e *OPAEvaluator) defaultCompiler() (*ast.Compiler, error) {
	e.once.Do(func() {
		e.defaultComp, e.defaultErr = compile([]string{DefaultRegoPolicy})
	})
	return e.defaultComp, e.defaultErr
}

func compile(policies []string) (*ast.Compiler, error) {
	modules := make(map[string]string, len(policies))
	for i, p := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = p
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return nil, fmt.Errorf("compile policies: %w", err)
	}
	return compiler, nil
}

// HealthCheck verifies that the in-process OPA Rego engine can compile and evaluate the default policy.
// Does not call the policy repo or database. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	compiler, err := e.defaultCompiler()
	if err != nil {
		return err
	}
	d, err := evaluate(ctx, compiler, ClockInInput{Role: "Admin", StoreID: "health", StoreActive: true})
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if !d.Allow {
		return fmt.Errorf("default policy denied admin at active store")
	}
	return nil
}

// EvaluateClockIn evaluates the clock-in policy for in.
func (e *OPAEvaluator) EvaluateClockIn(ctx context.Context, in ClockInInput) (Decision, error) {
	compiler, err := e.compilerFor(ctx)
	if err != nil {
		return Decision{}, err
	}
	return evaluate(ctx, compiler, in)
}

// compilerFor returns a compiler over enabled stored policies, falling back to the built-in policy.
func (e *OPAEvaluator) compilerFor(ctx context.Context) (*ast.Compiler, error) {
	if e.policyRepo != nil {
		enabled, err := e.policyRepo.ListEnabled(ctx)
		if err != nil {
			log.Printf("policy: failed to load policies: %v", err)
		}
		var rules []string
		for _, p := range enabled {
			if p.Enabled && p.Rules != "" {
				rules = append(rules, p.Rules)
			}
		}
		if len(rules) > 0 {
			compiler, err := compile(rules)
			if err == nil {
				return compiler, nil
			}
			log.Printf("policy: stored policies invalid, using default: %v", err)
		}
	}
	return e.defaultCompiler()
}

func buildInput(in ClockInInput) map[string]interface{} {
	storeIDs := make([]interface{}, len(in.StoreIDs))
	for i, id := range in.StoreIDs {
		storeIDs[i] = id
	}
	return map[string]interface{}{
		"user": map[string]interface{}{
			"id":        in.UserID,
			"role":      in.Role,
			"store_ids": storeIDs,
		},
		"store": map[string]interface{}{
			"id":        in.StoreID,
			"is_active": in.StoreActive,
		},
	}
}

func evaluate(ctx context.Context, compiler *ast.Compiler, in ClockInInput) (Decision, error) {
	input := buildInput(in)
	rs, err := rego.New(
		rego.Query(allowQuery),
		rego.Compiler(compiler),
		rego.Input(input),
	).Eval(ctx)
	if err != nil {
		return Decision{}, err
	}
	var d Decision
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		d.Allow, _ = rs[0].Expressions[0].Value.(bool)
	}
	if d.Allow {
		return d, nil
	}
	reasonRS, err := rego.New(
		rego.Query(reasonQuery),
		rego.Compiler(compiler),
		rego.Input(input),
	).Eval(ctx)
	if err == nil && len(reasonRS) > 0 && len(reasonRS[0].Expressions) > 0 {
		d.Reason, _ = reasonRS[0].Expressions[0].Value.(string)
	}
	if d.Reason == "" {
		d.Reason = ReasonNotAssigned
	}
	return d, nil
}
