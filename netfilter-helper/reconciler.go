package netfilterHelper

import (
	"context"
	"time"

	"github.com/enrell/alpine-wifi-bridge/internal/executor"

	"github.com/rs/zerolog/log"
)

// Reconciler applies rule specs with the check-then-add pattern.
type Reconciler struct {
	runner  executor.Runner
	timeout time.Duration
}

func NewReconciler(runner executor.Runner, timeout time.Duration) *Reconciler {
	return &Reconciler{runner: runner, timeout: timeout}
}

func (r *Reconciler) run(ctx context.Context, cmd executor.Command) executor.Result {
	if r.timeout > 0 && cmd.Timeout == 0 {
		cmd = cmd.WithTimeout(r.timeout)
	}
	return r.runner.Run(ctx, cmd, executor.Options{CaptureOutput: true})
}

// EnsureRule adds the rule unless its check command exits 0. It reports
// whether the add command was issued; add failures are only logged since
// the next pass retries them.
func (r *Reconciler) EnsureRule(ctx context.Context, spec RuleSpec) bool {
	if r.run(ctx, spec.Check).Success() {
		log.Trace().Str("rule", spec.Check.String()).Msg("rule already present")
		return false
	}

	res := r.run(ctx, spec.Add)
	if err := res.Err(); err != nil {
		log.Warn().Err(err).Str("rule", spec.Add.String()).Msg("failed to add rule - skipping this step")
	} else {
		log.Debug().Str("kind", spec.Kind.String()).Str("rule", spec.Add.String()).Msg("rule added")
	}
	return true
}

func (r *Reconciler) EnsureAll(ctx context.Context, specs []RuleSpec) int {
	applied := 0
	for _, spec := range specs {
		if r.EnsureRule(ctx, spec) {
			applied++
		}
	}
	return applied
}

// RemoveAll issues the delete form of every spec. Failures are swallowed:
// a rule that was never added simply fails to delete.
func (r *Reconciler) RemoveAll(ctx context.Context, specs []RuleSpec) {
	for _, spec := range specs {
		del, err := DeriveDelete(spec.Check)
		if err != nil {
			log.Debug().Err(err).Msg("cannot derive delete command")
			continue
		}
		if res := r.run(ctx, del); !res.Success() {
			log.Debug().Err(res.Err()).Str("rule", del.String()).Msg("rule delete failed")
		}
	}
}
