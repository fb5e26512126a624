package unit

import (
	"context"

	"github.com/provd/provd/internal/config"
	"github.com/provd/provd/internal/model"
)

// Metadata describes a unit handler for registration and reporting.
type Metadata struct {
	Type        string
	Description string
}

// Handler implements one unit type's guard and apply behavior.
//
// Evaluate is the guard: a strictly read-only assessment of whether the
// unit's effect is already present on the system. Apply mutates the system
// toward the desired state and is only invoked when Evaluate reported the
// state unsatisfied. Apply must be idempotent: calling it when the state is
// already satisfied causes no duplicate side effects.
type Handler interface {
	Metadata() Metadata

	Evaluate(ctx context.Context, u *config.Unit) (*model.Evaluation, error)

	Apply(ctx context.Context, eval *model.Evaluation, u *config.Unit) (*model.UnitResult, error)
}
