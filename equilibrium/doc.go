// Package equilibrium is the phase-equilibrium solver family of lvflow.
//
// What:
//
//   - BubblePointSolver / DewPointSolver: given a fixed composition and T
//     (or P), find P (or T) and the incipient phase composition.
//   - VLE: two-phase vapor-liquid flash over a material.MultiPhase indexer,
//     dispatched on a Specification of two state variables:
//     (T,P), (V,P), (V,T), (H,P), (S,P), and for binaries (x,P), (y,P).
//   - LLE: liquid-liquid split at T by successive substitution on activity
//     coefficients; reports miscibility as a result, not an error.
//   - VLLE: runs VLE, tests the liquid for a liquid-liquid split and, if
//     one exists, solves vapor against the two-liquid aggregate.
//
// Algorithms:
//
//   - Bubble/dew: Brent on ln Σ zᵢKᵢ (or ln Σ zᵢ/Kᵢ) in ln P or T, each
//     residual running an inner fixed point on the incipient composition.
//   - Flash: Rachford-Rice for the split with successive substitution on K,
//     wrapped by Brent on T or ln P for the V, H and S specifications.
//
// Warm start: solvers remember their last answer and use it as the next
// initial guess (and, for bubble/dew, return it directly when the inputs are
// unchanged). WithColdStart disables both for reproducible runs; WarmStart
// and Reset seed or clear the memory explicitly.
//
// Concurrency: solver instances hold mutable working state and are not safe
// for concurrent use. Independent instances sharing one immutable
// thermo.PropertyProvider may run in parallel.
//
// Errors:
//
//	ErrDidNotConverge       - an iteration budget was exhausted.
//	ErrInfeasibleRegion     - a composition specification cannot be met by any split.
//	ErrDegenerateInput      - the input cannot be solved at all (empty feed, wrong arity).
//	ErrInvalidSpecification - unsupported or malformed specification.
package equilibrium
