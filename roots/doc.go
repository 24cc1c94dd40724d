// Package roots provides the scalar root finders used by the equilibrium
// solvers and unit operations.
//
// What:
//
//   - Bracket: grows an initial interval geometrically until f changes sign,
//     staying inside an optional domain.
//   - Brent: bracketed inverse-quadratic/secant/bisection hybrid; always
//     converges on a valid bracket.
//   - Find: Bracket followed by Brent, the common entry point.
//   - Secant: unbracketed secant steps for smooth residuals near a good guess.
//
// Errors:
//
//	ErrNoBracket     - no sign change could be found inside the domain.
//	ErrMaxIterations - the iteration budget was exhausted.
//
// Residual errors returned by f abort the search and are returned wrapped.
// Context cancellation is checked once per iteration.
package roots
