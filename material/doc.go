// Package material is the composition indexer of lvflow: the
// {phase → component → molar flow} container that equilibrium solvers, unit
// operations and the recycle engine read and write.
//
// What:
//
//   - PhaseComposition: a flow vector tagged with a thermo.Phase.
//   - MultiPhaseState: ordered PhaseCompositions sharing one *ThermalCondition.
//   - Indexer: the read/aggregate and per-phase write contract, implemented
//     by SinglePhase (a stream that is all one phase) and MultiPhase.
//   - Helpers: Mix, Split, Enthalpy, Entropy and vector utilities.
//
// Units: flows are kmol/h, temperatures K, pressures Pa. Since molar
// properties are J/mol, Enthalpy returns kJ/h.
//
// Sharing: an Indexer's ThermalCondition is a pointer. A solver built over a
// MultiPhase writes T and P through it, so the owning stream sees the solved
// state without copying. Copy and CopyFrom never share the pointer.
//
// Errors:
//
//	ErrNegativeFlow      - a write contained a negative or NaN flow.
//	ErrDimensionMismatch - a vector length differs from the component set.
//	ErrPhaseNotFound     - the indexer has no composition for that phase.
//	ErrComponentMismatch - two indexers are over different component sets.
//	ErrEmpty             - fractions requested from a zero-flow vector.
package material
