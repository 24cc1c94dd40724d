// Package thermo defines the vocabulary shared by every solver in lvflow:
// phase labels, the (T, P) ThermalCondition, the immutable ComponentSet and
// the PropertyProvider contract through which equilibrium solvers query
// fugacity, activity, saturation and caloric properties.
//
// What:
//
//   - Phase: Vapor ("g"), Liquid ("l") and SecondLiquid ("L").
//   - ThermalCondition: mutable temperature/pressure pair shared by pointer
//     between a stream's material indexer and a solver working on it.
//   - ComponentSet: ordered, immutable list of component identifiers.
//   - PropertyProvider: pure, side-effect free query interface.
//   - KValues: modified-Raoult equilibrium ratios built from Fugacity.
//
// Units:
//
//   - Temperature in K, pressure in Pa.
//   - Molar enthalpy in J/mol (numerically kJ/kmol), molar entropy in J/(mol·K).
//   - Flows elsewhere in lvflow are kmol/h, so flow × molar enthalpy is kJ/h.
//
// Errors:
//
//   - ErrInvalidCondition   temperature or pressure is not strictly positive
//   - ErrUnknownComponent   component ID is not part of a ComponentSet
//   - ErrEmptyComponentSet  a ComponentSet was built from no identifiers
//   - ErrDuplicateComponent the same identifier was given twice
//   - ErrDimensionMismatch  a composition vector does not match the set length
package thermo
