// Package property is the reference thermo.PropertyProvider shipped with
// lvflow. It is a deliberately small, low-pressure gamma-phi package:
//
//   - Vapor pressure: Antoine, log10(P/Pa) = A − B/(T/K + C), with an exact
//     inverse for saturation temperatures.
//   - Liquid non-ideality: pluggable ActivityModel (Ideal, NRTL, regular-solution
//     Margules).
//   - Vapor: ideal gas (φ = 1).
//   - Caloric properties: constant liquid and vapor heat capacities with the
//     latent heat at the normal boiling point (Kirchhoff path), reference state
//     liquid at 298.15 K.
//
// A Package is immutable after New and is safe for concurrent use, which is
// what the equilibrium solvers require from a shared provider.
//
// The chemical catalog (Lookup) and the NRTL pair table (DefaultNRTL) only
// hold the handful of species used by the examples and tests; anything else
// is supplied by the caller, typically through the config package.
package property
