// Package units provides the unit operations of a flowsheet: Mixer,
// Splitter, Flash, HeatExchanger, HXProcess, Settler and Decanter.
//
// Every unit implements flowsheet.Unit. Simulate reads the inlet streams,
// runs the equilibrium solver the unit owns (if any) on a private
// multi-phase working indexer, and overwrites the outlet streams. Solvers
// are built once per unit and warm-start from their previous answer, which
// is what a recycle engine calling Simulate pass after pass wants.
//
// Energy balances use the provider's phase-wise enthalpy. Mixer and the
// inlet side of the other units find the adiabatic mixing temperature with
// the phases of the inlets kept as they are; WithRigorous makes the Mixer
// re-flash the mixture at (H,P) instead.
//
// An inlet total of zero is not an error: outlets are emptied and Simulate
// returns nil. HXProcess passes the other stream through unchanged.
//
// Units are not safe for concurrent use; separate units are independent.
package units
