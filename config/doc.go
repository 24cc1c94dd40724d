// Package config loads flowsheet files.
//
// A flowsheet file is YAML: the chemicals (catalog IDs or inline data), an
// optional activity model, feed streams, units with their free-form params,
// optional tear streams, and recycle solver settings. Load and Parse decode
// and validate a File; File.Build wires it into a flowsheet.System over a
// property.Package, and File.EngineOptions turns the solver section into
// recycle options.
//
//	chemicals: [Benzene, Toluene]
//	streams:
//	  - {id: feed, phase: l, T: 300, P: 101325, flows: {Benzene: 10, Toluene: 10}}
//	units:
//	  - {id: M, type: mixer, inlets: [feed, recycle], outlets: [mixed]}
//	  - {id: F, type: flash, inlets: [mixed], outlets: [vapor, liquid], params: {T: 368, P: 101325}}
//	  - {id: S, type: splitter, inlets: [liquid], outlets: [recycle, bottoms], params: {split: [0.5]}}
//	solver: {accelerator: wegstein}
//
// Unit types and params:
//
//	mixer           rigorous
//	splitter        split (one value, or one per chemical)
//	flash           any two of T,P,V,H,S,x,y, or adiabatic: true
//	heat_exchanger  T or V, rigorous
//	hx_process      dT (default 5), T_lim0, T_lim1, rigorous
//	settler         (none)
//	decanter        T and P, H and P, or adiabatic: true
//
// Every error wraps ErrInvalidConfig.
package config
