// Package lvflow is the core of a steady-state process flowsheet simulator:
// material streams, phase equilibrium and a recycle convergence engine that
// runs unit operations over a directed stream graph.
//
// What is in the box?
//
//	thermo/      — component sets, phases, thermal conditions and the
//	               PropertyProvider contract the solvers consume
//	property/    — chemical catalog, Antoine vapor pressure, ideal,
//	               Margules and NRTL activity models
//	material/    — single- and multi-phase molar flow indexers
//	roots/       — bracketed scalar root finding with secant polish
//	equilibrium/ — bubble and dew points, VLE, LLE and VLLE flashes
//	flowsheet/   — streams, the System graph, recycle groups and tears
//	units/       — mixer, splitter, flash, heat exchangers, settler
//	recycle/     — sequential-modular convergence with acceleration
//	checkpoint/  — tear-stream snapshots in memory, Badger or Redis
//	config/      — YAML flowsheet files to runnable systems
//	graph/, dfs/, bfs/, matrix/ — the graph and linear algebra underneath
//
// A flowsheet in three steps:
//
//	pkg, _ := property.NewFromCatalog([]string{"Benzene", "Toluene"})
//	sys := flowsheet.NewSystem("plant")   // add streams and units
//	rep, err := recycle.New().Run(ctx, sys)
//
// Quick ASCII example of a recycle loop:
//
//	feed ──► M ──► F ──► S ──► bottoms
//	         ▲           │
//	         └─ recycle ─┘
//
// The cmd/lvflow binary loads the same plant from a YAML file:
//
//	lvflow simulate -f plant.yaml --metrics
package lvflow
