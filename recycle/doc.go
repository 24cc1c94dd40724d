// Package recycle converges flowsheets that contain recycle loops.
//
// What:
//
//	Engine.Run builds the system's schedule (flowsheet.System.Build) and
//	executes it group by group. A plain group runs once. A recycle group is
//	iterated in passes: every member unit runs in the group's fixed order
//	(units of one dependency level may run in parallel, WithParallelism),
//	then each tear stream is compared with its state at the start of the
//	pass. The group has converged when every component flow agrees within
//	the relative tolerance (flows below the floor are compared against the
//	floor) and every temperature within the absolute tolerance.
//
// Update rule:
//
//	Between passes an Accelerator proposes the next tear values from the
//	pass input and output. DirectSubstitution (the default) takes the
//	output as is; Wegstein applies bounded per-element secant
//	acceleration; Anderson mixes a short history through a least-squares
//	fit. The convergence test never depends on the accelerator.
//
// Diagnostics:
//
//	A group that exhausts MaxPasses fails with a *ConvergenceError naming
//	the group, the largest relative flow error with its stream and
//	component, and the largest temperature error. Unit failures are
//	wrapped in *UnitError with the unit ID; WithContinueOnUnitError logs
//	equilibrium non-convergence instead and keeps the unit's best-effort
//	outlets. Every run has a uuid run ID; passes, residuals and timings go
//	to slog, to Prometheus (WithMetrics) and to OpenTelemetry spans.
//
// Warm start:
//
//	WithCheckpoints saves converged tear streams per group and restores
//	them before the next run of the same system.
//
// Errors:
//
//   - ErrRecycleNotConverged  wrapped by *ConvergenceError
//   - *UnitError              a unit's Simulate failed
//   - context errors          the run was cancelled between passes or units
package recycle
