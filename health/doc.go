// Package health checks whether the console backends are usable.
//
// A Checker reports one component's Status: Healthy, Degraded, or
// Unhealthy. APIChecker probes a backend through the client stack and
// maps classified failures onto a status: an unreachable or failing server
// is unhealthy, while a reachable server that rejects the session's
// credentials is degraded. An Aggregator runs several checkers under one
// timeout and folds their results into a Report.
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewAPIChecker("project_api", client.Health))
//	report := agg.Report(ctx)
//	fmt.Println(report.Status)
//
// The HTTP handlers expose the same checks as liveness, readiness and
// detailed endpoints; the mock backend serves them.
package health
