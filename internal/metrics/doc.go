// Package metrics defines the prometheus collectors for the retention
// daemon: cleaning-pass outcomes, worker-pool depth, and registry
// operation latencies. Collectors take an explicit Registerer so tests
// can register against a private registry.
package metrics
