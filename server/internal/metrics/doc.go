// Package metrics exposes the loaded snapshot and server internals on
// /metrics.
//
// Site-level series mirror the agent's textfile output so either source can
// back the same dashboards and alert rules. Duplicate site URLs in a
// hand-edited snapshot make the scrape fail, as Prometheus requires unique
// label sets.
package metrics
