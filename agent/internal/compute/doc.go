// Package compute turns raw probe output into per-site records.
//
// classify.go provides the pure Classify(current, previous, policy) function
// that derives the certificate state (ok | renewal | action). The previous
// record is an explicit argument so the rotation heuristic can be tested
// without touching disk.
//
// evaluator.go provides the Evaluator that runs the DNS, TLS and page
// probes for one site, assembles the SiteCheck and classifies it.
// Evaluator.now is injectable so tests are deterministic.
package compute
