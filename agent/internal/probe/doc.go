// Package probe implements the three network checks run against every
// monitored site: DNS resolution (resolver.go), TLS certificate inspection
// (cert.go) and page fetch with the content heuristic (page.go).
//
// Probes never return errors. A transport failure of any kind is folded
// into the OK flag of the result, and every probe is bounded by the
// configured timeout. Connections and response bodies are closed before a
// probe returns, on success and on failure.
//
// The evaluator depends on the Resolver, CertProber and PageFetcher
// interfaces so tests can substitute fakes.
package probe
