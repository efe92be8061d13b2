// Package publisher runs one probe pass over every configured site and
// writes the resulting snapshot file.
//
// Publisher.Run loads the previous snapshot (a missing or corrupt file is
// treated as "no previous run"), evaluates the sites on a bounded pool of
// workers, assembles the results in configured order, and replaces the
// output file atomically. A failed write is returned to the caller; probe
// failures never are.
//
// When metrics_textfile is configured, a Prometheus text exposition of the
// same snapshot is written next. Its failure is logged only.
package publisher
