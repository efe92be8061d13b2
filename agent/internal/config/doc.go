// Package config loads the agent configuration file (config.yaml).
//
// Top-level types:
//   - Config{Agent}: the agent section of the config file
//   - AgentConfig: sites [], timeout, workers, output, metrics_textfile,
//     schedule, user_agent, follow_redirects, tls, classifier, content
//   - ClassifierConfig: intermediates allow-list for rotation detection
//   - ContentConfig: failure_phrases deny-list for the page heuristic
//
// Load(path) loads .env if present, reads the YAML file, applies defaults
// (12s timeout, 4 workers, docs/status.json), applies the SITEWATCH_OUTPUT and
// SITEWATCH_TIMEOUT overrides, then validates. Sites must be unique absolute
// https URLs. The returned value is never mutated after start-up.
package config
