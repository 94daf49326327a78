// askproxy is a metering reverse proxy in front of a hosted chat-completion
// deployment.
//
// It accepts a question over HTTP, forwards it upstream, and returns the
// answer together with token usage, latency and an estimated cost. Every
// call is counted in Prometheus instruments labeled by user, and can be
// persisted to a usage ledger for later reporting.
//
// Usage:
//
//	# Start the proxy using only environment variables
//	askproxy run
//
//	# Start with a configuration file
//	askproxy run --config /etc/askproxy/askproxy.yaml
//
//	# Check the effective configuration
//	askproxy validate
//
//	# Per-user usage from the ledger for the last day
//	askproxy usage --since 24h
//
//	# Show version information
//	askproxy version
package main

import "context"

func main() {
	Execute(context.Background())
}
