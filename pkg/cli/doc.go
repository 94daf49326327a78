/*
Package cli provides command-line helpers shared by the askproxy commands.

Output Formatting:

Commands accept --format text|json|csv. Text output is tab-aligned:

	table := cli.NewTable(os.Stdout, "USER", "REQUESTS", "COST")
	table.Row("alice", "12", "0.004200")
	table.Flush()

JSON output goes through WriteJSON; CSV output is produced by the ledger
export package.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
