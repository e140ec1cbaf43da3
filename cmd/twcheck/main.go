// Command twcheck verifies a protected function's setup outside Lambda.
//
// Usage:
//
//	twcheck locate                   Show which inspection module would load
//	twcheck parse orders/api.Create  Show how a handler spec is split
//	twcheck check --event e.json     Ask the inspection module about an event
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "twcheck",
		Short: "Verify a protected Lambda function's setup",
		Long: `twcheck reads the same environment as the Lambda shim
(LAMBDA_TASK_ROOT, TW_LAYER_ROOT, ORIGINAL_HANDLER, TW_CUSTOM_RESPONSE),
plus a .env file in the working directory when there is one.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newLocateCmd(),
		newParseCmd(),
		newCheckCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
