package main

import (
	"context"
	"time"

	"github.com/caffeineduck/goremote/closure"
	"github.com/caffeineduck/goremote/engine"
	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec [file]",
	Short: "Run a function once",
	Long: `Run a JavaScript function on the remote surface and print its result.

Code can be provided via:
  - File argument: goremote exec script.js
  - Inline flag: goremote exec -c 'function () { return a + 1; }' --var a=1
  - Stdin: echo 'a + 1' | goremote exec --var a=1

Plain expressions are wrapped into a function. With --promise the function
receives resolve and reject and the round trip ends when one is called.`,
	Args:         cobra.MaximumNArgs(1),
	RunE:         runExec,
	SilenceUsage: true,
}

func init() {
	addExecFlags(execCmd)
	rootCmd.AddCommand(execCmd)
}

func addExecFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("code", "c", "", "Code to run")
	addRoundTripFlags(cmd)
	cmd.Flags().Bool("promise", false, "Pass resolve and reject and wait for one of them")
	cmd.Flags().Duration("timeout", 30*time.Second, "Give up waiting after this long")
}

func addRoundTripFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("target", "t", engine.DefaultTarget, "Surface to run on: server, browser")
	cmd.Flags().StringArray("var", nil, "Closure variable name=<json> (repeatable)")
}

func runExec(cmd *cobra.Command, args []string) error {
	source, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	if source == "" {
		return cmd.Help()
	}

	target, _ := cmd.Flags().GetString("target")
	promise, _ := cmd.Flags().GetBool("promise")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	specs, _ := cmd.Flags().GetStringArray("var")

	cells, err := parseVars(specs)
	if err != nil {
		return err
	}
	scope := closure.NewRoot()
	if err := bindVars(scope, cells); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	remote, release, err := connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer release()

	rc := newContext(remote, scope, target, newLogger(cmd))
	run := rc.Execute
	if promise {
		run = rc.Promise
	}
	v, runErr := run(ctx, toFunc(source))

	out := cmd.OutOrStdout()
	if runErr == nil {
		valueColor.Fprintln(out, v.JSONString())
	}
	printVars(out, cells)
	return runErr
}
