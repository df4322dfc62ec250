package main

import (
	"context"
	"fmt"
	"time"

	"github.com/caffeineduck/goremote/closure"
	"github.com/caffeineduck/goremote/executor"
	"github.com/spf13/cobra"
)

var waitCmd = &cobra.Command{
	Use:   "wait [file]",
	Short: "Poll a predicate until it is truthy",
	Long: `Run a JavaScript predicate repeatedly until it returns a truthy value,
throws, or the timeout passes. Variables are synchronized after every poll
and printed at the end, whatever the result.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWait,
}

func init() {
	waitCmd.Flags().StringP("code", "c", "", "Predicate to poll")
	addRoundTripFlags(waitCmd)
	waitCmd.Flags().Duration("timeout", time.Second, "How long to keep polling")
	waitCmd.Flags().StringP("description", "d", "until the predicate holds", "Text for the timeout error")
	waitCmd.Flags().Duration("interval", executor.DefaultPollInterval, "Pause between polls")
	rootCmd.AddCommand(waitCmd)
}

func runWait(cmd *cobra.Command, args []string) error {
	source, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	if source == "" {
		return cmd.Help()
	}

	target, _ := cmd.Flags().GetString("target")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	description, _ := cmd.Flags().GetString("description")
	interval, _ := cmd.Flags().GetDuration("interval")
	specs, _ := cmd.Flags().GetStringArray("var")

	cells, err := parseVars(specs)
	if err != nil {
		return err
	}
	scope := closure.NewRoot()
	if err := bindVars(scope, cells); err != nil {
		return err
	}

	ctx := context.Background()
	remote, release, err := connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer release()

	rc := newContext(remote, scope, target, newLogger(cmd), executor.WithPollInterval(interval))
	start := time.Now()
	waitErr := rc.Wait(ctx, timeout, description, toFunc(source))

	out := cmd.OutOrStdout()
	if waitErr == nil {
		valueColor.Fprintln(out, fmt.Sprintf("ok after %v", time.Since(start).Round(time.Millisecond)))
	}
	printVars(out, cells)
	return waitErr
}
