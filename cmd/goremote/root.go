package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/caffeineduck/goremote/closure"
	"github.com/caffeineduck/goremote/engine"
	"github.com/caffeineduck/goremote/executor"
	"github.com/caffeineduck/goremote/logging"
	"github.com/caffeineduck/goremote/payload"
	"github.com/caffeineduck/goremote/transport"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

var rootCmd = &cobra.Command{
	Use:   "goremote [file]",
	Short: "Run JavaScript functions on a remote surface with shared variables",
	Long: `goremote - Run JavaScript functions on an application server or browser
surface, sharing closure variables with them by value.

Variables passed with --var are sent with every round trip and printed with
the values the remote function left in them. By default the surfaces run in
process; use --agent to spawn an agent process or --url to reach one over HTTP.`,
	Args:         cobra.MaximumNArgs(1),
	RunE:          runExec, // Default to exec command behavior
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("agent", "", "Spawn this agent command and talk to it over stdio")
	rootCmd.PersistentFlags().String("url", "", "Base URL of an agent serving HTTP")
	rootCmd.PersistentFlags().Bool("debug", false, "Log console output and protocol traffic to stderr")
	rootCmd.PersistentFlags().StringArray("allow-host", nil, "Host that http_request may reach in in-process surfaces (repeatable)")

	addExecFlags(rootCmd)
}

var (
	valueColor = color.New(color.FgGreen)
	errorColor = color.New(color.FgRed, color.Bold)
	varColor   = color.New(color.FgCyan)
)

func newLogger(cmd *cobra.Command) logging.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	if !debug {
		return logging.NullLogger()
	}
	return logging.New(cmd.ErrOrStderr(), "goremote: ")
}

// hostOptions configures in-process surfaces from the global flags.
func hostOptions(cmd *cobra.Command, logger logging.Logger) []engine.Option {
	opts := []engine.Option{engine.WithLogger(logger)}
	if hosts, _ := cmd.Flags().GetStringArray("allow-host"); len(hosts) > 0 {
		opts = append(opts, engine.WithAllowedHosts(hosts...))
	}
	return opts
}

// connect returns the remote surfaces selected by the global flags and a
// function releasing them.
func connect(ctx context.Context, cmd *cobra.Command) (executor.Submitter, func(), error) {
	agent, _ := cmd.Flags().GetString("agent")
	url, _ := cmd.Flags().GetString("url")
	logger := newLogger(cmd)

	switch {
	case agent != "" && url != "":
		return nil, nil, fmt.Errorf("--agent and --url are mutually exclusive")
	case url != "":
		return transport.NewHTTPClient(url), func() {}, nil
	case agent != "":
		fields := strings.Fields(agent)
		proc, err := transport.Spawn(ctx, fields[0], fields[1:], transport.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return proc, func() { proc.Close() }, nil
	default:
		host, err := engine.NewHost(hostOptions(cmd, logger)...)
		if err != nil {
			return nil, nil, err
		}
		return host, func() { host.Close() }, nil
	}
}

// parseVars turns name=<json> flags into closure variables.
func parseVars(specs []string) (map[string]*closure.Cell, error) {
	vars := make(map[string]*closure.Cell, len(specs))
	for _, spec := range specs {
		name, raw, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid variable %q (expected name=<json>)", spec)
		}
		var v ldvalue.Value
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			// bare words are taken as strings
			v = ldvalue.String(raw)
		}
		vars[name] = closure.NewCell(v)
	}
	return vars, nil
}

func bindVars(scope *closure.Scope, cells map[string]*closure.Cell) error {
	vars := make(closure.Vars, len(cells))
	for name, cell := range cells {
		vars[name] = cell
	}
	return scope.Bind(vars)
}

func printVars(w io.Writer, cells map[string]*closure.Cell) {
	names := make([]string, 0, len(cells))
	for name := range cells {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		varColor.Fprintf(w, "%s = %s\n", name, cells[name].Value().JSONString())
	}
}

// toFunc accepts either a function expression or a plain expression.
func toFunc(source string) payload.Func {
	src := strings.TrimSpace(source)
	if strings.HasPrefix(src, "function") || strings.HasPrefix(src, "(") {
		return payload.Func(src)
	}
	return payload.Expr(src)
}

// readSource picks the code from --code, a file argument or piped stdin. It
// returns "" when there is nothing to run.
func readSource(cmd *cobra.Command, args []string) (string, error) {
	code, _ := cmd.Flags().GetString("code")
	switch {
	case code != "":
		return code, nil
	case len(args) > 0:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok {
			stat, _ := f.Stat()
			if stat == nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				return "", nil
			}
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

func newContext(remote executor.Submitter, scope *closure.Scope, target string, logger logging.Logger, opts ...executor.Option) *executor.Context {
	opts = append(opts, executor.WithTarget(target), executor.WithLogger(logger))
	return executor.NewServer(remote, scope, opts...)
}
