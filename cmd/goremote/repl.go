package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caffeineduck/goremote/closure"
	"github.com/caffeineduck/goremote/executor"
	"github.com/caffeineduck/goremote/logging"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive REPL with shared variables",
	Long: `Start an interactive REPL (Read-Eval-Print Loop) against a remote surface.

Every line is evaluated remotely with the REPL variables in scope; changes the
remote code makes to them are kept for the next line.

Commands:
  :var name=<json>    Declare or overwrite a variable
  :vars               Show all variables
  :target <name>      Switch surface (server, browser)
  :promise <code>     Run a function receiving resolve and reject

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)
  - Multi-line input (end line with \)

Type 'exit' or 'quit' to end the session, or press Ctrl+D.`,
	RunE: runRepl,
}

func init() {
	addRoundTripFlags(replCmd)
	replCmd.Flags().String("history", "", "History file path (default: ~/.goremote_history)")
	rootCmd.AddCommand(replCmd)
}

// replSession evaluates REPL lines. It is independent of the terminal so it
// can be driven directly.
type replSession struct {
	remote executor.Submitter
	scope  *closure.Scope
	cells  map[string]*closure.Cell
	target string
	logger logging.Logger
	out    io.Writer
	errOut io.Writer
}

func (s *replSession) context() *executor.Context {
	return newContext(s.remote, s.scope, s.target, s.logger)
}

// handle evaluates one complete input and reports whether the REPL should
// stop.
func (s *replSession) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case line == "exit" || line == "quit":
		return true
	case line == ":vars":
		printVars(s.out, s.cells)
	case strings.HasPrefix(line, ":var "):
		s.declare(strings.TrimSpace(strings.TrimPrefix(line, ":var ")))
	case strings.HasPrefix(line, ":target"):
		target := strings.TrimSpace(strings.TrimPrefix(line, ":target"))
		if target == "" {
			fmt.Fprintln(s.out, s.target)
			break
		}
		s.target = target
	case strings.HasPrefix(line, ":promise "):
		v, err := s.context().Promise(ctx, toFunc(strings.TrimPrefix(line, ":promise ")))
		s.report(v.JSONString(), err)
	case strings.HasPrefix(line, ":"):
		errorColor.Fprintf(s.errOut, "Error: unknown command %s\n", strings.Fields(line)[0])
	default:
		v, err := s.context().Execute(ctx, toFunc(line))
		s.report(v.JSONString(), err)
	}
	return false
}

func (s *replSession) declare(spec string) {
	parsed, err := parseVars([]string{spec})
	if err != nil {
		errorColor.Fprintf(s.errOut, "Error: %v\n", err)
		return
	}
	for name, cell := range parsed {
		if existing, ok := s.cells[name]; ok {
			existing.Store(cell.Value())
			continue
		}
		if err := s.scope.Bind(closure.Vars{name: cell}); err != nil {
			errorColor.Fprintf(s.errOut, "Error: %v\n", err)
			continue
		}
		s.cells[name] = cell
	}
}

func (s *replSession) report(value string, err error) {
	if err != nil {
		errorColor.Fprintf(s.errOut, "Error: %v\n", err)
		return
	}
	valueColor.Fprintln(s.out, value)
}

func runRepl(cmd *cobra.Command, args []string) error {
	target, _ := cmd.Flags().GetString("target")
	specs, _ := cmd.Flags().GetStringArray("var")
	historyFile, _ := cmd.Flags().GetString("history")

	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".goremote_history")
	}

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

	session := &replSession{
		remote: remote,
		scope:  scope,
		cells:  cells,
		target: target,
		logger: newLogger(cmd),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}

	in := cmd.InOrStdin()
	if !isTerminal(in) {
		return replLoop(ctx, session, &scanLines{scanner: bufio.NewScanner(in)})
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(os.Stderr, "goremote REPL on %s (type 'exit' to quit, Ctrl+D to exit)\n", target)
	return replLoop(ctx, session, rl)
}

// lineReader is the part of readline the loop needs.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// scanLines reads piped input without prompts or line editing.
type scanLines struct {
	scanner *bufio.Scanner
}

func (s *scanLines) Readline() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

func (s *scanLines) SetPrompt(string) {}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func replLoop(ctx context.Context, session *replSession, rl lineReader) error {
	var multiLine strings.Builder
	inMultiLine := false

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if inMultiLine {
					multiLine.Reset()
					inMultiLine = false
					rl.SetPrompt("> ")
				}
				continue
			}
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		if strings.HasSuffix(line, "\\") {
			multiLine.WriteString(strings.TrimSuffix(line, "\\"))
			multiLine.WriteString("\n")
			inMultiLine = true
			rl.SetPrompt("... ")
			continue
		}

		if inMultiLine {
			multiLine.WriteString(line)
			line = multiLine.String()
			multiLine.Reset()
			inMultiLine = false
			rl.SetPrompt("> ")
		}

		if session.handle(ctx, line) {
			return nil
		}
	}
}
