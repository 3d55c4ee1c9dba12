// Package cli parses the enlace command line: a subcommand followed by its
// flags. Parsing is deterministic over a slice so tests never touch os.Args.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// Command names accepted as the first argument.
const (
	CmdLogin    = "login"
	CmdLogout   = "logout"
	CmdRegister = "register"
	CmdAnalyze  = "analyze"
	CmdReport   = "report"
	CmdExport   = "export"
	CmdServe    = "serve"
)

// Args is the parsed command line for one invocation.
type Args struct {
	Command string

	// login / register
	Username  string
	Password  string
	FirstName string
	LastName  string

	// analyze
	URL     string
	Message string

	// report / export
	AnalysisID int64
	LinkID     int64
	Page       int
	DeleteID   int64

	// export
	History bool
	OutDir  string

	// serve
	Addr string

	// global
	Verbose bool

	// RawArgs is the original slice, useful in tests.
	RawArgs []string
}

// ParseArgs parses a subcommand and its flags from args. It does not read
// os.Args and never writes to stdout.
func ParseArgs(args []string) (*Args, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing command: login|logout|register|analyze|report|export|serve")
	}

	out := &Args{Command: args[0], RawArgs: args}
	fs := flag.NewFlagSet("enlace-"+out.Command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&out.Verbose, "v", false, "Verbose output (debug logging)")

	switch out.Command {
	case CmdLogin:
		fs.StringVar(&out.Username, "user", "", "Username (required)")
		fs.StringVar(&out.Password, "password", "", "Password (required)")
	case CmdLogout:
		// No flags beyond the globals.
	case CmdRegister:
		fs.StringVar(&out.Username, "user", "", "Username (required)")
		fs.StringVar(&out.Password, "password", "", "Password (required)")
		fs.StringVar(&out.FirstName, "name", "", "First name")
		fs.StringVar(&out.LastName, "lastname", "", "Last name")
	case CmdAnalyze:
		fs.StringVar(&out.URL, "url", "", "URL to analyze (required)")
		fs.StringVar(&out.Message, "message", "", "Note stored with the link")
	case CmdReport:
		fs.Int64Var(&out.AnalysisID, "id", 0, "Show a single analysis by id")
		fs.Int64Var(&out.LinkID, "link", 0, "Show the history of one link")
		fs.IntVar(&out.Page, "page", 1, "History page to display")
		fs.Int64Var(&out.DeleteID, "delete", 0, "Delete an analysis by id (asks for confirmation)")
	case CmdExport:
		fs.Int64Var(&out.AnalysisID, "id", 0, "Export a single analysis by id")
		fs.BoolVar(&out.History, "history", false, "Export the full history")
		fs.StringVar(&out.OutDir, "out", ".", "Output directory for the PDF")
	case CmdServe:
		fs.StringVar(&out.Addr, "addr", ":8080", "Listen address for the demo backend")
	default:
		return nil, fmt.Errorf("unknown command %q", out.Command)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}

	switch out.Command {
	case CmdLogin, CmdRegister:
		if strings.TrimSpace(out.Username) == "" || out.Password == "" {
			return nil, fmt.Errorf("%s requires -user and -password", out.Command)
		}
	case CmdAnalyze:
		if strings.TrimSpace(out.URL) == "" {
			return nil, fmt.Errorf("analyze requires -url")
		}
	case CmdReport:
		if out.AnalysisID != 0 && out.LinkID != 0 {
			return nil, fmt.Errorf("report takes -id or -link, not both")
		}
	case CmdExport:
		if out.AnalysisID == 0 && !out.History {
			return nil, fmt.Errorf("export requires -id or -history")
		}
		if out.AnalysisID != 0 && out.History {
			return nil, fmt.Errorf("export takes -id or -history, not both")
		}
	}

	return out, nil
}
