package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
           _ _          _
  _ __ ___| (_) ___  __| | _____  __
 | '__/ _ \ | |/ __|/ _' |/ _ \ \/ /
 | | |  __/ | | (__| (_| |  __/>  <
 |_|  \___|_|_|\___|\__,_|\___/_/\_\

  Local relevance index for item catalogs

  Usage: relicdex <command> [options]
         relicdex --help

  With no command and piped stdin, relicdex serves MCP.`)
}

func main() {
	args := os.Args
	if len(args) < 2 {
		// No args + interactive terminal → show banner and exit
		if isTerminal() {
			printBanner()
			return
		}
		// No args + piped stdin → MCP server
		args = append(args, "mcp")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine working directory: %v\n", err)
		os.Exit(1)
	}

	env := &appEnv{
		baseDir: filepath.Join(homeDir, ".relicdex"),
		workDir: workDir,
		out:     os.Stdout,
		errOut:  os.Stderr,
	}
	defer env.close()

	if err := newCLIApp(env).Run(args); err != nil {
		code := 1
		if exitErr, ok := err.(cli.ExitCoder); ok {
			code = exitErr.ExitCode()
			if msg := exitErr.Error(); msg != "" {
				fmt.Fprintf(os.Stderr, "error: %s\n", msg)
			}
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		env.close()
		os.Exit(code)
	}
}
