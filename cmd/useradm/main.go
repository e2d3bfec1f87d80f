// Command useradm registers a user directly against a data directory,
// without going through the HTTP API. Useful for bootstrapping the first
// account on a fresh deployment.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dstepanenko/dreamhouse/internal/logging"
	"github.com/dstepanenko/dreamhouse/internal/server/auth"
)

func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Enter password: ")

	if term.IsTerminal(int(os.Stdin.Fd())) {
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	// piped input
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func main() {
	dataDir := flag.String("d", "data", "data directory")
	username := flag.String("u", "", "username to register")
	flag.Parse()

	if *username == "" {
		fmt.Fprintln(os.Stderr, "usage: useradm -u <username> [-d <data dir>]")
		os.Exit(2)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	store, err := auth.Open(*dataDir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening auth store: %v\n", err)
		os.Exit(1)
	}

	password, err := readPassword()
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading password: %v\n", err)
		os.Exit(1)
	}

	if err := store.Register(context.Background(), *username, password); err != nil {
		fmt.Fprintf(os.Stderr, "registering %q: %v\n", *username, err)
		os.Exit(1)
	}

	fmt.Printf("registered %q\n", strings.TrimSpace(*username))
}
