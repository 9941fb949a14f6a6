// secured-check authorizes a bearer token against a requirement using the
// settings of a secured service, and prints the decision as JSON.
//
// Check mode (default): decides the token given with --token, or read from
// stdin when --token is "-", and exits 1 when it is denied.
//
// Serve mode (--serve): listens on server.addr, answers GET /check with the
// caller's identity when the requirement is met, and exposes Prometheus
// metrics on /metrics.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/tbudis/secured/config"
)

type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

type flags struct {
	configFile string
	configDir  string
	token      string
	operation  string
	audience   string
	roles      []string
	serve      bool
	addr       string
}

func parseFlags(args []string, stdout io.Writer) (*flags, error) {
	f := &flags{}
	flagSet := pflag.NewFlagSet("secured-check", pflag.ContinueOnError)
	flagSet.SetOutput(stdout)
	flagSet.StringVarP(&f.configFile, "config", "c", "", "path to the configuration file")
	flagSet.StringVar(&f.configDir, "config-dir", "", "directory searched for "+config.FileName+".yaml (default: . and "+config.DefaultDir+")")
	flagSet.StringVarP(&f.token, "token", "t", "", `bearer token to check, "-" reads it from stdin`)
	flagSet.StringVarP(&f.operation, "operation", "o", "", "operation name reported in logs and metrics")
	flagSet.StringVarP(&f.audience, "audience", "a", "", "audience the token must be meant for")
	flagSet.StringSliceVarP(&f.roles, "roles", "r", nil, "roles of which the caller needs at least one")
	flagSet.BoolVar(&f.serve, "serve", false, "serve /check and /metrics instead of checking one token")
	flagSet.StringVar(&f.addr, "addr", "", "listen address, overrides server.addr")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	if flagSet.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(flagSet.Args(), " "))
	}
	if !f.serve && f.token == "" {
		return nil, errors.New("--token is required unless --serve is given")
	}
	return f, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	f, err := parseFlags(args, stdout)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	app, err := newApp(cfg, f)
	if err != nil {
		return err
	}
	defer app.close()

	if f.serve {
		return app.serve(ctx)
	}

	token := f.token
	if token == "-" {
		if token, err = readToken(stdin); err != nil {
			return err
		}
	}

	allowed, err := app.check(ctx, token, stdout)
	if err != nil {
		return err
	}
	if !allowed {
		return &exitError{code: 1}
	}
	return nil
}

func loadConfig(f *flags) (*config.Config, error) {
	if f.configFile != "" {
		return config.LoadFile(f.configFile)
	}
	return config.Load(f.configDir)
}

func readToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("could not read token from stdin: %w", err)
	}
	return strings.TrimSpace(line), nil
}
