// Command ddns-passwd manages hostname/password entries in the credential
// store used by the ddns service.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/evanofslack/cf-ddns/internal/auth"
	"github.com/evanofslack/cf-ddns/internal/config"
	"github.com/evanofslack/cf-ddns/internal/credential"
	"github.com/evanofslack/cf-ddns/internal/logger"
	"github.com/evanofslack/cf-ddns/internal/metrics"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

type options struct {
	configPath string
	db         string
	plain      bool
	remove     bool
	list       bool
}

func main() {
	var opts options
	pflag.StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to the YAML config file")
	pflag.StringVar(&opts.db, "db", "", "badger database path (overrides config and selects the badger backend)")
	pflag.BoolVar(&opts.plain, "plain", false, "store the password as plaintext instead of a bcrypt hash")
	pflag.BoolVar(&opts.remove, "delete", false, "delete the entry for hostname")
	pflag.BoolVar(&opts.list, "list", false, "list stored hostnames")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: ddns-passwd [flags] <hostname> [password]\n       ddns-passwd --list\n\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nThe badger backend is locked while the ddns service runs. Stop the\nservice first, or use the redis backend to manage hosts live.\n")
	}
	pflag.Parse()

	slog.SetDefault(logger.New(os.Stderr, "warn", "dev"))
	if err := run(context.Background(), opts, pflag.Args(), os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "ddns-passwd:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, args []string, stdin io.Reader, stdout io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	creds := cfg.Credentials
	if opts.db != "" {
		creds.Backend = config.BackendBadger
		creds.Path = opts.db
	}

	store, err := openAdmin(creds)
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.list {
		hosts, err := store.List(ctx)
		if err != nil {
			return err
		}
		for _, h := range hosts {
			fmt.Fprintln(stdout, h)
		}
		return nil
	}

	if len(args) < 1 || len(args) > 2 {
		pflag.Usage()
		return errors.New("expected <hostname> [password]")
	}
	name, err := auth.NewNormalizer(cfg.DNS.DomainSuffix).Normalize(args[0])
	if err != nil {
		return fmt.Errorf("invalid hostname %q", args[0])
	}
	hostname := name.Host

	if opts.remove {
		if err := store.Delete(ctx, hostname); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted %s\n", hostname)
		return nil
	}

	var password string
	if len(args) == 2 {
		password = args[1]
	} else {
		password, err = readPassword(stdin)
		if err != nil {
			return err
		}
	}
	if password == "" {
		return errors.New("password must not be empty")
	}

	value := password
	if !opts.plain {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		value = string(hash)
	}
	if err := store.Set(ctx, hostname, value); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "stored %s\n", hostname)
	return nil
}

// openAdmin opens the configured backend without the read cache.
func openAdmin(creds config.Credentials) (credential.Admin, error) {
	m := metrics.New(false)
	switch creds.Backend {
	case config.BackendBadger:
		store, err := credential.NewBadger(creds.Path, m)
		if errors.Is(err, credential.ErrLocked) {
			return nil, fmt.Errorf("%w (stop the ddns service or use the redis backend)", err)
		}
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendRedis:
		return credential.NewRedis(creds.Redis, m)
	default:
		return nil, fmt.Errorf("backend %q is read-only, edit its file directly", creds.Backend)
	}
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
