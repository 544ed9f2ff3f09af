// Command phishguard-token issues client tokens with the same key material
// the service validates with, and writes RSA key pairs for development.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bibbank/phishguard/internal/infrastructure/config"
	"github.com/bibbank/phishguard/pkg/auth"
)

type args struct {
	client  string
	scopes  []string
	keysDir string
	ttl     time.Duration
}

func parseArgs(argv []string) (args, error) {
	fs := flag.NewFlagSet("phishguard-token", flag.ContinueOnError)
	var (
		client  = fs.String("client", "", "client id to issue the token for")
		scopes  = fs.String("scopes", auth.ScopeScan, "comma separated scopes")
		ttl     = fs.Duration("ttl", 24*time.Hour, "token lifetime")
		keysDir = fs.String("genkeys", "", "write jwt.key and jwt.pub to this directory and exit")
	)
	if err := fs.Parse(argv); err != nil {
		return args{}, err
	}

	a := args{client: *client, ttl: *ttl, keysDir: *keysDir}
	for _, s := range strings.Split(*scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			a.scopes = append(a.scopes, s)
		}
	}
	if a.keysDir == "" && a.client == "" {
		return args{}, errors.New("-client is required")
	}
	return a, nil
}

func run(argv []string, cfg config.AuthConfig, out io.Writer) error {
	a, err := parseArgs(argv)
	if err != nil {
		return err
	}

	if a.keysDir != "" {
		priv, pub, err := auth.GenerateKeyPair()
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(a.keysDir, "jwt.key"), priv, 0o600); err != nil {
			return fmt.Errorf("failed to write private key: %w", err)
		}
		if err := os.WriteFile(filepath.Join(a.keysDir, "jwt.pub"), pub, 0o644); err != nil {
			return fmt.Errorf("failed to write public key: %w", err)
		}
		_, err = fmt.Fprintf(out, "wrote %s and %s\n", filepath.Join(a.keysDir, "jwt.key"), filepath.Join(a.keysDir, "jwt.pub"))
		return err
	}

	jcfg := auth.JWTConfig{Secret: cfg.JWTSecret, Issuer: cfg.Issuer, Expiration: a.ttl}
	if err := jcfg.LoadKeyFiles(cfg.JWTPrivateKeyFile, ""); err != nil {
		return err
	}
	svc, err := auth.NewJWTService(jcfg)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	token, err := svc.GenerateToken(a.client, a.scopes)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

func main() {
	if err := run(os.Args[1:], config.Load().Auth, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "phishguard-token:", err)
		os.Exit(1)
	}
}
