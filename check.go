package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/whiskeyjimbo/CertMate/internal/certificate"
	"github.com/whiskeyjimbo/CertMate/internal/check"
	"github.com/whiskeyjimbo/CertMate/internal/config"
	"github.com/whiskeyjimbo/CertMate/internal/fetchers"
	"github.com/whiskeyjimbo/CertMate/internal/output"
)

var (
	ErrNoSource        = errors.New("one of --file, --tls, --smtp or --ssh is required")
	ErrMultipleSources = errors.New("only one of --file, --tls, --smtp or --ssh may be given")
)

const (
	defaultNotAfterWarn = "30d"
	defaultNotAfterCrit = "7d"
)

type checkOptions struct {
	file       string
	tls        string
	smtp       string
	ssh        string
	serverName string
	path       string
	timeout    time.Duration
}

func newCheckCmd(state *output.State) *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check one certificate and print the result in monitoring plugin format",
		Long: `Fetch one certificate and verify it against the expectations given as flags.
Only the expectations that are given are checked. The exit code is 0 for OK,
1 for WARN, 2 for CRIT and 3 when the check could not run.

Examples:
  certmate check --file /etc/ssl/certs/web.pem --subject-cn web.example.com
  certmate check --smtp mail.example.com:25 --pubkey-algorithm RSA --pubkey-size 4096
  certmate check --ssh bastion:22 --path /etc/ssl/web.pem --max-validity 398d`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			*state = runCheck(cmd, opts)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.file, "file", "", "Read the certificate from a PEM or DER file")
	flags.StringVar(&opts.tls, "tls", "", "Fetch the certificate from a TLS endpoint (host:port)")
	flags.StringVar(&opts.smtp, "smtp", "", "Fetch the certificate from an SMTP server via STARTTLS (host:port)")
	flags.StringVar(&opts.ssh, "ssh", "", "Read the certificate file given by --path over SSH (host:port)")
	flags.StringVar(&opts.serverName, "server-name", "", "Server name sent with TLS (default: host part of the address)")
	flags.StringVar(&opts.path, "path", "", "Remote certificate path for --ssh")
	flags.DurationVar(&opts.timeout, "timeout", fetchers.GlobalDefaultTimeout, "Fetch timeout")

	flags.String("pubkey-algorithm", "", "Expected public key algorithm (RSA, EC, DSA, GostR3410, GostR3410_2012)")
	flags.Int("pubkey-size", 0, "Expected public key size in bits")
	flags.String("serial", "", "Expected serial number (hex bytes separated by colons)")
	flags.String("signature-algorithm", "", "Expected signature algorithm (RSA, RSASSA_PSS-SHA256, ECDSA, ED25519, ...)")
	flags.String("subject-cn", "", "Expected subject common name")
	flags.StringSlice("subject-alt-names", nil, "DNS names the certificate must carry")
	flags.String("subject-o", "", "Expected subject organization")
	flags.String("subject-ou", "", "Expected subject organizational unit")
	flags.String("issuer-cn", "", "Expected issuer common name")
	flags.String("issuer-o", "", "Expected issuer organization")
	flags.String("issuer-ou", "", "Expected issuer organizational unit")
	flags.String("issuer-st", "", "Expected issuer state or province")
	flags.String("issuer-c", "", "Expected issuer country")
	flags.String("not-after-warn", defaultNotAfterWarn, "Warn when the certificate expires within this duration")
	flags.String("not-after-crit", defaultNotAfterCrit, "Critical when the certificate expires within this duration")
	flags.String("max-validity", "", "Maximum allowed total validity")

	return cmd
}

func runCheck(cmd *cobra.Command, opts checkOptions) output.State {
	w := cmd.OutOrStdout()

	logger, err := initLogger(zapcore.WarnLevel, verboseFlag(cmd))
	if err != nil {
		return output.Unknown(w, err)
	}
	defer logger.Sync()

	cfg, err := expectationsFromFlags(cmd)
	if err != nil {
		return output.Unknown(w, err)
	}
	protocol, target, err := opts.source()
	if err != nil {
		return output.Unknown(w, err)
	}

	fetcher, err := fetchers.NewFetcher(protocol, logger)
	if err != nil {
		return output.Unknown(w, err)
	}
	if err := fetcher.SetTimeout(opts.timeout); err != nil {
		logger.Warnw("Timeout out of range, clamped", "timeout", fetcher.GetTimeout(), "error", err)
	}

	report := fetchAndCheck(cmd.Context(), logger, fetcher, target, cfg)
	state, err := output.Write(w, report)
	if err != nil {
		logger.Error(err)
	}
	return state
}

func fetchAndCheck(ctx context.Context, logger *zap.SugaredLogger, fetcher fetchers.Fetcher, target fetchers.Target, cfg certificate.Config) check.Collection {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	der, err := fetcher.Fetch(ctx, target)
	logger.Debugw("Fetched certificate",
		"protocol", fetcher.Protocol(),
		"target", target.Name,
		"latency_ms", time.Since(start).Milliseconds(),
		"bytes", len(der),
	)
	if err != nil {
		return certificate.FetchFailure(err)
	}
	return certificate.Check(der, cfg)
}

// source resolves the single certificate source the flags name.
func (o checkOptions) source() (fetchers.Protocol, fetchers.Target, error) {
	var protocol fetchers.Protocol
	var target fetchers.Target
	found := 0

	if o.file != "" {
		protocol, target = fetchers.FILE, fetchers.Target{Name: o.file, Path: o.file}
		found++
	}
	if o.tls != "" {
		protocol, target = fetchers.TLS, fetchers.Target{Name: o.tls, Address: o.tls, ServerName: o.serverName}
		found++
	}
	if o.smtp != "" {
		protocol, target = fetchers.SMTP, fetchers.Target{Name: o.smtp, Address: o.smtp, ServerName: o.serverName}
		found++
	}
	if o.ssh != "" {
		protocol, target = fetchers.SSH, fetchers.Target{Name: o.ssh, Address: o.ssh, Path: o.path}
		found++
	}

	switch found {
	case 0:
		return "", fetchers.Target{}, ErrNoSource
	case 1:
		return protocol, target, nil
	default:
		return "", fetchers.Target{}, ErrMultipleSources
	}
}

// expectationsFromFlags maps the expectation flags onto a certificate.Config.
// Flags that were not given stay nil and their rule does not run.
func expectationsFromFlags(cmd *cobra.Command) (certificate.Config, error) {
	flags := cmd.Flags()
	var cfg certificate.Config

	stringFlags := []struct {
		name   string
		target **string
	}{
		{"pubkey-algorithm", &cfg.PubkeyAlgorithm},
		{"serial", &cfg.Serial},
		{"subject-cn", &cfg.SubjectCN},
		{"subject-o", &cfg.SubjectO},
		{"subject-ou", &cfg.SubjectOU},
		{"issuer-cn", &cfg.IssuerCN},
		{"issuer-o", &cfg.IssuerO},
		{"issuer-ou", &cfg.IssuerOU},
		{"issuer-st", &cfg.IssuerST},
		{"issuer-c", &cfg.IssuerC},
	}
	for _, s := range stringFlags {
		if !flags.Changed(s.name) {
			continue
		}
		v, err := flags.GetString(s.name)
		if err != nil {
			return certificate.Config{}, err
		}
		*s.target = certificate.Expect(v)
	}

	if flags.Changed("pubkey-size") {
		size, err := flags.GetInt("pubkey-size")
		if err != nil {
			return certificate.Config{}, err
		}
		cfg.PubkeySize = certificate.Expect(size)
	}

	if flags.Changed("signature-algorithm") {
		v, err := flags.GetString("signature-algorithm")
		if err != nil {
			return certificate.Config{}, err
		}
		sig, err := certificate.ParseSignatureAlgorithm(v)
		if err != nil {
			return certificate.Config{}, err
		}
		cfg.SignatureAlgorithm = &sig
	}

	if flags.Changed("subject-alt-names") {
		names, err := flags.GetStringSlice("subject-alt-names")
		if err != nil {
			return certificate.Config{}, err
		}
		cfg.SubjectAltNames = certificate.Expect(names)
	}

	if flags.Changed("not-after-warn") || flags.Changed("not-after-crit") {
		warn, err := durationFlag(cmd, "not-after-warn")
		if err != nil {
			return certificate.Config{}, err
		}
		crit, err := durationFlag(cmd, "not-after-crit")
		if err != nil {
			return certificate.Config{}, err
		}
		cfg.NotAfter = certificate.Expect(check.LowerLevels(warn, crit))
	}

	if flags.Changed("max-validity") {
		maxValidity, err := durationFlag(cmd, "max-validity")
		if err != nil {
			return certificate.Config{}, err
		}
		cfg.MaxValidity = certificate.Expect(maxValidity)
	}

	if err := cfg.Validate(); err != nil {
		return certificate.Config{}, err
	}
	return cfg, nil
}

func durationFlag(cmd *cobra.Command, name string) (time.Duration, error) {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return 0, err
	}
	d, err := config.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}
