// fte is a standalone command-line driver for the record codec: encode
// and decode single records from the command line, list configured
// languages, and serve the admin/observability HTTP surface.
package main

import (
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v2"

	"github.com/drand/fte/aeadheader"
	"github.com/drand/fte/bigint"
	"github.com/drand/fte/config"
	"github.com/drand/fte/httpapi"
	"github.com/drand/fte/log"
	"github.com/drand/fte/registry"
)

// refreshRate matches the teacher's cmd/drand-cli/control.go spinner
// refresh interval.
const refreshRate = 500 * time.Millisecond

// Automatically set through -ldflags, matching the teacher's
// cmd/drand/main.go version stamping.
var (
	version   = "master"
	gitCommit = "none"
)

func banner() {
	fmt.Printf("fte %v (commit %v)\n", version, gitCommit)
}

var configFlag = &cli.StringFlag{
	Name:     "config",
	Usage:    "Path to the fte TOML configuration file.",
	Required: true,
}

var languageFlag = &cli.StringFlag{
	Name:     "language",
	Usage:    "Name of the configured language to use.",
	Required: true,
}

var secretFlag = &cli.StringFlag{
	Name:     "secret",
	Usage:    "Operator-provisioned master secret used to derive the header AE key.",
	Required: true,
	EnvVars:  []string{"FTE_MASTER_SECRET"},
}

var partitionFlag = &cli.StringFlag{
	Name:  "partition",
	Usage: "Partition name to encode/decode under.",
	Value: "000",
}

var payloadHexFlag = &cli.StringFlag{
	Name:     "payload-hex",
	Usage:    "Hex-encoded plaintext payload to embed (encode only).",
	Required: true,
}

var coverHexFlag = &cli.StringFlag{
	Name:     "covertext-hex",
	Usage:    "Hex-encoded covertext record to decode (decode only).",
	Required: true,
}

var bindFlag = &cli.StringFlag{
	Name:  "bind",
	Usage: "host:port for the admin/observability HTTP surface.",
	Value: "localhost:8080",
}

var tlsDisableFlag = &cli.BoolFlag{
	Name:  "tls-disable",
	Usage: "Serve the admin surface over plain HTTP instead of HTTPS.",
}

var tlsCertFlag = &cli.StringFlag{
	Name:  "tls-cert",
	Usage: "Path to the admin surface's TLS certificate. Generated as a self-signed cert if missing.",
	Value: "fte-server.crt",
}

var tlsKeyFlag = &cli.StringFlag{
	Name:  "tls-key",
	Usage: "Path to the admin surface's TLS key. Generated as a self-signed cert if missing.",
	Value: "fte-server.key",
}

var verboseFlag = &cli.BoolFlag{
	Name:  "verbose",
	Usage: "If set, verbosity is at the debug level.",
}

func loadRegistry(c *cli.Context, logger log.Logger) (*registry.Registry, *config.Config, error) {
	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	ae, err := aeadheader.New([]byte(c.String(secretFlag.Name)))
	if err != nil {
		return nil, nil, fmt.Errorf("building AE primitive: %w", err)
	}
	reg := registry.New(cfg, ae, registry.WithLogger(logger))
	return reg, cfg, nil
}

func encodeAction(c *cli.Context) error {
	logger := log.DefaultLogger()
	reg, _, err := loadRegistry(c, logger)
	if err != nil {
		return err
	}
	codec, err := reg.Codec(c.String(languageFlag.Name))
	if err != nil {
		return fmt.Errorf("resolving language: %w", err)
	}

	raw, err := hex.DecodeString(c.String(payloadHexFlag.Name))
	if err != nil {
		return fmt.Errorf("decoding --payload-hex: %w", err)
	}
	payload := bigint.FromBytes(raw)
	msb := uint64(len(raw)) * 8

	covertext, bitsEncoded, _, err := codec.Encode(msb, payload, c.String(partitionFlag.Name))
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	fmt.Printf("bits_encoded=%d\ncovertext_hex=%s\n", bitsEncoded, hex.EncodeToString(covertext))
	return nil
}

func decodeAction(c *cli.Context) error {
	logger := log.DefaultLogger()
	reg, _, err := loadRegistry(c, logger)
	if err != nil {
		return err
	}
	codec, err := reg.Codec(c.String(languageFlag.Name))
	if err != nil {
		return fmt.Errorf("resolving language: %w", err)
	}

	raw, err := hex.DecodeString(c.String(coverHexFlag.Name))
	if err != nil {
		return fmt.Errorf("decoding --covertext-hex: %w", err)
	}

	bitsDecoded, payload, leftover, err := codec.Decode(raw, c.String(partitionFlag.Name))
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	fmt.Printf("bits_decoded=%d\npayload_hex=%s\nleftover_hex=%s\n",
		bitsDecoded, hex.EncodeToString(payload.Bytes(int(bitsDecoded/8))), hex.EncodeToString(leftover))
	return nil
}

func languagesAction(c *cli.Context) error {
	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	for _, name := range cfg.LanguageNames() {
		lc, _ := cfg.Language(name)
		fmt.Printf("%s\tmtu=%d\tfixed_slice=%v\tallow_ae_bits=%v\n", name, lc.MTU, lc.FixedSlice, lc.AllowAEBits)
	}
	return nil
}

func serveAction(c *cli.Context) error {
	logger := log.DefaultLogger()
	if c.Bool(verboseFlag.Name) {
		logger = log.New(nil, log.DebugLevel, true)
	}
	reg, cfg, err := loadRegistry(c, logger)
	if err != nil {
		return err
	}
	if err := prebuildLanguages(reg, cfg); err != nil {
		return err
	}

	srv := httpapi.New(reg, cfg, logger, fmt.Sprintf("fte/%s", version))
	bind := c.String(bindFlag.Name)
	if c.Bool(tlsDisableFlag.Name) {
		logger.Infow("serving admin surface", "bind", bind, "tls", false)
		return http.ListenAndServe(bind, srv.Handler())
	}

	certPath, keyPath := c.String(tlsCertFlag.Name), c.String(tlsKeyFlag.Name)
	host, _, err := net.SplitHostPort(bind)
	if err != nil {
		host = bind
	}
	if err := httpapi.EnsureSelfSignedCert(certPath, keyPath, host); err != nil {
		return fmt.Errorf("provisioning TLS certificate: %w", err)
	}
	logger.Infow("serving admin surface", "bind", bind, "tls", true, "cert", certPath)
	return srv.ServeTLS(bind, certPath, keyPath)
}

// prebuildLanguages constructs every configured language's Table up front
// (an O(N*|Q|*|Sigma|) build each), with a terminal spinner tracking
// progress the way cmd/drand-cli/control.go's long-running control-plane
// waits do.
func prebuildLanguages(reg *registry.Registry, cfg *config.Config) error {
	names := cfg.LanguageNames()
	s := spinner.New(spinner.CharSets[9], refreshRate)
	var built int
	s.PreUpdate = func(spin *spinner.Spinner) {
		spin.Suffix = fmt.Sprintf("  building languages %d/%d", built, len(names))
	}
	s.Start()
	defer s.Stop()

	for _, name := range names {
		if _, err := reg.Codec(name); err != nil {
			return fmt.Errorf("pre-building language %q: %w", name, err)
		}
		built++
	}
	return nil
}

func main() {
	banner()
	app := &cli.App{
		Name:  "fte",
		Usage: "Format-transforming-encryption record codec: encode, decode, and serve.",
		Commands: []*cli.Command{
			{
				Name:  "encode",
				Usage: "Encode a payload into one covertext record.",
				Flags: []cli.Flag{configFlag, languageFlag, secretFlag, partitionFlag, payloadHexFlag},
				Action: encodeAction,
			},
			{
				Name:  "decode",
				Usage: "Decode one covertext record into its payload.",
				Flags: []cli.Flag{configFlag, languageFlag, secretFlag, partitionFlag, coverHexFlag},
				Action: decodeAction,
			},
			{
				Name:   "languages",
				Usage:  "List configured languages.",
				Flags:  []cli.Flag{configFlag},
				Action: languagesAction,
			},
			{
				Name:  "serve",
				Usage: "Serve the admin/observability HTTP surface (/healthz, /metrics, /languages).",
				Flags: []cli.Flag{
					configFlag, secretFlag, bindFlag, verboseFlag,
					tlsDisableFlag, tlsCertFlag, tlsKeyFlag,
				},
				Action: serveAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
