package main

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v2"

	"xdao.co/catchat/config"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "TOML configuration file",
		EnvVars: []string{"XDAO_CHAT_CONFIG"},
	}
	apiURLFlag = &cli.StringFlag{
		Name:  "api-url",
		Usage: "node RPC endpoint (default: saved endpoint or local node)",
	}
	topicFlag = &cli.StringFlag{
		Name:  "topic",
		Usage: "chat topic",
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "data-dir",
		Usage: "directory holding the local store",
	}
	ethRPCURLFlag = &cli.StringFlag{
		Name:    "eth-rpc-url",
		Usage:   "wallet JSON-RPC endpoint",
		EnvVars: []string{"XDAO_CHAT_ETH_RPC_URL"},
	}
	keyFlag = &cli.StringFlag{
		Name:  "key",
		Usage: "local key used instead of a wallet endpoint",
	}
	keyDirFlag = &cli.StringFlag{
		Name:  "key-dir",
		Usage: "local key directory",
	}
	multibaseFlag = &cli.BoolFlag{
		Name:  "multibase",
		Usage: "use the multibase pubsub encoding of newer nodes",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn or error",
	}
	logEncodingFlag = &cli.StringFlag{
		Name:  "log-encoding",
		Usage: "json, json-hex or console",
	}
	listenFlag = &cli.StringFlag{
		Name:  "listen",
		Usage: "session gRPC listen address",
	}

	daemonFlags = []cli.Flag{
		configFlag, apiURLFlag, topicFlag, dataDirFlag, ethRPCURLFlag, keyFlag,
		keyDirFlag, multibaseFlag, logLevelFlag, logEncodingFlag, listenFlag,
	}
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "xdao-chatd",
		Usage:     "verifiable chat identity and messaging daemon",
		Writer:    out,
		ErrWriter: errOut,
		Flags:     daemonFlags,
		Action:    serve,
		Commands: []*cli.Command{
			{
				Name:   "dumpconfig",
				Usage:  "print the effective configuration as TOML",
				Flags:  daemonFlags,
				Action: dumpConfig,
			},
			keyCommand,
			ctlCommand,
		},
	}
}

// loadConfig layers the config file, then explicitly set flags, over the
// defaults.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String(configFlag.Name); path != "" {
		if err := config.ReadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	overrides := []struct {
		flag *cli.StringFlag
		dst  *string
	}{
		{apiURLFlag, &cfg.APIURL},
		{topicFlag, &cfg.Topic},
		{dataDirFlag, &cfg.DataDir},
		{ethRPCURLFlag, &cfg.EthRPCURL},
		{keyFlag, &cfg.Key},
		{keyDirFlag, &cfg.KeyDir},
		{logLevelFlag, &cfg.LogLevel},
		{logEncodingFlag, &cfg.LogEncoding},
		{listenFlag, &cfg.Listen},
	}
	for _, s := range overrides {
		if c.IsSet(s.flag.Name) {
			*s.dst = c.String(s.flag.Name)
		}
	}
	if c.IsSet(multibaseFlag.Name) {
		cfg.Multibase = c.Bool(multibaseFlag.Name)
	}
	return cfg, cfg.Validate()
}

func dumpConfig(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return toml.NewEncoder(c.App.Writer).Encode(cfg)
}
