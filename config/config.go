// Package config loads the chat daemon configuration from a TOML file.
//
// Example:
//
//	api_url      = "http://127.0.0.1:5001/api/v0/"
//	topic        = "chat"
//	data_dir     = "~/.xdao/chat"
//	eth_rpc_url  = "http://127.0.0.1:8545"
//	multibase    = true
//	log_level    = "info"
//	log_encoding = "json-hex"
//	listen       = "127.0.0.1:7780"
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap/zapcore"

	"xdao.co/catchat/credential"
	"xdao.co/catchat/wallet"
)

type Config struct {
	// APIURL is the node RPC endpoint. When empty the endpoint saved in the
	// data directory is used, falling back to the local node.
	APIURL  string `toml:"api_url,omitempty"`
	Topic   string `toml:"topic"`
	// DataDir holds the LevelDB store with the credential pointer and the
	// local copy of credential nodes.
	DataDir string `toml:"data_dir"`

	// EthRPCURL selects a wallet reachable over JSON-RPC. Otherwise Key names
	// a key in KeyDir.
	EthRPCURL   string `toml:"eth_rpc_url,omitempty"`
	ENSRegistry string `toml:"ens_registry,omitempty"`
	Key         string `toml:"key,omitempty"`
	KeyDir      string `toml:"key_dir,omitempty"`

	// Multibase selects the multibase pubsub encoding of newer nodes.
	Multibase bool `toml:"multibase"`
	CacheSize int  `toml:"cache_size,omitempty"`

	LogLevel    string `toml:"log_level"`
	LogEncoding string `toml:"log_encoding"`
	Listen      string `toml:"listen"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	dataDir := ".xdao-chat"
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		dataDir = filepath.Join(home, ".xdao", "chat")
	}
	keyDir, _ := wallet.DefaultKeyDirectory()
	return Config{
		Topic:       "chat",
		DataDir:     dataDir,
		KeyDir:      keyDir,
		CacheSize:   credential.DefaultCacheSize,
		LogLevel:    "info",
		LogEncoding: "json",
		Listen:      "127.0.0.1:7780",
	}
}

// LoadFile reads path over the defaults and validates the result. Keys
// missing from the file keep their default value.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if err := ReadFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ReadFile decodes path over cfg without validating, so callers can apply
// overrides first. Unknown keys are rejected.
func ReadFile(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: empty config path")
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config: unknown key %q", undecoded[0].String())
	}
	return nil
}

func (c Config) Validate() error {
	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: invalid api_url %q", c.APIURL)
		}
	}
	if c.Topic == "" {
		return errors.New("config: topic is required")
	}
	if c.DataDir == "" {
		return errors.New("config: data_dir is required")
	}
	switch {
	case c.EthRPCURL != "" && c.Key != "":
		return errors.New("config: eth_rpc_url and key are mutually exclusive")
	case c.EthRPCURL == "" && c.Key == "":
		return errors.New("config: one of eth_rpc_url or key is required")
	case c.Key != "":
		if err := wallet.CheckKeyName(c.Key); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if c.ENSRegistry != "" && !common.IsHexAddress(c.ENSRegistry) {
		return fmt.Errorf("config: invalid ens_registry %q", c.ENSRegistry)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("config: invalid cache_size %d", c.CacheSize)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: invalid log_level %q", c.LogLevel)
	}
	switch c.LogEncoding {
	case "json", "console", "json-hex":
	default:
		return fmt.Errorf("config: invalid log_encoding %q", c.LogEncoding)
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("config: invalid listen %q", c.Listen)
	}
	return nil
}
