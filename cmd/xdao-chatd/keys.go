package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"xdao.co/catchat/wallet"
)

var (
	keyNameFlag = &cli.StringFlag{
		Name:     "name",
		Usage:    "key name",
		Required: true,
	}
	forceFlag = &cli.BoolFlag{
		Name:  "force",
		Usage: "overwrite an existing key file",
	}
	hexFlag = &cli.StringFlag{
		Name:     "hex",
		Usage:    "secp256k1 private key as 64 hex chars",
		Required: true,
	}
)

var keyCommand = &cli.Command{
	Name:  "key",
	Usage: "manage local signing keys (~/.xdao/chat/keys/<name>.key, 0600)",
	Subcommands: []*cli.Command{
		{
			Name:   "create",
			Usage:  "generate a new key",
			Flags:  []cli.Flag{keyNameFlag, forceFlag, keyDirFlag},
			Action: keyCreate,
		},
		{
			Name:   "import",
			Usage:  "store an existing key",
			Flags:  []cli.Flag{keyNameFlag, hexFlag, forceFlag, keyDirFlag},
			Action: keyImport,
		},
		{
			Name:   "list",
			Usage:  "list stored keys and their addresses",
			Flags:  []cli.Flag{keyDirFlag},
			Action: keyList,
		},
	},
}

func openKeyStore(c *cli.Context) (*wallet.KeyStore, error) {
	ks, err := wallet.OpenKeyStore(c.String(keyDirFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	return ks, nil
}

func keyCreate(c *cli.Context) error {
	ks, err := openKeyStore(c)
	if err != nil {
		return err
	}
	name := c.String(keyNameFlag.Name)
	addr, err := ks.Create(name, c.Bool(forceFlag.Name))
	if err != nil {
		return fmt.Errorf("create key: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Created key: %s %s\n", name, addr.Hex())
	return nil
}

func keyImport(c *cli.Context) error {
	key, err := wallet.ParseKeyHex(strings.TrimSpace(c.String(hexFlag.Name)))
	if err != nil {
		return fmt.Errorf("import key: %w", err)
	}
	ks, err := openKeyStore(c)
	if err != nil {
		return err
	}
	name := c.String(keyNameFlag.Name)
	addr, err := ks.Import(name, key, c.Bool(forceFlag.Name))
	if err != nil {
		return fmt.Errorf("import key: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Imported key: %s %s\n", name, addr.Hex())
	return nil
}

func keyList(c *cli.Context) error {
	ks, err := openKeyStore(c)
	if err != nil {
		return err
	}
	entries, err := ks.List()
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}
	for _, e := range entries {
		fmt.Fprintf(c.App.Writer, "%s\t%s\n", e.Identifier, e.Address.Hex())
	}
	return nil
}
