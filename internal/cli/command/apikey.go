package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/srvboot-go/pkg/token"
)

// APIKeyCommand returns the apikey subcommand group.
func APIKeyCommand() *cli.Command {
	return &cli.Command{
		Name:    "apikey",
		Aliases: []string{"ak"},
		Usage:   "API key tools",
		Subcommands: []*cli.Command{
			{
				Name:   "generate",
				Usage:  "Generate a key and the hash to put in interceptors.api_keys.keys",
				Action: apikeyGenerateAction,
			},
			{
				Name:      "hash",
				Usage:     "Hash an existing secret",
				ArgsUsage: "SECRET",
				Action:    apikeyHashAction,
			},
			{
				Name:      "verify",
				Usage:     "Check a secret against a hash",
				ArgsUsage: "SECRET HASH",
				Action:    apikeyVerifyAction,
			},
		},
	}
}

// GeneratedKey is printed by "apikey generate". The secret is shown once.
type GeneratedKey struct {
	ID     string `json:"id" yaml:"id"`
	Secret string `json:"secret" yaml:"secret"`
	Hash   string `json:"hash" yaml:"hash"`
	Header string `json:"header" yaml:"header" table:"wide"`
}

func apikeyGenerateAction(c *cli.Context) error {
	id, secret, err := token.NewKey()
	if err != nil {
		return err
	}
	hash, err := token.Hash(secret)
	if err != nil {
		return err
	}
	if err := printResult(c, GeneratedKey{
		ID:     id,
		Secret: secret,
		Hash:   hash,
		Header: "Authorization: Bearer " + id + ":" + secret,
	}); err != nil {
		return err
	}
	fmt.Fprintln(stderr(c), "store the secret now; only the hash belongs in the server configuration")
	return nil
}

func apikeyHashAction(c *cli.Context) error {
	secret := strings.TrimSpace(c.Args().First())
	if secret == "" {
		return cli.Exit("hash requires a SECRET", 2)
	}
	hash, err := token.Hash(secret)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout(c), hash)
	return nil
}

func apikeyVerifyAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("verify requires SECRET and HASH", 2)
	}
	ok, err := token.Verify(c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		if errors.Is(err, token.ErrMalformedHash) {
			return cli.Exit(err.Error(), 2)
		}
		return err
	}
	if !ok {
		return cli.Exit("secret does not match", 1)
	}
	fmt.Fprintln(stdout(c), "secret matches")
	return nil
}
