package command

import (
	"encoding/hex"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/statekeep/pkg/crypto/adaptive"
)

// KeygenCommand returns the keygen command.
func KeygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "print a random encryption key and passphrase salt",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}

			key, err := adaptive.GenerateKey(adaptive.KeyLength)
			if err != nil {
				return err
			}
			defer adaptive.Zero(key)
			salt, err := adaptive.NewSalt()
			if err != nil {
				return err
			}

			return e.print(struct {
				EncryptionKey string `json:"encryption_key"`
				Salt          string `json:"salt"`
				Cipher        string `json:"cipher"`
			}{hex.EncodeToString(key), hex.EncodeToString(salt), string(adaptive.Preferred())})
		},
	}
}
