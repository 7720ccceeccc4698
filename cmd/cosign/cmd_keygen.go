package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/crypto"
	"github.com/iov-one/cosign/errors"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ed25519"
)

func newKeygenCmd(a *app) *cobra.Command {
	var (
		out  string
		path string
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create a software signing seed",
		Long: `Create a file holding a new random signing seed and print the public key
of given path. The file is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.Wrap(errors.ErrInput, "--out is required")
			}
			keyPath, err := crypto.ParseKeyPath(path)
			if err != nil {
				return err
			}

			seed := make([]byte, ed25519.SeedSize)
			if _, err := rand.Read(seed); err != nil {
				return errors.Wrap(errors.ErrHuman, err.Error())
			}
			device, err := crypto.NewSoftDevice(seed)
			if err != nil {
				return err
			}
			pub, err := device.PublicKey(cmd.Context(), keyPath)
			if err != nil {
				return err
			}

			// Do not allow to overwrite an existing seed.
			fd, err := os.OpenFile(out, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
			if err != nil {
				return errors.Wrapf(errors.ErrInput, "cannot create seed file: %s", err)
			}
			defer fd.Close()
			if _, err := fmt.Fprintln(fd, hex.EncodeToString(seed)); err != nil {
				return errors.Wrap(errors.ErrInput, err.Error())
			}
			if err := fd.Close(); err != nil {
				return errors.Wrap(errors.ErrInput, err.Error())
			}

			raw, err := json.Marshal(pub)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "seed file to create")
	cmd.Flags().StringVar(&path, "path", DefaultKeyPath, "key path to print the public key of")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// Printing the version must work without a valid configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), cosign.Version())
		},
	}
}
