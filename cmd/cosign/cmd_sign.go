package main

import (
	"fmt"
	"os"

	"github.com/iov-one/cosign/crypto"
	"github.com/iov-one/cosign/errors"
	"github.com/iov-one/cosign/store"
	"github.com/iov-one/cosign/x/multisig"
	"github.com/spf13/cobra"
)

// DefaultKeyPath is the path of the first governance key.
const DefaultKeyPath = "1105/0/0/0/0"

type deviceFlags struct {
	seedFile string
	path     string
}

func (f *deviceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.seedFile, "seed-file", os.Getenv("COSIGN_SEED_FILE"), "file with the hex encoded signing seed, COSIGN_SEED_FILE by default")
	cmd.Flags().StringVar(&f.path, "path", DefaultKeyPath, "key path on the signing device")
}

func (f *deviceFlags) open() (crypto.Device, crypto.KeyPath, error) {
	path, err := crypto.ParseKeyPath(f.path)
	if err != nil {
		return nil, nil, err
	}
	device, err := loadDevice(f.seedFile)
	if err != nil {
		return nil, nil, err
	}
	return device, path, nil
}

func newSignCmd(a *app) *cobra.Command {
	var df deviceFlags
	cmd := &cobra.Command{
		Use:   "sign <id>",
		Short: "Sign a proposal with a local key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			device, path, err := df.open()
			if err != nil {
				return err
			}
			ctl, closeFn, err := a.controller(true)
			if err != nil {
				return err
			}
			defer closeFn()

			p, err := ctl.Sign(cmd.Context(), id, device, path)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), multisig.ProposalSummary(p))
			return nil
		},
	}
	df.register(cmd)
	return cmd
}

func newCosignCmd(a *app) *cobra.Command {
	var (
		df  deviceFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "cosign <exported proposal>",
		Short: "Sign a proposal exported by another signer",
		Long: `Sign the transaction of an exported proposal and write it, with only the
new signature, to a file that the proposal owner can import.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readFile(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			tx, err := multisig.UnmarshalTransaction(raw)
			if err != nil {
				return err
			}
			if err := tx.Validate(); err != nil {
				return errors.Wrap(err, "invalid transaction")
			}
			device, path, err := df.open()
			if err != nil {
				return err
			}

			node, err := a.newNode(a.cfg)
			if err != nil {
				return err
			}
			// The proposal is not stored on the co-signer side.
			ctl := multisig.NewController(store.MemStore(), node).WithLogger(a.logger).WithClock(a.clock)
			sig, err := ctl.SignTransaction(cmd.Context(), tx, device, path)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				fd, err := os.OpenFile(out, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
				if err != nil {
					return errors.Wrap(errors.ErrInput, err.Error())
				}
				defer fd.Close()
				w = fd
			}
			if err := multisig.ExportSignature(tx, sig, w); err != nil {
				return err
			}
			a.logger.Info("transaction signed", "type", tx.Type(), "signer", sig.String())
			return nil
		},
	}
	df.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the signed transaction to a new file instead of stdout")
	return cmd
}
