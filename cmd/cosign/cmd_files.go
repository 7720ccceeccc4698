package main

import (
	"fmt"
	"os"

	"github.com/iov-one/cosign/errors"
	"github.com/iov-one/cosign/x/multisig"
	"github.com/spf13/cobra"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <id> <signature file>...",
		Short: "Add signatures from files written by co-signers",
		Long: `Add signatures from files written by "cosign cosign". Each file must hold
the transaction of the proposal with exactly one signature. Files are
imported one by one and a rejected file does not stop the others.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctl, closeFn, err := a.controller(true)
			if err != nil {
				return err
			}
			defer closeFn()

			var failed int
			out := cmd.OutOrStdout()
			for _, res := range ctl.ImportSignatures(cmd.Context(), id, args[1:]) {
				if res.Err != nil {
					failed++
					fmt.Fprintf(out, "%s: %s\n", res.File, res.Err)
					continue
				}
				fmt.Fprintf(out, "%s: imported\n", res.File)
			}

			p, err := ctl.Get(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, multisig.ProposalSummary(p))
			if failed > 0 {
				return errors.Wrapf(errors.ErrInput, "%d of %d files rejected", failed, len(args)-1)
			}
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write the transaction of a proposal with all its signatures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctl, closeFn, err := a.controller(false)
			if err != nil {
				return err
			}
			defer closeFn()

			w := cmd.OutOrStdout()
			if out != "" {
				fd, err := os.Create(out)
				if err != nil {
					return errors.Wrap(errors.ErrInput, err.Error())
				}
				defer fd.Close()
				w = fd
			}
			return ctl.Export(id, w)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to a file instead of stdout")
	return cmd
}
