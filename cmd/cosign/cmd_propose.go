package main

import (
	"fmt"

	"github.com/iov-one/cosign/errors"
	"github.com/iov-one/cosign/x/multisig"
	"github.com/spf13/cobra"
)

func newProposeCmd(a *app) *cobra.Command {
	var (
		threshold int
		fill      bool
	)
	cmd := &cobra.Command{
		Use:   "propose <transaction file>",
		Short: "Create a proposal from an unsigned transaction",
		Long: `Create a proposal from an unsigned transaction file. Use "-" to read the
transaction from stdin.

Unless --fill=false is given, a zero update sequence number or account nonce
is replaced with the next value expected by the node.`,
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

			ctl, closeFn, err := a.controller(fill)
			if err != nil {
				return err
			}
			defer closeFn()

			if fill {
				if err := fillSequence(cmd, ctl, tx); err != nil {
					return err
				}
			}
			p, err := ctl.Create(cmd.Context(), tx, threshold)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), multisig.ProposalSummary(p))
			return nil
		},
	}
	cmd.Flags().IntVar(&threshold, "threshold", 1, "number of signatures required to submit")
	cmd.Flags().BoolVar(&fill, "fill", true, "fill a zero sequence number or nonce from the node")
	return cmd
}

// fillSequence sets the sequence number of an update, or the nonce of an
// account transaction, if it is zero.
func fillSequence(cmd *cobra.Command, ctl *multisig.Controller, tx multisig.Transaction) error {
	switch tx := tx.(type) {
	case *multisig.UpdateTransaction:
		if tx.Header.SequenceNumber != 0 {
			return nil
		}
		seq, err := ctl.NextSequenceNumber(cmd.Context(), tx.Instruction.Kind())
		if err != nil {
			return errors.Wrap(err, "next sequence number")
		}
		tx.Header.SequenceNumber = seq
	case *multisig.AccountTransaction:
		if tx.Header.Nonce != 0 {
			return nil
		}
		nonce, err := ctl.NextNonce(cmd.Context(), tx.Header.Sender)
		if err != nil {
			return errors.Wrap(err, "next nonce")
		}
		tx.Header.Nonce = nonce
	}
	return nil
}
