package multisig

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/errors"
)

// ImportResult is the outcome of importing one signature file.
type ImportResult struct {
	File string
	Err  error
}

// ImportSignatures adds the signatures found in co-signer files to a
// proposal. Files are processed in order and each one either adds its
// signature or leaves the proposal untouched.
func (c *Controller) ImportSignatures(ctx context.Context, id uint64, files []string) []ImportResult {
	results := make([]ImportResult, 0, len(files))
	for _, f := range files {
		err := c.importFile(ctx, id, f)
		if err != nil {
			c.logger.Error("cannot import signature", "id", id, "file", f, "err", err)
		}
		results = append(results, ImportResult{File: f, Err: err})
	}
	return results
}

func (c *Controller) importFile(ctx context.Context, id uint64, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	sig, err := ReadSignatureFile(raw)
	if err != nil {
		return err
	}

	unlock := c.locks.lock(id)
	defer unlock()

	err = c.update(func(db cosign.KVStore) error {
		if err := c.matchesProposal(db, id, raw); err != nil {
			return err
		}
		_, err := c.addSignature(ctx, db, id, sig)
		return err
	})
	c.metrics.signatureAdded(err)
	return err
}

// matchesProposal returns an error if the signed transaction of a file is
// not the transaction of the proposal.
func (c *Controller) matchesProposal(db cosign.ReadOnlyKVStore, id uint64, raw []byte) error {
	p, err := c.bucket.GetProposal(db, id)
	if err != nil {
		return err
	}
	if p.Status.IsTerminal() {
		return errors.Wrapf(errors.ErrProposalTerminal, "proposal %d is %s", id, p.Status)
	}
	want, err := p.Tx()
	if err != nil {
		return err
	}
	got, err := UnmarshalTransaction(raw)
	if err != nil {
		return err
	}
	wantDigest, err := want.SignDigest()
	if err != nil {
		return err
	}
	gotDigest, err := got.SignDigest()
	if err != nil {
		return err
	}
	if !bytes.Equal(wantDigest, gotDigest) {
		return errors.Wrapf(errors.ErrInput, "file signs a different transaction than proposal %d", id)
	}
	return nil
}

// ReadSignatureFile returns the only signature of an exported transaction.
func ReadSignatureFile(raw []byte) (Signature, error) {
	tx, err := UnmarshalTransaction(raw)
	if err != nil {
		return nil, err
	}
	sigs, err := Signatures(tx)
	if err != nil {
		return nil, err
	}
	if len(sigs) != 1 {
		return nil, errors.Wrapf(errors.ErrInput, "does not contain exactly one signature, found %d", len(sigs))
	}
	return sigs[0], nil
}

// Export writes the transaction of a proposal, with all collected
// signatures, in the exchange format.
func (c *Controller) Export(id uint64, w io.Writer) error {
	p, err := c.Get(id)
	if err != nil {
		return err
	}
	// Re-encode to validate what is written.
	tx, err := p.Tx()
	if err != nil {
		return err
	}
	return writeTransaction(w, tx)
}

// ExportSignature writes the transaction with a single signature. This is
// the file a co-signer hands back to the proposal owner.
func ExportSignature(tx Transaction, sig Signature, w io.Writer) error {
	signed, err := withOnlySignature(tx, sig)
	if err != nil {
		return err
	}
	return writeTransaction(w, signed)
}

// withOnlySignature returns a copy of the transaction carrying only sig.
func withOnlySignature(tx Transaction, sig Signature) (Transaction, error) {
	var cp Transaction
	switch tx := tx.(type) {
	case *UpdateTransaction:
		ins := *tx.Instruction
		ins.Signatures = nil
		cp = &UpdateTransaction{Instruction: &ins}
	case *AccountTransaction:
		t := *tx.Transaction
		t.Signatures = nil
		cp = &AccountTransaction{Transaction: &t}
	default:
		return nil, errors.WithType(errors.ErrHuman, tx)
	}
	if err := appendSignature(cp, sig); err != nil {
		return nil, err
	}
	return cp, nil
}

func writeTransaction(w io.Writer, tx Transaction) error {
	raw, err := MarshalTransaction(tx)
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	if _, err := w.Write(raw); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	return nil
}

