package multisig

import (
	"github.com/iov-one/cosign/errors"
	"github.com/iov-one/cosign/x/accounts"
	"github.com/iov-one/cosign/x/updates"
)

// ValidateUpdateSignature returns true if the signature was created by the
// authorized key it refers to, over the sign digest of the instruction.
//
// A signature that does not verify, or that refers to a key not authorized
// for the update kind, is reported as false. An error means the check could
// not be done: the key index is out of range or the key is malformed.
func ValidateUpdateSignature(ins *updates.Instruction, sig updates.Signature, keys updates.AuthorizationKeySet) (bool, error) {
	key, err := keys.Key(sig.AuthorizationKeyIndex)
	if err != nil {
		return false, err
	}
	if !keys.IsAuthorized(sig.AuthorizationKeyIndex) {
		return false, nil
	}
	digest, err := ins.SignDigest()
	if err != nil {
		return false, err
	}
	return key.Verify(digest, sig.Signature)
}

// ValidateAccountSignature returns true if the signature was created by the
// account key it refers to, over the sign digest of the transaction.
func ValidateAccountSignature(tx *accounts.Transaction, sig accounts.Signature, keys accounts.AccountKeys) (bool, error) {
	key, err := keys.Key(sig.CredentialIndex, sig.KeyIndex)
	if err != nil {
		return false, err
	}
	digest, err := tx.SignDigest()
	if err != nil {
		return false, err
	}
	return key.Verify(digest, sig.Signature)
}

// CheckDuplicate returns ErrDuplicateSignature if the signer of sig already
// signed the transaction.
func CheckDuplicate(tx Transaction, sig Signature) error {
	switch tx := tx.(type) {
	case *UpdateTransaction:
		s, ok := sig.(UpdateSignature)
		if !ok {
			return errors.Wrapf(errors.ErrInput, "%s signature for an update", sig.TxKind())
		}
		if tx.HasSignature(s.AuthorizationKeyIndex) {
			return errors.Wrapf(errors.ErrDuplicateSignature, "key index %d", s.AuthorizationKeyIndex)
		}
		return nil
	case *AccountTransaction:
		s, ok := sig.(AccountSignature)
		if !ok {
			return errors.Wrapf(errors.ErrInput, "%s signature for an account transaction", sig.TxKind())
		}
		if tx.HasSignature(s.CredentialIndex, s.KeyIndex) {
			return errors.Wrapf(errors.ErrDuplicateSignature, "credential %d key %d", s.CredentialIndex, s.KeyIndex)
		}
		return nil
	default:
		return errors.WithType(errors.ErrHuman, tx)
	}
}
