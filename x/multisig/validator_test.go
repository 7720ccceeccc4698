package multisig_test

import (
	"testing"

	"github.com/iov-one/cosign/cosigntest"
	"github.com/iov-one/cosign/crypto"
	"github.com/iov-one/cosign/errors"
	"github.com/iov-one/cosign/x/accounts"
	"github.com/iov-one/cosign/x/multisig"
	"github.com/iov-one/cosign/x/updates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUpdateSignature(t *testing.T) {
	keys := cosigntest.NewKeys(3)
	tx := cosigntest.EuroPerEnergy(deadline())
	digest, err := tx.SignDigest()
	require.NoError(t, err)

	set := updates.AuthorizationKeySet{
		Level:      updates.Level2,
		Keys:       append(cosigntest.PublicKeys(keys), crypto.VerifyKey{Scheme: crypto.SchemeEd25519, Key: []byte{1, 2}}),
		Authorized: []uint16{0, 1, 3},
		Threshold:  2,
	}

	cases := map[string]struct {
		sig     updates.Signature
		want    bool
		wantErr *errors.Error
	}{
		"valid": {
			sig:  updates.Signature{AuthorizationKeyIndex: 1, Signature: keys[1].Sign(digest)},
			want: true,
		},
		"signed by another key": {
			sig:  updates.Signature{AuthorizationKeyIndex: 1, Signature: keys[0].Sign(digest)},
			want: false,
		},
		"signed another message": {
			sig:  updates.Signature{AuthorizationKeyIndex: 0, Signature: keys[0].Sign([]byte("something else"))},
			want: false,
		},
		"truncated signature": {
			sig:  updates.Signature{AuthorizationKeyIndex: 0, Signature: keys[0].Sign(digest)[:10]},
			want: false,
		},
		"key not authorized for the update type": {
			sig:  updates.Signature{AuthorizationKeyIndex: 2, Signature: keys[2].Sign(digest)},
			want: false,
		},
		"key index out of range": {
			sig:     updates.Signature{AuthorizationKeyIndex: 9, Signature: keys[0].Sign(digest)},
			wantErr: errors.ErrInput,
		},
		"malformed key": {
			sig:     updates.Signature{AuthorizationKeyIndex: 3, Signature: keys[0].Sign(digest)},
			wantErr: errors.ErrCodec,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			ok, err := multisig.ValidateUpdateSignature(tx.Instruction, tc.sig, set)
			if !tc.wantErr.Is(err) {
				t.Fatalf("want %q error, got %+v", tc.wantErr, err)
			}
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestValidateAccountSignature(t *testing.T) {
	signers := cosigntest.NewKeys(2)
	tx := cosigntest.SimpleTransfer(cosigntest.Address(1), deadline())
	digest, err := tx.SignDigest()
	require.NoError(t, err)

	keys := cosigntest.AccountKeys(cosigntest.PublicKeys(signers), 2)

	cases := map[string]struct {
		sig     accounts.Signature
		want    bool
		wantErr *errors.Error
	}{
		"valid": {
			sig:  accounts.Signature{CredentialIndex: 0, KeyIndex: 1, Signature: signers[1].Sign(digest)},
			want: true,
		},
		"signed by another key": {
			sig:  accounts.Signature{CredentialIndex: 0, KeyIndex: 0, Signature: signers[1].Sign(digest)},
			want: false,
		},
		"unknown credential": {
			sig:     accounts.Signature{CredentialIndex: 4, KeyIndex: 0, Signature: signers[0].Sign(digest)},
			wantErr: errors.ErrInput,
		},
		"unknown key": {
			sig:     accounts.Signature{CredentialIndex: 0, KeyIndex: 7, Signature: signers[0].Sign(digest)},
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			ok, err := multisig.ValidateAccountSignature(tx.Transaction, tc.sig, keys)
			if !tc.wantErr.Is(err) {
				t.Fatalf("want %q error, got %+v", tc.wantErr, err)
			}
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestCheckDuplicate(t *testing.T) {
	update := cosigntest.EuroPerEnergy(deadline())
	update.Signatures = []updates.Signature{{AuthorizationKeyIndex: 2}}
	transfer := cosigntest.SimpleTransfer(cosigntest.Address(1), deadline())
	transfer.Signatures = []accounts.Signature{{CredentialIndex: 0, KeyIndex: 1}}

	cases := map[string]struct {
		tx      multisig.Transaction
		sig     multisig.Signature
		wantErr *errors.Error
	}{
		"new update signer": {
			tx:  update,
			sig: multisig.UpdateSignature{AuthorizationKeyIndex: 1},
		},
		"same update signer": {
			tx:      update,
			sig:     multisig.UpdateSignature{AuthorizationKeyIndex: 2},
			wantErr: errors.ErrDuplicateSignature,
		},
		"new account signer": {
			tx:  transfer,
			sig: multisig.AccountSignature{CredentialIndex: 1, KeyIndex: 1},
		},
		"same account signer": {
			tx:      transfer,
			sig:     multisig.AccountSignature{CredentialIndex: 0, KeyIndex: 1},
			wantErr: errors.ErrDuplicateSignature,
		},
		"signature of another kind": {
			tx:      transfer,
			sig:     multisig.UpdateSignature{AuthorizationKeyIndex: 1},
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if err := multisig.CheckDuplicate(tc.tx, tc.sig); !tc.wantErr.Is(err) {
				t.Fatalf("want %q error, got %+v", tc.wantErr, err)
			}
		})
	}
}
