package multisig_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iov-one/cosign/cosigntest"
	"github.com/iov-one/cosign/crypto"
	"github.com/iov-one/cosign/errors"
	"github.com/iov-one/cosign/x/multisig"
	"github.com/iov-one/cosign/x/updates"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestControllerCreate(t *testing.T) {
	signed := cosigntest.EuroPerEnergy(deadline())
	signed.Signatures = []updates.Signature{{AuthorizationKeyIndex: 0, Signature: make([]byte, 64)}}
	resized := cosigntest.EuroPerEnergy(deadline())
	resized.Header.PayloadSize += 5
	resizedTransfer := cosigntest.SimpleTransfer(cosigntest.Address(1), deadline())
	resizedTransfer.Header.PayloadSize = 0

	cases := map[string]struct {
		tx        multisig.Transaction
		threshold int
		wantErr   *errors.Error
		wantKind  multisig.TxKind
	}{
		"update": {
			tx:        cosigntest.EuroPerEnergy(deadline()),
			threshold: 2,
			wantKind:  multisig.KindUpdate,
		},
		"account transaction": {
			tx:        cosigntest.SimpleTransfer(cosigntest.Address(1), deadline()),
			threshold: 1,
			wantKind:  multisig.KindAccount,
		},
		"largest threshold": {
			tx:        cosigntest.EuroPerEnergy(deadline()),
			threshold: multisig.MaxThreshold,
			wantKind:  multisig.KindUpdate,
		},
		"missing transaction": {
			threshold: 1,
			wantErr:   errors.ErrInput,
		},
		"zero threshold": {
			tx:        cosigntest.EuroPerEnergy(deadline()),
			threshold: 0,
			wantErr:   errors.ErrInput,
		},
		"threshold too high": {
			tx:        cosigntest.EuroPerEnergy(deadline()),
			threshold: multisig.MaxThreshold + 1,
			wantErr:   errors.ErrInput,
		},
		"already signed": {
			tx:        signed,
			threshold: 1,
			wantErr:   errors.ErrInput,
		},
		"invalid transaction": {
			tx:        cosigntest.EuroPerEnergy(time.Unix(0, 0)),
			threshold: 1,
			wantErr:   errors.ErrInput,
		},
		"deadline passed": {
			tx:        cosigntest.EuroPerEnergy(cosigntest.Now.Add(-time.Minute)),
			threshold: 1,
			wantErr:   errors.ErrExpired,
		},
		"payload size mismatch": {
			tx:        resized,
			threshold: 1,
			wantErr:   errors.ErrCodec,
		},
		"missing account payload size": {
			tx:        resizedTransfer,
			threshold: 1,
			wantErr:   errors.ErrCodec,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t)
			p, err := f.ctl.Create(context.Background(), tc.tx, tc.threshold)
			if !tc.wantErr.Is(err) {
				t.Fatalf("want %q error, got %+v", tc.wantErr, err)
			}
			if tc.wantErr != nil {
				all, err := f.ctl.List()
				require.NoError(t, err)
				assert.Empty(t, all)
				return
			}

			assert.Equal(t, uint64(1), p.ID)
			assert.Equal(t, multisig.StatusOpen, p.Status)
			assert.Equal(t, tc.wantKind, p.Kind)
			assert.Equal(t, tc.tx.Type(), p.Type)
			assert.Equal(t, uint32(tc.threshold), p.Threshold)
			assert.Equal(t, uint32(0), p.Signatures)
			assert.Equal(t, tc.tx.Deadline(), p.Deadline)
			assert.Equal(t, cosigntest.Now.Unix(), p.CreatedAt.Time().Unix())

			stored, err := f.ctl.Get(p.ID)
			require.NoError(t, err)
			assert.Equal(t, p, stored)
		})
	}
}

func TestControllerCreateAssignsIDs(t *testing.T) {
	f := newFixture(t)
	for i := 1; i <= 3; i++ {
		p := f.createUpdate(t, 1)
		assert.Equal(t, uint64(i), p.ID)
	}
}

func TestControllerAddSignature(t *testing.T) {
	cases := map[string]struct {
		threshold int
		// setup prepares the proposal and returns the signature to add.
		setup     func(t *testing.T, f *fixture, p *multisig.Proposal) multisig.Signature
		id        uint64
		wantErr   *errors.Error
		wantCount uint32
	}{
		"first signature": {
			threshold: 2,
			setup: func(t *testing.T, f *fixture, p *multisig.Proposal) multisig.Signature {
				return f.updateSig(t, p, 1)
			},
			wantCount: 1,
		},
		"signature reaching the threshold": {
			threshold: 2,
			setup: func(t *testing.T, f *fixture, p *multisig.Proposal) multisig.Signature {
				_, err := f.ctl.AddSignature(context.Background(), p.ID, f.updateSig(t, p, 0))
				require.NoError(t, err)
				return f.updateSig(t, p, 2)
			},
			wantCount: 2,
		},
		"unknown proposal": {
			threshold: 1,
			setup: func(t *testing.T, f *fixture, p *multisig.Proposal) multisig.Signature {
				return f.updateSig(t, p, 0)
			},
			id:        42,
			wantErr:   errors.ErrNotFound,
			wantCount: 0,
		},
		"closed proposal": {
			threshold: 2,
			setup: func(t *testing.T, f *fixture, p *multisig.Proposal) multisig.Signature {
				_, err := f.ctl.Close(p.ID)
				require.NoError(t, err)
				return f.updateSig(t, p, 0)
			},
			wantErr:   errors.ErrProposalTerminal,
			wantCount: 0,
		},
		"signature of another kind": {
			threshold: 2,
			setup: func(t *testing.T, f *fixture, p *multisig.Proposal) multisig.Signature {
				return f.accountSig(t, p, 0)
			},
			wantErr:   errors.ErrInput,
			wantCount: 0,
		},
		"duplicate signer": {
			threshold: 3,
			setup: func(t *testing.T, f *fixture, p *multisig.Proposal) multisig.Signature {
				_, err := f.ctl.AddSignature(context.Background(), p.ID, f.updateSig(t, p, 0))
				require.NoError(t, err)
				return f.updateSig(t, p, 0)
			},
			wantErr:   errors.ErrDuplicateSignature,
			wantCount: 1,
		},
		"duplicate is reported before the threshold": {
			threshold: 1,
			setup: func(t *testing.T, f *fixture, p *multisig.Proposal) multisig.Signature {
				_, err := f.ctl.AddSignature(context.Background(), p.ID, f.updateSig(t, p, 0))
				require.NoError(t, err)
				return f.updateSig(t, p, 0)
			},
			wantErr:   errors.ErrDuplicateSignature,
			wantCount: 1,
		},
		"threshold already met": {
			threshold: 1,
			setup: func(t *testing.T, f *fixture, p *multisig.Proposal) multisig.Signature {
				_, err := f.ctl.AddSignature(context.Background(), p.ID, f.updateSig(t, p, 0))
				require.NoError(t, err)
				return f.updateSig(t, p, 1)
			},
			wantErr:   errors.ErrThresholdAlreadyMet,
			wantCount: 1,
		},
		"signature of another message": {
			threshold: 2,
			setup: func(t *testing.T, f *fixture, p *multisig.Proposal) multisig.Signature {
				return multisig.UpdateSignature{
					AuthorizationKeyIndex: 1,
					Signature:             f.keys[1].Sign([]byte("not the digest")),
				}
			},
			wantErr:   errors.ErrInvalidSignature,
			wantCount: 0,
		},
		"signature claiming another key": {
			threshold: 2,
			setup: func(t *testing.T, f *fixture, p *multisig.Proposal) multisig.Signature {
				sig := f.updateSig(t, p, 1)
				sig.AuthorizationKeyIndex = 2
				return sig
			},
			wantErr:   errors.ErrInvalidSignature,
			wantCount: 0,
		},
		"key index out of range": {
			threshold: 2,
			setup: func(t *testing.T, f *fixture, p *multisig.Proposal) multisig.Signature {
				sig := f.updateSig(t, p, 1)
				sig.AuthorizationKeyIndex = 17
				return sig
			},
			wantErr:   errors.ErrInvalidSignature,
			wantCount: 0,
		},
		"node unreachable": {
			threshold: 2,
			setup: func(t *testing.T, f *fixture, p *multisig.Proposal) multisig.Signature {
				f.node.SetUnreachable(true)
				return f.updateSig(t, p, 1)
			},
			wantErr:   errors.ErrNodeUnreachable,
			wantCount: 0,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t)
			p := f.createUpdate(t, tc.threshold)
			sig := tc.setup(t, f, p)

			id := p.ID
			if tc.id != 0 {
				id = tc.id
			}
			got, err := f.ctl.AddSignature(context.Background(), id, sig)
			if !tc.wantErr.Is(err) {
				t.Fatalf("want %q error, got %+v", tc.wantErr, err)
			}
			if tc.wantErr == nil {
				assert.Equal(t, tc.wantCount, got.Signatures)
			}

			stored, err := f.ctl.Get(p.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantCount, stored.Signatures)
			tx, err := stored.Tx()
			require.NoError(t, err)
			assert.Equal(t, int(tc.wantCount), tx.SignatureCount())
		})
	}
}

func TestControllerAddAccountSignature(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.createTransfer(t, 2)

	got, err := f.ctl.AddSignature(ctx, p.ID, f.accountSig(t, p, 0))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), got.Signatures)
	assert.False(t, got.Eligible())

	_, err = f.ctl.AddSignature(ctx, p.ID, f.accountSig(t, p, 0))
	assert.True(t, errors.ErrDuplicateSignature.Is(err))

	unknown := f.accountSig(t, p, 1)
	unknown.CredentialIndex = 5
	_, err = f.ctl.AddSignature(ctx, p.ID, unknown)
	assert.True(t, errors.ErrInvalidSignature.Is(err))

	got, err = f.ctl.AddSignature(ctx, p.ID, f.accountSig(t, p, 1))
	require.NoError(t, err)
	assert.True(t, got.Eligible())

	f.node.Accounts = nil
	_, err = f.ctl.AddSignature(ctx, f.createTransfer(t, 1).ID, f.accountSig(t, p, 1))
	assert.True(t, errors.ErrNotFound.Is(err), "account unknown to the node")
}

func TestControllerConcurrentSignatures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.createUpdate(t, 3)

	var g errgroup.Group
	for i := range f.keys {
		sig := f.updateSig(t, p, i)
		g.Go(func() error {
			_, err := f.ctl.AddSignature(ctx, p.ID, sig)
			return err
		})
	}
	require.NoError(t, g.Wait())

	got, err := f.ctl.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), got.Signatures)
	assert.True(t, got.Eligible())
}

func TestControllerConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.createUpdate(t, 3)
	sig := f.updateSig(t, p, 1)

	const attempts = 8
	errs := make([]error, attempts)
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		i := i
		g.Go(func() error {
			_, errs[i] = f.ctl.AddSignature(ctx, p.ID, sig)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var accepted int
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.True(t, errors.ErrDuplicateSignature.Is(err), "%+v", err)
	}
	assert.Equal(t, 1, accepted)

	got, err := f.ctl.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), got.Signatures)
}

func TestControllerSign(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	update := f.createUpdate(t, 1)
	got, err := f.ctl.Sign(ctx, update.ID, f.device, devicePath)
	require.NoError(t, err)
	assert.True(t, got.Eligible())
	tx, err := got.Tx()
	require.NoError(t, err)
	sigs, err := multisig.Signatures(tx)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, uint16(len(f.keys)), sigs[0].(multisig.UpdateSignature).AuthorizationKeyIndex)

	transfer := f.createTransfer(t, 1)
	got, err = f.ctl.Sign(ctx, transfer.ID, f.device, devicePath)
	require.NoError(t, err)
	tx, err = got.Tx()
	require.NoError(t, err)
	sigs, err = multisig.Signatures(tx)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, uint8(len(f.keys)), sigs[0].(multisig.AccountSignature).KeyIndex)

	_, err = f.ctl.Sign(ctx, update.ID, f.device, devicePath)
	assert.True(t, errors.ErrDuplicateSignature.Is(err))

	other := f.createUpdate(t, 1)
	_, err = f.ctl.Sign(ctx, other.ID, f.device, crypto.KeyPath{1105, 0, 0, 0, 1})
	assert.True(t, errors.ErrInput.Is(err), "path of a key unknown to the chain")

	_, err = f.ctl.Sign(ctx, other.ID, cosigntest.NewDevice(7), devicePath)
	assert.True(t, errors.ErrInput.Is(err), "device unknown to the chain")

	stored, err := f.ctl.Get(other.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), stored.Signatures)
}

func TestControllerSignRejectsBeforeDeviceSigns(t *testing.T) {
	cases := map[string]struct {
		threshold int
		prepare   func(t *testing.T, f *fixture, p *multisig.Proposal)
		wantErr   *errors.Error
	}{
		"signed by the device key": {
			threshold: 2,
			prepare: func(t *testing.T, f *fixture, p *multisig.Proposal) {
				_, err := f.ctl.Sign(context.Background(), p.ID, f.device, devicePath)
				require.NoError(t, err)
			},
			wantErr: errors.ErrDuplicateSignature,
		},
		"threshold met": {
			threshold: 1,
			prepare: func(t *testing.T, f *fixture, p *multisig.Proposal) {
				_, err := f.ctl.AddSignature(context.Background(), p.ID, f.updateSig(t, p, 0))
				require.NoError(t, err)
			},
			wantErr: errors.ErrThresholdAlreadyMet,
		},
		"closed": {
			threshold: 1,
			prepare: func(t *testing.T, f *fixture, p *multisig.Proposal) {
				_, err := f.ctl.Close(p.ID)
				require.NoError(t, err)
			},
			wantErr: errors.ErrProposalTerminal,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t)
			p := f.createUpdate(t, tc.threshold)
			tc.prepare(t, f, p)

			device := &countingDevice{Device: f.device}
			_, err := f.ctl.Sign(context.Background(), p.ID, device, devicePath)
			require.True(t, tc.wantErr.Is(err), "got %+v", err)
			assert.Equal(t, 0, device.signs, "device must not be asked to sign")
		})
	}
}

func TestControllerSubmit(t *testing.T) {
	cases := map[string]struct {
		threshold  int
		signatures int
		prepare    func(t *testing.T, f *fixture, p *multisig.Proposal)
		wantErr    *errors.Error
		wantStatus multisig.ProposalStatus
		wantSent   int
	}{
		"accepted": {
			threshold:  2,
			signatures: 2,
			wantStatus: multisig.StatusSubmitted,
			wantSent:   1,
		},
		"missing signatures": {
			threshold:  2,
			signatures: 1,
			wantErr:    errors.ErrState,
			wantStatus: multisig.StatusOpen,
		},
		"deadline passed": {
			threshold:  1,
			signatures: 1,
			prepare: func(t *testing.T, f *fixture, p *multisig.Proposal) {
				f.clock.Add(time.Hour + time.Second)
			},
			wantErr:    errors.ErrExpired,
			wantStatus: multisig.StatusFailed,
		},
		"submitted at the deadline": {
			threshold:  1,
			signatures: 1,
			prepare: func(t *testing.T, f *fixture, p *multisig.Proposal) {
				f.clock.Add(time.Hour)
			},
			wantStatus: multisig.StatusSubmitted,
			wantSent:   1,
		},
		"rejected": {
			threshold:  1,
			signatures: 1,
			prepare: func(t *testing.T, f *fixture, p *multisig.Proposal) {
				f.node.SetReject(true)
			},
			wantErr:    errors.ErrSubmissionRejected,
			wantStatus: multisig.StatusFailed,
		},
		"node unreachable": {
			threshold:  1,
			signatures: 1,
			prepare: func(t *testing.T, f *fixture, p *multisig.Proposal) {
				f.node.SetUnreachable(true)
			},
			wantErr:    errors.ErrNodeUnreachable,
			wantStatus: multisig.StatusOpen,
		},
		"closed": {
			threshold:  1,
			signatures: 1,
			prepare: func(t *testing.T, f *fixture, p *multisig.Proposal) {
				_, err := f.ctl.Close(p.ID)
				require.NoError(t, err)
			},
			wantErr:    errors.ErrProposalTerminal,
			wantStatus: multisig.StatusClosed,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			p := f.createUpdate(t, tc.threshold)
			for i := 0; i < tc.signatures; i++ {
				_, err := f.ctl.AddSignature(ctx, p.ID, f.updateSig(t, p, i))
				require.NoError(t, err)
			}
			if tc.prepare != nil {
				tc.prepare(t, f, p)
			}

			got, err := f.ctl.Submit(ctx, p.ID)
			if !tc.wantErr.Is(err) {
				t.Fatalf("want %q error, got %+v", tc.wantErr, err)
			}

			stored, err := f.ctl.Get(p.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, stored.Status)
			require.Len(t, f.node.Sent(), tc.wantSent)

			if tc.wantSent == 0 {
				assert.Empty(t, stored.Hash)
				return
			}
			tx, err := stored.Tx()
			require.NoError(t, err)
			payload, err := tx.SubmissionBytes()
			require.NoError(t, err)
			assert.Equal(t, payload, f.node.Sent()[0])
			hash, err := tx.Hash()
			require.NoError(t, err)
			assert.Equal(t, hash, stored.Hash)
			assert.Equal(t, stored, got)
		})
	}
}

func TestControllerSubmitRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.createUpdate(t, 1)
	_, err := f.ctl.AddSignature(ctx, p.ID, f.updateSig(t, p, 0))
	require.NoError(t, err)

	f.node.SetUnreachable(true)
	_, err = f.ctl.Submit(ctx, p.ID)
	require.True(t, errors.ErrNodeUnreachable.Is(err))

	f.node.SetUnreachable(false)
	got, err := f.ctl.Submit(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, multisig.StatusSubmitted, got.Status)

	_, err = f.ctl.Submit(ctx, p.ID)
	assert.True(t, errors.ErrProposalTerminal.Is(err))
	assert.Len(t, f.node.Sent(), 1)
}

func TestControllerRecordOutcome(t *testing.T) {
	cases := map[string]struct {
		submit     bool
		outcome    multisig.ProposalStatus
		wantErr    *errors.Error
		wantStatus multisig.ProposalStatus
	}{
		"finalized": {
			submit:     true,
			outcome:    multisig.StatusFinalized,
			wantStatus: multisig.StatusFinalized,
		},
		"failed on chain": {
			submit:     true,
			outcome:    multisig.StatusFailed,
			wantStatus: multisig.StatusFailed,
		},
		"never finalized": {
			submit:     true,
			outcome:    multisig.StatusExpired,
			wantStatus: multisig.StatusExpired,
		},
		"not an outcome": {
			submit:     true,
			outcome:    multisig.StatusClosed,
			wantErr:    errors.ErrInput,
			wantStatus: multisig.StatusSubmitted,
		},
		"not submitted": {
			outcome:    multisig.StatusFinalized,
			wantErr:    errors.ErrState,
			wantStatus: multisig.StatusOpen,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			p := f.createUpdate(t, 1)
			_, err := f.ctl.AddSignature(ctx, p.ID, f.updateSig(t, p, 0))
			require.NoError(t, err)
			if tc.submit {
				_, err := f.ctl.Submit(ctx, p.ID)
				require.NoError(t, err)
			}

			_, err = f.ctl.RecordOutcome(p.ID, tc.outcome)
			if !tc.wantErr.Is(err) {
				t.Fatalf("want %q error, got %+v", tc.wantErr, err)
			}
			stored, err := f.ctl.Get(p.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, stored.Status)

			if tc.wantErr == nil {
				_, err := f.ctl.RecordOutcome(p.ID, multisig.StatusFinalized)
				assert.True(t, errors.ErrProposalTerminal.Is(err), "outcome is final")
			}
		})
	}
}

func TestControllerClose(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.createUpdate(t, 2)

	got, err := f.ctl.Close(p.ID)
	require.NoError(t, err)
	assert.Equal(t, multisig.StatusClosed, got.Status)

	_, err = f.ctl.Close(p.ID)
	assert.True(t, errors.ErrProposalTerminal.Is(err))
	_, err = f.ctl.Submit(ctx, p.ID)
	assert.True(t, errors.ErrProposalTerminal.Is(err))
	_, err = f.ctl.Close(99)
	assert.True(t, errors.ErrNotFound.Is(err))
}

func TestControllerExpire(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.createUpdate(t, 2)
	closed := f.createUpdate(t, 2)
	_, err := f.ctl.Close(closed.ID)
	require.NoError(t, err)

	f.clock.Add(time.Hour)
	expired, err := f.ctl.Expire(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, expired, "deadline is not passed yet")

	f.clock.Add(time.Second)
	expired, err = f.ctl.Expire(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, expired)

	stored, err := f.ctl.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, multisig.StatusFailed, stored.Status)

	expired, err = f.ctl.Expire(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, expired, "expiring twice")

	expired, err = f.ctl.Expire(ctx, closed.ID)
	require.NoError(t, err)
	assert.False(t, expired, "closed proposals do not expire")

	_, err = f.ctl.Expire(ctx, 99)
	assert.True(t, errors.ErrNotFound.Is(err))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.ctl.Expire(cancelled, p.ID)
	assert.Error(t, err)
}

func TestControllerListByStatus(t *testing.T) {
	f := newFixture(t)
	first := f.createUpdate(t, 1)
	second := f.createTransfer(t, 1)
	_, err := f.ctl.Close(first.ID)
	require.NoError(t, err)

	open, err := f.ctl.ListByStatus(multisig.StatusOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	all, err := f.ctl.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "#1 update/EuroPerEnergy closed 0/1", multisig.ProposalSummary(all[0]))
}

func TestControllerChainQueries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	seq, err := f.ctl.NextSequenceNumber(ctx, updates.UpdateEuroPerEnergy)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)

	nonce, err := f.ctl.NextNonce(ctx, f.sender)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), nonce)

	_, err = f.ctl.NextNonce(ctx, cosigntest.Address(5))
	assert.True(t, errors.ErrNotFound.Is(err))

	f.node.SetUnreachable(true)
	_, err = f.ctl.NextSequenceNumber(ctx, updates.UpdateEuroPerEnergy)
	assert.True(t, errors.ErrNodeUnreachable.Is(err))
}

func TestControllerImportSignatures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	dir := t.TempDir()

	p := f.createUpdate(t, 2)
	tx, err := p.Tx()
	require.NoError(t, err)

	// Every co-signer exports the transaction with only their signature.
	writeSig := func(name string, tx multisig.Transaction, sig multisig.Signature) string {
		path := filepath.Join(dir, name)
		fd, err := os.Create(path)
		require.NoError(t, err)
		defer fd.Close()
		require.NoError(t, multisig.ExportSignature(tx, sig, fd))
		return path
	}
	first := writeSig("first.json", tx, f.updateSig(t, p, 0))
	again := writeSig("again.json", tx, f.updateSig(t, p, 0))
	second := writeSig("second.json", tx, f.updateSig(t, p, 2))

	other := cosigntest.EuroPerEnergy(deadline().Add(time.Minute))
	otherDigest, err := other.SignDigest()
	require.NoError(t, err)
	foreign := writeSig("foreign.json", other, multisig.UpdateSignature{
		AuthorizationKeyIndex: 1,
		Signature:             f.keys[1].Sign(otherDigest),
	})

	unsigned := filepath.Join(dir, "unsigned.json")
	raw, err := multisig.MarshalTransaction(tx)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(unsigned, raw, 0o600))

	results := f.ctl.ImportSignatures(ctx, p.ID, []string{
		first,
		filepath.Join(dir, "missing.json"),
		again,
		foreign,
		unsigned,
		second,
	})
	require.Len(t, results, 6)
	wantErrs := []*errors.Error{
		nil,
		errors.ErrInput,
		errors.ErrDuplicateSignature,
		errors.ErrInput,
		errors.ErrInput,
		nil,
	}
	for i, want := range wantErrs {
		if !want.Is(results[i].Err) {
			t.Errorf("%s: want %q error, got %+v", results[i].File, want, results[i].Err)
		}
	}

	got, err := f.ctl.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), got.Signatures)
	assert.True(t, got.Eligible())

	var exported strings.Builder
	require.NoError(t, f.ctl.Export(p.ID, &exported))
	signed, err := multisig.UnmarshalTransaction([]byte(exported.String()))
	require.NoError(t, err)
	assert.Equal(t, 2, signed.SignatureCount())

	// A proposal that cannot be modified rejects every file.
	_, err = f.ctl.Close(p.ID)
	require.NoError(t, err)
	results = f.ctl.ImportSignatures(ctx, p.ID, []string{second})
	assert.True(t, errors.ErrProposalTerminal.Is(results[0].Err))
}

func TestControllerMetrics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.createUpdate(t, 1)

	_, err := f.ctl.AddSignature(ctx, p.ID, f.updateSig(t, p, 0))
	require.NoError(t, err)
	_, err = f.ctl.AddSignature(ctx, p.ID, f.updateSig(t, p, 1))
	require.Error(t, err)
	_, err = f.ctl.Submit(ctx, p.ID)
	require.NoError(t, err)
	_, err = f.ctl.RecordOutcome(p.ID, multisig.StatusFinalized)
	require.NoError(t, err)

	const want = `
# HELP cosign_proposal_created_total Number of created proposals
# TYPE cosign_proposal_created_total counter
cosign_proposal_created_total{kind="update"} 1
# HELP cosign_proposal_signatures_total Number of signatures offered to proposals, by result
# TYPE cosign_proposal_signatures_total counter
cosign_proposal_signatures_total{result="accepted"} 1
cosign_proposal_signatures_total{result="rejected"} 1
# HELP cosign_proposal_transitions_total Number of proposal status changes, by new status
# TYPE cosign_proposal_transitions_total counter
cosign_proposal_transitions_total{status="finalized"} 1
cosign_proposal_transitions_total{status="submitted"} 1
`
	err = testutil.GatherAndCompare(f.registry, strings.NewReader(want),
		"cosign_proposal_created_total",
		"cosign_proposal_signatures_total",
		"cosign_proposal_transitions_total",
	)
	assert.NoError(t, err)
}
