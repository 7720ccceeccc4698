package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/iov-one/cosign/config"
	"github.com/iov-one/cosign/cosigntest"
	"github.com/iov-one/cosign/crypto"
	"github.com/iov-one/cosign/errors"
	"github.com/iov-one/cosign/x/multisig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// env is a home directory shared by several command runs, with a fake
// node that knows two software devices.
type env struct {
	home  string
	node  *cosigntest.FakeNode
	clock *clock.Mock
	seeds []string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	home := t.TempDir()
	path, err := crypto.ParseKeyPath(DefaultKeyPath)
	require.NoError(t, err)

	var (
		pub   []crypto.VerifyKey
		seeds []string
	)
	for _, n := range []byte{42, 43} {
		key, err := cosigntest.NewDevice(n).PublicKey(context.Background(), path)
		require.NoError(t, err)
		pub = append(pub, key)

		seed := filepath.Join(home, "seed-"+hex.EncodeToString([]byte{n}))
		require.NoError(t, os.WriteFile(seed, []byte(hex.EncodeToString(bytes.Repeat([]byte{n}, 32))+"\n"), 0o600))
		seeds = append(seeds, seed)
	}

	return &env{
		home:  home,
		node:  cosigntest.NewFakeNode(cosigntest.BlockSummary(cosigntest.UpdateKeys(pub, 2))),
		clock: cosigntest.NewClock(),
		seeds: seeds,
	}
}

// run executes one command line and returns what it printed.
func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := newApp()
	a.clock = e.clock
	a.newNode = func(*config.Config) (multisig.Node, error) { return e.node, nil }

	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--home", e.home, "--log-level", "none"}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e *env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "cosign %s", strings.Join(args, " "))
	return out
}

// writeUpdate stores an unsigned update without a sequence number.
func (e *env) writeUpdate(t *testing.T, name string, timeout time.Time) string {
	t.Helper()
	tx := cosigntest.EuroPerEnergy(timeout)
	tx.Header.SequenceNumber = 0
	raw, err := multisig.MarshalTransaction(tx)
	require.NoError(t, err)
	fn := filepath.Join(e.home, name)
	require.NoError(t, os.WriteFile(fn, raw, 0o600))
	return fn
}

func TestProposalWorkflow(t *testing.T) {
	e := newEnv(t)
	txFile := e.writeUpdate(t, "update.json", cosigntest.Now.Add(time.Hour))

	out := e.mustRun(t, "propose", "--threshold", "2", txFile)
	assert.Equal(t, "#1 update/EuroPerEnergy open 0/2\n", out)

	out = e.mustRun(t, "sign", "1", "--seed-file", e.seeds[0])
	assert.Equal(t, "#1 update/EuroPerEnergy open 1/2\n", out)

	_, err := e.run(t, "sign", "1", "--seed-file", e.seeds[0])
	require.True(t, errors.ErrDuplicateSignature.Is(err), "got %+v", err)

	_, err = e.run(t, "submit", "1")
	require.True(t, errors.ErrState.Is(err), "not enough signatures, got %+v", err)

	exported := filepath.Join(e.home, "exported.json")
	e.mustRun(t, "export", "1", "--out", exported)
	sigFile := filepath.Join(e.home, "signature.json")
	e.mustRun(t, "cosign", exported, "--seed-file", e.seeds[1], "--out", sigFile)

	// The co-signer does not touch the proposal store.
	out = e.mustRun(t, "list")
	assert.Contains(t, out, "1/2")

	out = e.mustRun(t, "import", "1", sigFile)
	assert.Contains(t, out, sigFile+": imported")
	assert.Contains(t, out, "#1 update/EuroPerEnergy open 2/2")

	out = e.mustRun(t, "submit", "1")
	assert.Contains(t, out, "#1 update/EuroPerEnergy submitted 2/2")
	assert.Contains(t, out, "transaction hash ")
	assert.Len(t, e.node.Sent(), 1)

	out = e.mustRun(t, "outcome", "1", "finalized")
	assert.Equal(t, "#1 update/EuroPerEnergy finalized 2/2\n", out)

	out = e.mustRun(t, "show", "1")
	assert.Contains(t, out, `"status": "finalized"`)
	assert.Contains(t, out, `"hash": "`)

	_, err = e.run(t, "close", "1")
	require.True(t, errors.ErrProposalTerminal.Is(err), "got %+v", err)
}

func TestProposeFillsSequenceNumber(t *testing.T) {
	e := newEnv(t)
	txFile := e.writeUpdate(t, "update.json", cosigntest.Now.Add(time.Hour))

	e.mustRun(t, "propose", txFile)
	exported := filepath.Join(e.home, "exported.json")
	e.mustRun(t, "export", "1", "--out", exported)

	raw, err := os.ReadFile(exported)
	require.NoError(t, err)
	tx, err := multisig.UnmarshalTransaction(raw)
	require.NoError(t, err)
	update, ok := tx.(*multisig.UpdateTransaction)
	require.True(t, ok, "got %T", tx)
	assert.EqualValues(t, 1, update.Header.SequenceNumber)

	// Without filling, the node is not used and the zero value is kept.
	e.node.SetUnreachable(true)
	e.mustRun(t, "propose", "--fill=false", txFile)
}

func TestProposeErrors(t *testing.T) {
	cases := map[string]struct {
		args    func(t *testing.T, e *env) []string
		wantErr *errors.Error
	}{
		"missing file": {
			args: func(t *testing.T, e *env) []string {
				return []string{"propose", filepath.Join(e.home, "nope.json")}
			},
			wantErr: errors.ErrInput,
		},
		"malformed transaction": {
			args: func(t *testing.T, e *env) []string {
				fn := filepath.Join(e.home, "bad.json")
				require.NoError(t, os.WriteFile(fn, []byte(`{"version": 1`), 0o600))
				return []string{"propose", fn}
			},
			wantErr: errors.ErrInput,
		},
		"deadline passed": {
			args: func(t *testing.T, e *env) []string {
				return []string{"propose", e.writeUpdate(t, "old.json", cosigntest.Now.Add(-time.Hour))}
			},
			wantErr: errors.ErrExpired,
		},
		"payload size mismatch": {
			args: func(t *testing.T, e *env) []string {
				tx := cosigntest.EuroPerEnergy(cosigntest.Now.Add(time.Hour))
				tx.Header.PayloadSize++
				raw, err := multisig.MarshalTransaction(tx)
				require.NoError(t, err)
				fn := filepath.Join(e.home, "resized.json")
				require.NoError(t, os.WriteFile(fn, raw, 0o600))
				return []string{"propose", fn}
			},
			wantErr: errors.ErrCodec,
		},
		"node unreachable": {
			args: func(t *testing.T, e *env) []string {
				e.node.SetUnreachable(true)
				return []string{"propose", e.writeUpdate(t, "update.json", cosigntest.Now.Add(time.Hour))}
			},
			wantErr: errors.ErrNodeUnreachable,
		},
		"invalid store backend": {
			args: func(t *testing.T, e *env) []string {
				return []string{"--store", "sqlite", "list"}
			},
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			e := newEnv(t)
			_, err := e.run(t, tc.args(t, e)...)
			require.True(t, tc.wantErr.Is(err), "got %+v", err)
		})
	}
}

func TestWatchOnce(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "propose", e.writeUpdate(t, "soon.json", cosigntest.Now.Add(time.Hour)))
	e.mustRun(t, "propose", e.writeUpdate(t, "later.json", cosigntest.Now.Add(3*time.Hour)))

	out := e.mustRun(t, "watch", "--once")
	assert.Equal(t, "0 proposals expired\n", out)

	e.clock.Add(2 * time.Hour)
	out = e.mustRun(t, "watch", "--once")
	assert.Equal(t, "1 proposals expired\n", out)

	out = e.mustRun(t, "list", "--status", "failed")
	assert.Contains(t, out, "failed")
	assert.NotContains(t, out, "open")

	out = e.mustRun(t, "list", "--status", "open")
	assert.Contains(t, out, "open")
	assert.NotContains(t, out, "failed")
}

func TestKeygen(t *testing.T) {
	e := newEnv(t)
	seed := filepath.Join(e.home, "new-seed")

	out := e.mustRun(t, "keygen", "--out", seed)
	assert.Contains(t, out, `"schemeId":"Ed25519"`)

	device, err := crypto.LoadSoftDevice(seed)
	require.NoError(t, err)
	path, err := crypto.ParseKeyPath(DefaultKeyPath)
	require.NoError(t, err)
	pub, err := device.PublicKey(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, out, hex.EncodeToString(pub.Key))

	_, err = e.run(t, "keygen", "--out", seed)
	require.True(t, errors.ErrInput.Is(err), "seed file must not be overwritten, got %+v", err)

	_, err = e.run(t, "keygen")
	require.True(t, errors.ErrInput.Is(err), "got %+v", err)
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	// An invalid configuration does not prevent printing the version.
	out := e.mustRun(t, "--store", "sqlite", "version")
	assert.NotEmpty(t, strings.TrimSpace(out))
}

func TestParseID(t *testing.T) {
	cases := map[string]struct {
		arg     string
		want    uint64
		wantErr *errors.Error
	}{
		"valid":    {arg: "12", want: 12},
		"zero":     {arg: "0", wantErr: errors.ErrInput},
		"negative": {arg: "-1", wantErr: errors.ErrInput},
		"text":     {arg: "one", wantErr: errors.ErrInput},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			id, err := parseID(tc.arg)
			require.True(t, tc.wantErr.Is(err), "got %+v", err)
			assert.Equal(t, tc.want, id)
		})
	}
}
