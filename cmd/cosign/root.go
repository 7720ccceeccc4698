package main

import (
	"context"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/client"
	"github.com/iov-one/cosign/config"
	"github.com/iov-one/cosign/crypto"
	"github.com/iov-one/cosign/errors"
	"github.com/iov-one/cosign/store"
	"github.com/iov-one/cosign/x/multisig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tendermint/tendermint/libs/log"
)

// app holds what all commands share. Tests replace the node and the clock.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	logger  log.Logger
	clock   clock.Clock
	newNode func(cfg *config.Config) (multisig.Node, error)
	// registry collects the metrics served by the watch command.
	registry *prometheus.Registry
	metrics  *multisig.Metrics
}

func newApp() *app {
	reg := prometheus.NewRegistry()
	return &app{
		v:        config.New(),
		logger:   cosign.DefaultLogger,
		clock:    clock.New(),
		newNode:  dialNode,
		registry: reg,
		metrics:  multisig.NewMetrics(reg),
	}
}

func dialNode(cfg *config.Config) (multisig.Node, error) {
	if cfg.Node.Endpoint == "" {
		return nil, errors.Wrap(errors.ErrInput, "node endpoint is not configured, use --node or COSIGN_NODE_ENDPOINT")
	}
	return client.NewClient(cfg.Node.Endpoint, cfg.Node.Timeout).WithNetworkID(cfg.Node.NetworkID), nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "cosign",
		Short:         "Collect signatures for multi-signature transactions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}

	fl := root.PersistentFlags()
	fl.String("home", config.DefaultHome(), "directory holding the config file and the proposal store")
	fl.String("store", store.BackendBolt, "proposal store backend: memory, bolt or leveldb")
	fl.String("store-path", "", "proposal store location, defaults to a path in the home directory")
	fl.String("node", "", "JSON-RPC endpoint of the node")
	fl.Duration("node-timeout", 10*time.Second, "node request timeout")
	fl.String("log-level", "info", "log level: debug, info, error or none")
	fl.String("log-format", "plain", "log format: plain or json")
	bind(a.v, config.KeyHome, fl.Lookup("home"))
	bind(a.v, config.KeyStoreBackend, fl.Lookup("store"))
	bind(a.v, config.KeyStorePath, fl.Lookup("store-path"))
	bind(a.v, config.KeyNodeEndpoint, fl.Lookup("node"))
	bind(a.v, config.KeyNodeTimeout, fl.Lookup("node-timeout"))
	bind(a.v, config.KeyLogLevel, fl.Lookup("log-level"))
	bind(a.v, config.KeyLogFormat, fl.Lookup("log-format"))

	root.AddCommand(
		newProposeCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newSignCmd(a),
		newCosignCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newSubmitCmd(a),
		newCloseCmd(a),
		newOutcomeCmd(a),
		newWatchCmd(a),
		newKeygenCmd(a),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration and creates the logger.
func (a *app) load(stderr io.Writer) error {
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	logger, err := cosign.NewLogger(stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// controller opens the store and returns a controller using it. The
// returned function closes the store.
func (a *app) controller(withNode bool) (*multisig.Controller, func(), error) {
	var node multisig.Node = offlineNode{}
	if withNode {
		n, err := a.newNode(a.cfg)
		if err != nil {
			return nil, nil, err
		}
		node = n
	}
	db, err := store.Open(a.cfg.Store.Backend, a.cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}
	ctl := multisig.NewController(db, node).
		WithLogger(a.logger).
		WithClock(a.clock).
		WithMetrics(a.metrics)
	closeFn := func() {
		if err := db.Close(); err != nil {
			a.logger.Error("cannot close store", "err", err)
		}
	}
	return ctl, closeFn, nil
}

// offlineNode is used by commands that must not talk to the node.
type offlineNode struct{}

var errOffline = errors.Wrap(errors.ErrNodeUnreachable, "command runs without a node")

func (offlineNode) ConsensusStatus(context.Context) (*multisig.ConsensusStatus, error) {
	return nil, errOffline
}

func (offlineNode) BlockSummary(context.Context, string) (*multisig.BlockSummary, error) {
	return nil, errOffline
}

func (offlineNode) AccountInfo(context.Context, cosign.AccountAddress, string) (*multisig.AccountInfo, error) {
	return nil, errOffline
}

func (offlineNode) SendTransaction(context.Context, []byte) (bool, error) {
	return false, errOffline
}

// bind panics because a flag that cannot be bound is a coding error.
func bind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// parseID reads a proposal id argument.
func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.Wrapf(errors.ErrInput, "invalid proposal id %q", s)
	}
	return id, nil
}

// loadDevice returns the software device of a seed file.
func loadDevice(seedFile string) (crypto.Device, error) {
	if seedFile == "" {
		return nil, errors.Wrap(errors.ErrInput, "--seed-file is required")
	}
	return crypto.LoadSoftDevice(seedFile)
}

// readFile returns the content of a file, or stdin for "-".
func readFile(stdin io.Reader, name string) ([]byte, error) {
	var (
		raw []byte
		err error
	)
	if name == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return raw, nil
}
