package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"xdao.co/catchat/chatroom"
	"xdao.co/catchat/config"
	"xdao.co/catchat/credential"
	"xdao.co/catchat/internal/logging"
	"xdao.co/catchat/ipfs"
	"xdao.co/catchat/kv"
	"xdao.co/catchat/session"
	"xdao.co/catchat/sessionrpc"
	"xdao.co/catchat/storage/localfs"
	"xdao.co/catchat/wallet"
)

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return err
	}
	store, err := kv.OpenLevelDB(filepath.Join(cfg.DataDir, "store"))
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := openNode(cfg, store, logger)
	if err != nil {
		return err
	}
	signer, closeSigner, err := openSigner(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSigner()

	local, err := localfs.New(filepath.Join(cfg.DataDir, "blocks"))
	if err != nil {
		return err
	}
	blocks := credential.NewBlocks(client, local, credential.Options{Logger: logger})

	verifier, err := credential.NewVerifier(blocks, cfg.CacheSize, credential.Options{Logger: logger})
	if err != nil {
		return err
	}
	creds := credential.New(blocks, signer, store, credential.Options{Logger: logger})
	sess := session.New(creds, signer, client, session.Options{Logger: logger})
	defer sess.Close()

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}
	defer lis.Close()

	srv := grpc.NewServer()
	sessionrpc.RegisterSessionServer(srv, &sessionrpc.Server{
		Session:  sess,
		Composer: session.NewComposer(sess, client, cfg.Topic, session.Options{Logger: logger}),
		Join: func(ctx context.Context, topic string) (*chatroom.Room, error) {
			return chatroom.Join(ctx, client, topic, verifier, chatroom.Options{Logger: logger})
		},
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		srv.Stop()
	}()

	logger.Info("xdao-chatd listening",
		zap.String("listen", lis.Addr().String()),
		zap.String("node", client.BaseURL()),
		zap.String("topic", cfg.Topic))
	return srv.Serve(lis)
}

// openNode uses the configured endpoint, or the one saved in store.
func openNode(cfg config.Config, store kv.Store, logger *zap.Logger) (*ipfs.Client, error) {
	opts := ipfs.Options{Logger: logger, Multibase: cfg.Multibase}
	if cfg.APIURL == "" {
		return ipfs.NewFromStorage(store, opts)
	}
	return ipfs.New(cfg.APIURL, opts)
}

func openSigner(ctx context.Context, cfg config.Config, logger *zap.Logger) (wallet.Signer, func(), error) {
	if cfg.EthRPCURL != "" {
		opts := wallet.RPCOptions{Logger: logger}
		if cfg.ENSRegistry != "" {
			opts.Registry = common.HexToAddress(cfg.ENSRegistry)
		}
		s, err := wallet.DialRPC(ctx, cfg.EthRPCURL, opts)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	ks, err := wallet.OpenKeyStore(cfg.KeyDir)
	if err != nil {
		return nil, nil, err
	}
	s, err := ks.Signer(cfg.Key)
	if err != nil {
		return nil, nil, err
	}
	return s, func() {}, nil
}
