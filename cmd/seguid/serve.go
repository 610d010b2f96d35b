package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/bobg/seguid/httpapi"
	"github.com/bobg/seguid/store/rpc"
)

func (c maincmd) serve(ctx context.Context, addr, grpcAddr string, timeout time.Duration, _ []string) error {
	cfg, err := loadServerConfig()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Addr
	}
	if grpcAddr == "" {
		grpcAddr = cfg.GRPCAddr
	}
	if timeout <= 0 {
		timeout = cfg.AsyncTimeout
	}

	s, err := c.store(ctx)
	if err != nil {
		return err
	}

	if cfg.JWTKey == "" {
		c.logger.Warn("SEGUID_JWT_KEY not set, submissions by seguid will be refused")
	}

	hs := &http.Server{
		Addr: addr,
		Handler: httpapi.NewServer(s, httpapi.Config{
			Key:     []byte(cfg.JWTKey),
			Timeout: timeout,
			Logger:  c.logger,
		}),
	}

	var (
		gs  *grpc.Server
		lis net.Listener
	)
	if grpcAddr != "" {
		lis, err = net.Listen("tcp", grpcAddr)
		if err != nil {
			return errors.Wrapf(err, "listening on %s", grpcAddr)
		}
		defer lis.Close()

		gs = grpc.NewServer()
		rpc.RegisterStoreServer(gs, rpc.NewServer(s))
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		c.logger.Info("serving HTTP", zap.String("addr", addr))
		err := hs.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrapf(err, "serving HTTP on %s", addr)
	})

	if gs != nil {
		eg.Go(func() error {
			c.logger.Info("serving gRPC", zap.Stringer("addr", lis.Addr()))
			return errors.Wrapf(gs.Serve(lis), "serving gRPC on %s", grpcAddr)
		})
	}

	eg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if gs != nil {
			gs.GracefulStop()
		}
		return hs.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
