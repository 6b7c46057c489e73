// Command wsio connects standard streams to websocket endpoints.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/yingshulu/wsio/echo"
	"github.com/yingshulu/wsio/stream"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		cfg        *Config
	)

	root := &cobra.Command{
		Use:          "wsio",
		Short:        "byte streams over websocket",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = loadConfig(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			return cfg.setupLog()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "JSON config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides the config file")

	config := func() *Config { return cfg }
	root.AddCommand(
		newEchoCmd(config),
		newCatCmd(config),
		newDemoCmd(config),
	)
	return root
}

func newEchoCmd(config func() *Config) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "echo",
		Short: "serve a websocket endpoint echoing every message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config()
			if listen != "" {
				cfg.Listen = listen
			}
			return echo.NewServer(cfg.echoOptions()...).Run(cfg.Listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address, e.g. ws://+:8000/")
	return cmd
}

func newCatCmd(config func() *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "cat ADDR",
		Short: "copy stdin to the endpoint and the endpoint to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCat(cmd.Context(), args[0], cmd.InOrStdin(), cmd.OutOrStdout(), config())
		},
	}
}

func runCat(ctx context.Context, addr string, in io.Reader, out io.Writer, cfg *Config) error {
	c, err := stream.Connect(ctx, addr, cfg.streamOptions()...)
	if err != nil {
		return err
	}
	r, w := c.Split()

	done, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, done := errgroup.WithContext(done)

	// stdin may block forever, so the copy is not part of the group
	copied := make(chan error, 1)
	go func() {
		_, err := io.Copy(w, in)
		copied <- err
	}()

	eg.Go(func() error {
		select {
		case err := <-copied:
			if errors.Is(err, stream.ErrConnectionClosed) {
				err = nil
			}
			if cerr := w.CloseContext(ctx); err == nil {
				err = cerr
			}
			return err
		case <-done.Done():
			return nil
		}
	})
	eg.Go(func() error {
		defer cancel()
		_, err := io.Copy(out, r)
		return err
	})
	return eg.Wait()
}

func newDemoCmd(config func() *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "demo ADDR",
		Short: "write three delimited frames to an echo endpoint and read them back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), args[0], cmd.OutOrStdout(), config())
		},
	}
}

const demoDelim byte = 93

var demoFrames = [][]byte{{0, 1, 2, 3, 93}, {42, 34, 93}, {0, 0, 1, 2, 93}}

func runDemo(ctx context.Context, addr string, out io.Writer, cfg *Config) error {
	c, err := stream.Connect(ctx, addr, cfg.streamOptions()...)
	if err != nil {
		return err
	}
	r, w := c.Split()
	defer w.Close()

	for _, f := range demoFrames {
		if _, err := w.WriteContext(ctx, f); err != nil {
			return err
		}
	}

	var buf []byte
	for i := range demoFrames {
		buf, err = r.ReadUntilContext(ctx, demoDelim, buf[:0])
		if err != nil {
			return err
		}
		if !bytes.Equal(buf, demoFrames[i]) {
			log.Warnf("frame %d mismatch: %v", i, buf)
		}
		fmt.Fprintln(out, buf)
	}
	return nil
}
