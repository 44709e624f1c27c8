// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/compositor"
	"github.com/gogpu/overlay/fbserver"
)

var serveFlags struct {
	address  string
	headless bool
	fps      int
	width    int
	height   int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the framebuffer server",
	Long: `serve accepts producer connections and hands their frames to the compositor.

With --headless it also composites onto an offscreen backbuffer, so producers
can be exercised without a hooked application.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveFlags.address
		if addr == "" {
			addr = cfg.Address
		}
		if addr == "" {
			addr = fbserver.DefaultAddress
		}
		w, h := serveFlags.width, serveFlags.height
		if w == 0 {
			w = cfg.Render.Width
		}
		if h == 0 {
			h = cfg.Render.Height
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, addr, serveFlags.headless, serveFlags.fps, w, h)
	},
}

func init() {
	fl := serveCmd.Flags()
	fl.StringVar(&serveFlags.address, "address", "", "pipe or socket to listen on (default from config)")
	fl.BoolVar(&serveFlags.headless, "headless", false, "composite onto an offscreen backbuffer")
	fl.IntVar(&serveFlags.fps, "fps", 30, "headless frame rate")
	fl.IntVar(&serveFlags.width, "width", 0, "headless backbuffer width (default from config)")
	fl.IntVar(&serveFlags.height, "height", 0, "headless backbuffer height (default from config)")
}

func serve(ctx context.Context, addr string, headless bool, fps, width, height int) error {
	mailbox := fbserver.NewMailbox()
	hub := fbserver.NewHub()
	srv := fbserver.NewServer(mailbox, hub)

	ln, err := fbserver.Listen(addr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopErr := make(chan error, 1)
	if headless {
		go func() {
			loopErr <- runHeadless(ctx, mailbox, hub, fps, width, height)
			cancel()
		}()
	} else {
		close(loopErr)
	}

	err = srv.Serve(ctx, ln)
	cancel()
	_ = srv.Close()
	if lerr := <-loopErr; lerr != nil && err == nil {
		err = lerr
	}
	if errors.Is(err, fbserver.ErrServerClosed) {
		err = nil
	}
	overlay.Logger().Info("overlayd: stopped", "dropped_frames", mailbox.Dropped())
	return err
}

// runHeadless drives a compositor on the configured backend at fps until
// ctx is done. Registration and visibility flow through hub; frames come
// from mailbox.
func runHeadless(ctx context.Context, mailbox *fbserver.Mailbox, hub *fbserver.Hub, fps, width, height int) error {
	if fps <= 0 {
		return fmt.Errorf("headless frame rate must be positive, got %d", fps)
	}
	dev, err := openDevice(cfg.Backend, "overlayd serve")
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	defer dev.Release()

	tgt, err := newTarget(dev, width, height, nil)
	if err != nil {
		return err
	}
	defer tgt.Release()

	driver := compositor.New(
		compositor.WithProducer(mailbox),
		compositor.WithRegistrar(hub),
		compositor.WithOverlayState(hub),
		compositor.WithIncompatibleChecker(hub),
		compositor.WithNotifications(cfg.Notifications),
		compositor.WithShared(cfg.Shared),
		compositor.WithStatus(func() (overlay.Status, bool) { return overlay.StatusIdle, true }),
	)
	defer driver.Shutdown()

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	log := overlay.Logger()
	log.Info("overlayd: headless compositor running", "width", width, "height", height, "fps", fps)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := driver.Frame(tgt); err != nil {
				log.Warn("overlayd: frame failed", "err", err)
			}
		}
	}
}
