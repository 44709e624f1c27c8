// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/image/draw"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/compositor"
	"github.com/gogpu/overlay/fbserver"
	"github.com/gogpu/overlay/indicator"
	"github.com/gogpu/overlay/internal/config"
)

var renderFlags struct {
	backend    string
	width      int
	height     int
	output     string
	browser    bool
	status     string
	indicators []string
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Composite a test frame offscreen and save it as PNG",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := renderFlags
		if !cmd.Flags().Changed("width") {
			f.width = cfg.Render.Width
		}
		if !cmd.Flags().Changed("height") {
			f.height = cfg.Render.Height
		}
		if !cmd.Flags().Changed("output") {
			f.output = cfg.Render.Output
		}
		if !cmd.Flags().Changed("backend") && cfg.Backend != "" {
			f.backend = cfg.Backend
		}
		return render(f.backend, f.width, f.height, f.output, f.browser, f.status, f.indicators)
	},
}

func init() {
	fl := renderCmd.Flags()
	fl.StringVar(&renderFlags.backend, "backend", "hal", "device backend")
	fl.IntVar(&renderFlags.width, "width", 0, "backbuffer width (default from config)")
	fl.IntVar(&renderFlags.height, "height", 0, "backbuffer height (default from config)")
	fl.StringVarP(&renderFlags.output, "output", "o", "", "output PNG file (default from config)")
	fl.BoolVar(&renderFlags.browser, "browser", false, "show the browser overlay")
	fl.StringVar(&renderFlags.status, "status", "recording", "status square to draw, or none")
	fl.StringSliceVar(&renderFlags.indicators, "indicator", nil, "indicator to draw (repeatable)")
}

func render(backend string, width, height int, output string, browser bool, statusName string, kinds []string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("render size %dx%d", width, height)
	}
	status, showStatus, err := parseStatus(statusName)
	if err != nil {
		return err
	}
	shown := make([]overlay.Indicator, 0, len(kinds))
	for _, name := range kinds {
		kind, err := overlay.ParseIndicator(name)
		if err != nil {
			return err
		}
		shown = append(shown, kind)
	}

	labeler, err := loadLabeler(cfg.Indicators)
	if err != nil {
		return err
	}
	defer labeler.Close()
	images, err := loadImages(labeler, cfg.Indicators)
	if err != nil {
		return err
	}

	dev, err := openDevice(backend, "overlayd render")
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	defer dev.Release()

	tgt, err := newTarget(dev, width, height, background(width, height))
	if err != nil {
		return err
	}
	defer tgt.Release()

	mailbox := fbserver.NewMailbox()
	if err := mailbox.Put(overlay.SlotNotifications, notificationCard(labeler, width, height)); err != nil {
		return err
	}
	if browser {
		if err := mailbox.Put(overlay.SlotBrowser, browserPanel(labeler, width, height)); err != nil {
			return err
		}
	}

	opts := []compositor.Option{
		compositor.WithProducer(mailbox),
		compositor.WithOverlayState(compositor.StaticState{
			Browser:       browser,
			Active:        overlay.SlotBrowser,
			Notifications: true,
		}),
		compositor.WithIndicatorSource(images),
		compositor.WithIndicatorFunc(func(draw func(overlay.Indicator, uint8)) {
			for _, kind := range shown {
				draw(kind, 0xff)
			}
		}),
		compositor.WithNotifications(cfg.Notifications),
		compositor.WithShared(cfg.Shared),
	}
	if showStatus {
		opts = append(opts, compositor.WithStatus(func() (overlay.Status, bool) { return status, true }))
	}
	driver := compositor.New(opts...)
	defer driver.Shutdown()

	if err := driver.Frame(tgt); err != nil {
		return fmt.Errorf("composite: %w", err)
	}
	img, err := tgt.Snapshot()
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	if err := writePNG(output, img); err != nil {
		return err
	}
	overlay.Logger().Info("overlayd: frame written", "output", output, "width", width, "height", height)
	return nil
}

// parseStatus maps a status name to a status; "none" and "" hide the
// square.
func parseStatus(name string) (overlay.Status, bool, error) {
	if name == "" || name == "none" {
		return 0, false, nil
	}
	for s := overlay.Status(0); s < overlay.StatusCount; s++ {
		if s.String() == name {
			return s, true, nil
		}
	}
	return 0, false, fmt.Errorf("unknown status %q", name)
}

func loadLabeler(ic config.Indicators) (*indicator.Labeler, error) {
	var ttf []byte
	if ic.Font != "" {
		b, err := os.ReadFile(ic.Font)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		ttf = b
	}
	return indicator.NewLabeler(ttf, ic.FontSize)
}

// loadImages renders the default indicator labels and replaces those the
// configuration maps to icon files.
func loadImages(l *indicator.Labeler, ic config.Indicators) (*indicator.ImageSet, error) {
	set, err := indicator.DefaultImages(l)
	if err != nil {
		return nil, err
	}
	for name, path := range ic.Icons {
		kind, err := overlay.ParseIndicator(name)
		if err != nil {
			return nil, err
		}
		img, err := indicator.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := set.Set(kind, img); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// background is a vertical gradient standing in for the game's frame.
func background(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		t := float64(y) / float64(max(height-1, 1))
		c := color.NRGBA{R: uint8(25 + t*80), G: uint8(50 + t*60), B: uint8(100 + t*50), A: 0xff}
		draw.Draw(img, image.Rect(0, y, width, y+1), image.NewUniform(c), image.Point{}, draw.Src)
	}
	return img
}

// notificationCard is a transparent frame with a caption in its top-right
// corner.
func notificationCard(l *indicator.Labeler, width, height int) []byte {
	frame := image.NewNRGBA(image.Rect(0, 0, width, height))
	label := l.Render("overlayd test frame", 0xc0202020, 0xffffffff)
	lb := label.Bounds()
	at := image.Pt(max(width-lb.Dx()-8, 0), 8)
	draw.Draw(frame, lb.Add(at), label, lb.Min, draw.Over)
	return toBGRA(frame, width, height)
}

// browserPanel is a translucent full-frame panel with a title bar.
func browserPanel(l *indicator.Labeler, width, height int) []byte {
	frame := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(frame, frame.Bounds(), image.NewUniform(indicator.ARGB(0xb0101418)), image.Point{}, draw.Src)
	title := l.Render("overlay browser", 0xff2a6df4, 0xffffffff)
	tb := title.Bounds()
	draw.Draw(frame, tb.Add(image.Pt(16, 16)), title, tb.Min, draw.Over)
	return toBGRA(frame, width, height)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}
