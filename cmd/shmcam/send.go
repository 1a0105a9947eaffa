package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gosuda.org/shmcam"
	"gosuda.org/shmcam/internal/pattern"
)

var (
	sendWidth  int
	sendHeight int
	sendFPS    int
	sendCount  int
)

// errDone stops the send pipeline after the requested number of frames.
var errDone = errors.New("done")

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a synthetic test pattern to a channel",
	Long: `Send generates color bars and delivers them as a producer. It waits for
the consumer to come up and keeps sending until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("width") {
			cfg.Width = sendWidth
		}
		if cmd.Flags().Changed("height") {
			cfg.Height = sendHeight
		}
		if cmd.Flags().Changed("fps") {
			cfg.FPS = sendFPS
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		id, err := channelID()
		if err != nil {
			return err
		}
		ch, err := shmcam.NewChannel(id, shmcam.RoleProducer, channelConfig())
		if err != nil {
			return err
		}
		defer ch.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = runSender(ctx, ch, pattern.New(cfg.Width, cfg.Height, cfg.FPS), sendCount)
		if errors.Is(err, errDone) || errors.Is(err, context.Canceled) {
			err = nil
		}
		logStats(ch)
		return err
	},
}

// runSender streams frames from src into ch until ctx is done or count
// frames were delivered. A zero count sends forever.
func runSender(ctx context.Context, ch *shmcam.Channel, src *pattern.Source, count int) error {
	frames := make(chan pattern.Frame)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return src.Stream(ctx, frames)
	})
	g.Go(func() error {
		report := time.NewTicker(5 * time.Second)
		defer report.Stop()

		delivered := 0
		waiting := false
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-report.C:
				logStats(ch)
			case f := <-frames:
				// Poll until the consumer is up, at the frame rate.
				if !ch.Open() {
					if !waiting {
						logger.WithField("channel", ch.ID()).Info("waiting for consumer")
						waiting = true
					}
					continue
				}
				waiting = false

				b := f.Image.Bounds()
				res, err := ch.Send(shmcam.Frame{
					Width:      int32(b.Dx()),
					Height:     int32(b.Dy()),
					Stride:     int32(f.Image.Stride / 4),
					Format:     shmcam.FormatUint8,
					ResizeMode: shmcam.ResizeLinear,
					MirrorMode: shmcam.MirrorDisabled,
					Timeout:    time.Second,
					Payload:    f.Image.Pix,
				})
				switch res {
				case shmcam.ResultFailed:
					return err
				case shmcam.ResultNotReady:
					ch.Close()
				case shmcam.ResultTooLarge:
					logger.WithError(err).Warn("frame dropped")
				}
				if res.Delivered() {
					delivered++
					if count > 0 && delivered >= count {
						return errDone
					}
				}
			}
		}
	})
	return g.Wait()
}

func logStats(ch *shmcam.Channel) {
	st := ch.Stats()
	logger.WithFields(logrus.Fields{
		"channel":   ch.ID(),
		"sent":      st.Sent,
		"skipped":   st.Skipped,
		"too_large": st.TooLarge,
		"not_ready": st.NotReady,
		"failed":    st.Failed,
	}).Info("send stats")
}

func init() {
	sendCmd.Flags().IntVar(&sendWidth, "width", 0, "frame width (default from config)")
	sendCmd.Flags().IntVar(&sendHeight, "height", 0, "frame height (default from config)")
	sendCmd.Flags().IntVar(&sendFPS, "fps", 0, "frames per second (default from config)")
	sendCmd.Flags().IntVarP(&sendCount, "count", "n", 0, "stop after this many delivered frames (0 = forever)")
}
