package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gosuda.org/shmcam"
)

var (
	serveCount   int
	serveTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Act as the consumer of a channel and print received frames",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := channelID()
		if err != nil {
			return err
		}
		ch, err := shmcam.NewChannel(id, shmcam.RoleConsumer, channelConfig())
		if err != nil {
			return err
		}
		if err := ch.TryOpen(); err != nil {
			return err
		}
		defer ch.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.WithField("channel", id).WithField("names", ch.Names()).Info("serving")
		return serve(ctx, ch, cmd, serveCount, serveTimeout)
	},
}

// serve requests, waits for and reads frames until ctx is done or count
// frames were read. A zero count serves forever.
func serve(ctx context.Context, ch *shmcam.Channel, cmd *cobra.Command, count int, timeout time.Duration) error {
	var buf []byte
	for n := 0; count == 0 || n < count; {
		if ctx.Err() != nil {
			return nil
		}
		if err := ch.RequestFrame(); err != nil {
			return err
		}
		ok, err := ch.WaitFrame(timeout)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		f, err := ch.ReadFrame(buf)
		if err != nil {
			return err
		}
		buf = f.Payload
		n++
		fmt.Fprintf(cmd.OutOrStdout(), "frame %d: %dx%d stride %d %v %v %v timeout %v, %d bytes\n",
			n, f.Width, f.Height, f.Stride, f.Format, f.ResizeMode, f.MirrorMode, f.Timeout, len(f.Payload))
	}
	return nil
}

func init() {
	serveCmd.Flags().IntVarP(&serveCount, "count", "n", 0, "stop after this many frames (0 = forever)")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 500*time.Millisecond, "wait per frame before re-requesting")
}
