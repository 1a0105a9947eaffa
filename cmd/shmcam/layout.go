package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gosuda.org/shmcam"
)

var (
	layoutWidth  int
	layoutHeight int
	layoutCreate bool
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Print the ring queue layout for a frame size",
	Long: `Layout prints the slot offsets of the triple-slot ring segment. With
--create it also creates the segment, writes the layout and holds it until
interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("width") {
			cfg.Width = layoutWidth
		}
		if cmd.Flags().Changed("height") {
			cfg.Height = layoutHeight
		}

		l, err := shmcam.ComputeRingLayout(uint32(cfg.Width), uint32(cfg.Height))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "frame     %dx%d, %d bytes\n", l.Width, l.Height, l.FrameSize)
		for i, off := range l.Offsets {
			fmt.Fprintf(out, "slot %d    offset %d\n", i, off)
		}
		fmt.Fprintf(out, "segment   %d bytes\n", l.Size)

		if !layoutCreate {
			return nil
		}

		c := channelConfig()
		c.Backend = shmcam.BackendRing
		ch, err := shmcam.NewChannel(cfg.Channel, shmcam.RoleProducer, c)
		if err != nil {
			return err
		}
		if err := ch.TryOpen(); err != nil {
			return err
		}
		defer ch.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.WithField("name", c.RingName).Info("ring segment created")
		<-ctx.Done()
		return nil
	},
}

func init() {
	layoutCmd.Flags().IntVar(&layoutWidth, "width", 0, "frame width (default from config)")
	layoutCmd.Flags().IntVar(&layoutHeight, "height", 0, "frame height (default from config)")
	layoutCmd.Flags().BoolVar(&layoutCreate, "create", false, "create the segment and hold it until interrupted")
}
