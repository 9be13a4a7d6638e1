package cmd

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/encbench/pkg/encoder"
	"github.com/psantana5/encbench/pkg/models"
	"github.com/psantana5/encbench/pkg/probe"
	"github.com/psantana5/encbench/pkg/runner"
)

var (
	encodeInput   string
	encodeQuality int
	encodeOutput  string
	encodeTimeout time.Duration
)

var encodeCmd = &cobra.Command{
	Use:   "encode <encoder> [-- encoder-args...]",
	Short: "Encode one file and print its quality scores",
	Long: `Encode a single input at one quality setting, measure PSNR, SSIM and
XPSNR against the source, and print the scores.

Without --out the encoded artifact is discarded after measurement.
Arguments after "--" are passed to the encoder verbatim.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)

	encodeCmd.Flags().StringVarP(&encodeInput, "input", "i", "", "source video file")
	encodeCmd.Flags().IntVarP(&encodeQuality, "quality", "q", 0, "quality value for the encoder")
	encodeCmd.Flags().StringVarP(&encodeOutput, "out", "b", "", "output artifact path (default: derived, discarded after measurement)")
	encodeCmd.Flags().DurationVar(&encodeTimeout, "timeout", 0, "encode timeout (default from config, 1h)")
	encodeCmd.MarkFlagRequired("input")
	encodeCmd.MarkFlagRequired("quality")
}

func runEncode(cmd *cobra.Command, args []string) error {
	log := newLogger()

	registry := encoder.NewRegistry()
	profile, err := registry.Resolve(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if src, err := probe.Inspect(ctx, encodeInput); err == nil {
		fmt.Printf("Source video: %s (%dx%d, %d bytes)\n", src.Name, src.Width, src.Height, src.Size)
	}

	keep := encodeOutput != ""
	output := encodeOutput
	if output == "" {
		output = profile.OutputPath(encodeInput, "", encodeQuality)
	}

	timeout := encodeTimeout
	if timeout == 0 {
		timeout = viper.GetDuration("timeout")
	}

	spec := models.JobSpec{
		Input:       encodeInput,
		Quality:     encodeQuality,
		Encoder:     profile.ID,
		Passthrough: passthroughArgs(cmd, args),
		Output:      output,
	}

	fmt.Printf("Running %s at Q%d\n", profile.ID, encodeQuality)
	res := runner.New(registry, timeout, log).Run(ctx, spec)
	if res.Outcome == models.OutcomeEncodeFailed || res.Outcome == models.OutcomeTimedOut {
		return fmt.Errorf("encode failed (%s): %s", res.Outcome, res.Error)
	}
	fmt.Printf("Encoded video: %s (took %.2f seconds, %d bytes)\n", output, res.Duration.Seconds(), res.Size)
	if res.Outcome == models.OutcomeMetricsFailed {
		return fmt.Errorf("cannot measure artifact: %s", res.Error)
	}

	target := res.MeasurePath
	if target == "" {
		target = output
	}
	bundle, err := probe.New(viper.GetString("ffmpeg"), timeout, log).Measure(ctx, encodeInput, target)
	if target != output {
		if rmErr := os.Remove(target); rmErr != nil {
			log.Warn("failed to remove decode intermediate", map[string]interface{}{"error": rmErr.Error()})
		}
	}
	if !keep {
		if rmErr := os.Remove(output); rmErr != nil {
			log.Warn("failed to remove artifact", map[string]interface{}{"error": rmErr.Error()})
		} else {
			defer fmt.Println("Discarded encoded video")
		}
	}
	if err != nil && bundle == nil {
		return err
	}

	printScores(bundle)
	if err != nil {
		return err
	}
	return nil
}

func printScores(b *models.MetricBundle) {
	fmt.Println("PSNR/SSIM scores:")
	printScore(" PSNR:          ", b.PSNR)
	printScore(" SSIM:          ", b.SSIM)
	fmt.Println("XPSNR scores:")
	printScore(" XPSNR Y:       ", b.XPSNRY)
	printScore(" XPSNR U:       ", b.XPSNRU)
	printScore(" XPSNR V:       ", b.XPSNRV)
	printScore(" W-XPSNR:       ", b.WXPSNR)
}

func printScore(label string, v float64) {
	if math.IsNaN(v) {
		fmt.Printf("%s(not found)\n", label)
		return
	}
	fmt.Printf("%s%.5f\n", label, v)
}
