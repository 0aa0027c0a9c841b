package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"airingcal/config"
	"airingcal/handlers"
	"airingcal/internal/logging"
	"airingcal/services/anischedule"
	"airingcal/services/calendar"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	tzName     string
	upstream   string

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "airingcal",
	Short: "Monthly anime airing calendar built from the weekly schedule API",
	Long: `airingcal turns the week-by-week anime airing schedule into a month
calendar in your own timezone.

Run "airingcal serve" for the JSON API, or "airingcal month" to print a month.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(afero.NewOsFs(), configPath)
		if err != nil {
			return err
		}
		if upstream != "" {
			loaded.Upstream.BaseURL = upstream
		}
		if tzName != "" {
			loaded.Calendar.Timezone = tzName
			if _, err := loaded.Location(); err != nil {
				return err
			}
		}
		cfg = loaded
		_, logCloser = logging.Setup(cfg.Logging)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func init() {
	rootCmd.Version = handlers.BuildVersion()
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&tzName, "tz", "", "viewer timezone (IANA name), overrides calendar.timezone")
	rootCmd.PersistentFlags().StringVar(&upstream, "upstream", "", "schedule API base URL, overrides upstream.base_url")

	rootCmd.AddCommand(serveCmd, monthCmd, icsCmd)
}

// newCalendarService wires the schedule client into a calendar service.
func newCalendarService(cfg *config.Config) *calendar.Service {
	client := anischedule.NewClient(anischedule.Config{
		BaseURL:       cfg.Upstream.BaseURL,
		Timeout:       cfg.GetUpstreamTimeout(),
		RetryAttempts: cfg.Upstream.RetryAttempts,
		RetryDelay:    cfg.GetRetryDelay(),
		RateLimit:     cfg.Upstream.RateLimit,
		RateBurst:     cfg.Upstream.RateBurst,
	})
	return calendar.New(client, calendar.Options{
		Round: calendar.RoundOptions{
			MaxConcurrent: cfg.Calendar.MaxConcurrent,
			FetchTimeout:  cfg.GetFetchTimeout(),
		},
		RefreshSchedule: cfg.Calendar.RefreshSchedule,
		SessionTTL:      cfg.GetSessionTTL(),
		Clock:           time.Now,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
