package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"airingcal/services/calendar"

	"github.com/spf13/cobra"
)

var selectDate string

var monthCmd = &cobra.Command{
	Use:   "month [YYYY-MM]",
	Short: "Print a month's airing calendar",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := loadMonth(cmd.Context(), args)
		if err != nil {
			return err
		}
		if selectDate != "" {
			state, err = calendar.Select(state, calendar.DateKey(selectDate))
			if err != nil {
				return err
			}
		}
		printMonth(cmd.OutOrStdout(), state)
		return nil
	},
}

var icsCmd = &cobra.Command{
	Use:   "ics [YYYY-MM]",
	Short: "Print a month's airing calendar as iCalendar",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := loadMonth(cmd.Context(), args)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), calendar.ExportICS(state, "", time.Now()))
		return nil
	},
}

func init() {
	monthCmd.Flags().StringVar(&selectDate, "select", "", "day to show entries for (YYYY-MM-DD)")
}

// loadMonth runs one round for the requested month and waits for it to settle.
func loadMonth(ctx context.Context, args []string) (calendar.State, error) {
	loc, err := cfg.Location()
	if err != nil {
		return calendar.State{}, err
	}
	month := calendar.MonthOf(time.Now().In(loc))
	if len(args) == 1 {
		if month, err = calendar.ParseMonth(args[0]); err != nil {
			return calendar.State{}, err
		}
	}

	svc := newCalendarService(cfg)
	defer svc.Stop()

	snap := svc.Open(loc, month)
	ctx, cancel := context.WithTimeout(ctx, 2*cfg.GetFetchTimeout())
	defer cancel()
	snap, err = svc.Wait(ctx, snap.ID)
	if err != nil {
		return calendar.State{}, fmt.Errorf("wait for schedule: %w", err)
	}
	return snap.State, nil
}

func printMonth(w io.Writer, s calendar.State) {
	first := s.Month().First(s.Location)
	fmt.Fprintf(w, "%s %d (%s)\n", first.Month(), first.Year(), s.Location)
	fmt.Fprintln(w, " Sun    Mon    Tue    Wed    Thu    Fri    Sat")

	for i, day := range s.Plan.Grid {
		cell := fmt.Sprintf("%2d", day.Date.Day())
		if !day.InMonth {
			cell = "  "
		}
		marker := " "
		switch {
		case day.Key == s.Selected.Key:
			marker = "*"
		case day.IsToday:
			marker = "!"
		}
		count := ""
		if n := len(s.Index[day.Key]); n > 0 && day.InMonth {
			count = fmt.Sprintf("(%d)", n)
		}
		fmt.Fprintf(w, "%s%s%-4s ", marker, cell, count)
		if i%7 == 6 {
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintf(w, "\n%s: %d episode(s)\n", s.Selected.Key, len(s.Selected.Entries))
	for _, e := range s.Selected.Entries {
		line := fmt.Sprintf("  %8s  %s  ep %d", calendar.FormatLocalTime(e.AiringAt, s.Location), e.Title, e.Episode)
		if e.TotalEpisodes != nil {
			line += fmt.Sprintf("/%d", *e.TotalEpisodes)
		}
		if e.AiringStatus != "" {
			line += "  [" + strings.ReplaceAll(e.AiringStatus, "_", " ") + "]"
		}
		fmt.Fprintln(w, line)
	}
	if s.Stats.Failed > 0 {
		fmt.Fprintf(w, "\n%d of %d schedule weeks could not be loaded\n", s.Stats.Failed, s.Stats.Weeks)
	}
}
