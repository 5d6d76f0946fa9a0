package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scenegen/internal/config"
	"scenegen/internal/logging"
)

var reviewLimit int

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Show recent completion attempts",
	RunE:  runReview,
}

var rateCmd = &cobra.Command{
	Use:   "rate <id> <1-5> [notes...]",
	Short: "Rate a completion attempt",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRate,
}

func init() {
	reviewCmd.Flags().IntVarP(&reviewLimit, "limit", "l", 10, "Number of attempts to show")
	rootCmd.AddCommand(reviewCmd, rateCmd)
}

func loadSettings() (*config.Config, error) {
	return config.LoadSettings(configPath)
}

func openCompletions() (*logging.CompletionLogger, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewCompletionLogger(cfg.Logging.CompletionDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open completion database: %w", err)
	}
	return logger, nil
}

func runReview(cmd *cobra.Command, args []string) error {
	logger, err := openCompletions()
	if err != nil {
		return err
	}
	defer logger.Close()

	completions, err := logger.GetRecentCompletions(cmd.Context(), reviewLimit)
	if err != nil {
		return fmt.Errorf("failed to get completions: %w", err)
	}

	if len(completions) == 0 {
		fmt.Println("No completions found. Generate a scene first to collect data.")
		return nil
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Recent completions (%d)", len(completions))))
	for _, comp := range completions {
		printCompletion(comp)
	}

	fmt.Println("\nTo rate a completion: scenegen rate <id> <rating> [notes]")
	return nil
}

func printCompletion(comp logging.CompletionLog) {
	header := fmt.Sprintf("[%d] %s | session %s | scene %d attempt %d | %s",
		comp.ID,
		comp.Timestamp.Format("2006-01-02 15:04:05"),
		shortID(comp.SessionID),
		comp.SceneNum,
		comp.Attempt,
		comp.Outcome)

	var metadata logging.CompletionMetadata
	if err := json.Unmarshal([]byte(comp.Metadata), &metadata); err == nil {
		header += fmt.Sprintf(" | %s | %v", metadata.Model, metadata.ResponseTime)
	}

	switch comp.Outcome {
	case logging.OutcomeSuccess:
		fmt.Println(successStyle.Render(header))
	default:
		fmt.Println(warnStyle.Render(header))
	}

	fmt.Printf("Response: %s\n", comp.Response)
	if metadata.Error != nil {
		fmt.Printf("Error: %s\n", *metadata.Error)
	}
	if comp.Rating != nil {
		fmt.Printf("Rating: %d/5", *comp.Rating)
		if comp.Notes != nil {
			fmt.Printf(" - %s", *comp.Notes)
		}
	} else {
		fmt.Print("Rating: not rated")
	}
	fmt.Println("\n" + strings.Repeat("-", 50))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runRate(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid ID: %w", err)
	}
	rating, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid rating: %w", err)
	}
	notes := strings.Join(args[2:], " ")

	logger, err := openCompletions()
	if err != nil {
		return err
	}
	defer logger.Close()

	if err := logger.RateCompletion(cmd.Context(), id, rating, notes); err != nil {
		return fmt.Errorf("failed to rate completion: %w", err)
	}

	msg := fmt.Sprintf("Rated completion %d as %d/5", id, rating)
	if notes != "" {
		msg += " with notes: " + notes
	}
	fmt.Println(successStyle.Render(msg))
	return nil
}
