package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/codecritic/codecritic/internal/catalog"
	"github.com/codecritic/codecritic/internal/core"
	"github.com/codecritic/codecritic/internal/history"
)

var historyAll bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List your past reviews, newest first",
	RunE:  runHistory,
}

var showCmd = &cobra.Command{
	Use:   "show [review-id]",
	Short: "Display one of your past reviews",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [review-id]",
	Short: "Delete one of your reviews",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	historyCmd.Flags().BoolVarP(&historyAll, "all", "a", false, "Fetch every page, not just the first")
	rootCmd.AddCommand(historyCmd, showCmd, deleteCmd)
}

func runHistory(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	state, err := stateStore()
	if err != nil {
		return err
	}
	client, err := newAPIClient(state)
	if err != nil {
		return err
	}

	var all []core.Review
	var page *core.HistoryPage
	for pageIndex := 0; ; pageIndex++ {
		if _, ok := history.PaginationKey(pageIndex, page); !ok {
			break
		}

		endingBefore := ""
		if page != nil {
			endingBefore = page.Reviews[len(page.Reviews)-1].ID
		}
		page, err = client.History(ctx, history.PageSize, "", endingBefore)
		if err != nil {
			return err
		}
		all = append(all, page.Reviews...)

		if !historyAll {
			break
		}
	}

	if len(all) == 0 {
		dimColor.Println("No reviews yet. Run 'codecritic review <file>' to create one.")
		return nil
	}

	grouped := history.GroupByDate(all, time.Now())
	printBucket("Today", grouped.Today)
	printBucket("Yesterday", grouped.Yesterday)
	printBucket("Last 7 days", grouped.LastWeek)
	printBucket("Last 30 days", grouped.LastMonth)
	printBucket("Older", grouped.Older)

	if page != nil && page.HasMore && !historyAll {
		dimColor.Println("\nMore reviews available. Re-run with --all to fetch everything.")
	}
	return nil
}

func printBucket(label string, reviews []core.Review) {
	if len(reviews) == 0 {
		return
	}
	boldColor.Printf("\n%s\n", label)
	for _, r := range reviews {
		fmt.Printf("  %s  ", r.ID)
		dimColor.Printf("%-12s %s  %s\n", r.Language, r.ChatModelID, r.CreatedAt.Local().Format("15:04"))
	}
}

func runShow(_ *cobra.Command, args []string) error {
	state, err := stateStore()
	if err != nil {
		return err
	}
	client, err := newAPIClient(state)
	if err != nil {
		return err
	}

	r, err := client.GetReview(context.Background(), args[0])
	if err != nil {
		return err
	}

	model, _ := catalog.ChatModelByID(r.ChatModelID)
	titleColor.Println("CodeCritic - Code Review")
	dimColor.Printf("   Model: %s  Language: %s  Created: %s\n\n", model.Name, r.Language, r.CreatedAt.Local().Format("2006-01-02 15:04"))

	rendered, err := glamour.Render(r.Review, "dark")
	if err != nil {
		rendered = r.Review + "\n"
	}
	fmt.Print(rendered)
	return nil
}

func runDelete(_ *cobra.Command, args []string) error {
	state, err := stateStore()
	if err != nil {
		return err
	}
	client, err := newAPIClient(state)
	if err != nil {
		return err
	}

	if err := client.DeleteReview(context.Background(), args[0]); err != nil {
		return err
	}

	successColor.Printf("Deleted review %s\n", args[0])
	return nil
}
