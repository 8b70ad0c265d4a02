package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	browseCategory  string
	browseMaxBudget float64
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "list open tasks on the marketplace",
	RunE:  runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
	browseCmd.Flags().StringVar(&browseCategory, "category", "", "filter to a single task category")
	browseCmd.Flags().Float64Var(&browseMaxBudget, "max-budget", 0, "filter to tasks at or under this XMR budget")
}

type browseFilter struct {
	Category     string  `json:"category,omitempty"`
	MaxBudgetXMR float64 `json:"maxBudgetXmr,omitempty"`
}

type taskSummary struct {
	TaskID      string  `json:"taskId"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	BudgetXMR   float64 `json:"budgetXmr"`
	TrustTier   int     `json:"trustTier"`
	Bids        int     `json:"bids"`
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	var tasks []taskSummary
	filter := browseFilter{Category: browseCategory, MaxBudgetXMR: browseMaxBudget}
	if err := call("marketplace.browse", filter, &tasks); err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Println("no open tasks")
		return nil
	}
	for _, t := range tasks {
		fmt.Printf("%s  %.4f XMR  tier=%d  bids=%d  %s\n", t.TaskID, t.BudgetXMR, t.TrustTier, t.Bids, t.Description)
	}
	return nil
}

var (
	bidTaskID   string
	bidPriceXMR float64
)

var bidCmd = &cobra.Command{
	Use:   "bid",
	Short: "submit a bid on an open task",
	RunE:  runBid,
}

func init() {
	rootCmd.AddCommand(bidCmd)
	bidCmd.Flags().StringVar(&bidTaskID, "task", "", "task id to bid on (required)")
	bidCmd.Flags().Float64Var(&bidPriceXMR, "price", 0, "bid price in XMR (required)")
	bidCmd.MarkFlagRequired("task")
	bidCmd.MarkFlagRequired("price")
}

type bidParams struct {
	TaskID   string  `json:"taskId"`
	PriceXMR float64 `json:"priceXmr"`
}

type submitResult struct {
	RecordID string `json:"recordId"`
	Outcome  string `json:"outcome"`
}

func runBid(cmd *cobra.Command, _ []string) error {
	var result submitResult
	params := bidParams{TaskID: bidTaskID, PriceXMR: bidPriceXMR}
	if err := call("marketplace.bid", params, &result); err != nil {
		return err
	}
	fmt.Printf("bid submitted: %s (%s)\n", result.RecordID, result.Outcome)
	return nil
}

var (
	postDescription  string
	postBudgetXMR    float64
	postCategory     string
	postTrustTier    int
	postRequirements []string
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "post a new task to the marketplace",
	RunE:  runPost,
}

func init() {
	rootCmd.AddCommand(postCmd)
	postCmd.Flags().StringVar(&postDescription, "description", "", "task description (required)")
	postCmd.Flags().Float64Var(&postBudgetXMR, "budget", 0, "task budget in XMR (required)")
	postCmd.Flags().StringVar(&postCategory, "category", "", "task category")
	postCmd.Flags().IntVar(&postTrustTier, "trust-tier", 0, "task trust tier (1-3), selecting its escrow and verification policy")
	postCmd.Flags().StringSliceVar(&postRequirements, "requirement", nil, "a task requirement (repeatable)")
	postCmd.MarkFlagRequired("description")
	postCmd.MarkFlagRequired("budget")
}

type postParams struct {
	Description  string   `json:"description"`
	BudgetXMR    float64  `json:"budgetXmr"`
	Category     string   `json:"category,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	TrustTier    int      `json:"trustTier,omitempty"`
}

func runPost(cmd *cobra.Command, _ []string) error {
	var result submitResult
	params := postParams{
		Description:  postDescription,
		BudgetXMR:    postBudgetXMR,
		Category:     postCategory,
		Requirements: postRequirements,
		TrustTier:    postTrustTier,
	}
	if err := call("marketplace.post", params, &result); err != nil {
		return err
	}
	fmt.Printf("task posted: %s (%s)\n", result.RecordID, result.Outcome)
	return nil
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "request a graceful shutdown of the node",
	RunE:  runShutdown,
}

func init() {
	rootCmd.AddCommand(shutdownCmd)
}

func runShutdown(cmd *cobra.Command, _ []string) error {
	var result map[string]bool
	if err := call("shutdown", nil, &result); err != nil {
		return err
	}
	if result["shutting_down"] {
		fmt.Println("shutdown requested")
	}
	return nil
}
