package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"preflight/internal/model"
)

var rootCmd = &cobra.Command{
	Use:   "preflightctl",
	Short: "Operator CLI for the preflight API",
	Long: `preflightctl submits preflight actions and inspects gate state over the HTTP API.
Every submit carries an idempotency key; pass --key to retry a submission safely.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("PREFLIGHTCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("server", "s", "http://localhost:8080", "preflight API base URL")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().Duration("timeout", 10*time.Second, "request timeout")
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
}

func registerCommands() {
	rootCmd.AddCommand(submitCmd())
	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(healthCmd())
}

func apiClient() *client {
	return newClient(viper.GetString("server"), viper.GetDuration("timeout"))
}

func submitCmd() *cobra.Command {
	var req submitRequest
	var payload string
	cmd := &cobra.Command{
		Use:   "submit <document-id> <action>",
		Short: "Submit an action against a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.DocumentID, req.Action = args[0], args[1]
			if req.IdempotencyKey == "" {
				req.IdempotencyKey = uuid.NewString()
			}
			if payload != "" {
				if !json.Valid([]byte(payload)) {
					return fmt.Errorf("--payload is not valid JSON")
				}
				req.Payload = json.RawMessage(payload)
			}
			res, err := apiClient().Submit(cmd.Context(), req)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), res)
			}
			renderResult(cmd.OutOrStdout(), req.IdempotencyKey, res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Role, "role", "r", "", "custody role asserted by the caller")
	cmd.Flags().StringVarP(&req.IdempotencyKey, "key", "k", "", "idempotency key (generated when empty)")
	cmd.Flags().StringVar(&payload, "payload", "", "JSON object recorded with the event")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func evaluateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <document-id>",
		Short: "Show a document's gate color and next action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eval, err := apiClient().Evaluate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), eval)
			}
			renderEvaluation(cmd.OutOrStdout(), eval)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <document-id>",
		Short: "List a document's action events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := apiClient().History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), h)
			}
			renderHistory(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health <batch-id>",
		Short: "Summarize gate colors across a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := apiClient().BatchHealth(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), h)
			}
			renderHealth(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

func renderResult(w io.Writer, key string, res *model.ActionResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Action ID", "Key", "Gate", "Next", "Events", "Duplicate"})
	var id int64
	if res.Event != nil {
		id = res.Event.ActionID
	}
	tw.AppendRow(table.Row{id, key, res.GateColor, actionName(res.SelectedAction), res.ActionEventsCount, res.Duplicate})
	tw.Render()
}

func renderEvaluation(w io.Writer, eval *model.Evaluation) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Document", "Gate", "Next", "Focus", "Open", "Escalated"})
	focus := ""
	if eval.FocusFinding != nil {
		focus = eval.FocusFinding.Section + "/" + eval.FocusFinding.Code
	}
	tw.AppendRow(table.Row{eval.DocumentID, eval.GateColor, actionName(eval.SelectedAction), focus, eval.OpenFindings, eval.PendingEscalation})
	tw.Render()
}

func renderHistory(w io.Writer, h *historyResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Action ID", "Action", "Role", "Key", "Created"})
	for _, ev := range h.Events {
		tw.AppendRow(table.Row{ev.ActionID, ev.ActionType, ev.ActorRole, ev.IdempotencyKey, ev.CreatedAt.Format(time.RFC3339)})
	}
	tw.AppendFooter(table.Row{"", "", "", "Total", h.ActionEventsCount})
	tw.Render()
}

func renderHealth(w io.Writer, h *model.BatchHealth) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Gate", "Documents"})
	colors := make([]model.GateColor, 0, len(h.CountsByGateColor))
	for c := range h.CountsByGateColor {
		colors = append(colors, c)
	}
	sort.Slice(colors, func(i, j int) bool { return severity(colors[i]) < severity(colors[j]) })
	for _, c := range colors {
		tw.AppendRow(table.Row{c, h.CountsByGateColor[c]})
	}
	tw.AppendFooter(table.Row{"Total", h.TotalDocuments})
	tw.Render()
	fmt.Fprintf(w, "events: %d  last updated: %s\n", h.ActionEventsTotal, h.LastUpdated.Format(time.RFC3339))
}

func severity(c model.GateColor) int {
	for i, known := range model.GateColors {
		if c == known {
			return i
		}
	}
	return len(model.GateColors)
}

func actionName(a *model.ActionType) string {
	if a == nil {
		return "-"
	}
	return string(*a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
