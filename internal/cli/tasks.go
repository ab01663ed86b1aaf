package cli

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

// NewTasksCmd создаёт группу команд для просмотра результатов задач.
func NewTasksCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect task results",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "results MESSAGE_ID",
		Short: "Show instance results of a task by status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := clientFn().TaskResults(args[0])
			if err != nil {
				return err
			}

			statuses := make([]string, 0, len(res.Counts))
			for s := range res.Counts {
				statuses = append(statuses, s)
			}
			sort.Strings(statuses)

			rows := make([][]string, len(statuses))
			for i, s := range statuses {
				rows[i] = []string{res.MessageID, s, strconv.Itoa(res.Counts[s])}
			}

			outputFn().Print([]string{"MESSAGE_ID", "STATUS", "COUNT"}, rows, res)
			return nil
		},
	})

	return cmd
}

// NewDLQCmd создаёт группу команд для dead letter queue.
func NewDLQCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect the dead letter queue",
	}

	var limit int
	parked := &cobra.Command{
		Use:   "parked",
		Short: "List dead letters that are no longer recovered",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := clientFn().ListParked(limit)
			if err != nil {
				return err
			}

			rows := make([][]string, len(list))
			for i, p := range list {
				rows[i] = []string{strconv.FormatInt(p.ID, 10), p.MessageID, p.Reason, p.ParkedAt}
			}

			outputFn().Print([]string{"ID", "MESSAGE_ID", "REASON", "PARKED_AT"}, rows, list)
			return nil
		},
	}
	parked.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	cmd.AddCommand(parked)
	return cmd
}
