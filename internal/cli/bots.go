package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewBotsCmd создаёт группу команд для ботов.
func NewBotsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bots",
		Short: "Manage bots",
	}

	cmd.AddCommand(
		newBotsListCmd(clientFn, outputFn),
		newBotsStartCmd(clientFn, outputFn),
	)

	return cmd
}

func newBotsListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List supported bot types",
		RunE: func(cmd *cobra.Command, args []string) error {
			bots, err := clientFn().ListBots()
			if err != nil {
				return err
			}

			rows := make([][]string, len(bots))
			for i, b := range bots {
				rows[i] = []string{b}
			}

			outputFn().Print([]string{"BOT_TYPE"}, rows, bots)
			return nil
		},
	}
}

func newBotsStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var flags startFlags

	cmd := &cobra.Command{
		Use:   "start BOT_TYPE",
		Short: "Queue bot instances for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}

			ack, err := clientFn().StartBot(args[0], req)
			if err != nil {
				return err
			}

			printAck(outputFn(), ack)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// startFlags — общие флаги команд запуска.
type startFlags struct {
	instances  int
	priority   uint8
	config     string
	configFile string
	accounts   []string
}

func (f *startFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.instances, "instances", 0, "Number of instances (defaults to the number of sub-configs)")
	cmd.Flags().Uint8Var(&f.priority, "priority", 0, "Message priority 0..10 (server default if 0)")
	cmd.Flags().StringVar(&f.config, "config", "", `Instances config as JSON: {"instances":[...]}`)
	cmd.Flags().StringVar(&f.configFile, "config-file", "", "Path to instances config JSON")
	cmd.Flags().StringSliceVar(&f.accounts, "account", nil, "Account per instance (repeatable)")
}

func (f *startFlags) request() (StartRequest, error) {
	return buildStartRequest(f.instances, f.priority, f.config, f.configFile, f.accounts)
}

func printAck(out *Output, ack *AckResponse) {
	out.Success(fmt.Sprintf("%s: %s", ack.Message, ack.MessageID))
	out.Print(
		[]string{"MESSAGE_ID", "STATUS", "BOT_TYPE", "INSTANCES"},
		[][]string{{ack.MessageID, ack.Status, ack.BotType, strconv.Itoa(ack.Instances)}},
		ack,
	)
}
