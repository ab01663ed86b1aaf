package cli

import (
	"github.com/spf13/cobra"
)

// NewUploadCmd создаёт группу команд для загрузки готовых видео.
func NewUploadCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload rendered videos to platforms",
	}

	var flags startFlags

	start := &cobra.Command{
		Use:   "start",
		Short: "Queue an upload for each instance config",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}

			ack, err := clientFn().StartUpload(req)
			if err != nil {
				return err
			}

			printAck(outputFn(), ack)
			return nil
		},
	}
	flags.register(start)

	cmd.AddCommand(start)
	return cmd
}
