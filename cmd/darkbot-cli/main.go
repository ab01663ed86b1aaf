// darkbot CLI — инструмент командной строки для запуска ботов,
// загрузки видео и просмотра результатов через HTTP API.
//
// Использование:
//
//	darkbot [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	bots    Список ботов и запуск
//	upload  Загрузка готовых видео
//	tasks   Результаты задач
//	dlq     Запаркованные dead letters
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/darkbot/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "darkbot",
		Short:         "darkbot CLI — content bots on a message queue",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := "http://localhost:8080"
	if v := os.Getenv("DARKBOT_API_URL"); v != "" {
		defaultURL = v
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewBotsCmd(clientFn, outputFn),
		cli.NewUploadCmd(clientFn, outputFn),
		cli.NewTasksCmd(clientFn, outputFn),
		cli.NewDLQCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
