package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"dqx0.com/go/httpmsg/internal/obs"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "httpmsg",
		Short:         "Inspect and serve immutable HTTP messages",
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringP("config", "c", "", "config file path (default $HTTPMSG_CONFIG)")
	root.PersistentFlags().String("log-level", "warn", "console log level for one-shot commands")

	root.AddCommand(
		newURICmd(),
		newFilesCmd(),
		newRequestCmd(),
		newStatusCmd(),
		newServeCmd(),
	)
	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// consoleLogger logs to the command's stderr at the --log-level threshold.
func consoleLogger(cmd *cobra.Command) (obs.Logger, error) {
	name, _ := cmd.Flags().GetString("log-level")
	lvl, err := obs.ParseLevel(name)
	if err != nil {
		return nil, err
	}
	return obs.StdLogger{L: log.New(cmd.ErrOrStderr(), "", 0), Min: lvl, Pref: "httpmsg "}, nil
}
