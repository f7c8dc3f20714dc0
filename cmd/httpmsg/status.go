package main

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"dqx0.com/go/httpmsg/httpx"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <code>",
		Short: "Print the reason phrase for a status code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Wrapf(err, "status code %q", args[0])
			}
			text := httpx.StatusText(code)
			if text == "" {
				return errors.Errorf("no reason phrase for %d", code)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", code, text)
			return err
		},
	}
}
