package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"dqx0.com/go/httpmsg/httpx"
)

func newFilesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "files <raw.json>",
		Short: "Parse a raw upload description into the uploaded-file tree",
		Long: `Read a JSON upload description keyed by form field (single, multiple
or nested namespace entries with name, type, tmp_name, error and size)
and print every file in the resulting tree. "-" reads standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readRawFiles(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			tree, err := httpx.ParseUploadedFiles(raw, nil)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), tree)
			}
			return printTree(cmd.OutOrStdout(), tree)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the tree as JSON")
	return cmd
}

func readRawFiles(path string, stdin io.Reader) (httpx.RawFiles, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw httpx.RawFiles
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode upload description")
	}
	return raw, nil
}

func printTree(w io.Writer, tree httpx.UploadTree) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tNAME\tTYPE\tSIZE\tSTATUS")
	tree.Walk(func(path []string, f *httpx.UploadedFile) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			fieldName(path), f.ClientFilename(), f.ClientMediaType(),
			humanize.IBytes(uint64(f.Size())), f.ErrorCode())
	})
	return tw.Flush()
}

// fieldName renders a tree path the way the form field was named,
// e.g. indent[multiple][0].
func fieldName(path []string) string {
	if len(path) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(path[0])
	for _, p := range path[1:] {
		b.WriteString("[" + p + "]")
	}
	return b.String()
}
