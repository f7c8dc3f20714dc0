package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"dqx0.com/go/httpmsg/httpx"
)

type uriView struct {
	URI       string        `json:"uri"`
	Scheme    string        `json:"scheme,omitempty"`
	User      string        `json:"user,omitempty"`
	Password  *string       `json:"password,omitempty"`
	Host      string        `json:"host,omitempty"`
	Port      int           `json:"port,omitempty"`
	Authority string        `json:"authority,omitempty"`
	Directory string        `json:"directory,omitempty"`
	File      string        `json:"file,omitempty"`
	Path      string        `json:"path,omitempty"`
	Segments  []string      `json:"segments,omitempty"`
	Query     *httpx.Params `json:"query,omitempty"`
	Fragment  string        `json:"fragment,omitempty"`
	Rendered  string        `json:"rendered"`
}

func newURICmd() *cobra.Command {
	var from, to string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "uri <uri>",
		Short: "Parse a URI and render a range of its components",
		Long: `Parse a URI and print the part between two components, inclusive.
Components: scheme, userinfo, host, port, directory, file, query,
fragment, and the composites authority and path.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := httpx.ParseURI(args[0])
			if err != nil {
				return err
			}
			start, ok := httpx.ParseComponent(from)
			if !ok {
				return errors.Errorf("unknown component %q", from)
			}
			end, ok := httpx.ParseComponent(to)
			if !ok {
				return errors.Errorf("unknown component %q", to)
			}
			rendered := u.Render(start, end)
			if !asJSON {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), rendered)
				return err
			}
			return writeJSON(cmd.OutOrStdout(), describeURI(u, rendered))
		},
	}
	cmd.Flags().StringVar(&from, "from", "scheme", "first component to render")
	cmd.Flags().StringVar(&to, "to", "fragment", "last component to render")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print every component as JSON")
	return cmd
}

func describeURI(u httpx.URI, rendered string) uriView {
	v := uriView{
		URI:       u.String(),
		Scheme:    u.Scheme(),
		User:      u.User(),
		Host:      u.Host(),
		Authority: u.Authority(),
		Directory: u.Directory(),
		File:      u.File(),
		Path:      u.Path(),
		Segments:  u.Segments(),
		Fragment:  u.Fragment(),
		Rendered:  rendered,
	}
	if pw, ok := u.Password(); ok {
		v.Password = &pw
	}
	if p, ok := u.Port(); ok {
		v.Port = p
	}
	if q := u.QueryParams(); q.Len() > 0 {
		v.Query = q
	}
	return v
}
