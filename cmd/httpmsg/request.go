package main

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"dqx0.com/go/httpmsg/httpx"
)

// requestView is the JSON form of a ServerRequest.
type requestView struct {
	Method     string              `json:"method"`
	Target     string              `json:"target"`
	URI        string              `json:"uri"`
	Version    string              `json:"version"`
	Headers    map[string][]string `json:"headers"`
	Cookies    map[string]string   `json:"cookies,omitempty"`
	Query      *httpx.Params       `json:"query"`
	Post       *httpx.Params       `json:"post"`
	ParsedBody any                 `json:"parsed_body"`
	Files      httpx.UploadTree    `json:"files,omitempty"`
	RequestID  string              `json:"request_id,omitempty"`
}

func describeRequest(r *httpx.ServerRequest, requestID string) requestView {
	return requestView{
		Method:     r.Method(),
		Target:     r.RequestTarget(),
		URI:        r.URI().String(),
		Version:    r.ProtocolVersion(),
		Headers:    r.Header().Map(),
		Cookies:    r.CookieParams(),
		Query:      r.QueryParams(),
		Post:       r.PostParams(),
		ParsedBody: r.ParsedBody(),
		Files:      r.UploadedFiles(),
		RequestID:  requestID,
	}
}

func newRequestCmd() *cobra.Command {
	var (
		tls       bool
		maxMemory int64
	)
	cmd := &cobra.Command{
		Use:   "request <raw-http-file>",
		Short: "Read a raw HTTP/1.x request and print it as a server request",
		Long: `Read one HTTP/1.x request (request line, header fields and body) and
print its query fields, decoded body and uploads as JSON. "-" reads
standard input. Uploaded files are stored in a temporary directory that
is removed afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return errors.WithStack(err)
				}
				defer f.Close()
				in = f
			}
			dir, err := os.MkdirTemp("", "httpmsg-request-*")
			if err != nil {
				return errors.WithStack(err)
			}
			defer os.RemoveAll(dir)
			logger, err := consoleLogger(cmd)
			if err != nil {
				return err
			}
			reg, err := httpx.NewUploadRegistry(dir, httpx.RegistryLogger(logger))
			if err != nil {
				return err
			}
			defer reg.Cleanup()

			sr, err := httpx.ReadServerRequest(bufio.NewReader(in), reg, httpx.ReadOptions{
				TLS:  tls,
				Body: httpx.BodyLimits{MaxMemory: maxMemory},
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), describeRequest(sr, ""))
		},
	}
	cmd.Flags().BoolVar(&tls, "tls", false, "treat the request as received over HTTPS")
	cmd.Flags().Int64Var(&maxMemory, "max-memory", 0, "bytes of form values and body kept in memory (0 = 32 MiB)")
	return cmd
}
