package main

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/gcurl"
	"github.com/adamwoolhether/gcurl/engine"
	"github.com/adamwoolhether/gcurl/internal/output"
)

func (a *app) getCmd() *cobra.Command {
	var data []string

	cmd := &cobra.Command{
		Use:   "get URL",
		Short: "Send a GET request, with -d pairs as the query string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func() (gcurl.Request, error) {
				uri, err := gcurl.NewURI(args[0])
				if err != nil {
					return nil, err
				}
				params, err := gcurl.ParseParams(data...)
				if err != nil {
					return nil, err
				}

				req := gcurl.NewGetRequest(uri)
				for _, p := range params {
					if err := req.AddVar(p.Key, p.Value); err != nil {
						return nil, err
					}
				}
				return req, nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&data, "data", "d", nil, "key=value query parameter, repeatable")

	return cmd
}

func (a *app) postCmd() *cobra.Command {
	var data []string

	cmd := &cobra.Command{
		Use:   "post URL",
		Short: "Send -d pairs as an application/x-www-form-urlencoded POST",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func() (gcurl.Request, error) {
				uri, err := gcurl.NewURI(args[0])
				if err != nil {
					return nil, err
				}
				params, err := gcurl.ParseParams(data...)
				if err != nil {
					return nil, err
				}

				req := gcurl.NewPostURLEncodedRequest(uri)
				for _, p := range params {
					if err := req.AddVar(p.Key, p.Value); err != nil {
						return nil, err
					}
				}
				return req, nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&data, "data", "d", nil, "key=value form field, repeatable")

	return cmd
}

func (a *app) putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put URL FILE",
		Short: "Upload FILE as the body of a PUT",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func() (gcurl.Request, error) {
				uri, err := gcurl.NewURI(args[0])
				if err != nil {
					return nil, err
				}
				return gcurl.NewPutFileRequest(uri, args[1]), nil
			})
		},
	}
}

// /////////////////////////////////////////////////////////////////

func (a *app) run(cmd *cobra.Command, build func() (gcurl.Request, error)) error {
	logger := a.logger()

	req, err := build()
	if err != nil {
		return err
	}

	opts := a.options(logger)

	var out *output.File
	if a.outPath != "" {
		if out, err = a.createOutput(logger); err != nil {
			return err
		}
		// Following hops client-side buffers every body so only the final
		// one reaches the file.
		if a.hops == 0 {
			opts = append(opts, gcurl.WithOutput(out))
		}
	}

	s, err := gcurl.New(req, opts...)
	if err != nil {
		abort(out)
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("failed to close", "error", err)
		}
	}()

	var resp *gcurl.Response
	if a.hops > 0 {
		resp, err = s.Follow(cmd.Context(), a.hops)
	} else {
		resp, err = s.Exec(cmd.Context())
	}
	if err != nil {
		abort(out)
		return err
	}

	if out != nil {
		if a.hops > 0 {
			if _, err := out.Write(resp.Body()); err != nil {
				abort(out)
				return fmt.Errorf("writing %s: %w", a.outPath, err)
			}
		}
		if err := out.Commit(); err != nil {
			return fmt.Errorf("writing %s: %w", a.outPath, err)
		}
	}

	a.print(resp, s)

	if a.fail && resp.StatusCode() >= 400 {
		return &statusError{code: resp.StatusCode()}
	}

	return nil
}

func (a *app) options(logger *slog.Logger) []gcurl.Option {
	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if a.settings.Rate > 0 {
		engineOpts = append(engineOpts, engine.WithThrottle(a.settings.Rate, a.settings.Burst))
	}

	opts := []gcurl.Option{
		gcurl.WithConfig(a.settings.Transfer),
		gcurl.WithLogger(logger),
		gcurl.WithEngine(gcurl.DefaultEngine(engineOpts...)),
	}
	if a.settings.RequestIDHeader != "" {
		opts = append(opts, gcurl.WithRequestIDHeader(a.settings.RequestIDHeader))
	}

	return opts
}

func (a *app) createOutput(logger *slog.Logger) (*output.File, error) {
	var opts []output.Option
	if a.checksum != "" {
		opts = append(opts, output.WithChecksum(sha256.New(), a.checksum))
	}
	if a.verbose {
		opts = append(opts, output.WithProgress())
	}

	out, err := output.Create(a.outPath, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}

	return out, nil
}

func abort(out *output.File) {
	if out != nil {
		out.Abort()
	}
}

// print writes headers when asked, then the body unless it went to a
// file. With --verbose a colored summary goes to stderr.
func (a *app) print(resp *gcurl.Response, s *gcurl.Single) {
	if a.include {
		fmt.Fprintf(a.stdout, "%s %d %s\n", resp.Proto(), resp.StatusCode(), resp.Reason())
		h := resp.Header()
		for _, k := range slices.Sorted(maps.Keys(h)) {
			for _, v := range h[k] {
				fmt.Fprintf(a.stdout, "%s: %s\n", k, v)
			}
		}
		fmt.Fprintln(a.stdout)
	}

	if a.outPath == "" {
		_, _ = a.stdout.Write(resp.Body())
	}

	if a.verbose {
		status := statusColor(resp.StatusCode()).Sprintf("%d %s", resp.StatusCode(), resp.Reason())
		fmt.Fprintf(a.stderr, "%s %s (requests=%d header_bytes=%d id=%s)\n",
			status, s.URI(), s.RequestCounter(), resp.HeaderLen(), resp.RequestID())
	}
}

func statusColor(code int) *color.Color {
	switch {
	case code >= 500:
		return color.New(color.FgRed, color.Bold)
	case code >= 400:
		return color.New(color.FgYellow)
	case code >= 300:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgGreen)
	}
}
