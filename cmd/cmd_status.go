package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common"
	"github.com/gaze-network/doginals-indexer/internal/config"
	"github.com/gaze-network/doginals-indexer/pkg/httpclient"
	"github.com/spf13/cobra"
)

type statusCmdOptions struct {
	API     string
	Timeout time.Duration
}

type statusResult struct {
	Hash         string `json:"hash"`
	Height       int64  `json:"height"`
	Inscriptions uint64 `json:"inscriptions"`
	LostSats     string `json:"lostSats"`
	BlockTime    int64  `json:"blockTime"`
}

// NewStatusCommand asks a running indexer for its tip.
func NewStatusCommand() *cobra.Command {
	opts := &statusCmdOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the tip of a running doginals indexer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return statusHandler(opts, cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.API, "api", "", "Base url of the indexer API. Defaults to localhost on http_server.port")
	flags.DurationVar(&opts.Timeout, "timeout", 10*time.Second, "Request timeout")

	return cmd
}

func statusHandler(opts *statusCmdOptions, cmd *cobra.Command, _ []string) error {
	api := opts.API
	if api == "" {
		api = fmt.Sprintf("http://127.0.0.1:%d", config.Load().HTTPServer.Port)
	}
	client, err := httpclient.New(api, httpclient.Config{Timeout: opts.Timeout})
	if err != nil {
		return errors.Wrap(err, "invalid api url")
	}

	resp, err := client.Get(cmd.Context(), "/v1/doginals/block", nil)
	if err != nil {
		return errors.Wrap(err, "can't reach indexer api")
	}
	var status common.HttpResponse[statusResult]
	if err := resp.UnmarshalBody(&status); err != nil {
		return errors.WithStack(err)
	}
	if status.Error != nil {
		return errors.Errorf("indexer api returned %d: %s", resp.StatusCode, *status.Error)
	}
	if status.Result == nil {
		return errors.Errorf("indexer api returned %d without a result", resp.StatusCode)
	}

	out, err := json.MarshalIndent(status.Result, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
