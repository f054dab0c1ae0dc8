// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nttcom/bgpls/internal/pkg/gobgp"
	"github.com/nttcom/bgpls/pkg/server"
)

var jsonFmt bool

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "bgplsctl",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&jsonFmt, "json", "j", false, "output json format")
	rootCmd.PersistentFlags().String("host", "127.0.0.1", "gobgpd connection address")
	rootCmd.PersistentFlags().StringP("port", "p", "50051", "gobgpd connection port")

	rootCmd.AddCommand(newDecodeCmd(), newLSDBCmd(), newTedCmd(), newPathCmd(), newVersionCmd())
	rootCmd.Run = runRootCmd

	return rootCmd
}

func runRootCmd(cmd *cobra.Command, args []string) {
	cmd.HelpFunc()(cmd, args)
}

// loadServer fills a private LSDB with the Link-State RIB of gobgpd. The
// returned function stops the server and closes the connection.
func loadServer(ctx context.Context, cmd *cobra.Command) (*server.Server, func(), error) {
	client, err := gobgp.NewClient(cmd.Flag("host").Value.String(), cmd.Flag("port").Value.String())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial gobgpd connection: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := server.NewServer(&server.Options{Source: client}, zap.NewNop())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	stop := func() {
		cancel()
		<-done
		_ = client.Close()
	}

	if err := s.SyncOnce(ctx); err != nil {
		stop()
		return nil, nil, err
	}
	return s, stop, nil
}
