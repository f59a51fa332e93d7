package main

import (
	"context"
	"fmt"
	"time"

	"schoollend/internal/api"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

func newLookupCmd(cfgFile *string) *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "lookup [code]",
		Short: "Look up a reservation code through the scanner gRPC API; without a code a scan is simulated",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				cfg, _, closer, err := loadConfigAndLogger(*cfgFile, "lookup")
				if err != nil {
					return err
				}
				if closer != nil {
					defer (func() { _ = closer.Close() })()
				}
				addr = fmt.Sprintf("localhost:%d", cfg.API.GRPC.Port)
			}

			conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("dial %s: %w", addr, err)
			}
			defer conn.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			client := api.NewScannerClient(conn)
			var out *structpb.Struct
			if len(args) == 1 {
				out, err = client.Lookup(ctx, args[0])
			} else {
				out, err = client.Scan(ctx)
			}
			if err != nil {
				return err
			}

			raw, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(out)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "gRPC address (default localhost:<api.grpc.port>)")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "request timeout")
	return cmd
}
