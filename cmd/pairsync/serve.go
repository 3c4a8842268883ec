package pairsync

import (
	"net"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	_ "google.golang.org/grpc/encoding/gzip" // register the gzip compressor for peers that request it

	"github.com/kelda-inc/pairsync/pkg/config"
	"github.com/kelda-inc/pairsync/pkg/ignore"
	pb "github.com/kelda-inc/pairsync/pkg/proto/pairsync"
	"github.com/kelda-inc/pairsync/pkg/server"
)

func newServeCommand() *cobra.Command {
	var addr, root, mountKey string
	var includes, excludes, debugPrefixes []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept an incoming sync connection for one mount",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ValidateMountKey(mountKey); err != nil {
				return err
			}
			return runServe(addr, config.Mount{
				MountKey:      mountKey,
				LocalRoot:     root,
				Includes:      ignore.New(joinLines(includes)),
				Excludes:      ignore.New(joinLinesOrDefault(excludes, config.DefaultExcludes)),
				DebugPrefixes: debugPrefixes,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "0.0.0.0:9001", "address to listen on")
	cmd.Flags().StringVar(&root, "root", "", "local directory to sync")
	cmd.Flags().StringVar(&mountKey, "mount-key", "", "mount key the connecting peer must present")
	cmd.Flags().StringSliceVar(&includes, "include", nil, "extra gitignore-syntax include rule")
	cmd.Flags().StringSliceVar(&excludes, "exclude", nil, "extra gitignore-syntax exclude rule")
	cmd.Flags().StringSliceVar(&debugPrefixes, "debug-prefix", nil, "enable verbose ignore-rule logging under this path prefix")
	cmd.MarkFlagRequired("root")      //nolint:errcheck
	cmd.MarkFlagRequired("mount-key") //nolint:errcheck

	return cmd
}

func runServe(addr string, mount config.Mount) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	grpcServer := grpc.NewServer(grpc.MaxRecvMsgSize(pb.MaxFrameBytes), grpc.MaxSendMsgSize(pb.MaxFrameBytes))
	srv := server.New(server.StaticResolver{mount.MountKey: mount}, afero.NewOsFs())
	pb.RegisterPairSyncServer(grpcServer, srv)

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		<-c
		log.Info("received interrupt, stopping server")
		grpcServer.GracefulStop()
	}()

	log.WithField("addr", addr).WithField("mountKey", mount.MountKey).Info("pairsync server listening")
	return grpcServer.Serve(lis)
}

func joinLines(rules []string) string {
	out := ""
	for _, r := range rules {
		out += r + "\n"
	}
	return out
}

// joinLinesOrDefault behaves like joinLines, but falls back to def when the
// caller supplied no rules at all (§6's excludes default).
func joinLinesOrDefault(rules []string, def string) string {
	if len(rules) == 0 {
		return def
	}
	return joinLines(rules)
}
