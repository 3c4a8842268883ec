package pairsync

import (
	"context"
	"os"
	"os/signal"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding/gzip"

	"github.com/kelda-inc/pairsync/pkg/config"
	"github.com/kelda-inc/pairsync/pkg/fsaccess"
	"github.com/kelda-inc/pairsync/pkg/ignore"
	pb "github.com/kelda-inc/pairsync/pkg/proto/pairsync"
	"github.com/kelda-inc/pairsync/pkg/session"
	"github.com/kelda-inc/pairsync/pkg/watch"
)

func newConnectCommand() *cobra.Command {
	var addr, root, mountKey string
	var includes, excludes, debugPrefixes []string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a pairsync server and sync one mount",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ValidateMountKey(mountKey); err != nil {
				return err
			}
			return runConnect(addr, config.Mount{
				MountKey:      mountKey,
				LocalRoot:     root,
				Includes:      ignore.New(joinLines(includes)),
				Excludes:      ignore.New(joinLinesOrDefault(excludes, config.DefaultExcludes)),
				DebugPrefixes: debugPrefixes,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "server address to dial")
	cmd.Flags().StringVar(&root, "root", "", "local directory to sync")
	cmd.Flags().StringVar(&mountKey, "mount-key", "", "mount key to present to the server")
	cmd.Flags().StringSliceVar(&includes, "include", nil, "extra gitignore-syntax include rule")
	cmd.Flags().StringSliceVar(&excludes, "exclude", nil, "extra gitignore-syntax exclude rule")
	cmd.Flags().StringSliceVar(&debugPrefixes, "debug-prefix", nil, "enable verbose ignore-rule logging under this path prefix")
	cmd.MarkFlagRequired("addr")      //nolint:errcheck
	cmd.MarkFlagRequired("root")      //nolint:errcheck
	cmd.MarkFlagRequired("mount-key") //nolint:errcheck

	return cmd
}

func runConnect(addr string, mount config.Mount) error {
	conn, err := grpc.Dial(addr,
		grpc.WithInsecure(), //nolint:staticcheck
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(pb.MaxFrameBytes),
			grpc.MaxCallSendMsgSize(pb.MaxFrameBytes),
			grpc.UseCompressor(gzip.Name),
		),
	)
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		<-c
		log.Info("received interrupt, disconnecting")
		cancel()
	}()

	client := pb.NewPairSyncClient(conn)
	stream, err := client.Sync(ctx)
	if err != nil {
		return err
	}

	access := fsaccess.New(afero.NewOsFs(), mount.LocalRoot)
	watcher := watch.NewFSNotifyWatcher(mount.LocalRoot)
	sess := session.New(uuid.NewString(), mount, stream, access, watcher)

	log.WithField("addr", addr).WithField("mountKey", mount.MountKey).Info("connected, syncing")
	return sess.Run(ctx)
}
