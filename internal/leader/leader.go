// Package leader provides Kubernetes Lease-based leader election so that
// exactly one replica runs the live auction at a time. Followers keep
// serving health probes and wait for the lease.
package leader

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/pitchside/auctiond/internal/config"
)

// identity returns this replica's election identity: POD_NAME when running
// in-cluster, the hostname otherwise.
func identity() string {
	if name := os.Getenv("POD_NAME"); name != "" {
		return name
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

// ClientFactory creates a Kubernetes clientset. Swapped out in tests.
var ClientFactory = func() (kubernetes.Interface, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("building in-cluster config: %w", err)
	}
	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating kubernetes client: %w", err)
	}
	return client, nil
}

// Run joins the election and blocks until the loop exits. onLead is called
// when this replica acquires the lease and should block until its ctx is
// done; onLose runs when leadership is lost.
func Run(ctx context.Context, cfg config.LeaderElectionConfig, logger *slog.Logger, onLead func(ctx context.Context), onLose func()) error {
	id := identity()
	logger.Info("joining leader election",
		slog.String("identity", id),
		slog.String("lease", cfg.LeaseName),
		slog.String("namespace", cfg.LeaseNamespace),
	)

	client, err := ClientFactory()
	if err != nil {
		return fmt.Errorf("leader election client: %w", err)
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      cfg.LeaseName,
			Namespace: cfg.LeaseNamespace,
		},
		Client: client.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: id,
		},
	}

	leaderelection.RunOrDie(ctx, leaderelection.LeaderElectionConfig{
		Lock:            lock,
		LeaseDuration:   cfg.LeaseDuration,
		RenewDeadline:   cfg.RenewDeadline,
		RetryPeriod:     cfg.RetryPeriod,
		ReleaseOnCancel: true,
		Callbacks: leaderelection.LeaderCallbacks{
			OnStartedLeading: func(ctx context.Context) {
				logger.Info("acquired auction leadership", slog.String("identity", id))
				onLead(ctx)
			},
			OnStoppedLeading: func() {
				logger.Info("lost auction leadership", slog.String("identity", id))
				onLose()
			},
			OnNewLeader: func(newID string) {
				if newID == id {
					return
				}
				logger.Info("another replica leads the auction", slog.String("leader", newID))
			},
		},
	})

	return nil
}
