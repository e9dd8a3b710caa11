package commands

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dnsprotect/dnsprotect/src/internal/api"
	"github.com/dnsprotect/dnsprotect/src/internal/cache"
	"github.com/dnsprotect/dnsprotect/src/internal/config"
	"github.com/dnsprotect/dnsprotect/src/internal/injections"
	"github.com/dnsprotect/dnsprotect/src/internal/interceptor"
	"github.com/dnsprotect/dnsprotect/src/internal/log"
	"github.com/dnsprotect/dnsprotect/src/internal/networking"
	"github.com/dnsprotect/dnsprotect/src/internal/upstreams"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout    = 10 * time.Second
	storePingTimeout   = 3 * time.Second
	upstreamDialBudget = 10 * time.Second
)

func CreateServiceCommand() *ServiceCommand {
	sc := &ServiceCommand{
		fs: flag.NewFlagSet("service", flag.ExitOnError),
	}

	sc.fs.DurationVar(&sc.CleanupInterval, "cleanup-interval", time.Minute, "How often expired entries are purged from the memory cache")

	return sc
}

type ServiceCommand struct {
	fs              *flag.FlagSet
	cfg             *config.Config
	ctx             *AppContext
	CleanupInterval time.Duration

	store      cache.Store
	cluster    *upstreams.Cluster
	server     *interceptor.Server
	redirector *networking.Redirector
	apiRunner  *RestartableRunner
}

func (s *ServiceCommand) Name() string {
	return s.fs.Name()
}

func (s *ServiceCommand) Init(args []string, ctx *AppContext) error {
	s.ctx = ctx

	if err := s.fs.Parse(args); err != nil {
		return err
	}

	if cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath); err != nil {
		return err
	} else {
		s.cfg = cfg
	}

	return nil
}

func (s *ServiceCommand) Run() error {
	log.Infof("Starting dnsprotect service...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.start(ctx); err != nil {
		s.shutdown()
		return err
	}

	log.Infof("Service started successfully.")

	g, gctx := errgroup.WithContext(ctx)

	if mem, ok := s.store.(*cache.MemoryStore); ok {
		g.Go(func() error {
			cleanupLoop(gctx, mem, s.CleanupInterval)
			return nil
		})
	}

	if s.apiRunner != nil {
		g.Go(func() error {
			select {
			case <-s.apiRunner.Done():
				if err := s.apiRunner.LastError(); err != nil {
					return fmt.Errorf("API server stopped: %w", err)
				}
			case <-gctx.Done():
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Infof("Shutting down...")
		s.shutdown()
		return nil
	})

	return g.Wait()
}

// start brings up every component in dependency order.
func (s *ServiceCommand) start(ctx context.Context) error {
	store, err := openStore(s.cfg)
	if err != nil {
		return err
	}
	s.store = store
	if store != nil {
		pingCtx, cancel := context.WithTimeout(ctx, storePingTimeout)
		if err := store.Ping(pingCtx); err != nil {
			log.Warnf("Cache store is not reachable yet: %v", err)
		}
		cancel()
	}

	cluster, err := newCluster(s.cfg)
	if err != nil {
		return err
	}
	s.cluster = cluster
	log.Infof("Forwarding to %s", cluster)

	dialCtx, cancel := context.WithTimeout(ctx, upstreamDialBudget)
	cluster.Connect(dialCtx)
	cancel()

	pipeline, err := interceptor.BuildPipeline(s.cfg, store)
	if err != nil {
		return err
	}
	for _, inj := range pipeline.Injections() {
		log.Infof("Injection enabled: %s (%s)", inj.Name(), inj.Phase())
	}

	s.server = interceptor.New(interceptor.OptionsFromConfig(s.cfg), cluster, pipeline)
	if err := s.server.Start(ctx); err != nil {
		s.server = nil
		return err
	}

	if s.cfg.Redirect.IsEnabled() {
		redirector, err := networking.NewRedirector(redirectOptions(s.cfg))
		if err != nil {
			return err
		}
		if err := redirector.Enable(); err != nil {
			return err
		}
		s.redirector = redirector
	}

	if s.cfg.API.IsEnabled() {
		if err := s.startAPIServer(ctx, pipeline); err != nil {
			return err
		}
	}

	return nil
}

// startAPIServer runs the status API under a restartable runner.
func (s *ServiceCommand) startAPIServer(ctx context.Context, pipeline *injections.Pipeline) error {
	deps := api.Dependencies{
		Config:   s.cfg,
		Cluster:  s.cluster,
		Stats:    s.server,
		Pipeline: pipeline,
		Store:    s.store,
	}

	s.apiRunner = NewRestartableRunner(RunnerConfig{
		Name:        "API",
		MaxRestarts: 5,
		StopTimeout: shutdownTimeout,
	}, func(runCtx context.Context) error {
		srv := api.NewServer(s.cfg.API.Listen, deps)

		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			<-runCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				log.Errorf("Error during API server shutdown: %v", err)
			}
		}()

		err := srv.Start()
		if runCtx.Err() != nil {
			<-stopped
			return nil
		}
		if err == nil {
			err = fmt.Errorf("API server exited unexpectedly")
		}
		return err
	})

	return s.apiRunner.Start(ctx)
}

// shutdown stops whatever start brought up, in reverse order.
func (s *ServiceCommand) shutdown() {
	if s.apiRunner != nil {
		if err := s.apiRunner.Stop(); err != nil {
			log.Errorf("Failed to stop API runner: %v", err)
		}
	}

	if s.redirector != nil {
		if err := s.redirector.Disable(); err != nil {
			log.Errorf("Failed to remove redirect rules: %v", err)
		}
	}

	if s.server != nil {
		if err := s.server.Stop(); err != nil {
			log.Errorf("Failed to stop UDP interceptor: %v", err)
		}
	}

	if s.cluster != nil {
		if err := s.cluster.Close(); err != nil {
			log.Errorf("Failed to close forward servers: %v", err)
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Errorf("Failed to close cache store: %v", err)
		}
	}

	log.Infof("Service stopped successfully")
}

// cleanupLoop periodically purges expired entries from the memory store.
func cleanupLoop(ctx context.Context, store *cache.MemoryStore, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Cleanup(); n > 0 {
				log.Debugf("Removed %d expired cache entries", n)
			}
		}
	}
}
