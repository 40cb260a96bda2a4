// Command zkelection joins a ZooKeeper leader election and reports its role
// until interrupted.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	zkelection "github.com/shanexu/go-zkelection"
	"github.com/shanexu/go-zkelection/utils"
)

func main() {
	log := utils.NewSimpleLogger(utils.ParseLevel(os.Getenv("LOG_LEVEL")))
	defer log.Close()

	cfg := zkelection.LoadConfigFromEnv()
	if len(cfg.CandidateDataPayload) == 0 {
		if hostname, err := os.Hostname(); err == nil {
			cfg.CandidateDataPayload = []byte(hostname)
		}
	}

	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Errorf("metrics server: %v", err)
			}
		}()
	}

	var participant *zkelection.ElectionParticipant
	participant, err := zkelection.NewElectionParticipant(cfg,
		zkelection.WithLogger(log.Named("election")),
		zkelection.WithRegisterer(prometheus.DefaultRegisterer),
		zkelection.WithListener(zkelection.LeaderElectionAwareFunc(func(event zkelection.ElectionEvent) {
			switch event {
			case zkelection.ElectionEventElected, zkelection.ElectionEventReady, zkelection.ElectionEventSuspended:
				log.Infof("%v: role %v", event, participant.CurrentRole())
			default:
				log.Debugf("%v", event)
			}
		})),
	)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := participant.Start(ctx); err != nil {
		log.Errorf("%v", err)
		log.Close()
		os.Exit(1)
	}
	log.Infof("participant %s started as %s", cfg.ParticipantID, participant.Candidate())

	go func() {
		<-ctx.Done()
		log.Infof("shutting down")
		participant.Close()
	}()

	if err := participant.AwaitShutdown(); err != nil {
		log.Errorf("election ended: %v", err)
		log.Close()
		os.Exit(1)
	}
}
