package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/pubsub"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcactor "github.com/rbroggi/accountsvc/internal/actors/grpc"
	produceractor "github.com/rbroggi/accountsvc/internal/actors/pubsub/producer"
	subscriberactor "github.com/rbroggi/accountsvc/internal/actors/pubsub/subscriber"
	"github.com/rbroggi/accountsvc/internal/config"
	"github.com/rbroggi/accountsvc/internal/core/usecase"
	log "github.com/sirupsen/logrus"
)

func init() {
	// Log as JSON instead of the default ASCII formatter.
	log.SetFormatter(&log.JSONFormatter{})

	// Output to stdout instead of the default stderr
	log.SetOutput(os.Stdout)
}

// subscriptionPinger reports the worker healthy while its CDC subscription exists.
type subscriptionPinger struct {
	subscription *pubsub.Subscription
}

func (s subscriptionPinger) Ping(ctx context.Context) error {
	ok, err := s.subscription.Exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("subscription %s does not exist", s.subscription.ID())
	}
	return nil
}

func run() error {
	cfg, err := config.LoadWorker()
	if err != nil {
		return err
	}
	log.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return err
	}
	defer client.Close()

	topic := client.Topic(cfg.PublicTopicID)
	defer topic.Stop()
	producer, err := produceractor.NewProducer(topic)
	if err != nil {
		return err
	}

	informer := usecase.NewInformer(producer)

	subscription := client.Subscription(cfg.SubscriptionID)
	subscriber, err := subscriberactor.NewSubscriber(subscriberactor.SubscriberArgs{
		UserEventHandler: informer,
		Subscription:     subscription,
	})
	if err != nil {
		return err
	}

	healthSvc, err := grpcactor.NewHealthService(grpcactor.HealthServiceArgs{
		Pinger:   subscriptionPinger{subscription: subscription},
		Interval: cfg.HealthInterval,
	})
	if err != nil {
		return err
	}
	grpcServer := grpc.NewServer()
	healthSvc.Register(grpcServer)
	// Register reflection service on gRPC server.
	reflection.Register(grpcServer)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("error listening on grpc port: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return subscriber.Consume(gctx)
	})
	g.Go(func() error {
		return healthSvc.Run(gctx)
	})
	g.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		grpcServer.GracefulStop()
		return nil
	})

	log.
		WithField("grpc-server-port", cfg.GRPCPort).
		WithField("subscription", cfg.SubscriptionID).
		WithField("topic", cfg.PublicTopicID).
		Info("informer up. listening to SIGTERM, SIGINT, SIGQUIT for stoping the worker")

	return g.Wait()
}

func main() {
	if err := run(); err != nil {
		log.WithError(err).Fatal("worker terminated with error")
	}
}
