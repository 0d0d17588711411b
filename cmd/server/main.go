package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-pg/pg/v10"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcactor "github.com/rbroggi/accountsvc/internal/actors/grpc"
	"github.com/rbroggi/accountsvc/internal/actors/inmem"
	mongoactor "github.com/rbroggi/accountsvc/internal/actors/mongo"
	"github.com/rbroggi/accountsvc/internal/actors/password"
	"github.com/rbroggi/accountsvc/internal/actors/postgres"
	"github.com/rbroggi/accountsvc/internal/actors/rest"
	"github.com/rbroggi/accountsvc/internal/actors/token"
	"github.com/rbroggi/accountsvc/internal/config"
	"github.com/rbroggi/accountsvc/internal/core/ports"
	"github.com/rbroggi/accountsvc/internal/core/usecase"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func init() {
	// Log as JSON instead of the default ASCII formatter.
	log.SetFormatter(&log.JSONFormatter{})

	// Output to stdout instead of the default stderr
	log.SetOutput(os.Stdout)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	repository, closeRepository, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepository()

	issuer, err := token.NewIssuer(token.IssuerArgs{Secret: cfg.JWTSecret, TTL: cfg.TokenTTL})
	if err != nil {
		return err
	}
	userSvc := usecase.NewUserService(usecase.UserServiceArgs{
		Repository: repository,
		Hasher:     password.NewArgon2idHasher(),
		Tokens:     issuer,
	})

	healthSvc, err := grpcactor.NewHealthService(grpcactor.HealthServiceArgs{Pinger: repository, Interval: cfg.HealthInterval})
	if err != nil {
		return err
	}
	router, err := rest.NewRouter(rest.RouterArgs{
		Users:  rest.NewUserHandler(rest.UserHandlerArgs{Usecase: userSvc}),
		Health: healthSvc,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
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
		return healthSvc.Run(gctx)
	})
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	log.
		WithField("http-server-port", cfg.Port).
		WithField("grpc-server-port", cfg.GRPCPort).
		WithField("store-driver", cfg.StoreDriver).
		Info("servers up or soon to be up. listening to SIGTERM, SIGINT, SIGQUIT for stoping the server")

	return g.Wait()
}

// openRepository connects the configured store. The returned func releases it.
func openRepository(ctx context.Context, cfg *config.Config) (ports.Repository, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn("using the in-memory store, data is lost on restart")
		return inmem.NewMemoryDB(), func() {}, nil

	case config.DriverMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DatabaseURL))
		if err != nil {
			return nil, nil, fmt.Errorf("error connecting to mongo: %w", err)
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.WithError(err).Warn("error disconnecting from mongo")
			}
		}
		if err := client.Ping(ctx, nil); err != nil {
			closeFn()
			log.WithError(err).Error("db does not appear to be reachable")
			return nil, nil, err
		}
		mongoDB, err := mongoactor.NewMongoDB(mongoactor.MongoDBArgs{
			UserCollection: client.Database(cfg.MongoDatabase).Collection("users"),
		})
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		if err := mongoDB.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("error creating mongo indexes: %w", err)
		}
		return mongoDB, closeFn, nil

	default:
		opts, err := pg.ParseURL(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("error parsing postgres url: %w", err)
		}
		db := pg.Connect(opts)
		closeFn := func() {
			if err := db.Close(); err != nil {
				log.WithError(err).Warn("error closing postgres pool")
			}
		}
		if err := db.Ping(ctx); err != nil {
			closeFn()
			log.WithError(err).Error("db does not appear to be reachable")
			return nil, nil, err
		}
		pgDB, err := postgres.NewPostgresDB(postgres.PostgresDBArgs{DB: db})
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		return pgDB, closeFn, nil
	}
}

func main() {
	if err := run(); err != nil {
		log.WithError(err).Fatal("server terminated with error")
	}
}
