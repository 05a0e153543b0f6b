// Command server runs the SecureNest authentication service: MongoDB-backed
// accounts and OTP challenges, Redis-backed chat unlock grants, Postmark
// delivery, and the account HTTP module mounted under /account.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/securenest/authkit/modules/account"
	"github.com/securenest/authkit/pkg/auth"
	"github.com/securenest/authkit/pkg/broadcast"
	"github.com/securenest/authkit/pkg/challenge"
	"github.com/securenest/authkit/pkg/chatlock"
	"github.com/securenest/authkit/pkg/config"
	"github.com/securenest/authkit/pkg/credentials"
	"github.com/securenest/authkit/pkg/email"
	"github.com/securenest/authkit/pkg/httpserver"
	"github.com/securenest/authkit/pkg/logger"
	"github.com/securenest/authkit/pkg/mongo"
	"github.com/securenest/authkit/pkg/redis"
)

type appConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	AppName     string `env:"APP_NAME" envDefault:"SecureNest"`
	TokenSecret string `env:"AUTH_TOKEN_SECRET,required"`
	BcryptCost  int    `env:"AUTH_BCRYPT_COST" envDefault:"12"`
	DevMailDir  string `env:"DEV_MAIL_DIR" envDefault:"./tmp/mail"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	var appCfg appConfig
	if err := config.Load(&appCfg); err != nil {
		return err
	}
	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}
	var mongoCfg mongo.Config
	if err := config.Load(&mongoCfg); err != nil {
		return err
	}
	var redisCfg redis.Config
	if err := config.Load(&redisCfg); err != nil {
		return err
	}

	var log *slog.Logger
	if appCfg.Env == "production" {
		log = logger.New(logger.WithProduction(appCfg.AppName))
	} else {
		log = logger.New(logger.WithDevelopment(appCfg.AppName))
	}

	mongoClient, err := mongo.Connect(ctx, mongoCfg)
	if err != nil {
		return err
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	db := mongoClient.Database(mongoCfg.Database)

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	sender, err := buildSender(appCfg, log)
	if err != nil {
		return err
	}

	challengeStore, err := challenge.NewMongoStore(db, "")
	if err != nil {
		return err
	}
	if err := challengeStore.EnsureIndexes(ctx); err != nil {
		return err
	}
	challenges, err := challenge.NewService(challengeStore, challenge.WithLogger(log))
	if err != nil {
		return err
	}

	users, err := auth.NewMongoUserStore(db, "")
	if err != nil {
		return err
	}
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}

	authEvents := broadcast.New[auth.Event](16)
	defer authEvents.Close()
	hasher := credentials.New(credentials.WithCost(appCfg.BcryptCost))
	authSvc, err := auth.New(users, challenges, hasher, sender, appCfg.TokenSecret,
		auth.WithLogger(log),
		auth.WithAppName(appCfg.AppName),
		auth.WithEvents(authEvents),
	)
	if err != nil {
		return err
	}

	lockStore, err := chatlock.NewMongoLockStore(db, "")
	if err != nil {
		return err
	}
	if err := lockStore.EnsureIndexes(ctx); err != nil {
		return err
	}
	grants, err := chatlock.NewRedisGrantStore(redisClient, "")
	if err != nil {
		return err
	}
	lockEvents := broadcast.New[chatlock.Event](16)
	defer lockEvents.Close()
	ledger, err := chatlock.NewLedger(lockStore, grants, authSvc,
		chatlock.WithLogger(log),
		chatlock.WithEvents(lockEvents),
	)
	if err != nil {
		return err
	}

	accountModule, err := account.New(authSvc, ledger, account.WithLogger(log))
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", httpserver.HealthCheckHandler(log))
	r.Get("/readyz", httpserver.HealthCheckHandler(log,
		mongo.Healthcheck(mongoClient),
		redis.Healthcheck(redisClient),
	))
	r.Mount("/account", accountModule.Router())

	return httpserver.New(httpCfg, httpserver.WithLogger(log)).Run(ctx, r)
}

// buildSender picks Postmark in production and the file-writing dev sender
// everywhere else, so local runs need no Postmark account.
func buildSender(appCfg appConfig, log *slog.Logger) (email.EmailSender, error) {
	var emailCfg email.Config
	if err := config.Load(&emailCfg); err != nil {
		return nil, err
	}

	if appCfg.Env == "production" {
		return email.NewPostmarkClient(emailCfg)
	}
	log.Info("using dev email sender", slog.String("dir", appCfg.DevMailDir),
		logger.Component("email"))
	return email.NewDevSender(appCfg.DevMailDir), nil
}
