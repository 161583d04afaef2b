package stubapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	watermillchannel "github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/flowdash/flowdash/pkg/channels/gochannel"
	"github.com/flowdash/flowdash/pkg/registry"
)

// Server hosts the stub backend on two listeners: the fiber app serves the
// REST surface, a plain net/http listener serves the websocket status feed
// (the websocket needs a hijackable connection, which fasthttp does not
// hand out). Status events also flow into an in-memory pub/sub so embedded
// setups can consume the feed without a websocket.
type Server struct {
	logger    *slog.Logger
	store     *memoryStore
	hub       *WSHub
	pubSub    *watermillchannel.GoChannel
	simulator *Simulator
	registry  *registry.Registry
	validate  *validator.Validate
}

func NewServer(logger *slog.Logger, stepDelay time.Duration) *Server {
	store := newMemoryStore()
	hub := NewWSHub(store, logger.With("module", "wshub"))
	pubSub := gochannel.NewPubSub(watermill.NewSlogLogger(logger))

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes()

	relay := &statusRelay{
		hub:    hub,
		pubSub: pubSub,
		logger: logger.With("module", "relay"),
	}

	return &Server{
		logger:    logger,
		store:     store,
		hub:       hub,
		pubSub:    pubSub,
		simulator: NewSimulator(store, relay, logger.With("module", "simulator"), stepDelay),
		registry:  reg,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// StatusFeed exposes the in-memory side of the status relay. Embedded
// consumers hand it to a statuschannel.Bus instead of dialing the websocket.
func (s *Server) StatusFeed() message.Subscriber {
	return s.pubSub
}

func (s *Server) App() *fiber.App {
	handlers := NewHandlers(s.store, s.simulator, s.registry, s.validate, s.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Post("/auth/login", handlers.Login)

	w := app.Group("/workflows", handlers.RequireAuth)

	d := w.Group("/definitions")
	d.Get("/", handlers.ListDefinitions)
	d.Post("/", handlers.CreateDefinition)
	d.Get("/:id", handlers.GetDefinition)
	d.Put("/:id", handlers.UpdateDefinition)
	d.Delete("/:id", handlers.DeleteDefinition)

	i := w.Group("/instances")
	i.Get("/", handlers.ListInstances)
	i.Post("/", handlers.CreateInstance)
	i.Get("/:id", handlers.GetInstance)
	i.Post("/:id/terminate", handlers.TerminateInstance)
	i.Delete("/:id", handlers.DeleteInstance)

	return app
}

// Start blocks serving both listeners until ctx is cancelled or one of them
// fails.
func (s *Server) Start(ctx context.Context, port, wsPort int) error {
	app := s.App()

	mux := http.NewServeMux()
	mux.Handle("/ws", s.hub)

	wsServer := &http.Server{
		Addr:              ":" + strconv.Itoa(wsPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)

	go func() {
		s.logger.Info("REST listener up", "port", port)
		errCh <- app.Listen(":" + strconv.Itoa(port))
	}()

	go func() {
		s.logger.Info("Websocket listener up", "port", wsPort)

		err := wsServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = wsServer.Shutdown(shutdownCtx)
	_ = s.pubSub.Close()

	return app.ShutdownWithContext(shutdownCtx)
}
