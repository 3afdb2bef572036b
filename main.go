package main

import (
	"collabsync/handlers/api/rooms"
	"collabsync/handlers/api/sessions"
	"collabsync/handlers/api/snapshots"
	"collabsync/handlers/auth"
	"collabsync/handlers/collab"
	authMiddleware "collabsync/middleware"
	"collabsync/reducer"
	"collabsync/stores"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

func setupRouter(store stores.Store, hub *collab.Hub) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Origin", "Host", "Connection", "Accept-Encoding", "Accept-Language", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/api/v2", func(r chi.Router) {
		r.Post("/sessions", sessions.HandleCreate(store))

		// Session-scoped routes, protected by the session's own token.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.AuthJWT)
			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Get("/", sessions.HandleGet(store))
				r.Post("/documents", sessions.HandleOpenDocument(store))
			})
		})

		r.Get("/rooms", rooms.HandleList(hub))
		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", snapshots.HandleList(store))
			r.Get("/{documentID}", snapshots.HandleGet(store))
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func waitForShutdown(io *socketio.Server) {
	exit := make(chan struct{})
	signalC := make(chan os.Signal, 1)

	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range signalC {
			switch s {
			case os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	logrus.Info("Shutting down...")
	io.Close(nil)
	os.Exit(0)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", ":3002", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	auth.InitAuth()
	store := stores.GetStore()

	hub := collab.NewHub(store, store, reducer.LastWriterWins)
	io := collab.SetupSocketIO(hub)

	r := setupRouter(store, hub)
	r.Mount("/socket.io/", io.ServeHandler(nil))

	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := http.ListenAndServe(*listenAddress, r); err != nil {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	waitForShutdown(io)
}
