package web

import (
	"context"
	"log"
	"log/slog"
	"os"

	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"

	"tripledger/config"
	dbt "tripledger/db/db"
	"tripledger/db/mem"
	"tripledger/db/pg"
	"tripledger/expense"
	"tripledger/member"
	"tripledger/mq/gcppubsub"
	"tripledger/mq/goch"
	"tripledger/mq/mq"
	"tripledger/mq/rabbit"
)

// DBMode selects the expense store backend at startup.
type DBMode string

const (
	DBModeMem DBMode = "mem"
	DBModePg  DBMode = "pg"
)

type ServiceConfig struct {
	IsDev  bool
	Port   string
	DBMode DBMode
	MqMode mq.Mode
}

func newStore(mode DBMode) dbt.ExpenseStore {
	switch mode {
	case DBModePg:
		db, err := pg.InitPostgresGORM(pg.CreateDSN())
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		return pg.NewGORMExpenseStore(db)
	case DBModeMem:
		return mem.NewMemoryExpenseStore()
	default:
		log.Fatalf("Unknown db mode: %s", mode)
		return nil
	}
}

func newEventQueue(mode mq.Mode) mq.ExpenseMessageQueueWrapper {
	switch mode {
	case mq.ModeGoChan:
		return goch.NewGoChanExpenseMessageQueueWrapper()
	case mq.ModeRabbit:
		conn := rabbit.NewRabbitConnection(rabbit.CreateAmqpURL())
		wrapper, err := rabbit.NewRabbitExpenseMessageQueueWrapper(conn)
		if err != nil {
			log.Fatalf("Failed to set up RabbitMQ queues: %v", err)
		}
		return wrapper
	case mq.ModePubSub:
		ctx := context.Background()
		client, err := pubsub.NewClient(ctx, gcppubsub.GetGCPProjectID())
		if err != nil {
			log.Fatalf("Failed to create Pub/Sub client: %v", err)
		}
		wrapper, err := gcppubsub.NewPubSubExpenseMessageQueueWrapper(ctx, client)
		if err != nil {
			log.Fatalf("Failed to set up Pub/Sub topics: %v", err)
		}
		return wrapper
	default:
		log.Fatalf("Unknown mq mode: %s", mode)
		return nil
	}
}

// Serve wires the store, the event queue and the expense service, then runs
// the HTTP server until the process exits.
func Serve(sc ServiceConfig) {
	conf := config.Load()
	var logger *slog.Logger
	if sc.IsDev {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
		gin.SetMode(gin.ReleaseMode)
	}
	slog.SetDefault(logger)

	store := newStore(sc.DBMode)
	events := newEventQueue(sc.MqMode)
	svc := expense.NewService(store, member.NewStoreProvider(store), events, logger)
	handler := NewHandler(svc, events, logger)

	r := gin.New()
	setupMiddlewares(r)
	r.Use(metricsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metricsHandler())

	api := r.Group("/api", AuthMiddleware(conf.JWTSecret, sc.IsDev))
	trips := api.Group("/trips/:tripId")
	{
		trips.GET("/expenses", handler.ListExpenses)
		trips.POST("/expenses", handler.CreateExpense)
		trips.PUT("/expenses/:expenseId", handler.UpdateExpense)
		trips.DELETE("/expenses/:expenseId", handler.DeleteExpense)
		trips.GET("/summary", handler.Summary)
		trips.GET("/events", handler.StreamEvents)
	}

	port := sc.Port
	if port == "" {
		port = conf.Port
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
