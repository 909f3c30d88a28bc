package main

import (
	"context"
	"flag"
	"log"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"debatehub/config"
	"debatehub/controllers"
	"debatehub/events"
	"debatehub/rating"
	"debatehub/services"
	"debatehub/store"
	"debatehub/utils"
	"debatehub/websocket"
)

func main() {
	configPath := flag.String("config", "./config/config.yml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	st, err := store.NewMongoStore(cfg.Database.URI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer st.Close(ctx)
	if err := st.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}
	log.Println("Connected to MongoDB")

	utils.SeedUsers(ctx, st)

	// Event sinks: the WebSocket hub always runs; the Redis Stream sink is
	// attached only when an address is configured.
	hub := websocket.NewHub()
	sinks := events.Fanout{hub}
	if cfg.Redis.Addr != "" {
		streamSink, err := events.NewStreamSink(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer streamSink.Close()
		sinks = append(sinks, streamSink)
		log.Println("Connected to Redis")
	}

	judge, err := services.NewGeminiJudge(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		log.Fatalf("Failed to create judge: %v", err)
	}

	factChecks := services.NewFactCheckService(st, judge, sinks, cfg.FactCheck)
	defer factChecks.Close()

	engine := rating.New(&rating.Config{
		KFactor:       cfg.Rating.KFactor,
		InitialRating: cfg.Rating.InitialRating,
	})
	ratings := services.NewRatingService(st, engine)
	debates := services.NewDebateService(st, ratings, factChecks, sinks)

	router := setupRouter(st, debates, hub)
	port := strconv.Itoa(cfg.Server.Port)
	log.Printf("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupRouter(st store.Store, debates *services.DebateService, hub *websocket.Hub) *gin.Engine {
	router := gin.Default()
	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	debateCtl := controllers.NewDebateController(debates)
	leaderboardCtl := controllers.NewLeaderboardController(st)
	profileCtl := controllers.NewProfileController(st)

	router.POST("/debates", debateCtl.CreateDebate)
	router.GET("/debates", debateCtl.ListDebates)
	router.GET("/debates/:id", debateCtl.GetDebate)
	router.DELETE("/debates/:id", debateCtl.DeleteDebate)
	router.POST("/debates/:id/join", debateCtl.JoinDebate)
	router.POST("/debates/:id/side", debateCtl.ChangeSide)
	router.POST("/debates/:id/start", debateCtl.StartDebate)
	router.POST("/debates/:id/messages", debateCtl.SendMessage)
	router.GET("/debates/:id/messages", debateCtl.ListMessages)
	router.GET("/debates/:id/participants", debateCtl.ListParticipants)
	router.POST("/debates/:id/conclude", debateCtl.ConcludeDebate)

	router.GET("/leaderboard", leaderboardCtl.GetLeaderboard)
	router.GET("/users/:id", profileCtl.GetProfile)

	// WebSocket endpoint for live debate events
	router.GET("/ws", hub.AttachHandler)

	return router
}
