package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"chatforge/internal/cache"
	"chatforge/internal/gateway"
	"chatforge/internal/ingest"
	"chatforge/internal/search"
	"chatforge/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	mgr := store.NewManager(mongoURI, os.Getenv("MONGODB_DB"))
	defer mgr.Close(context.Background())

	conversations := store.NewConversations(mgr)
	files := store.NewFiles(mgr)

	gw := gateway.New(
		os.Getenv("GROQ_API_KEY"),
		os.Getenv("OPENAI_API_KEY"),
		os.Getenv("ANTHROPIC_API_KEY"),
	)

	var uploader ingest.Uploader
	if url := os.Getenv("CLOUDINARY_URL"); url != "" {
		up, err := ingest.NewCloudinaryUploader(url)
		if err != nil {
			log.Fatalf("cloudinary: %v", err)
		}
		uploader = up
	} else {
		log.Println("CLOUDINARY_URL not set, image uploads disabled")
	}
	ingestSvc := ingest.NewService(files, uploader)

	indexPath := os.Getenv("SEARCH_INDEX_PATH")
	if indexPath == "" {
		indexPath = "search.bleve"
	}
	var searcher Searcher
	if idx, err := search.Open(indexPath); err != nil {
		log.Printf("search index unavailable: %v", err)
	} else {
		searcher = idx
		defer idx.Close()
	}

	var c cache.Cache
	if url := os.Getenv("REDIS_URL"); url != "" {
		redisCache, err := cache.NewRedis(url)
		if err != nil {
			log.Printf("redis unavailable, using in-memory cache: %v", err)
		} else {
			c = redisCache
			defer redisCache.Close()
		}
	}
	if c == nil {
		c = cache.NewMemory()
	}

	srv := newServer(conversations, ingestSvc, gw, searcher, c, jwtSecret)
	srv.dbState = func() string {
		switch mgr.State() {
		case store.StateConnected:
			return "connected"
		case store.StateFailed:
			return "offline"
		default:
			return "unattempted"
		}
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("chatforge server listening on :%s", port)
	if err := srv.router().Run(":" + port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
