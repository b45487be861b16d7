package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"docchat/internal/ai"
	appsvc "docchat/internal/app"
	"docchat/internal/bootstrap"
	"docchat/internal/cache"
	"docchat/internal/platform/rabbitmq"
	"docchat/internal/repository"
	"docchat/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.StaticFile("/", "web/index.html")
	router.GET("/healthz", healthHandler.Check)

	llmClient := ai.NewOpenAICompatibleClient()
	embedder := ai.NewEmbeddingClient(llmClient, ai.EmbeddingConfig{
		BaseURL: app.Config.LLM.BaseURL,
		APIKey:  app.Config.LLM.APIKey,
		Model:   app.Config.LLM.EmbeddingModel,
	})
	generator := ai.NewChatCompleter(llmClient, ai.ChatConfig{
		BaseURL: app.Config.LLM.BaseURL,
		APIKey:  app.Config.LLM.APIKey,
		Model:   app.Config.LLM.Model,
	})

	messageRepo := repository.NewMessageRepository(app.MySQL)
	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	publisher := rabbitmq.NewMessagePublisher(app.MQConn, app.Config.RabbitMQ.MessagePersistQueue)

	sessionService := appsvc.NewSessionService(app.Backend, messageRepo, historyCache)
	fileService := appsvc.NewFileService(app.Backend, app.Config.Storage.MaxFileSizeBytes, app.Config.Storage.MaxFilesPerBatch)
	ingestService := appsvc.NewIngestService(app.Backend, embedder, app.Config.Storage.ChunkSize, app.Config.Storage.ChunkOverlap)
	queryService := appsvc.NewQueryService(app.Backend, embedder, generator, app.Config.Storage.TopK)
	chatService := appsvc.NewChatService(queryService, publisher, historyCache, messageRepo)

	sessionHandler := handler.NewSessionHandler(sessionService)
	fileHandler := handler.NewFileHandler(fileService)
	ingestHandler := handler.NewIngestHandler(ingestService)
	chatHandler := handler.NewChatHandler(chatService)

	v1 := router.Group("/api/v1")
	sessions := v1.Group("/sessions")
	sessions.GET("", sessionHandler.List)
	sessions.POST("", sessionHandler.Create)
	sessions.DELETE("/:id", sessionHandler.Delete)
	sessions.GET("/:id/files", fileHandler.List)
	sessions.POST("/:id/files", fileHandler.Upload)
	sessions.DELETE("/:id/files/:name", fileHandler.Delete)
	sessions.POST("/:id/process", ingestHandler.Process)
	sessions.POST("/:id/ask", chatHandler.Ask)
	sessions.GET("/:id/history", chatHandler.History)

	return router
}
