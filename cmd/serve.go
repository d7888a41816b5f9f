package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	httpHdlr "kbchat/handler/http"
	"kbchat/src/core/assistant"
	"kbchat/src/infrastructure/integrations/bedrock"
	jobctrl "kbchat/src/infrastructure/job"
	"kbchat/src/infrastructure/log"
	"kbchat/src/storage/elastic"
	"kbchat/src/storage/minioctrl"
	"kbchat/src/storage/postgres/chatctrl"
	"kbchat/src/storage/postgres/documentctrl"
	"kbchat/src/storage/redisctrl"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat assistant server",
	Long:  `The serve command starts an HTTP server that provides the chat assistant API and UI.`,
	Run:   RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	// Initialize PostgreSQL connection
	host := viper.GetString("postgres.host")
	user := viper.GetString("postgres.user")
	password := viper.GetString("postgres.password")
	dbname := viper.GetString("postgres.db")
	port := viper.GetString("postgres.port")

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		host, user, password, dbname, port)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Error(err, "Failed to connect to database")
		return
	}

	// Initialize MinIO service and make sure the PDF bucket exists
	minioService, err := minioctrl.NewMinioService(
		viper.GetString("minio.endpoint"),
		viper.GetString("minio.access_key"),
		viper.GetString("minio.secret_key"),
		viper.GetBool("minio.use_ssl"),
	)
	if err != nil {
		log.Error(err, "Failed to create minio service")
		return
	}
	pdfBucket := viper.GetString("minio.pdf_bucket")
	if err := minioService.EnsureBucketExists(ctx, pdfBucket); err != nil {
		log.Error(err, "Failed to ensure pdf bucket exists", "bucket", pdfBucket)
		return
	}

	// Initialize Bedrock clients
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(viper.GetString("aws.region")))
	if err != nil {
		log.Error(err, "Failed to load AWS configuration")
		return
	}
	generator := bedrock.NewClient(
		bedrockruntime.NewFromConfig(awsCfg),
		bedrockagentruntime.NewFromConfig(awsCfg),
		bedrock.Config{
			ModelID:         viper.GetString("bedrock.model_id"),
			ModelARN:        viper.GetString("bedrock.model_arn"),
			KnowledgeBaseID: viper.GetString("bedrock.knowledge_base_id"),
			Timeout:         viper.GetDuration("bedrock.timeout"),
		},
	)
	knowledgeBase := bedrock.NewIngestionClient(
		bedrockagent.NewFromConfig(awsCfg),
		viper.GetString("bedrock.knowledge_base_id"),
		viper.GetString("bedrock.data_source_id"),
	)

	// Initialize storage services
	chatStore, err := chatctrl.NewChatService(db)
	if err != nil {
		log.Error(err, "Failed to create chat store")
		return
	}
	documentService, err := documentctrl.NewDocumentService(db)
	if err != nil {
		log.Error(err, "Failed to create document service")
		return
	}

	// Initialize answer cache
	cacheTTL, err := time.ParseDuration(viper.GetString("chat.cache_ttl"))
	if err != nil {
		log.Error(err, "Invalid cache ttl, using default 15m")
		cacheTTL = 15 * time.Minute
	}
	answerCache := redisctrl.NewAnswerCache(
		viper.GetString("redis.addr"),
		viper.GetString("redis.password"),
		viper.GetInt("redis.db"),
		cacheTTL,
	)

	systemPrompt := viper.GetString("chat.system_prompt")

	chatOpts := []assistant.ChatOption{
		assistant.WithAnswerCache(answerCache),
		assistant.WithMaxQuestionLength(viper.GetInt("chat.max_question_length")),
	}

	checks := []assistant.ComponentCheck{
		{Name: "postgres", Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		{Name: "minio", Check: minioService.Ping},
		{Name: "redis", Check: answerCache.Ping},
		{Name: "bedrock", Check: knowledgeBase.Ping},
	}

	// Interaction analytics are optional, the assistant works without them
	if addresses := viper.GetString("elasticsearch.addresses"); addresses != "" {
		interactionLog, err := elastic.NewInteractionLog(
			strings.Split(addresses, ","),
			viper.GetString("elasticsearch.username"),
			viper.GetString("elasticsearch.password"),
			viper.GetString("elasticsearch.index"),
		)
		if err != nil {
			log.Error(err, "Failed to create interaction log")
			return
		}
		chatOpts = append(chatOpts, assistant.WithInteractionLogger(interactionLog))
		checks = append(checks, assistant.ComponentCheck{Name: "elasticsearch", Check: interactionLog.Ping})
	}

	// Initialize core services
	chatService := assistant.NewChatService(generator, chatStore, systemPrompt, chatOpts...)
	queryService := assistant.NewQueryService(generator, systemPrompt)
	sysService := assistant.NewSystemService(checks...)

	// Initialize AMQP publisher for sync jobs
	amqpPublisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		log.Error(err, "Failed to create AMQP publisher")
		return
	}
	defer amqpPublisher.Close()

	jobRepo := jobctrl.NewPostgresJobRepository(db)
	jobService := jobctrl.NewJobService(amqpPublisher, jobRepo, watermill.NewStdLogger(false, false), nil)

	// Initialize HTTP handler with individual services
	handler := httpHdlr.NewHandler(
		chatService,
		queryService,
		sysService,
		documentService,
		minioService,
		jobService,
		pdfBucket,
	)

	// Setup gin router
	r := gin.Default()

	// Register routes
	handler.RegisterRoutes(r)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Failed to start server")
			return
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Parse shutdown timeout
	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Error(err, "Invalid shutdown timeout, using default 5s")
		timeout = 5 * time.Second
	}

	// Create context with timeout for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	// Close the answer cache connection
	if err := answerCache.Close(); err != nil {
		log.Error(err, "Error closing redis connection")
	}

	// Get underlying *sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		log.Error(err, "Failed to get underlying *sql.DB")
	} else {
		// Close database connection
		if err := sqlDB.Close(); err != nil {
			log.Error(err, "Error closing database connection")
		}
	}

	log.Info("Server exited")
}
