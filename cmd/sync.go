package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	jobctrl "kbchat/src/infrastructure/job"
	"kbchat/src/storage/minioctrl"
	"kbchat/src/storage/postgres/documentctrl"
)

var syncCmd = &cobra.Command{
	Use:   "sync [directory]",
	Short: "Upload a directory of PDFs and sync the knowledge base",
	Long: `The sync command uploads every PDF in the given directory to object
storage, records each document and enqueues a knowledge base sync job for it.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	dir := args[0]

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %v", err)
	}

	var pdfs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			pdfs = append(pdfs, entry.Name())
		}
	}
	if len(pdfs) == 0 {
		fmt.Println("No PDF files found")
		return nil
	}

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
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	// Get underlying *sql.DB for cleanup
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %v", err)
	}
	defer sqlDB.Close()

	// Initialize MinioService
	minioService, err := minioctrl.NewMinioService(
		viper.GetString("minio.endpoint"),
		viper.GetString("minio.access_key"),
		viper.GetString("minio.secret_key"),
		viper.GetBool("minio.use_ssl"),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize minio service: %v", err)
	}

	ctx := context.Background()
	pdfBucket := viper.GetString("minio.pdf_bucket")
	if err := minioService.EnsureBucketExists(ctx, pdfBucket); err != nil {
		return fmt.Errorf("failed to ensure pdf bucket exists: %v", err)
	}

	// Initialize DocumentService
	documentService, err := documentctrl.NewDocumentService(db)
	if err != nil {
		return fmt.Errorf("failed to initialize document service: %v", err)
	}

	// Initialize AMQP publisher
	amqpPublisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}
	defer amqpPublisher.Close()

	// Initialize job repository and service
	jobRepo := jobctrl.NewPostgresJobRepository(db)
	jobService := jobctrl.NewJobService(amqpPublisher, jobRepo, watermill.NewStdLogger(false, false), nil)

	bar := progressbar.Default(int64(len(pdfs)), "uploading")
	for _, filename := range pdfs {
		data, err := os.ReadFile(filepath.Join(dir, filename))
		if err != nil {
			return fmt.Errorf("failed to read %s: %v", filename, err)
		}

		objectName := fmt.Sprintf("%s.pdf", uuid.New().String())
		if err := minioService.PutPDF(ctx, pdfBucket, objectName, data); err != nil {
			return fmt.Errorf("failed to upload %s: %v", filename, err)
		}

		doc, err := documentService.Create(ctx, filename, fmt.Sprintf("%s/%s", pdfBucket, objectName))
		if err != nil {
			return fmt.Errorf("failed to record %s: %v", filename, err)
		}

		if _, err := jobService.EnqueueDocumentSync(ctx, doc.ID); err != nil {
			return fmt.Errorf("failed to enqueue sync for %s: %v", filename, err)
		}

		bar.Add(1)
	}

	fmt.Printf("Uploaded %d documents and enqueued sync jobs\n", len(pdfs))
	return nil
}
