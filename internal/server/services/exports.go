package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/dailydiary/internal/common"
	"github.com/dmitrijs2005/dailydiary/internal/logging"
	sc "github.com/dmitrijs2005/dailydiary/internal/server/config"
	"github.com/dmitrijs2005/dailydiary/internal/server/models"
	"github.com/dmitrijs2005/dailydiary/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// ExportURLValidity is how long a presigned export download link works.
const ExportURLValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ExportService writes a JSON copy of a user's diary to object storage and
// hands back a short-lived download link.
type ExportService struct {
	repomanager repomanager.RepositoryManager
	diaries     *DiaryService
	config      *sc.Config
	log         logging.Logger
	now         func() time.Time
}

func NewExportService(m repomanager.RepositoryManager, diaries *DiaryService, config *sc.Config, log logging.Logger) *ExportService {
	return &ExportService{
		repomanager: m,
		diaries:     diaries,
		config:      config,
		log:         log.With("module", "exports"),
		now:         utcNow,
	}
}

// Enabled reports whether an export bucket is configured.
func (s *ExportService) Enabled() bool {
	return s.config.ExportEnabled()
}

// ExportKey is the object key of an export taken at t.
func ExportKey(userID string, t time.Time, id string) string {
	return fmt.Sprintf("users/%s/exports/%04d/%02d/%02d/%s.json", userID, t.Year(), t.Month(), t.Day(), id)
}

type exportDocument struct {
	Username   string        `json:"username"`
	ExportedAt time.Time     `json:"exported_at"`
	Entries    []exportEntry `json:"entries"`
}

type exportEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	EntryDate string    `json:"entry_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *ExportService) getClients(ctx context.Context) (*s3.Client, *s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return client, newS3PresignClient(client), nil
}

// Export uploads every entry of owner and records the export.
func (s *ExportService) Export(ctx context.Context, owner *models.User) (*models.Export, error) {
	if !s.Enabled() {
		return nil, common.ErrExportDisabled
	}
	if owner == nil {
		return nil, common.ErrUnauthenticated
	}

	now := s.now()
	doc := exportDocument{Username: owner.UserName, ExportedAt: now, Entries: []exportEntry{}}

	for index := 0; ; index++ {
		page, err := s.diaries.ListByOwner(ctx, owner, index, PageSize)
		if err != nil {
			return nil, err
		}
		for _, d := range page.Items {
			doc.Entries = append(doc.Entries, exportEntry{
				ID:        d.ID,
				Title:     d.Title,
				Content:   d.Content,
				EntryDate: d.EntryDate.Format(models.DateLayout),
				CreatedAt: d.CreatedAt,
				UpdatedAt: d.UpdatedAt,
			})
		}
		if !page.HasNext() {
			break
		}
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error encoding export: %w", err)
	}

	client, presignClient, err := s.getClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("error configuring storage: %w", err)
	}

	export := &models.Export{
		ID:         uuid.NewString(),
		UserID:     owner.ID,
		EntryCount: len(doc.Entries),
		CreatedAt:  now,
	}
	export.StorageKey = ExportKey(owner.ID, now, export.ID)

	bucket := s.config.S3Bucket
	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &export.StorageKey,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return nil, fmt.Errorf("error uploading export: %w", err)
	}

	url, err := s.presign(ctx, presignClient, export.StorageKey)
	if err != nil {
		return nil, err
	}
	export.URL = url

	if err := s.repomanager.Exports(s.repomanager.Conn()).Create(ctx, export); err != nil {
		return nil, fmt.Errorf("error recording export: %w", err)
	}

	s.log.Info(ctx, "diary exported", "user_id", owner.ID, "key", export.StorageKey, "entries", export.EntryCount)
	return export, nil
}

// List returns the owner's most recent exports with fresh download links.
func (s *ExportService) List(ctx context.Context, owner *models.User, limit int) ([]models.Export, error) {
	if !s.Enabled() {
		return nil, common.ErrExportDisabled
	}
	if owner == nil {
		return nil, common.ErrUnauthenticated
	}

	items, err := s.repomanager.Exports(s.repomanager.Conn()).ListByUser(ctx, owner.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing exports: %w", err)
	}
	if len(items) == 0 {
		return items, nil
	}

	_, presignClient, err := s.getClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("error configuring storage: %w", err)
	}
	for i := range items {
		if items[i].URL, err = s.presign(ctx, presignClient, items[i].StorageKey); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (s *ExportService) presign(ctx context.Context, pc *s3.PresignClient, key string) (string, error) {
	bucket := s.config.S3Bucket
	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(ExportURLValidity))
	if err != nil {
		return "", fmt.Errorf("error presigning export: %w", err)
	}
	return req.URL, nil
}
