package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/clients/gcp"
	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
	"github.com/craftwise/craftwise-backend/internal/repos"
)

type AttachmentView struct {
	*domain.Attachment
	// DownloadURL is a short-lived signed URL when object storage is
	// configured, otherwise the stored URI as-is.
	DownloadURL string `json:"download_url"`
}

type AttachmentService interface {
	Attach(ctx context.Context, orgID uuid.UUID, ownerType domain.AttachmentOwner, ownerID uuid.UUID, filename, mimeType string, file io.Reader) (*domain.Attachment, error)
	ListByOwner(ctx context.Context, orgID uuid.UUID, ownerType domain.AttachmentOwner, ownerID uuid.UUID) ([]*AttachmentView, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

type attachmentService struct {
	db             *gorm.DB
	log            *logger.Logger
	attachmentRepo repos.AttachmentRepo
	problemRepo    repos.ProblemRepo
	recipeRepo     repos.RecipeRepo
	logRepo        repos.ExecutionLogRepo
	bucket         gcp.BucketService
}

func NewAttachmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	attachmentRepo repos.AttachmentRepo,
	problemRepo repos.ProblemRepo,
	recipeRepo repos.RecipeRepo,
	logRepo repos.ExecutionLogRepo,
	bucket gcp.BucketService,
) AttachmentService {
	return &attachmentService{
		db:             db,
		log:            baseLog.With("service", "AttachmentService"),
		attachmentRepo: attachmentRepo,
		problemRepo:    problemRepo,
		recipeRepo:     recipeRepo,
		logRepo:        logRepo,
		bucket:         bucket,
	}
}

// verifyOwner confirms the owning entity exists inside the tenant. The
// owner kinds form a closed set; anything else is rejected up front.
func (as *attachmentService) verifyOwner(ctx context.Context, orgID uuid.UUID, ownerType domain.AttachmentOwner, ownerID uuid.UUID) error {
	switch ownerType {
	case domain.AttachmentOwnerProblem:
		_, err := as.problemRepo.GetByID(ctx, nil, orgID, ownerID)
		return err
	case domain.AttachmentOwnerRecipe:
		_, err := as.recipeRepo.GetByID(ctx, nil, orgID, ownerID)
		return err
	case domain.AttachmentOwnerExecutionLog:
		exists, err := as.logRepo.Exists(ctx, nil, ownerID)
		if err != nil {
			return err
		}
		if !exists {
			return gorm.ErrRecordNotFound
		}
		return nil
	default:
		return fmt.Errorf("unknown owner type %q", ownerType)
	}
}

func (as *attachmentService) Attach(ctx context.Context, orgID uuid.UUID, ownerType domain.AttachmentOwner, ownerID uuid.UUID, filename, mimeType string, file io.Reader) (*domain.Attachment, error) {
	if err := as.verifyOwner(ctx, orgID, ownerType, ownerID); err != nil {
		return nil, fmt.Errorf("attachment owner not found: %w", err)
	}
	if as.bucket == nil {
		return nil, fmt.Errorf("object storage is not configured")
	}

	key := fmt.Sprintf("attachments/%s/%s/%s-%s", ownerType, ownerID, uuid.New(), filename)
	if err := as.bucket.UploadFile(ctx, key, file); err != nil {
		return nil, fmt.Errorf("failed to upload attachment: %w", err)
	}

	attachment := &domain.Attachment{
		OwnerType: ownerType,
		OwnerID:   ownerID,
		URI:       key,
		MimeType:  mimeType,
	}
	if err := as.attachmentRepo.Create(ctx, nil, attachment); err != nil {
		// The row is the source of truth; drop the orphaned object.
		if delErr := as.bucket.DeleteFile(ctx, key); delErr != nil {
			as.log.Warn("failed to clean up orphaned object", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to create attachment: %w", err)
	}
	return attachment, nil
}

func (as *attachmentService) ListByOwner(ctx context.Context, orgID uuid.UUID, ownerType domain.AttachmentOwner, ownerID uuid.UUID) ([]*AttachmentView, error) {
	if err := as.verifyOwner(ctx, orgID, ownerType, ownerID); err != nil {
		return nil, fmt.Errorf("attachment owner not found: %w", err)
	}
	attachments, err := as.attachmentRepo.ListByOwner(ctx, nil, ownerType, ownerID)
	if err != nil {
		return nil, err
	}
	views := make([]*AttachmentView, 0, len(attachments))
	for _, a := range attachments {
		view := &AttachmentView{Attachment: a, DownloadURL: a.URI}
		if as.bucket != nil {
			if url, err := as.bucket.SignedURL(a.URI, 15*time.Minute); err == nil {
				view.DownloadURL = url
			} else {
				as.log.Warn("failed to sign attachment url", "attachment_id", a.ID, "error", err)
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (as *attachmentService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	attachment, err := as.attachmentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return err
	}
	// Tenancy rides on the owner; a cross-tenant delete fails here.
	if err := as.verifyOwner(ctx, orgID, attachment.OwnerType, attachment.OwnerID); err != nil {
		return fmt.Errorf("attachment owner not found: %w", err)
	}
	if err := as.attachmentRepo.Delete(ctx, nil, id); err != nil {
		return err
	}
	if as.bucket != nil {
		if err := as.bucket.DeleteFile(ctx, attachment.URI); err != nil {
			as.log.Warn("failed to delete attachment object", "key", attachment.URI, "error", err)
		}
	}
	return nil
}
