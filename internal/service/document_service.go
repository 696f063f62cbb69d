package service

import (
	"context"
	"errors"
	"fitcoach/coaching-api/internal/domain"
	"fitcoach/coaching-api/internal/repository"
	"fitcoach/coaching-api/internal/storage"
	"fmt"
	"log"
	"path" // For constructing object keys
	"strings"
	"time"

	"github.com/google/uuid" // For generating unique identifiers for S3 keys
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UploadURLResponse structure for returning URL and object key
type UploadURLResponse struct {
	UploadURL string    `json:"uploadUrl"`
	ObjectKey string    `json:"objectKey"` // Pass this back when enabling custom tracking
	ExpiresAt time.Time `json:"expiresAt"`
}

// DocumentLink is a document with a temporary download URL.
type DocumentLink struct {
	domain.Document
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// DocumentService handles files trainers attach to coaching relationships.
type DocumentService interface {
	RequestUploadURL(ctx context.Context, caller Caller, requestID primitive.ObjectID, fileName, contentType string) (*UploadURLResponse, error)
	ListDocuments(ctx context.Context, caller Caller, requestID primitive.ObjectID) ([]domain.Document, error)
	ListAssignmentDocuments(ctx context.Context, caller Caller, requestID, assignmentID primitive.ObjectID) ([]DocumentLink, error)
	DeleteDocument(ctx context.Context, caller Caller, requestID primitive.ObjectID, objectKey string) error
}

// documentService implements the DocumentService interface.
type documentService struct {
	guard          *AccessGuard
	documentRepo   repository.DocumentRepository
	assignmentRepo repository.PlanAssignmentRepository
	fileStorage    storage.FileStorage
	urlExpiry      time.Duration
	now            func() time.Time
}

// NewDocumentService creates a new instance of documentService.
func NewDocumentService(
	guard *AccessGuard,
	documentRepo repository.DocumentRepository,
	assignmentRepo repository.PlanAssignmentRepository,
	fileStorage storage.FileStorage,
	urlExpiry time.Duration,
) DocumentService {
	if urlExpiry <= 0 {
		urlExpiry = storage.DefaultPresignedURLExpiry
	}
	return &documentService{
		guard:          guard,
		documentRepo:   documentRepo,
		assignmentRepo: assignmentRepo,
		fileStorage:    fileStorage,
		urlExpiry:      urlExpiry,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// RequestUploadURL records a new document for the relationship and returns a
// pre-signed URL the trainer uploads it to.
func (s *documentService) RequestUploadURL(ctx context.Context, caller Caller, requestID primitive.ObjectID, fileName, contentType string) (*UploadURLResponse, error) {
	// 1. Validate Inputs
	contentType = strings.TrimSpace(contentType)
	if contentType == "" || !strings.Contains(contentType, "/") {
		return nil, fmt.Errorf("%w: invalid or missing content type", ErrValidation)
	}

	// 2. Authorize
	rel, err := s.guard.Authorize(ctx, caller, requestID, PartyTrainer)
	if err != nil {
		return nil, err
	}

	// 3. Generate a unique object key for S3
	objectKey := path.Join("documents", rel.ID.Hex(), uuid.NewString()+fileExtension(fileName, contentType))

	// 4. Save metadata first so the key can be attached once uploaded
	doc := &domain.Document{
		CoachingRequestID: rel.ID,
		TrainerID:         rel.TrainerID,
		ClientID:          rel.ClientID,
		S3ObjectKey:       objectKey,
		FileName:          path.Base(strings.TrimSpace(fileName)),
		ContentType:       contentType,
	}
	if _, err := s.documentRepo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document metadata: %w", err)
	}

	// 5. Generate the pre-signed URL
	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, s.urlExpiry)
	if err != nil {
		log.Printf("ERROR: Upload URL for %s: %v", objectKey, err)
		return nil, ErrUploadURLError
	}

	return &UploadURLResponse{
		UploadURL: uploadURL,
		ObjectKey: objectKey,
		ExpiresAt: s.now().Add(s.urlExpiry),
	}, nil
}

// ListDocuments lists the documents uploaded for a relationship.
func (s *documentService) ListDocuments(ctx context.Context, caller Caller, requestID primitive.ObjectID) ([]domain.Document, error) {
	rel, err := s.guard.Authorize(ctx, caller, requestID, PartyEither)
	if err != nil {
		return nil, err
	}
	return s.documentRepo.ListByRequest(ctx, rel.ID)
}

// ListAssignmentDocuments returns download URLs for the documents attached
// to an assignment.
func (s *documentService) ListAssignmentDocuments(ctx context.Context, caller Caller, requestID, assignmentID primitive.ObjectID) ([]DocumentLink, error) {
	rel, err := s.guard.Authorize(ctx, caller, requestID, PartyEither)
	if err != nil {
		return nil, err
	}
	a, err := loadAssignmentInRelationship(ctx, s.assignmentRepo, rel, assignmentID)
	if err != nil {
		return nil, err
	}

	links := make([]DocumentLink, 0, len(a.Documents))
	expiresAt := s.now().Add(s.urlExpiry)
	for _, key := range a.Documents {
		doc, err := s.documentRepo.GetByObjectKey(ctx, key)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			// Metadata is gone; the key in the snapshot still resolves.
			doc = &domain.Document{CoachingRequestID: rel.ID, S3ObjectKey: key, FileName: path.Base(key)}
		}
		url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, key, s.urlExpiry)
		if err != nil {
			log.Printf("ERROR: Download URL for %s: %v", key, err)
			return nil, ErrDownloadURLError
		}
		links = append(links, DocumentLink{Document: *doc, DownloadURL: url, ExpiresAt: expiresAt})
	}
	return links, nil
}

// DeleteDocument removes a document that no assignment refers to, both the
// metadata and the stored object.
func (s *documentService) DeleteDocument(ctx context.Context, caller Caller, requestID primitive.ObjectID, objectKey string) error {
	rel, err := s.guard.Authorize(ctx, caller, requestID, PartyTrainer)
	if err != nil {
		return err
	}
	doc, err := s.documentRepo.GetByObjectKey(ctx, objectKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}
	if doc.CoachingRequestID != rel.ID {
		return ErrDocumentNotFound
	}

	inUse, err := s.assignmentRepo.ReferencesDocument(ctx, objectKey)
	if err != nil {
		return err
	}
	if inUse {
		return ErrDocumentInUse
	}

	if err := s.documentRepo.Delete(ctx, objectKey); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}
	if err := s.fileStorage.DeleteObject(ctx, objectKey); err != nil {
		// The metadata is gone; an orphaned object only costs storage.
		log.Printf("WARN: Failed to delete stored object %s: %v", objectKey, err)
	}
	return nil
}

// fileExtension prefers the extension of the original file name and falls
// back to the subtype of the content type.
func fileExtension(fileName, contentType string) string {
	if ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName))); ext != "" && len(ext) <= 10 {
		return ext
	}
	parts := strings.SplitN(contentType, "/", 2)
	if len(parts) == 2 && parts[1] != "" {
		sub := strings.SplitN(parts[1], ";", 2)[0]
		return "." + strings.ToLower(strings.TrimSpace(sub))
	}
	return ""
}
