package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"freightops/internal/apperr"
	"freightops/internal/model"
	"freightops/internal/websocket"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	uploadTokenPrefix = "upload:"
	uploadTokenTTL    = 15 * time.Minute
	maxUploadBytes    = 10 << 20
)

var allowedUploadTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// --- DTOs ---

type PrepareUploadRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	SizeBytes   int64  `json:"size_bytes" binding:"required"`
}

type PrepareUploadResponse struct {
	UploadURL string `json:"upload_url"`
	ObjectKey string `json:"object_key"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type ConfirmUploadRequest struct {
	Token       string `json:"token" binding:"required"`
	ObjectKey   string `json:"object_key" binding:"required"`
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	SizeBytes   int64  `json:"size_bytes" binding:"required"`
}

type TripDocumentResponse struct {
	ID          string `json:"id"`
	TripID      string `json:"trip_id"`
	Kind        string `json:"kind"`
	ObjectKey   string `json:"object_key"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	CreatedAt   string `json:"created_at"`
}

// --- Interface ---

// StorageService is the boundary to the external object-storage presigner.
// The engine never receives file bytes; prepare hands out a time-limited
// upload destination, confirm records the uploaded artifact.
type StorageService interface {
	PrepareLoadingProof(ctx context.Context, actor model.Actor, tripID string, req PrepareUploadRequest) (*PrepareUploadResponse, error)
	ConfirmLoadingProof(ctx context.Context, actor model.Actor, tripID string, req ConfirmUploadRequest) (*TripDocumentResponse, error)
}

type storageService struct {
	db      *gorm.DB
	rdb     *redis.Client
	hub     *websocket.Hub
	baseURL string
}

func NewStorageService(db *gorm.DB, rdb *redis.Client, hub *websocket.Hub, baseURL string) StorageService {
	return &storageService{db: db, rdb: rdb, hub: hub, baseURL: strings.TrimRight(baseURL, "/")}
}

// --- Implementation ---

func (s *storageService) PrepareLoadingProof(ctx context.Context, actor model.Actor, tripID string, req PrepareUploadRequest) (*PrepareUploadResponse, error) {
	parsedTripID, err := uuid.Parse(tripID)
	if err != nil {
		return nil, apperr.Validation("trip_id_invalid", "invalid trip id")
	}
	if err := validateUploadMeta(req.FileName, req.ContentType, req.SizeBytes); err != nil {
		return nil, err
	}

	var trip model.Trip
	if err := s.db.WithContext(ctx).First(&trip, "id = ?", parsedTripID).Error; err != nil {
		return nil, tripLoadError(err)
	}
	if err := loadingProofStageGuard(&trip); err != nil {
		return nil, err
	}

	if s.rdb == nil {
		return nil, apperr.Dependency("object storage presigner is not configured", nil)
	}

	objectKey := fmt.Sprintf("trips/%s/loading-proof/%s%s", trip.ID, uuid.NewString(), strings.ToLower(path.Ext(req.FileName)))
	token := uuid.NewString()
	expiresAt := time.Now().Add(uploadTokenTTL)

	if err := s.rdb.Set(ctx, uploadTokenPrefix+token, trip.ID.String()+"|"+objectKey, uploadTokenTTL).Err(); err != nil {
		return nil, apperr.Dependency("object storage presigner unreachable", err)
	}

	return &PrepareUploadResponse{
		UploadURL: s.baseURL + "/uploads/" + token,
		ObjectKey: objectKey,
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	}, nil
}

func (s *storageService) ConfirmLoadingProof(ctx context.Context, actor model.Actor, tripID string, req ConfirmUploadRequest) (*TripDocumentResponse, error) {
	parsedTripID, err := uuid.Parse(tripID)
	if err != nil {
		return nil, apperr.Validation("trip_id_invalid", "invalid trip id")
	}
	if err := validateUploadMeta(req.FileName, req.ContentType, req.SizeBytes); err != nil {
		return nil, err
	}

	if s.rdb == nil {
		return nil, apperr.Dependency("object storage presigner is not configured", nil)
	}

	stored, err := s.rdb.Get(ctx, uploadTokenPrefix+req.Token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.Precondition("upload_token_invalid", "upload token is unknown or expired")
		}
		return nil, apperr.Dependency("object storage presigner unreachable", err)
	}
	if stored != parsedTripID.String()+"|"+req.ObjectKey {
		return nil, apperr.Validation("upload_token_mismatch", "upload token does not match this trip and object key")
	}

	var doc model.TripDocument
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trip model.Trip
		if err := tx.First(&trip, "id = ?", parsedTripID).Error; err != nil {
			return tripLoadError(err)
		}
		// The trip can move while the upload token is outstanding; the stage
		// rules hold at confirm time too.
		if err := loadingProofStageGuard(&trip); err != nil {
			return err
		}

		doc = model.TripDocument{
			TripID:      trip.ID,
			Kind:        model.DocKindLoadingProof,
			ObjectKey:   req.ObjectKey,
			FileName:    req.FileName,
			ContentType: req.ContentType,
			SizeBytes:   req.SizeBytes,
			UploadedBy:  actor.ID,
		}
		if err := tx.Create(&doc).Error; err != nil {
			return fmt.Errorf("failed to record trip document: %w", err)
		}

		return writeAudit(tx, &actor.ID, model.ActionConfirmLoadingProof, model.EntityTripDocument, doc.ID.String(), map[string]interface{}{
			"trip_code":  trip.Code,
			"object_key": req.ObjectKey,
			"file_name":  req.FileName,
		})
	})
	if err != nil {
		return nil, err
	}

	// One-shot token; expiry covers the failure path.
	s.rdb.Del(ctx, uploadTokenPrefix+req.Token)

	s.hub.Publish("trip.document_confirmed", model.EntityTripDocument, doc.ID.String(), map[string]interface{}{
		"trip_id": tripID,
		"kind":    doc.Kind,
	})

	return &TripDocumentResponse{
		ID:          doc.ID.String(),
		TripID:      doc.TripID.String(),
		Kind:        doc.Kind,
		ObjectKey:   doc.ObjectKey,
		FileName:    doc.FileName,
		ContentType: doc.ContentType,
		SizeBytes:   doc.SizeBytes,
		CreatedAt:   doc.CreatedAt.Format(time.RFC3339),
	}, nil
}

// loadingProofStageGuard holds at both phases of the upload: a proof can only
// be attached to a live trip that already has its vehicle.
func loadingProofStageGuard(trip *model.Trip) error {
	if trip.Stage.Terminal() {
		return apperr.Precondition("trip_closed", "trip lifecycle has ended")
	}
	if !trip.Stage.AtLeast(model.StageVehicleAssigned) {
		return apperr.Precondition("trip_not_vehicle_assigned", "loading proof requires an assigned vehicle")
	}
	return nil
}

// validateUploadMeta is boundary validation only; document content is never
// inspected here.
func validateUploadMeta(fileName, contentType string, sizeBytes int64) error {
	if strings.TrimSpace(fileName) == "" {
		return apperr.Validation("file_name_required", "file name is required")
	}
	if !allowedUploadTypes[contentType] {
		return apperr.Validation("file_type_invalid", "content type must be image/jpeg, image/png or application/pdf")
	}
	if sizeBytes <= 0 || sizeBytes > maxUploadBytes {
		return apperr.Validation("file_size_invalid", "file size must be positive and at most 10MB")
	}
	return nil
}
