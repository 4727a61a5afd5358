// Package attachments stores transaction receipts and photos in object storage.
package attachments

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/logger"
)

// TransactionStore is the transaction access attachments need.
type TransactionStore interface {
	GetTransaction(ctx context.Context, userID, id string) (domain.Transaction, error)
	AddAttachment(ctx context.Context, userID, id, uri string) error
}

// Attachment is a downloaded file.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Service struct {
	objects ObjectStore
	txs     TransactionStore
	bucket  string
	newID   func() string
}

func NewService(objects ObjectStore, txs TransactionStore, bucket string) *Service {
	return &Service{objects: objects, txs: txs, bucket: bucket, newID: uuid.NewString}
}

// Upload stores r as a new attachment of the user's transaction and returns
// the updated transaction.
func (s *Service) Upload(ctx context.Context, userID, txID, filename, contentType string, r io.Reader) (domain.Transaction, error) {
	if userID == "" {
		return domain.Transaction{}, fmt.Errorf("Upload: %w", domain.ErrNotAuthenticated)
	}
	if _, err := s.txs.GetTransaction(ctx, userID, txID); err != nil {
		return domain.Transaction{}, fmt.Errorf("Upload: %w", err)
	}

	object := ObjectName(userID, txID, s.newID(), filename)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.objects.Put(ctx, s.bucket, object, contentType, r); err != nil {
		return domain.Transaction{}, fmt.Errorf("Upload: %w", err)
	}

	uri := FormatURI(s.bucket, object)
	if err := s.txs.AddAttachment(ctx, userID, txID, uri); err != nil {
		return domain.Transaction{}, fmt.Errorf("Upload: record attachment: %w", err)
	}
	tx, err := s.txs.GetTransaction(ctx, userID, txID)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("Upload: %w", err)
	}

	log := logger.FromContext(ctx)

	log.Info().
		Str("user_id", userID).
		Str("transaction_id", txID).
		Str("uri", uri).
		Msg("Uploaded attachment")
	return tx, nil
}

// Download returns attachment number index of the user's transaction. URIs
// outside the user's prefix are reported as not found.
func (s *Service) Download(ctx context.Context, userID, txID string, index int) (Attachment, error) {
	if userID == "" {
		return Attachment{}, fmt.Errorf("Download: %w", domain.ErrNotAuthenticated)
	}
	tx, err := s.txs.GetTransaction(ctx, userID, txID)
	if err != nil {
		return Attachment{}, fmt.Errorf("Download: %w", err)
	}
	if index < 0 || index >= len(tx.Attachments) {
		return Attachment{}, fmt.Errorf("Download: %w: attachment %d", domain.ErrNotFound, index)
	}

	uri := tx.Attachments[index]
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return Attachment{}, fmt.Errorf("Download: %w", err)
	}
	if !s.owns(userID, txID, bucket, object) {
		log := logger.FromContext(ctx)
		log.Warn().Str("user_id", userID).Str("uri", uri).Msg("Attachment outside user prefix")
		return Attachment{}, fmt.Errorf("Download: %w: attachment %d", domain.ErrNotFound, index)
	}

	data, contentType, err := s.objects.Get(ctx, bucket, object)
	if err != nil {
		return Attachment{}, fmt.Errorf("Download: %w", err)
	}
	return Attachment{Filename: FilenameFromURI(uri), ContentType: contentType, Data: data}, nil
}

func (s *Service) owns(userID, txID, bucket, object string) bool {
	return bucket == s.bucket &&
		strings.HasPrefix(object, TransactionPrefix(userID, txID)) &&
		!strings.Contains(object, "..")
}
