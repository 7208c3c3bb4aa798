package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// PaymentProofStore keeps uploaded payment screenshots in object storage.
type PaymentProofStore struct {
	minioClient *minio.Client
	bucketName  string
}

func NewPaymentProofStore(minioClient *minio.Client, bucketName string) *PaymentProofStore {
	return &PaymentProofStore{minioClient: minioClient, bucketName: bucketName}
}

// proofFormat sniffs the image type from the base64 payload head.
func proofFormat(encoded string) (ext, contentType string) {
	switch {
	case strings.HasPrefix(encoded, "/9j/"):
		return ".jpg", "image/jpeg"
	case strings.HasPrefix(encoded, "iVBOR"):
		return ".png", "image/png"
	case strings.HasPrefix(encoded, "R0lGO"):
		return ".gif", "image/gif"
	default:
		return ".png", "image/png"
	}
}

// Store decodes a base64 payment screenshot (bare or data: URL) and uploads
// it, returning the object name to record on the order.
func (s *PaymentProofStore) Store(ctx context.Context, orderID, encoded string) (string, error) {
	if s.minioClient == nil {
		return "", ExternalUnavailable("payment uploads are not configured", nil)
	}

	if i := strings.Index(encoded, ","); i >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", Validation("payment proof is not valid base64 image data")
	}
	if len(data) == 0 {
		return "", Validation("payment proof is empty")
	}

	ext, contentType := proofFormat(encoded)
	objectName := fmt.Sprintf("payments/%s_payment_%d%s", orderID, time.Now().Unix(), ext)

	_, err = s.minioClient.PutObject(ctx, s.bucketName, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", ExternalUnavailable("failed to store payment proof", err)
	}
	return objectName, nil
}

// URL returns a short-lived download link for an admin to view the proof.
func (s *PaymentProofStore) URL(ctx context.Context, objectName string) (string, error) {
	if s.minioClient == nil {
		return "", ExternalUnavailable("payment uploads are not configured", nil)
	}
	u, err := s.minioClient.PresignedGetObject(ctx, s.bucketName, objectName, 15*time.Minute, nil)
	if err != nil {
		return "", ExternalUnavailable("failed to sign payment proof link", err)
	}
	return u.String(), nil
}
