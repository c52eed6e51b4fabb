package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"churninsight/dashboard/internal/models"
)

// StorageService stages uploaded batch files on disk until they have been
// forwarded to the backend.
type StorageService interface {
	SaveFile(file *multipart.FileHeader) (string, string, error)
	Open(filename string) (*os.File, error)
	Inspect(filename string) (models.BatchFileSummary, error)
	GetFilePath(filename string) string
	DeleteFile(filename string) error
	EnsureUploadDir() error
}

type storageService struct {
	uploadPath string
}

func NewStorageService(uploadPath string) StorageService {
	return &storageService{
		uploadPath: uploadPath,
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

// SaveFile copies an uploaded batch file under a unique name and returns that
// name and its path.
func (s *storageService) SaveFile(file *multipart.FileHeader) (string, string, error) {
	if file == nil {
		return "", "", &ValidationError{Message: "no file selected"}
	}
	if err := ValidateBatchFileName(file.Filename); err != nil {
		return "", "", err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	stagedName := fmt.Sprintf("batch_%s%s", uuid.New().String(), ext)
	filePath := filepath.Join(s.uploadPath, stagedName)

	src, err := file.Open()
	if err != nil {
		return "", "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create staged file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(filePath)
		return "", "", fmt.Errorf("failed to save file: %w", err)
	}

	return stagedName, filePath, nil
}

func (s *storageService) Open(filename string) (*os.File, error) {
	f, err := os.Open(s.GetFilePath(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to open staged file: %w", err)
	}
	return f, nil
}

// Inspect summarizes a staged file without consuming it.
func (s *storageService) Inspect(filename string) (models.BatchFileSummary, error) {
	return InspectBatchFile(s.GetFilePath(filename))
}

func (s *storageService) GetFilePath(filename string) string {
	return filepath.Join(s.uploadPath, filepath.Base(filename))
}

func (s *storageService) DeleteFile(filename string) error {
	if err := os.Remove(s.GetFilePath(filename)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
