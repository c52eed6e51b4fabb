package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"churninsight/dashboard/internal/models"
	"churninsight/dashboard/internal/repositories"
	"churninsight/dashboard/internal/services"
)

const defaultHistoryLimit = 20

type BatchHandler struct {
	storageService services.StorageService
	jobs           repositories.BatchJobRepository
	maxFileSize    int64
	log            *zap.Logger
}

func NewBatchHandler(
	storageService services.StorageService,
	jobs repositories.BatchJobRepository,
	maxFileSize int64,
	log *zap.Logger,
) *BatchHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BatchHandler{
		storageService: storageService,
		jobs:           jobs,
		maxFileSize:    maxFileSize,
		log:            log,
	}
}

// HandleUpload handles POST /batch
func (h *BatchHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return &services.ValidationError{Message: "no file selected"}
	}

	if h.maxFileSize > 0 && file.Size > h.maxFileSize {
		return &services.ValidationError{
			Message: fmt.Sprintf("file too large. Max size: %d bytes", h.maxFileSize),
		}
	}

	stagedName, _, err := h.storageService.SaveFile(file)
	if err != nil {
		return err
	}
	defer func() {
		if err := h.storageService.DeleteFile(stagedName); err != nil {
			h.log.Warn("failed to remove staged file", zap.String("file", stagedName), zap.Error(err))
		}
	}()

	summary, err := h.storageService.Inspect(stagedName)
	if err != nil {
		return err
	}
	h.log.Info("batch file staged",
		zap.String("file", file.Filename),
		zap.Int("rows", summary.Rows),
		zap.Strings("columns", summary.Columns),
	)

	staged, err := h.storageService.Open(stagedName)
	if err != nil {
		return err
	}
	defer staged.Close()

	batch := sessionFrom(c).Batch
	if _, err := batch.Upload(c.UserContext(), file.Filename, staged); err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(batch.Snapshot())
}

// HandleState handles GET /batch
func (h *BatchHandler) HandleState(c *fiber.Ctx) error {
	return c.JSON(sessionFrom(c).Batch.Snapshot())
}

// HandleCheck handles POST /batch/check
func (h *BatchHandler) HandleCheck(c *fiber.Ctx) error {
	batch := sessionFrom(c).Batch
	if _, err := batch.CheckStatus(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(batch.Snapshot())
}

// HandleReset handles DELETE /batch
func (h *BatchHandler) HandleReset(c *fiber.Ctx) error {
	batch := sessionFrom(c).Batch
	batch.Reset()
	return c.JSON(batch.Snapshot())
}

// HandleHistory handles GET /batch/history
func (h *BatchHandler) HandleHistory(c *fiber.Ctx) error {
	if h.jobs == nil {
		return c.JSON(fiber.Map{"jobs": []models.BatchJobRecord{}})
	}

	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 || limit > 100 {
		limit = defaultHistoryLimit
	}

	session := sessionFrom(c)
	scope := session.ID
	if c.QueryBool("all", false) {
		scope = ""
	}

	records, err := h.jobs.Recent(c.UserContext(), scope, limit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load batch history")
	}
	if records == nil {
		records = []models.BatchJobRecord{}
	}
	return c.JSON(fiber.Map{"jobs": records})
}
