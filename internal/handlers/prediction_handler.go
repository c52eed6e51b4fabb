package handlers

import (
	"github.com/gofiber/fiber/v2"

	"churninsight/dashboard/internal/models"
)

type PredictionHandler struct{}

func NewPredictionHandler() *PredictionHandler {
	return &PredictionHandler{}
}

// HandlePredict handles POST /predictions
func (h *PredictionHandler) HandlePredict(c *fiber.Ctx) error {
	form, err := parseForm(c)
	if err != nil {
		return err
	}

	result, err := sessionFrom(c).Prediction.Predict(c.UserContext(), form)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// HandleFullStats handles POST /predictions/stats
func (h *PredictionHandler) HandleFullStats(c *fiber.Ctx) error {
	form, err := parseForm(c)
	if err != nil {
		return err
	}

	result, err := sessionFrom(c).Prediction.FullStats(c.UserContext(), form)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// HandleReset handles DELETE /predictions
func (h *PredictionHandler) HandleReset(c *fiber.Ctx) error {
	prediction := sessionFrom(c).Prediction
	prediction.Reset()
	return c.JSON(prediction.Snapshot())
}

// HandleState handles GET /predictions
func (h *PredictionHandler) HandleState(c *fiber.Ctx) error {
	return c.JSON(sessionFrom(c).Prediction.Snapshot())
}

// parseForm overlays the submitted fields on the form defaults.
func parseForm(c *fiber.Ctx) (models.PredictionForm, error) {
	form := models.DefaultPredictionForm()
	if len(c.Body()) == 0 {
		return form, nil
	}

	var submitted map[string]interface{}
	if err := c.BodyParser(&submitted); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request payload")
	}
	for k, v := range submitted {
		form[k] = v
	}
	return form, nil
}
