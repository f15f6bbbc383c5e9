package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/curalink/curalink/internal/services"
	pkghttp "github.com/curalink/curalink/pkg/http"
)

// AdvisorServiceInterface defines the treatment advisor
type AdvisorServiceInterface interface {
	Advise(ctx context.Context, disease string) (*services.TreatmentAdvice, error)
}

type AdvisorHandler struct {
	service AdvisorServiceInterface
	logger  *slog.Logger
}

func NewAdvisorHandler(service AdvisorServiceInterface, logger *slog.Logger) *AdvisorHandler {
	return &AdvisorHandler{service: service, logger: logger}
}

type TreatmentAdviceRequest struct {
	Disease string `json:"disease" validate:"required,min=2,max=200"`
}

// Treatments returns an overview of treatment research for a disease
// @Router /api/advisor/treatments [post]
func (h *AdvisorHandler) Treatments(w http.ResponseWriter, r *http.Request) {
	var req TreatmentAdviceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	advice, err := h.service.Advise(r.Context(), req.Disease)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, advice)
}
