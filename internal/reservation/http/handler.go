package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/nekogravitycat/plot-booking-backend/internal/auth"
	"github.com/nekogravitycat/plot-booking-backend/internal/completion"
	"github.com/nekogravitycat/plot-booking-backend/internal/file"
	filehttp "github.com/nekogravitycat/plot-booking-backend/internal/file/http"
	"github.com/nekogravitycat/plot-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/plot-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/plot-booking-backend/internal/reservation"
)

const (
	proofFormField       = "proof"
	reservationFormField = "reservation"
)

type Handler struct {
	service       reservation.Service
	gate          *completion.Gate
	files         *filehttp.Handler
	maxProofBytes int64
}

func NewHandler(service reservation.Service, gate *completion.Gate, files *filehttp.Handler, maxProofBytes int64) *Handler {
	return &Handler{
		service:       service,
		gate:          gate,
		files:         files,
		maxProofBytes: maxProofBytes,
	}
}

func (h *Handler) proofUpload() filehttp.FileUploadConfig {
	return filehttp.FileUploadConfig{
		FormFieldName: proofFormField,
		MaxSizeBytes:  h.maxProofBytes,
		AllowedTypes:  file.ProofContentTypes,
	}
}

func (h *Handler) List(c *gin.Context) {
	var req ListReservationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}
	filter := req.Filter()

	items, total, err := h.service.List(c.Request.Context(), auth.GetActor(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := make([]ReservationResponse, len(items))
	for i, r := range items {
		resp[i] = NewReservationResponse(r)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(resp, filter.Page, filter.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation ID"})
		return
	}

	r, err := h.service.GetByID(c.Request.Context(), auth.GetActor(c), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewReservationResponse(r))
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateReservationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	req, err := body.ToDomain()
	if err != nil {
		response.Error(c, err)
		return
	}

	r, err := h.service.Create(c.Request.Context(), auth.GetActor(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewReservationResponse(r))
}

// CreateWithProof creates a client reservation and finalizes it with the
// uploaded proof of payment in one multipart request.
func (h *Handler) CreateWithProof(c *gin.Context) {
	var body CreateReservationRequest
	if err := binding.JSON.BindBody([]byte(c.PostForm(reservationFormField)), &body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation field", "details": err.Error()})
		return
	}
	req, err := body.ToDomain()
	if err != nil {
		response.Error(c, err)
		return
	}

	in, closer, err := filehttp.OpenUpload(c, h.proofUpload())
	if err != nil {
		if err == file.ErrTooLarge {
			response.Error(c, err)
			return
		}
		response.Error(c, completion.ErrProofRequired)
		return
	}
	defer closer.Close()

	conf, err := h.gate.SubmitWithProof(c.Request.Context(), auth.GetActor(c), req, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewConfirmationResponse(conf))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation ID"})
		return
	}
	var body UpdateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	r, err := h.service.SetStatus(c.Request.Context(), auth.GetActor(c), uri.ID, reservation.SetStatusRequest{
		Status: reservation.Status(body.Status),
		Reason: body.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewReservationResponse(r))
}

// AttachProof stores the uploaded proof and finalizes the pending reservation.
// The stored file is removed again if the reservation does not accept it.
func (h *Handler) AttachProof(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation ID"})
		return
	}
	actor := auth.GetActor(c)

	cfg := h.proofUpload()
	cfg.AfterUpload = func(ctx context.Context, f *file.File) (any, error) {
		conf, err := h.gate.AttachProofAndFinalize(ctx, actor, uri.ID, f.ID)
		if err != nil {
			return nil, err
		}
		return NewConfirmationResponse(conf), nil
	}
	h.files.HandleFileUpload(c, cfg)
}

func (h *Handler) Delete(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation ID"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), auth.GetActor(c), uri.ID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
