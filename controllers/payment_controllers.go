package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/fnb-kiosk/services"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

// MaxProofUpload bounds the multipart body of a proof upload.
const MaxProofUpload = 5 << 20

type PaymentController struct {
	Proofs *services.ProofService
}

func NewPaymentController(proofs *services.ProofService) *PaymentController {
	return &PaymentController{Proofs: proofs}
}

// SubmitProof -> POST /api/orders/:id/payment-proof (multipart: reference, image)
func (pc *PaymentController) SubmitProof(c *gin.Context) {
	var img *services.ProofImage
	file, err := c.FormFile("image")
	switch {
	case err == nil:
		f, openErr := file.Open()
		if openErr != nil {
			utils.RespondError(c, http.StatusBadRequest, "Could not read uploaded image")
			return
		}
		defer f.Close()
		img = &services.ProofImage{Filename: file.Filename, Content: f}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// image is optional
	default:
		utils.RespondError(c, http.StatusBadRequest, "Invalid upload")
		return
	}

	proof, err := pc.Proofs.Submit(c.Request.Context(), c.Param("id"), c.PostForm("reference"), img)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Payment proof submitted", proof)
}

func (pc *PaymentController) ListProofs(c *gin.Context) {
	c.JSON(http.StatusOK, utils.JSONResponse{Success: true, Data: pc.Proofs.List()})
}

func (pc *PaymentController) GetProof(c *gin.Context) {
	proof, err := pc.Proofs.Get(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.JSONResponse{Success: true, Data: proof})
}

// VerifyProof marks the proof verified and the order paid.
func (pc *PaymentController) VerifyProof(c *gin.Context) {
	proof, order, err := pc.Proofs.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment verified", gin.H{
		"proof": proof,
		"order": order,
	})
}

func (pc *PaymentController) DeleteProof(c *gin.Context) {
	if err := pc.Proofs.Delete(c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment proof deleted", nil)
}

func (pc *PaymentController) DeleteProofImage(c *gin.Context) {
	proof, err := pc.Proofs.DeleteImage(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment proof image deleted", proof)
}
