package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/longcipher/ledgerflow/x402"
)

// handleVerify handles POST /verify. The response is always HTTP 200,
// whether the payment is valid or not; only a malformed request body is a
// 400. The caller distinguishes outcomes via VerifyResponse.IsValid.
func (s *Server) handleVerify(c *gin.Context) {
	var req x402.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	result, verifyErr := s.facilitator.Verify(c.Request.Context(), req)
	if verifyErr != nil {
		log.Printf("verify: network=%s reason=%s: %v", verifyErr.Network, verifyErr.Reason, verifyErr.Err)
	}
	s.metrics.RecordVerify(string(req.PaymentRequirements.Network), string(req.PaymentRequirements.Scheme), result.IsValid)

	c.JSON(http.StatusOK, result)
}

// handleSettle handles POST /settle, with the same always-200 contract as
// handleVerify.
func (s *Server) handleSettle(c *gin.Context) {
	var req x402.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	result, settleErr := s.facilitator.Settle(c.Request.Context(), req)
	if settleErr != nil {
		log.Printf("settle: network=%s reason=%s: %v", settleErr.Network, settleErr.Reason, settleErr.Err)
	}
	s.metrics.RecordSettle(string(req.PaymentRequirements.Network), string(req.PaymentRequirements.Scheme), result.Success)

	c.JSON(http.StatusOK, result)
}

// handleSupported handles GET /supported
func (s *Server) handleSupported(c *gin.Context) {
	c.JSON(http.StatusOK, s.facilitator.GetSupported())
}

// verifySchema describes the POST /verify request/response shape for
// callers that want it without constructing a throwaway payload.
var verifySchema = gin.H{
	"description": "POST a PaymentPayload and PaymentRequirements pair; returns 200 for every verification outcome, 400 for a malformed body",
	"request": gin.H{
		"x402Version":         1,
		"paymentPayload":      "PaymentPayload",
		"paymentRequirements": "PaymentRequirements",
	},
	"response": gin.H{
		"isValid":       "bool",
		"invalidReason": "FacilitatorErrorReason, present only when isValid is false",
		"payer":         "string, chain-native address",
	},
}

var settleSchema = gin.H{
	"description": "POST a PaymentPayload and PaymentRequirements pair; returns 200 for every settlement outcome, 400 for a malformed body",
	"request": gin.H{
		"x402Version":         1,
		"paymentPayload":      "PaymentPayload",
		"paymentRequirements": "PaymentRequirements",
	},
	"response": gin.H{
		"success":     "bool",
		"errorReason": "FacilitatorErrorReason, present only when success is false",
		"payer":       "string, chain-native address",
		"transaction": "string, transaction hash, present only when success is true",
		"network":     "string, kebab-case network identifier",
	},
}

// handleVerifySchema handles GET /verify, returning the static request and
// response schema rather than performing a verification.
func (s *Server) handleVerifySchema(c *gin.Context) {
	c.JSON(http.StatusOK, verifySchema)
}

// handleSettleSchema handles GET /settle, returning the static request and
// response schema rather than performing a settlement.
func (s *Server) handleSettleSchema(c *gin.Context) {
	c.JSON(http.StatusOK, settleSchema)
}
