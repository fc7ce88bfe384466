package server

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/textjournal/backend/internal/services"
	"github.com/textjournal/backend/internal/utils"
)

type consentRequest struct {
	PhoneNumber string `json:"phone_number" example:"555-123-4567"`
	ConsentText string `json:"consent_text" example:"I agree to receive text messages from Text Journal."`
	Consented   bool   `json:"consented" example:"true"`
}

// RecordConsent godoc
// @Summary Record SMS consent
// @Description Stores the consent text exactly as shown to the user, with the client address
// @Tags Consent
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body consentRequest true "Consent"
// @Success 201 {object} map[string]interface{} "Stored consent"
// @Failure 400 {object} errorResponse
// @Router /consents [post]
func (s *Server) RecordConsent(c echo.Context) error {
	var req consentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request"})
	}
	rec, err := s.Consents.Record(c.Request().Context(), currentUser(c).ID, req.PhoneNumber, req.ConsentText, req.Consented, utils.ClientIP(c.Request().Header))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "consent": rec})
}

// LatestConsent godoc
// @Summary Most recent SMS consent of the current user
// @Tags Consent
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Consent"
// @Failure 404 {object} errorResponse
// @Router /consents/latest [get]
func (s *Server) LatestConsent(c echo.Context) error {
	rec, err := s.Consents.Latest(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "consent": rec})
}

// SendConfirmation godoc
// @Summary Queue a confirmation message
// @Description Best-effort: the response does not wait for delivery
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 202 {object} simpleResponse
// @Router /notifications/confirmation [post]
func (s *Server) SendConfirmation(c echo.Context) error {
	user := currentUser(c)
	to := services.Recipient{Email: user.Email}
	if user.PhoneNumber != nil {
		to.PhoneNumber = *user.PhoneNumber
	}
	s.Notifications.DispatchConfirmation(c.Request().Context(), to)
	return c.JSON(http.StatusAccepted, simpleResponse{Success: true, Message: "Confirmation queued"})
}

type smsInboundRequest struct {
	From string `json:"from" form:"From" example:"+15551234567"`
	Body string `json:"body" form:"Body" example:"Saw the first snow today."`
}

// SMSInbound godoc
// @Summary Inbound SMS webhook
// @Description Files an inbound text message as a journal entry for the account owning the sender number
// @Tags Webhooks
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param X-API-Key header string true "Webhook API key"
// @Param request body smsInboundRequest true "Message"
// @Success 201 {object} map[string]interface{} "Created entry id"
// @Failure 401 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /webhooks/sms-inbound [post]
func (s *Server) SMSInbound(c echo.Context) error {
	key := c.Request().Header.Get("X-API-Key")
	if s.Cfg.SMSWebhookAPIKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.Cfg.SMSWebhookAPIKey)) != 1 {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "Invalid API key"})
	}

	var req smsInboundRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request"})
	}
	if req.From == "" || req.Body == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "from and body are required"})
	}

	res, err := s.Journal.CreateFromSMS(c.Request().Context(), req.From, req.Body)
	if err != nil {
		if errors.Is(err, services.ErrUnknownPhone) {
			s.Log.Info(c.Request().Context(), "sms from unknown number", "from_suffix", lastDigits(req.From, 4))
		}
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"success":  true,
		"entry_id": res.Entry.ID,
	})
}

func lastDigits(phone string, n int) string {
	d := utils.NormalizePhoneNumber(phone)
	if len(d) <= n {
		return d
	}
	return d[len(d)-n:]
}
