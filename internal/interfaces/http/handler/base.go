package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/channelsync/backend/internal/domain/channel"
	"github.com/channelsync/backend/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// DomainError maps a domain error to its HTTP rendering. Platform
// rejections surface as 502 with the platform's raw response body so the
// operator sees exactly what the platform said.
func (h *BaseHandler) DomainError(c *gin.Context, err error) {
	if pe, ok := channel.AsPlatformError(err); ok {
		h.Error(c, http.StatusBadGateway, dto.ErrCodeUpstream, pe.Body)
		return
	}

	switch {
	case errors.Is(err, channel.ErrUnknownPlatform):
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, err.Error())
	case errors.Is(err, channel.ErrAlreadyAuthorized),
		errors.Is(err, channel.ErrHooksExist):
		h.Error(c, http.StatusConflict, dto.ErrCodeConflict, err.Error())
	case errors.Is(err, channel.ErrAuthFailed),
		errors.Is(err, channel.ErrAuthStateMismatch),
		errors.Is(err, channel.ErrStateNotFound),
		errors.Is(err, channel.ErrNotReady),
		errors.Is(err, channel.ErrRefreshFailed):
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, err.Error())
	case errors.Is(err, channel.ErrHooksUnsupported),
		errors.Is(err, channel.ErrOrderPollUnsupported):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeUnsupported, err.Error())
	default:
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, err.Error())
	}
}

// platformParam resolves the :platform path parameter to a PlatformCode.
// Paths use lowercase slugs ("etsy3" for the v3 API).
func platformParam(c *gin.Context) (channel.PlatformCode, bool) {
	switch c.Param("platform") {
	case "etsy":
		return channel.PlatformCodeEtsy, true
	case "etsy3":
		return channel.PlatformCodeEtsyV3, true
	case "shopify":
		return channel.PlatformCodeShopify, true
	case "pos":
		return channel.PlatformCodePOS, true
	default:
		return "", false
	}
}
