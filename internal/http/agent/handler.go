package agent

import (
	"crypto/rsa"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"winsbygroup.com/licenseagent/internal/activation"
	"winsbygroup.com/licenseagent/internal/license"
	"winsbygroup.com/licenseagent/internal/licensekey"
	"winsbygroup.com/licenseagent/internal/metrics"
)

type Handler struct {
	ActivationService *activation.Service
	LicenseService    *license.Service
	PublicKey         *rsa.PublicKey
	Metrics           metrics.Recorder
}

func NewHandler(
	a *activation.Service,
	l *license.Service,
	pub *rsa.PublicKey,
	rec metrics.Recorder,
) *Handler {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Handler{
		ActivationService: a,
		LicenseService:    l,
		PublicKey:         pub,
		Metrics:           rec,
	}
}

// POST /activate
func (h *Handler) Activate(c echo.Context) error {
	var req activation.Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}
	req.Key = strings.TrimSpace(req.Key)
	if req.Key == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "missing license key",
		})
	}

	res, err := h.ActivationService.Activate(c.Request().Context(), &req)
	if err != nil {
		return c.JSON(activationStatus(err), map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, res)
}

// activationStatus maps an activation failure to an HTTP status.
func activationStatus(err error) int {
	switch {
	case errors.Is(err, activation.ErrInvalidSignature),
		errors.Is(err, activation.ErrProductMismatch),
		errors.Is(err, licensekey.ErrUnsigned):
		return http.StatusUnprocessableEntity
	}

	switch licensekey.KindOf(err) {
	case licensekey.KindAPI, licensekey.KindValidation:
		return http.StatusBadRequest
	case licensekey.KindTransport, licensekey.KindDecode:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// GET /license
func (h *Handler) ListLicenses(c echo.Context) error {
	statuses, err := h.LicenseService.VerifyAll(c.Request().Context(), h.PublicKey)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}
	for _, st := range statuses {
		h.recordVerification(st)
	}

	return c.JSON(http.StatusOK, statuses)
}

// GET /license/:product_id/:key
func (h *Handler) GetLicense(c echo.Context) error {
	productID, key, err := licenseParams(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	st, err := h.LicenseService.Verify(c.Request().Context(), productID, key, h.PublicKey)
	if err != nil {
		if errors.Is(err, license.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "license not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}
	h.recordVerification(*st)

	return c.JSON(http.StatusOK, st)
}

// DELETE /license/:product_id/:key
func (h *Handler) DeleteLicense(c echo.Context) error {
	productID, key, err := licenseParams(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	if err := h.LicenseService.Delete(c.Request().Context(), productID, key); err != nil {
		if errors.Is(err, license.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "license not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) recordVerification(st license.Status) {
	if st.Valid {
		h.Metrics.Verification(metrics.OutcomeValid)
	} else {
		h.Metrics.Verification(metrics.OutcomeInvalid)
	}
}

func licenseParams(c echo.Context) (uint64, string, error) {
	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil {
		return 0, "", errors.New("invalid product id")
	}
	key := c.Param("key")
	if key == "" {
		return 0, "", errors.New("missing license key")
	}
	return productID, key, nil
}
