package controllers

import (
	"net/http"

	"github.com/angelmondragon/movemarket-backend/api/responses"
	"github.com/angelmondragon/movemarket-backend/api/validators"
	"github.com/angelmondragon/movemarket-backend/internal/verification"
	pkgerrors "github.com/angelmondragon/movemarket-backend/pkg/errors"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
)

type verificationCodeRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type verifyRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Code  string `json:"code" validate:"required"`
}

// RequestVerificationCode emails a one-time login code.
func RequestVerificationCode(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "verification service unavailable"))
			return
		}

		var body verificationCodeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RequestCode(r.Context(), body.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, result)
	}
}

// VerifyCode exchanges a valid code for an access token.
func VerifyCode(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "verification service unavailable"))
			return
		}

		var body verifyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Verify(r.Context(), body.Email, validators.SanitizeString(body.Code, 16))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("X-MM-Token", result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}
