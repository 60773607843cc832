package controllers

import (
	"net/http"

	"github.com/angelmondragon/movemarket-backend/api/middleware"
	"github.com/angelmondragon/movemarket-backend/api/responses"
	"github.com/angelmondragon/movemarket-backend/api/validators"
	"github.com/angelmondragon/movemarket-backend/internal/reviews"
	pkgerrors "github.com/angelmondragon/movemarket-backend/pkg/errors"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
)

type reviewIssueRequest struct {
	Category    string `json:"category" validate:"required,max=64"`
	Description string `json:"description"`
}

type submitReviewRequest struct {
	BidID   int64                `json:"bid_id" validate:"required,min=1"`
	Rating  int                  `json:"rating" validate:"required,min=1,max=5"`
	Comment string               `json:"comment"`
	Issues  []reviewIssueRequest `json:"issues" validate:"omitempty,max=10,dive"`
}

// SubmitReview stores the caller's review of a completed move.
func SubmitReview(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reviews service unavailable"))
			return
		}

		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.NewBilingual(pkgerrors.CodeUnauthorized, "missing credentials", "inloggningsuppgifter saknas"))
			return
		}

		var body submitReviewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := reviews.SubmitInput{
			BidID:         body.BidID,
			CustomerEmail: principal.Email,
			Rating:        body.Rating,
			Comment:       body.Comment,
		}
		for _, issue := range body.Issues {
			input.Issues = append(input.Issues, reviews.IssueInput{
				Category:    issue.Category,
				Description: issue.Description,
			})
		}

		review, err := svc.Submit(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, review)
	}
}
