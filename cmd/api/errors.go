package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/auth"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/store"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/validator"
	"github.com/b0b7h3d0g/PhotoVoter/services/images"
	"github.com/b0b7h3d0g/PhotoVoter/services/votes"
)

func (app *application) encodeError(w http.ResponseWriter, r *http.Request, err error) {
	v := validator.New()

	switch {
	case errors.As(err, &v):
		app.failedValidationResponse(w, r, v)

	// store errors
	case errors.Is(err, store.ErrRecordNotFound):
		app.notFoundResponse(w, r)
	case errors.Is(err, store.ErrEditConflict):
		app.editConflictResponse(w, r)
	case errors.Is(err, store.ErrFileAlreadyExists):
		app.nameTakenResponse(w, r)
	case errors.Is(err, store.ErrForbidden):
		app.forbiddenResponse(w, r)

	// auth errors
	case errors.Is(err, auth.ErrUnauthenticated):
		app.unauthenticatedResponse(w, r)
	case errors.Is(err, auth.ErrNotAdmin):
		app.notAdminResponse(w, r)

	// votes service errors
	case errors.Is(err, votes.ErrVotingDisabled):
		app.votingDisabledResponse(w, r)
	case errors.Is(err, votes.ErrSelfVote):
		app.selfVoteResponse(w, r)

	// images service errors
	case errors.Is(err, images.ErrUploadDisabled):
		app.uploadDisabledResponse(w, r)
	case errors.Is(err, images.ErrQuotaExceeded):
		app.quotaExceededResponse(w, r)
	case errors.Is(err, images.ErrNotImage):
		app.notAnImageResponse(w, r)

	// default to 500 errors
	default:
		app.serverErrorResponse(w, r, err)
	}
}

// These are generic responses given back to the user. Below there are more
// specific error responses that may utilize the same HTTP code but differ for
// the returned message.
func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.sendJSONError(w, r, errResponse{
		message: "the server encountered a problem and could not process your request",
		status:  http.StatusInternalServerError,
		err:     err,
	})
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	err := errors.New("the requested resource could not be found")
	app.sendJSONError(w, r, errResponse{
		message: err.Error(),
		status:  http.StatusNotFound,
		err:     err,
	})
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.sendJSONError(w, r, errResponse{
		message: err.Error(),
		status:  http.StatusBadRequest,
		err:     err,
	})
}

func (app *application) forbiddenResponse(w http.ResponseWriter, r *http.Request) {
	err := errors.New("you don't have rights to perform this action")
	app.sendJSONError(w, r, errResponse{
		message: err.Error(),
		status:  http.StatusForbidden,
		err:     err,
	})
}

func (app *application) unauthenticatedResponse(w http.ResponseWriter, r *http.Request) {
	err := errors.New("you must be authenticated to access this resource")
	app.sendJSONError(w, r, errResponse{
		message: err.Error(),
		status:  http.StatusUnauthorized,
		err:     err,
	})
}

func (app *application) editConflictResponse(w http.ResponseWriter, r *http.Request) {
	err := errors.New("unable to update the resource due to a conflict, please try again")
	app.sendJSONError(w, r, errResponse{
		message: err.Error(),
		status:  http.StatusConflict,
		err:     err,
	})
}

// Errors responses used by the router.
func (app *application) routeNotFoundHandler(w http.ResponseWriter, r *http.Request) {
	err := errors.New("the requested API endpoint doesn't exist")
	app.sendJSONError(w, r, errResponse{
		message: err.Error(),
		status:  http.StatusNotFound,
		err:     err,
	})
}

func (app *application) methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	err := fmt.Errorf("the %s method is not supported for this endpoint", r.Method)
	app.sendJSONError(w, r, errResponse{
		message: err.Error(),
		status:  http.StatusMethodNotAllowed,
		err:     err,
	})
}

// More specific error responses.
func (app *application) malformedJSONResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.sendJSONError(w, r, errResponse{
		message: err.Error(),
		status:  http.StatusBadRequest,
		err:     err,
	})
}

func (app *application) failedValidationResponse(w http.ResponseWriter, r *http.Request, errors validator.Validator) {
	app.sendJSONError(w, r, errResponse{
		message: errors,
		status:  http.StatusUnprocessableEntity,
		err:     errors,
	})
}

func (app *application) nameTakenResponse(w http.ResponseWriter, r *http.Request) {
	err := errors.New("an item with this name already exists")
	app.sendJSONError(w, r, errResponse{
		message: err.Error(),
		status:  http.StatusConflict,
		err:     err,
	})
}

func (app *application) notAdminResponse(w http.ResponseWriter, r *http.Request) {
	err := errors.New("administrator rights are required to perform this action")
	app.sendJSONError(w, r, errResponse{
		message: err.Error(),
		status:  http.StatusForbidden,
		err:     err,
	})
}

func (app *application) votingDisabledResponse(w http.ResponseWriter, r *http.Request) {
	err := errors.New("voting is not enabled for this gallery")
	app.sendJSONError(w, r, errResponse{
		message: err.Error(),
		status:  http.StatusForbidden,
		err:     err,
	})
}

func (app *application) selfVoteResponse(w http.ResponseWriter, r *http.Request) {
	err := errors.New("you cannot vote for your own photos")
	app.sendJSONError(w, r, errResponse{
		message: err.Error(),
		status:  http.StatusForbidden,
		err:     err,
	})
}

func (app *application) uploadDisabledResponse(w http.ResponseWriter, r *http.Request) {
	err := errors.New("uploading is not enabled for this gallery")
	app.sendJSONError(w, r, errResponse{
		message: err.Error(),
		status:  http.StatusForbidden,
		err:     err,
	})
}

func (app *application) quotaExceededResponse(w http.ResponseWriter, r *http.Request) {
	err := errors.New("upload quota reached for this gallery, delete some of your photos and retry")
	app.sendJSONError(w, r, errResponse{
		message: err.Error(),
		status:  http.StatusForbidden,
		err:     err,
	})
}

func (app *application) notAnImageResponse(w http.ResponseWriter, r *http.Request) {
	err := errors.New("the uploaded file is not a supported image")
	app.sendJSONError(w, r, errResponse{
		message: err.Error(),
		status:  http.StatusUnsupportedMediaType,
		err:     err,
	})
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	err := errors.New("rate limit exceeded")
	app.sendJSONError(w, r, errResponse{
		message: err.Error(),
		status:  http.StatusTooManyRequests,
		err:     err,
	})
}
