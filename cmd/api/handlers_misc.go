package main

import (
	"net/http"

	"github.com/b0b7h3d0g/PhotoVoter/pkg/auth"
	"github.com/b0b7h3d0g/PhotoVoter/pkg/validator"
)

func (app *application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	env := env{
		"status": "available",
		"system_info": map[string]string{
			"environment": app.config.Env,
			"version":     version,
		},
	}
	app.sendJSON(w, r, http.StatusOK, env, nil)
}

// Relay a contact form message to the configured administrator mailbox. The
// mail is sent in a background goroutine so the response doesn't wait for
// the SMTP exchange.
func (app *application) contactHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email   string `json:"email"`
		Subject string `json:"subject"`
		Message string `json:"message"`
	}

	err := readJSON(w, r, &input)
	if err != nil {
		app.malformedJSONResponse(w, r, err)
		return
	}

	v := validator.New()
	validator.ValidateEmail(v, input.Email)
	v.Check(input.Subject != "", "subject", "must be provided")
	v.Check(input.Message != "", "message", "must be provided")
	if !v.Ok() {
		app.failedValidationResponse(w, r, v)
		return
	}

	app.background(func() {
		err := app.mailer.Send(app.config.Smtp.Recipient, input.Email, input.Subject, input.Message)
		if err != nil {
			app.logger.Errorw("sending contact mail", "err", err)
		}
	})

	app.sendJSON(w, r, http.StatusAccepted, env{"message": "your message has been sent"}, nil)
}

// Show the runtime configuration, for administrators only. Credentials are
// blanked before encoding.
func (app *application) showConfigHandler(w http.ResponseWriter, r *http.Request) {
	principal := auth.ContextGetPrincipal(r.Context())
	if !principal.Admin {
		app.forbiddenResponse(w, r)
		return
	}

	cfg := app.config
	cfg.Db.Dsn = "<hidden>"
	cfg.Smtp.Password = "<hidden>"

	app.sendJSON(w, r, http.StatusOK, env{"config": cfg}, nil)
}
