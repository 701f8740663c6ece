package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/widgetboard/internal/registration"
)

type RegisterUserInput struct {
	Body struct {
		FirstName string `json:"first_name" doc:"First name"`
		LastName  string `json:"last_name" doc:"Last name"`
		Email     string `json:"email" doc:"Email; the set-password link goes here"`
		CompanyID string `json:"company_id,omitempty" doc:"Company; defaults to the caller's"`
		RoleID    string `json:"role_id" doc:"Role within the company"`
	}
}

type RegisterUserOutput struct {
	Status int
	Body   *registration.Result
}

// RegisterRegistrationRoutes mounts user enrollment. Field problems come back
// as 422 with the per-field messages in the body.
func RegisterRegistrationRoutes(api huma.API, registrar Registrar) {
	huma.Register(api, huma.Operation{
		OperationID: "register-user",
		Method:      http.MethodPost,
		Path:        "/registrations",
		Summary:     "Register a user into the current company",
		Tags:        []string{"Registrations"},
	}, func(ctx context.Context, input *RegisterUserInput) (*RegisterUserOutput, error) {
		companyID, err := adminFrom(ctx)
		if err != nil {
			return nil, err
		}

		if input.Body.CompanyID != "" && input.Body.CompanyID != companyID.String() {
			return nil, huma.Error403Forbidden("cannot register users into another company")
		}

		res, err := registrar.Register(ctx, registration.Fields{
			"first_name": input.Body.FirstName,
			"last_name":  input.Body.LastName,
			"email":      input.Body.Email,
			"company_id": companyID.String(),
			"role_id":    input.Body.RoleID,
		})
		if err != nil {
			return nil, huma.Error500InternalServerError("registration failed", err)
		}

		status := http.StatusCreated
		if !res.OK {
			status = http.StatusUnprocessableEntity
		}
		return &RegisterUserOutput{Status: status, Body: res}, nil
	})
}
