package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// EnrollResponse represents the response for a successful enrollment
type EnrollResponse struct {
	IdentityID int64    `json:"identity_id" example:"42"`
	Name       string   `json:"name" example:"Maria Silva"`
	Faces      int      `json:"faces" example:"3"`
	Levels     []string `json:"levels" example:"user,guest"`
	Trained    bool     `json:"trained" example:"true"`
}

// IdentityResponse represents an identity in responses
type IdentityResponse struct {
	ID        int64    `json:"id" example:"42"`
	Name      string   `json:"name" example:"Maria Silva"`
	Levels    []string `json:"levels" example:"user"`
	CreatedAt string   `json:"created_at" example:"2024-01-01T00:00:00Z"`
	UpdatedAt string   `json:"updated_at" example:"2024-01-01T00:00:00Z"`
}

// PermissionResponse represents one granted level
type PermissionResponse struct {
	ID         int64  `json:"id" example:"7"`
	IdentityID int64  `json:"identity_id" example:"42"`
	Level      string `json:"level" example:"user"`
	CreatedAt  string `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

// DecisionResponse represents the outcome of one access attempt
type DecisionResponse struct {
	Granted         bool    `json:"granted" example:"true"`
	IdentityID      int64   `json:"identity_id" example:"42"`
	AccessRequestID int64   `json:"access_request_id" example:"1001"`
	Confidence      float64 `json:"confidence" example:"0.93"`
}

// AccessRequestResponse represents one immutable access request record
type AccessRequestResponse struct {
	ID            int64  `json:"id" example:"1001"`
	IdentityID    *int64 `json:"identity_id,omitempty" example:"42"`
	RequiredLevel string `json:"required_level" example:"admin"`
	Outcome       string `json:"outcome" example:"granted"`
	CreatedAt     string `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

// AccessLogResponse represents one access log entry
type AccessLogResponse struct {
	ID              int64  `json:"id" example:"1001"`
	AccessRequestID int64  `json:"access_request_id" example:"1001"`
	Details         string `json:"details" example:"identity 42 requested level \"admin\": granted (confidence 0.930)"`
	CreatedAt       string `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

// NewSwagger creates and configures the Swagger documentation
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Facegate Access Control API",
		Version:     "v1.0.0",
		Description: "Facial recognition access control: enrollment, permission levels and access decisions with an append-only audit ledger",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/identities - Enroll Identity
		endpoint.New(
			endpoint.POST,
			"/identities",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("Enroll a new identity"),
			endpoint.WithDescription("Registers a new identity from one or more face images and a non-empty permission list, then retrains the classifier"),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnrollResponse{}, "201", "Identity enrolled successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "IDENTITY_EXISTS", Message: "Identity name already enrolled"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in image"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "ENROLLMENT_FAILED", Message: "Enrollment failed and was rolled back"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/identities/:id - Get Identity
		endpoint.New(
			endpoint.GET,
			"/identities/{id}",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("Get an enrolled identity"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("id", parameter.Path, parameter.WithDescription("Identity ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IdentityResponse{}, "200", "Identity retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "IDENTITY_NOT_FOUND", Message: "Identity not found"}, "404", "Not Found"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/identities/by-name/:name - Get Identity by name
		endpoint.New(
			endpoint.GET,
			"/identities/by-name/{name}",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("Get an enrolled identity by display name"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("name", parameter.Path, parameter.WithDescription("Display name")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IdentityResponse{}, "200", "Identity retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Name must contain only letters and spaces"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "IDENTITY_NOT_FOUND", Message: "Identity not found"}, "404", "Not Found"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// PATCH /v1/identities/:id - Update Identity
		endpoint.New(
			endpoint.PATCH,
			"/identities/{id}",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("Partially update an identity"),
			endpoint.WithDescription("Updates name, grants additional levels and/or appends new face images; new faces trigger a retrain"),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("id", parameter.Path, parameter.WithDescription("Identity ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IdentityResponse{}, "200", "Identity updated successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Nothing to update"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "IDENTITY_NOT_FOUND", Message: "Identity not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in image"}, "422", "Unprocessable Entity"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// DELETE /v1/identities/:id - Delete Identity
		endpoint.New(
			endpoint.DELETE,
			"/identities/{id}",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("Delete an identity"),
			endpoint.WithDescription("Removes the identity, its permissions and its stored embeddings (LGPD compliance). Past access records are kept with a nulled identity reference."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("id", parameter.Path, parameter.WithDescription("Identity ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Identity deleted successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "IDENTITY_NOT_FOUND", Message: "Identity not found"}, "404", "Not Found"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/identities/:id/permissions - List permissions
		endpoint.New(
			endpoint.GET,
			"/identities/{id}/permissions",
			endpoint.WithTags("Permissions"),
			endpoint.WithSummary("List granted levels for an identity"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("id", parameter.Path, parameter.WithDescription("Identity ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]PermissionResponse{}, "200", "Permissions retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "IDENTITY_NOT_FOUND", Message: "Identity not found"}, "404", "Not Found"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// POST /v1/identities/:id/permissions - Grant level
		endpoint.New(
			endpoint.POST,
			"/identities/{id}/permissions",
			endpoint.WithTags("Permissions"),
			endpoint.WithSummary("Grant a permission level"),
			endpoint.WithDescription("Grants one level to the identity. Granting an already held level is a no-op."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("id", parameter.Path, parameter.WithDescription("Identity ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Level granted"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_PERMISSION_LEVEL", Message: "Unknown permission level"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "IDENTITY_NOT_FOUND", Message: "Identity not found"}, "404", "Not Found"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// DELETE /v1/identities/:id/permissions/:level - Revoke level
		endpoint.New(
			endpoint.DELETE,
			"/identities/{id}/permissions/{level}",
			endpoint.WithTags("Permissions"),
			endpoint.WithSummary("Revoke one permission level"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("id", parameter.Path, parameter.WithDescription("Identity ID")),
				parameter.StrParam("level", parameter.Path, parameter.WithDescription("Permission level to revoke")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Level revoked"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_PERMISSION_LEVEL", Message: "Unknown permission level"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// DELETE /v1/identities/:id/permissions - Revoke all levels
		endpoint.New(
			endpoint.DELETE,
			"/identities/{id}/permissions",
			endpoint.WithTags("Permissions"),
			endpoint.WithSummary("Revoke every permission level"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("id", parameter.Path, parameter.WithDescription("Identity ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "All levels revoked"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// POST /v1/access - Access decision
		endpoint.New(
			endpoint.POST,
			"/access",
			endpoint.WithTags("Access"),
			endpoint.WithSummary("Run one access attempt"),
			endpoint.WithDescription("Recognizes the face in the image and decides whether the predicted identity holds the required level. Granted and denied decisions are both recorded in the ledger."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DecisionResponse{}, "200", "Decision recorded successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "NOT_RECOGNIZED", Message: "Face not recognized with sufficient confidence"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in image"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "CLASSIFIER_UNAVAILABLE", Message: "Classifier has not been trained yet"}, "503", "Service Unavailable"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/access/requests/:id - Get access request
		endpoint.New(
			endpoint.GET,
			"/access/requests/{id}",
			endpoint.WithTags("Access"),
			endpoint.WithSummary("Get one access request"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("id", parameter.Path, parameter.WithDescription("Access request ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AccessRequestResponse{}, "200", "Access request retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "NOT_FOUND", Message: "Access request not found"}, "404", "Not Found"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/access/logs/:id - Get access log
		endpoint.New(
			endpoint.GET,
			"/access/logs/{id}",
			endpoint.WithTags("Access"),
			endpoint.WithSummary("Get one access log entry"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("id", parameter.Path, parameter.WithDescription("Access log ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AccessLogResponse{}, "200", "Access log retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "NOT_FOUND", Message: "Access log not found"}, "404", "Not Found"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/identities/:id/access-requests - List access requests
		endpoint.New(
			endpoint.GET,
			"/identities/{id}/access-requests",
			endpoint.WithTags("Access"),
			endpoint.WithSummary("List access requests for an identity"),
			endpoint.WithDescription("Returns the identity's access requests, most recent first"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("id", parameter.Path, parameter.WithDescription("Identity ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]AccessRequestResponse{}, "200", "Access requests retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/identities/:id/access-logs - List access logs
		endpoint.New(
			endpoint.GET,
			"/identities/{id}/access-logs",
			endpoint.WithTags("Access"),
			endpoint.WithSummary("List access logs for an identity"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("id", parameter.Path, parameter.WithDescription("Identity ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]AccessLogResponse{}, "200", "Access logs retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
