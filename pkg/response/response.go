package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/newsroom-api/internal/models"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
)

// Envelope represents the common response contract.
type Envelope struct {
	Success    bool                   `json:"success"`
	Data       interface{}            `json:"data,omitempty"`
	Items      interface{}            `json:"items,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON sends a success response with optional metadata.
func JSON(c *gin.Context, status int, data interface{}, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Success: true, Data: data}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// List sends a paginated collection as {success, items, pagination}.
func List(c *gin.Context, items interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Success: true, Items: items, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(http.StatusOK, envelope)
}

// Payload writes v as the top-level body. Used by the auth endpoints whose contract is flat.
func Payload(c *gin.Context, status int, v interface{}) {
	noStore(c)
	c.JSON(status, v)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Message sends an empty success body carrying only a message.
func Message(c *gin.Context, status int, message string) {
	noStore(c)
	c.JSON(status, Envelope{Success: true, Message: message})
}

// Error sends an error response converting the error to the common structure.
// Internal failures are attached to the gin context for logging and returned with a generic message.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	noStore(c)
	c.JSON(appErr.Status, Envelope{Success: false, Error: appErr, Message: appErr.Message})
}

// Abort is Error followed by aborting the handler chain.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}
