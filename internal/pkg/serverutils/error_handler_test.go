package serverutils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"campus-chat-be/internal/chat"
	"campus-chat-be/pkg/attachment"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("room x: %w", chat.ErrNotFound), 404},
		{"attachment not found", fmt.Errorf("%w: f1", attachment.ErrNotFound), 404},
		{"validation sentinel", chat.ErrValidation, 400},
		{"validation struct", &ValidationError{Fields: map[string]string{"RoomName": "required"}}, 400},
		{"rate limited", chat.ErrRateLimited, 429},
		{"fiber error", fiber.NewError(fiber.StatusConflict, "conflict"), 409},
		{"unknown", fmt.Errorf("boom"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/missing", func(ctx *fiber.Ctx) error {
		return fmt.Errorf("room-a: %w", chat.ErrNotFound)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var res BaseResponse[any]
	require.NoError(t, json.Unmarshal(body, &res))
	assert.False(t, res.Success)
	assert.Equal(t, 404, res.Code)
	assert.Contains(t, res.Message, "not found")
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		RoomName string `validate:"required"`
	}

	err := ValidateRequest(req{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "required", ve.Fields["RoomName"])

	assert.NoError(t, ValidateRequest(req{RoomName: "general"}))
}
