package controller

import (
	"context"
	"fmt"
	"io"
	"mime"

	"campus-chat-be/internal/dto"
	"campus-chat-be/internal/entity"
	"campus-chat-be/internal/pkg/serverutils"
	"campus-chat-be/pkg/attachment"

	"github.com/gofiber/fiber/v2"
)

// AttachmentReader is the read side of the attachment store.
type AttachmentReader interface {
	Describe(ctx context.Context, fileId string) (*attachment.Object, error)
	Open(ctx context.Context, fileId string) (io.ReadCloser, *attachment.Object, error)
	ResolveLinks(ctx context.Context, fileId string) (entity.FileLinks, error)
}

type IAttachmentController interface {
	RegisterRoutes(r fiber.Router)
	View(ctx *fiber.Ctx) error
	Download(ctx *fiber.Ctx) error
	Info(ctx *fiber.Ctx) error
}

type attachmentController struct {
	attachments AttachmentReader
}

func NewAttachmentController(attachments AttachmentReader) IAttachmentController {
	return &attachmentController{attachments: attachments}
}

func (c *attachmentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/attachments")
	h.Get(":id", c.View)
	h.Get(":id/content", c.Download)
	h.Get(":id/info", c.Info)
}

func (c *attachmentController) View(ctx *fiber.Ctx) error {
	return c.stream(ctx, "inline")
}

func (c *attachmentController) Download(ctx *fiber.Ctx) error {
	return c.stream(ctx, "attachment")
}

func (c *attachmentController) stream(ctx *fiber.Ctx, disposition string) error {
	rc, obj, err := c.attachments.Open(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, obj.ContentType)
	ctx.Set(fiber.HeaderContentDisposition, mime.FormatMediaType(disposition, map[string]string{"filename": obj.FileName}))
	ctx.Set(fiber.HeaderCacheControl, "private, max-age=86400")

	size := -1
	if obj.Size > 0 {
		size = int(obj.Size)
	}
	// fasthttp closes the reader once the body is written.
	return ctx.SendStream(rc, size)
}

func (c *attachmentController) Info(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	obj, err := c.attachments.Describe(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	links, err := c.attachments.ResolveLinks(ctx.UserContext(), id)
	if err != nil {
		return fmt.Errorf("resolve links: %w", err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get attachment", dto.AttachmentInfoResponse{
		Id:          obj.Name,
		FileName:    obj.FileName,
		ContentType: obj.ContentType,
		Folder:      obj.Folder,
		Size:        obj.Size,
		UploadedAt:  obj.ModTime,
		Links: dto.FileLinksResponse{
			WebViewLink:    links.WebViewLink,
			WebContentLink: links.WebContentLink,
			ThumbnailLink:  links.ThumbnailLink,
		},
	}))
}
