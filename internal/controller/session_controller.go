package controller

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"

	"ragchat-client/internal/constant"
	"ragchat-client/internal/dto"
	"ragchat-client/internal/entity"
	"ragchat-client/internal/pkg/logger"
	"ragchat-client/internal/pkg/serverutils"
	"ragchat-client/internal/service"
	"ragchat-client/pkg/attachment"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	GetState(ctx *fiber.Ctx) error
	CreateChat(ctx *fiber.Ctx) error
	SelectChat(ctx *fiber.Ctx) error
	RequestGraph(ctx *fiber.Ctx) error
	UploadFiles(ctx *fiber.Ctx) error
	StageLocalFiles(ctx *fiber.Ctx) error
	UnstageFile(ctx *fiber.Ctx) error
	ShowGraph(ctx *fiber.Ctx) error
	CloseGraph(ctx *fiber.Ctx) error
	ToggleSidebar(ctx *fiber.Ctx) error
	SetDraft(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	Login(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
	DismissNotice(ctx *fiber.Ctx) error
}

type sessionController struct {
	core   service.ISessionCore
	logger logger.ILogger
}

func NewSessionController(core service.ISessionCore, log logger.ILogger) ISessionController {
	return &sessionController{core: core, logger: log}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session/v1", serverutils.RequireClientHeader(constant.ClientHeaderName))
	signedIn := serverutils.RequireIdentity(c.core.Identity)

	h.Get("/state", c.GetState)

	h.Post("/chats", signedIn, c.CreateChat)
	h.Put("/chats/:id/select", c.SelectChat)
	h.Post("/chats/:id/graph", signedIn, c.RequestGraph)

	h.Post("/files", c.UploadFiles)
	h.Post("/files/local", c.StageLocalFiles)
	h.Delete("/files/:index", c.UnstageFile)

	h.Post("/graph", signedIn, c.ShowGraph)
	h.Delete("/graph", c.CloseGraph)

	h.Put("/sidebar/toggle", c.ToggleSidebar)
	h.Put("/draft", c.SetDraft)
	h.Post("/messages", signedIn, c.SendMessage)

	h.Post("/auth/login", c.Login)
	h.Post("/auth/logout", c.Logout)

	h.Delete("/notice", c.DismissNotice)
}

func (c *sessionController) GetState(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get session state", c.core.Snapshot()))
}

func (c *sessionController) CreateChat(ctx *fiber.Ctx) error {
	var req dto.CreateChatBody
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	summary, err := c.core.CreateChat(ctx.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create chat", summary))
}

func (c *sessionController) SelectChat(ctx *fiber.Ctx) error {
	outcome, err := c.core.SelectChat(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success select chat", dto.ActionResponse{Outcome: outcome.String()}))
}

// RequestGraph fetches the graph of one chat and answers once it has landed
// or been discarded.
func (c *sessionController) RequestGraph(ctx *fiber.Ctx) error {
	outcome, err := c.core.RequestGraphSnapshot(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Graph request finished", dto.ActionResponse{Outcome: outcome.String()}))
}

func (c *sessionController) UploadFiles(ctx *fiber.Ctx) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Multipart form with files is required")
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "At least one file is required")
	}

	candidates := make([]entity.StagedFile, 0, len(headers))
	var failed []string
	for _, fh := range headers {
		candidate, err := readUpload(fh)
		if err != nil {
			c.logger.Warn("SessionController", "Failed to read upload", map[string]interface{}{
				"file":  fh.Filename,
				"error": err.Error(),
			})
			failed = append(failed, fh.Filename)
			continue
		}
		candidates = append(candidates, candidate)
	}

	return c.stage(ctx, candidates, failed)
}

func (c *sessionController) StageLocalFiles(ctx *fiber.Ctx) error {
	var req dto.StageLocalFilesRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	candidates := make([]entity.StagedFile, 0, len(req.Paths))
	var failed []string
	for _, path := range req.Paths {
		candidate, err := attachment.FromPath(path)
		if err != nil {
			c.logger.Warn("SessionController", "Failed to open local file", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			failed = append(failed, path)
			continue
		}
		candidates = append(candidates, candidate)
	}

	return c.stage(ctx, candidates, failed)
}

func (c *sessionController) stage(ctx *fiber.Ctx, candidates []entity.StagedFile, failed []string) error {
	accepted := c.core.StageFiles(ctx.UserContext(), candidates)
	return ctx.JSON(serverutils.SuccessResponse("Files staged", dto.StageFilesResponse{
		Accepted: accepted,
		Rejected: len(candidates) - accepted,
		Failed:   failed,
	}))
}

func (c *sessionController) UnstageFile(ctx *fiber.Ctx) error {
	index, err := strconv.Atoi(ctx.Params("index"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Index must be an integer")
	}

	outcome := c.core.UnstageFile(ctx.UserContext(), index)
	return ctx.JSON(serverutils.SuccessResponse("Success unstage file", dto.ActionResponse{Outcome: outcome.String()}))
}

// ShowGraph opens the graph view for the selected chat; the graph itself
// arrives later on the snapshot stream.
func (c *sessionController) ShowGraph(ctx *fiber.Ctx) error {
	outcome, err := c.core.ShowGraph(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Graph requested", dto.ActionResponse{Outcome: outcome.String()}))
}

func (c *sessionController) CloseGraph(ctx *fiber.Ctx) error {
	outcome := c.core.CloseGraphView(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Success close graph", dto.ActionResponse{Outcome: outcome.String()}))
}

func (c *sessionController) ToggleSidebar(ctx *fiber.Ctx) error {
	collapsed := c.core.ToggleSidebar(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Success toggle sidebar", dto.SidebarResponse{Collapsed: collapsed}))
}

func (c *sessionController) SetDraft(ctx *fiber.Ctx) error {
	var req dto.SetDraftRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	outcome := c.core.SetDraft(ctx.UserContext(), req.Text)
	return ctx.JSON(serverutils.SuccessResponse("Success set draft", dto.ActionResponse{Outcome: outcome.String()}))
}

func (c *sessionController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}

	msg, err := c.core.SendMessage(ctx.UserContext(), req.Text)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Message recorded", msg))
}

func (c *sessionController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	identity, err := c.core.Login(ctx.UserContext(), &oauth2.Token{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		TokenType:    constant.BearerTokenType,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success login", identity))
}

func (c *sessionController) Logout(ctx *fiber.Ctx) error {
	if err := c.core.Logout(ctx.UserContext()); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success logout", nil))
}

func (c *sessionController) DismissNotice(ctx *fiber.Ctx) error {
	outcome := c.core.DismissNotice(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Success dismiss notice", dto.ActionResponse{Outcome: outcome.String()}))
}

func readUpload(fh *multipart.FileHeader) (entity.StagedFile, error) {
	f, err := fh.Open()
	if err != nil {
		return entity.StagedFile{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return entity.StagedFile{}, fmt.Errorf("read upload: %w", err)
	}
	return attachment.FromBytes(fh.Filename, fh.Header.Get("Content-Type"), data), nil
}
