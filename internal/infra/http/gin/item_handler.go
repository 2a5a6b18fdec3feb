package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"lendit/internal/app/commands"
	"lendit/internal/app/dto"
	itemsapp "lendit/internal/app/handlers/items"
	"lendit/internal/app/queries"
)

const maxPhotoUpload = 10 << 20

type ItemHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createItemRequest struct {
	Name           string `json:"name" binding:"required"`
	Description    string `json:"description"`
	DailyRateCents int64  `json:"daily_rate_cents"`
	Currency       string `json:"currency"`
}

type updateItemRequest struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	DailyRateCents *int64  `json:"daily_rate_cents"`
	Currency       *string `json:"currency"`
	Available      *bool   `json:"available"`
}

func (h ItemHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := itemsapp.CreateItemCommand{
		OwnerID:        userID,
		Name:           req.Name,
		Description:    req.Description,
		DailyRateCents: req.DailyRateCents,
		Currency:       req.Currency,
	}
	result, err := commands.Dispatch[itemsapp.CreateItemCommand, *dto.Item](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ItemHandler) Get(c *gin.Context) {
	result, err := queries.Ask[itemsapp.GetItemQuery, dto.Item](c.Request.Context(), h.Queries, itemsapp.GetItemQuery{ItemID: c.Param("id")})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ItemHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := itemsapp.UpdateItemCommand{
		OwnerID:        userID,
		ItemID:         c.Param("id"),
		Name:           req.Name,
		Description:    req.Description,
		DailyRateCents: req.DailyRateCents,
		Currency:       req.Currency,
		Available:      req.Available,
	}
	result, err := commands.Dispatch[itemsapp.UpdateItemCommand, *dto.Item](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ItemHandler) Archive(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	cmd := itemsapp.ArchiveItemCommand{OwnerID: userID, ItemID: c.Param("id")}
	result, err := commands.Dispatch[itemsapp.ArchiveItemCommand, *dto.Item](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ItemHandler) UploadPhoto(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field \"file\" is required")
		return
	}
	if header.Size > maxPhotoUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo exceeds 10MiB", "code": "photo_too_large"})
		return
	}
	file, err := header.Open()
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	defer file.Close()

	cmd := itemsapp.UploadItemPhotoCommand{
		OwnerID:     userID,
		ItemID:      c.Param("id"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	}
	result, err := commands.Dispatch[itemsapp.UploadItemPhotoCommand, *dto.Item](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

var _ ItemHTTP = ItemHandler{}
