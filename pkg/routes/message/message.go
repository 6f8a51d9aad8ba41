package message

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/fefejiro/peacepad/internal/repositories/message"
	"github.com/fefejiro/peacepad/internal/repositories/partnership"
	"github.com/fefejiro/peacepad/pkg/appcontext"
	"github.com/fefejiro/peacepad/pkg/events"
	"github.com/fefejiro/peacepad/pkg/models"
	"github.com/fefejiro/peacepad/pkg/tracing"
)

var validate = validator.New()

// Register registers message routes
func Register(g *echo.Group) {
	g.POST("/partnerships/:id/messages", Create)
	g.GET("/partnerships/:id/messages", List)
}

// Create sends a message. Tone analysis runs asynchronously; the created
// message is returned immediately with null tone fields.
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "message_handler.Create")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	partnershipID := c.Param("id")

	var req models.CreateMessageRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, partnerships, err := ectoinject.GetContext[*partnership.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}
	if _, err := partnerships.GetForUser(ctx, partnershipID, userID); err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*message.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	created, err := repo.Create(ctx, partnershipID, userID, req)
	if err != nil {
		return err
	}

	// Publishing is best effort. The message is already persisted; a Kafka
	// outage should not fail the send, it just delays tone analysis.
	ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx)
	if err == nil && emitter != nil {
		ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
		if err := emitter.EmitMessageCreated(ctx, created); err != nil && logger != nil {
			logger.WithContext(ctx).WithError(err).Error("Failed to emit message created event")
		}
		if err := emitter.EnqueueToneJob(ctx, created); err != nil && logger != nil {
			logger.WithContext(ctx).WithError(err).Error("Failed to enqueue tone analysis job")
		}
	}

	return c.JSON(http.StatusCreated, created)
}

// List returns messages for a partnership, newest first
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "message_handler.List")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	partnershipID := c.Param("id")

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	ctx, partnerships, err := ectoinject.GetContext[*partnership.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}
	if _, err := partnerships.GetForUser(ctx, partnershipID, userID); err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*message.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, totalCount, err := repo.List(ctx, partnershipID, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.MessageListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	})
}
