package expense

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/fefejiro/peacepad/internal/repositories/expense"
	"github.com/fefejiro/peacepad/internal/repositories/partnership"
	"github.com/fefejiro/peacepad/pkg/appcontext"
	"github.com/fefejiro/peacepad/pkg/ledger"
	"github.com/fefejiro/peacepad/pkg/models"
	"github.com/fefejiro/peacepad/pkg/tracing"
)

var validate = validator.New()

// Register registers expense routes
func Register(g *echo.Group) {
	g.POST("/partnerships/:id/expenses", Create)
	g.GET("/partnerships/:id/expenses", List)
	g.GET("/expenses/:id", Get)
}

// Create creates a shared expense. The split is validated against the
// partnership membership before anything is persisted.
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "expense_handler.Create")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	partnershipID := c.Param("id")

	var req models.CreateExpenseRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*ledger.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get ledger service")
	}

	created, err := svc.CreateExpense(ctx, partnershipID, userID, req)
	if err != nil {
		return ledger.HTTPError(err)
	}

	return c.JSON(http.StatusCreated, created)
}

// List returns expenses for a partnership, optionally filtered by status
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "expense_handler.List")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	partnershipID := c.Param("id")

	var status *models.ExpenseStatus
	if q := c.QueryParam("status"); q != "" {
		s := models.ExpenseStatus(q)
		if s != models.ExpenseStatusPending && s != models.ExpenseStatusPaid && s != models.ExpenseStatusSettled {
			return httperror.NewHTTPError(http.StatusBadRequest, "status must be pending, paid, or settled")
		}
		status = &s
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	ctx, partnerships, err := ectoinject.GetContext[*partnership.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}
	if _, err := partnerships.GetForUser(ctx, partnershipID, userID); err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*expense.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, totalCount, err := repo.List(ctx, partnershipID, status, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.ExpenseListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Get returns an expense by ID
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "expense_handler.Get")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*expense.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	exp, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	ctx, partnerships, err := ectoinject.GetContext[*partnership.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}
	if _, err := partnerships.GetForUser(ctx, exp.PartnershipID, userID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, exp)
}
