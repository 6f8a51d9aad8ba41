package settlement

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/fefejiro/peacepad/pkg/appcontext"
	"github.com/fefejiro/peacepad/pkg/ledger"
	"github.com/fefejiro/peacepad/pkg/models"
	"github.com/fefejiro/peacepad/pkg/tracing"
)

var validate = validator.New()

// Register registers settlement and balance routes
func Register(g *echo.Group) {
	g.POST("/expenses/:id/settlements", Initiate)
	g.GET("/expenses/:id/settlements", ListByExpense)
	g.POST("/settlements/:id/confirm", Confirm)
	g.POST("/settlements/:id/dispute", Dispute)
	g.GET("/partnerships/:id/balance", GetBalance)
}

// Initiate records a payment attempt against an expense
func Initiate(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "settlement_handler.Initiate")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	expenseID := c.Param("id")

	var req models.InitiateSettlementRequest
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

	created, err := svc.Initiate(ctx, expenseID, userID, req)
	if err != nil {
		return ledger.HTTPError(err)
	}

	return c.JSON(http.StatusCreated, created)
}

// ListByExpense returns all settlement attempts against an expense
func ListByExpense(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "settlement_handler.ListByExpense")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	expenseID := c.Param("id")

	ctx, svc, err := ectoinject.GetContext[*ledger.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get ledger service")
	}

	settlements, err := svc.ListByExpense(ctx, expenseID, userID)
	if err != nil {
		return ledger.HTTPError(err)
	}

	return c.JSON(http.StatusOK, settlements)
}

// Confirm marks a pending settlement confirmed. Receiver only.
func Confirm(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "settlement_handler.Confirm")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	id := c.Param("id")

	ctx, svc, err := ectoinject.GetContext[*ledger.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get ledger service")
	}

	confirmed, err := svc.Confirm(ctx, id, userID)
	if err != nil {
		return ledger.HTTPError(err)
	}

	return c.JSON(http.StatusOK, confirmed)
}

// Dispute marks a pending settlement rejected with a reason. Receiver only.
func Dispute(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "settlement_handler.Dispute")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	id := c.Param("id")

	var req models.DisputeSettlementRequest
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

	rejected, err := svc.Dispute(ctx, id, userID, req)
	if err != nil {
		return ledger.HTTPError(err)
	}

	return c.JSON(http.StatusOK, rejected)
}

// GetBalance returns a member's net balance in the partnership. The user_id
// query param selects whose balance to read, defaulting to the caller.
func GetBalance(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "settlement_handler.GetBalance")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	partnershipID := c.Param("id")
	subjectID := c.QueryParam("user_id")

	ctx, svc, err := ectoinject.GetContext[*ledger.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get ledger service")
	}

	bal, err := svc.Balance(ctx, partnershipID, userID, subjectID)
	if err != nil {
		return ledger.HTTPError(err)
	}

	return c.JSON(http.StatusOK, bal)
}
