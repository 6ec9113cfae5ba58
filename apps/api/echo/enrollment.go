package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/enrollment"
)

type enrollmentApi struct {
	svc *enrollment.Service
}

func registerEnrollmentAPI(g *echo.Group, svc *enrollment.Service) {
	api := enrollmentApi{svc: svc}

	eg := g.Group("/enrollments")
	eg.GET("", api.query)
	eg.POST("", api.assign)
	eg.POST("/remove", api.remove)
	eg.POST("/transfer", api.transfer)
	eg.POST("/move", api.move)
	eg.PUT("/:id/status", api.updateStatus)
}

type (
	AssignRequest struct {
		StudentID int `json:"student_id" validate:"required,gt=0"`
		ClassID   int `json:"class_id" validate:"required,gt=0"`
	}

	RemoveRequest struct {
		StudentID int    `json:"student_id" validate:"required,gt=0"`
		ClassID   int    `json:"class_id" validate:"required,gt=0"`
		Reason    string `json:"reason"`
	}

	TransferRequest struct {
		StudentID   int    `json:"student_id" validate:"required,gt=0"`
		FromClassID int    `json:"from_class_id" validate:"required,gt=0"`
		ToClassID   int    `json:"to_class_id" validate:"required,gt=0,nefield=FromClassID"`
		Reason      string `json:"reason"`
	}

	MoveRequest struct {
		StudentIDs  []int `json:"student_ids" validate:"required,min=1,dive,gt=0"`
		FromClassID int   `json:"from_class_id" validate:"required,gt=0"`
		ToClassID   int   `json:"to_class_id" validate:"required,gt=0,nefield=FromClassID"`
	}

	StatusRequest struct {
		Status enrollment.Status `json:"status" validate:"required"`
		Reason string            `json:"reason"`
	}
)

func (api *enrollmentApi) query(ctx echo.Context) error {
	var (
		filter enrollment.QueryFilter
		err    error
	)
	if filter.StudentID, err = queryInt(ctx, "student_id", 0); err != nil {
		return err
	}
	if filter.ClassID, err = queryInt(ctx, "class_id", 0); err != nil {
		return err
	}
	if filter.SchoolYearID, err = queryInt(ctx, "school_year_id", 0); err != nil {
		return err
	}
	filter.ActiveOnly = queryBool(ctx, "active_only", false)

	enrollments, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

// bindOperatorRequest binds and validates data, and returns the operator performing the request.
func bindOperatorRequest(ctx echo.Context, data interface{}) (core.Operator, error) {
	op, err := getContextOperator(ctx)
	if err != nil {
		return core.Operator{}, err
	}
	if err := ctx.Bind(data); err != nil {
		return core.Operator{}, errors.Wrap(err, "binding request")
	}
	if err := core.Validate.Struct(data); err != nil {
		return core.Operator{}, err
	}
	return op, nil
}

func (api *enrollmentApi) assign(ctx echo.Context) error {
	var data AssignRequest
	op, err := bindOperatorRequest(ctx, &data)
	if err != nil {
		return err
	}
	e, err := api.svc.AssignStudentToClass(ctx.Request().Context(), data.StudentID, data.ClassID, op.ID)
	if err != nil {
		return errors.Wrap(err, "assigning student to class")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *enrollmentApi) remove(ctx echo.Context) error {
	var data RemoveRequest
	op, err := bindOperatorRequest(ctx, &data)
	if err != nil {
		return err
	}
	e, err := api.svc.RemoveStudentFromClass(ctx.Request().Context(), data.StudentID, data.ClassID, op.ID, data.Reason)
	if err != nil {
		return errors.Wrap(err, "removing student from class")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *enrollmentApi) transfer(ctx echo.Context) error {
	var data TransferRequest
	op, err := bindOperatorRequest(ctx, &data)
	if err != nil {
		return err
	}
	e, err := api.svc.TransferStudentToClass(ctx.Request().Context(), data.StudentID, data.FromClassID, data.ToClassID, op.ID, data.Reason)
	if err != nil {
		return errors.Wrap(err, "transferring student")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *enrollmentApi) move(ctx echo.Context) error {
	var data MoveRequest
	op, err := bindOperatorRequest(ctx, &data)
	if err != nil {
		return err
	}
	res, err := api.svc.MoveStudents(ctx.Request().Context(), data.StudentIDs, data.FromClassID, data.ToClassID, op.ID)
	if err != nil {
		return errors.Wrap(err, "moving students")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *enrollmentApi) updateStatus(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data StatusRequest
	op, err := bindOperatorRequest(ctx, &data)
	if err != nil {
		return err
	}
	e, err := api.svc.UpdateStatus(ctx.Request().Context(), id, data.Status, op.ID, data.Reason)
	if err != nil {
		return errors.Wrap(err, "updating enrollment status")
	}
	return ctx.JSON(http.StatusOK, e)
}
