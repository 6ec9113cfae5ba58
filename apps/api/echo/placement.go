package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/placement"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/schoolyear"
	"github.com/BelowZeroPortfolio/school-scan-sub002/services/export"
)

const (
	mimeCSV  = "text/csv; charset=utf-8"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var errNoPendingPlacement = echo.NewHTTPError(http.StatusNotFound, "no matching pending placement for this student")

type placementApi struct {
	svc      *placement.Service
	years    *schoolyear.Service
	sessions placement.SessionStore
}

func registerPlacementAPI(g *echo.Group, svc *placement.Service, years *schoolyear.Service, sessions placement.SessionStore) {
	api := placementApi{svc: svc, years: years, sessions: sessions}

	pg := g.Group("/placement")
	pg.GET("/session", api.withSession(api.viewSession))
	pg.POST("/session", api.withSession(api.initSession))
	pg.DELETE("/session", api.resetSession)
	pg.GET("/eligible", api.withSession(api.eligible))
	pg.POST("/validate", api.validate)
	pg.POST("/bulk", api.withSession(api.stageBulk))
	pg.PUT("/students/:id", api.withSession(api.stageIndividual))
	pg.DELETE("/students/:id", api.withSession(api.removePending))
	pg.POST("/undo", api.withSession(api.undo))
	pg.POST("/commit", api.withSession(api.commit))
	pg.GET("/distribution", api.withSession(api.distribution))
	pg.GET("/classes/:id/review", api.withSession(api.classReview))
	pg.GET("/export", api.withSession(api.export))
}

type (
	InitSessionRequest struct {
		SourceYearID int `json:"source_year_id" validate:"omitempty,gt=0"`
		TargetYearID int `json:"target_year_id" validate:"omitempty,gt=0"`
	}

	BulkRequest struct {
		StudentIDs []int `json:"student_ids" validate:"required,min=1"`
		ClassID    int   `json:"class_id" validate:"required,gt=0"`
	}

	StageRequest struct {
		ClassID int `json:"class_id" validate:"required,gt=0"`
	}

	SessionResponse struct {
		SourceYearID int         `json:"source_year_id"`
		TargetYearID int         `json:"target_year_id"`
		Assignments  map[int]int `json:"assignments"`
		PendingCount int         `json:"pending_count"`
		UndoDepth    int         `json:"undo_depth"`
		TouchedAt    time.Time   `json:"touched_at"`
	}
)

func newSessionResponse(sess *placement.Session) SessionResponse {
	return SessionResponse{
		SourceYearID: sess.SourceYearID,
		TargetYearID: sess.TargetYearID,
		Assignments:  sess.PendingPlacements(),
		PendingCount: len(sess.Assignments),
		UndoDepth:    len(sess.UndoStack),
		TouchedAt:    sess.TouchedAt,
	}
}

type sessionHandlerFunc func(ctx echo.Context, op core.Operator, sess *placement.Session) error

// withSession loads the operator's placement session for h. Handlers that change the
// session call save before responding.
func (api *placementApi) withSession(h sessionHandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		op, err := getContextOperator(ctx)
		if err != nil {
			return err
		}
		sess, err := api.sessions.Load(ctx.Request().Context(), placement.SessionID(op.ID))
		if err != nil {
			return errors.Wrap(err, "loading placement session")
		}
		return h(ctx, op, sess)
	}
}

func (api *placementApi) save(ctx echo.Context, sess *placement.Session) error {
	return errors.Wrap(api.sessions.Save(ctx.Request().Context(), sess), "saving placement session")
}

func requireYears(sess *placement.Session) error {
	if sess.SourceYearID <= 0 || sess.TargetYearID <= 0 {
		return placement.ErrYearRequired
	}
	return nil
}

func (api *placementApi) viewSession(ctx echo.Context, _ core.Operator, sess *placement.Session) error {
	return ctx.JSON(http.StatusOK, newSessionResponse(sess))
}

func (api *placementApi) initSession(ctx echo.Context, _ core.Operator, sess *placement.Session) error {
	var data InitSessionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to InitSessionRequest")
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if data.TargetYearID == 0 && sess.TargetYearID == 0 {
		active, err := api.years.GetActive(reqCtx)
		if err != nil {
			return errors.Wrap(err, "resolving target school year")
		}
		data.TargetYearID = active.ID
	}
	if err := api.svc.InitSession(reqCtx, sess, data.SourceYearID, data.TargetYearID); err != nil {
		return errors.Wrap(err, "initializing placement session")
	}
	if err := api.save(ctx, sess); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newSessionResponse(sess))
}

func (api *placementApi) resetSession(ctx echo.Context) error {
	op, err := getContextOperator(ctx)
	if err != nil {
		return err
	}
	if err := api.sessions.Delete(ctx.Request().Context(), placement.SessionID(op.ID)); err != nil {
		return errors.Wrap(err, "deleting placement session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *placementApi) eligible(ctx echo.Context, _ core.Operator, sess *placement.Session) error {
	list, err := api.svc.ListEligible(ctx.Request().Context(), sess, ctx.QueryParam("grade_level"), ctx.QueryParam("section"))
	if err != nil {
		return errors.Wrap(err, "listing eligible students")
	}
	if list == nil {
		list = []placement.EligibleStudent{}
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *placementApi) validate(ctx echo.Context) error {
	var data BulkRequest
	if _, err := bindOperatorRequest(ctx, &data); err != nil {
		return err
	}
	val, err := api.svc.ValidateBulkPlacement(ctx.Request().Context(), data.StudentIDs, data.ClassID)
	if err != nil {
		return errors.Wrap(err, "validating placements")
	}
	return ctx.JSON(http.StatusOK, val)
}

func (api *placementApi) stageBulk(ctx echo.Context, _ core.Operator, sess *placement.Session) error {
	if err := requireYears(sess); err != nil {
		return err
	}
	var data BulkRequest
	if _, err := bindOperatorRequest(ctx, &data); err != nil {
		return err
	}
	res, err := api.svc.StageBulk(ctx.Request().Context(), sess, data.StudentIDs, data.ClassID)
	if err != nil {
		return errors.Wrap(err, "staging placements")
	}
	if res.AssignedCount == 0 {
		return ctx.JSON(http.StatusUnprocessableEntity, res)
	}
	if err := api.save(ctx, sess); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *placementApi) stageIndividual(ctx echo.Context, _ core.Operator, sess *placement.Session) error {
	if err := requireYears(sess); err != nil {
		return err
	}
	studentID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data StageRequest
	if _, err := bindOperatorRequest(ctx, &data); err != nil {
		return err
	}
	res, err := api.svc.StageIndividual(ctx.Request().Context(), sess, studentID, data.ClassID)
	if err != nil {
		return errors.Wrap(err, "staging placement")
	}
	if !res.Success {
		return ctx.JSON(http.StatusUnprocessableEntity, res)
	}
	if err := api.save(ctx, sess); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *placementApi) removePending(ctx echo.Context, _ core.Operator, sess *placement.Session) error {
	studentID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	classID, err := queryInt(ctx, "class_id", 0)
	if err != nil {
		return err
	}
	if !api.svc.RemovePending(sess, studentID, classID) {
		return errNoPendingPlacement
	}
	if err := api.save(ctx, sess); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *placementApi) undo(ctx echo.Context, _ core.Operator, sess *placement.Session) error {
	res := api.svc.Undo(sess)
	if res.Success {
		if err := api.save(ctx, sess); err != nil {
			return err
		}
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *placementApi) commit(ctx echo.Context, op core.Operator, sess *placement.Session) error {
	res, err := api.svc.Commit(ctx.Request().Context(), sess, op.ID)
	if err != nil {
		if errors.Cause(err) == placement.ErrCommitFailed {
			// the cause is logged by the committer; the session is kept for a retry
			return ctx.JSON(http.StatusInternalServerError, res)
		}
		return errors.Wrap(err, "committing placements")
	}
	if !res.Success {
		return ctx.JSON(http.StatusUnprocessableEntity, res)
	}
	if err := api.save(ctx, sess); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *placementApi) distribution(ctx echo.Context, _ core.Operator, sess *placement.Session) error {
	reqCtx := ctx.Request().Context()
	yearID, err := queryInt(ctx, "school_year_id", sess.TargetYearID)
	if err != nil {
		return err
	}
	if yearID == 0 {
		active, err := api.years.GetActive(reqCtx)
		if err != nil {
			return errors.Wrap(err, "resolving target school year")
		}
		yearID = active.ID
	}
	dist, err := api.svc.GetClassDistribution(reqCtx, sess, yearID, queryBool(ctx, "include_pending", true))
	if err != nil {
		return errors.Wrap(err, "computing class distribution")
	}
	if dist == nil {
		dist = []placement.ClassDistribution{}
	}
	return ctx.JSON(http.StatusOK, dist)
}

func (api *placementApi) classReview(ctx echo.Context, _ core.Operator, sess *placement.Session) error {
	classID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	review, err := api.svc.GetClassReview(ctx.Request().Context(), sess, classID)
	if err != nil {
		return errors.Wrap(err, "reviewing class")
	}
	return ctx.JSON(http.StatusOK, review)
}

func (api *placementApi) export(ctx echo.Context, _ core.Operator, sess *placement.Session) error {
	if err := requireYears(sess); err != nil {
		return err
	}
	rows, err := api.svc.BuildPreview(ctx.Request().Context(), sess, sess.SourceYearID, sess.TargetYearID)
	if err != nil {
		return errors.Wrap(err, "building placement preview")
	}

	var (
		buf  bytes.Buffer
		mime string
	)
	format := ctx.QueryParam("format")
	switch format {
	case "", "csv":
		format, mime = "csv", mimeCSV
		err = placement.WriteCSV(&buf, rows)
	case "xlsx":
		mime = mimeXLSX
		err = exportsvc.WriteXLSX(&buf, rows)
	default:
		return core.NewValidationError(nil, core.FieldError{Field: "format", Error: "must be csv or xlsx"})
	}
	if err != nil {
		return errors.Wrapf(err, "writing %s preview", format)
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "placement-preview."+format))
	return ctx.Blob(http.StatusOK, mime, buf.Bytes())
}
