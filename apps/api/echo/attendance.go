package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/diario/core"
	"github.com/trezcool/diario/core/attendance"
)

type (
	attendanceApi struct {
		svc      *attendance.Service
		editors  *editRegistry
		validate *validator.Validate
	}

	classDetail struct {
		attendance.Class
		Stats attendance.Stats `json:"stats"`
	}

	openEditRequest struct {
		Date string `json:"date" validate:"required,date"`
		Mode string `json:"mode" validate:"required,attendance_mode"`
	}

	openEditResponse struct {
		Handle    string                   `json:"handle"`
		Anomalies []attendance.DataAnomaly `json:"anomalies"`
		Matrix    attendance.MatrixView    `json:"matrix"`
	}

	cellRequest struct {
		EnrollmentID string `json:"enrollment_id" validate:"required"`
		LessonID     string `json:"lesson_id" validate:"required"`
		Present      *bool  `json:"present"`
	}

	setAllRequest struct {
		Present *bool `json:"present" validate:"required"`
	}

	cellResponse struct {
		EnrollmentID string `json:"enrollment_id"`
		LessonID     string `json:"lesson_id"`
		Present      bool   `json:"present"`
	}
)

func registerAttendanceAPI(g *echo.Group, svc *attendance.Service, editors *editRegistry, validate *validator.Validate) {
	api := attendanceApi{
		svc:      svc,
		editors:  editors,
		validate: validate,
	}

	cg := g.Group("/classes")
	cg.GET("", api.queryClasses)
	cg.GET("/:id", api.retrieveClass)
	cg.GET("/:id/stats", api.classStats)
	cg.GET("/:id/sessions", api.querySessions)
	cg.POST("/:id/edits", api.openEdit)

	eg := g.Group("/edits/:handle")
	eg.GET("", api.retrieveEdit)
	eg.POST("/toggle", api.toggle)
	eg.PUT("/cells", api.setCell)
	eg.PUT("/all", api.setAll)
	eg.POST("/submit", api.submit)
	eg.DELETE("", api.discard)
}

// Handlers

func (api *attendanceApi) queryClasses(ctx echo.Context) error {
	classes, err := api.svc.QueryClasses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *attendanceApi) retrieveClass(ctx echo.Context) error {
	class, err := api.svc.GetClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, classDetail{Class: class, Stats: attendance.Aggregate(class.Roster, class.Lessons)})
}

func (api *attendanceApi) classStats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *attendanceApi) querySessions(ctx echo.Context) error {
	sessions, err := api.svc.ListSessions(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *attendanceApi) openEdit(ctx echo.Context) error {
	var data openEditRequest
	if err := ctx.Bind(&data); err != nil {
		return malformedPayload(err)
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	date, err := attendance.ParseDate(data.Date)
	if err != nil {
		return errors.Wrap(err, "parsing date") // validated above
	}
	mode, err := attendance.ParseMode(data.Mode)
	if err != nil {
		return errors.Wrap(err, "parsing mode")
	}

	ed, anomalies, err := api.svc.Open(ctx.Request().Context(), ctx.Param("id"), date, mode)
	if err != nil {
		return err
	}
	if anomalies == nil {
		anomalies = []attendance.DataAnomaly{}
	}

	handle := api.editors.put(ed)
	return ctx.JSON(http.StatusCreated, openEditResponse{
		Handle:    handle.String(),
		Anomalies: anomalies,
		Matrix:    ed.View(),
	})
}

func (api *attendanceApi) retrieveEdit(ctx echo.Context) error {
	ed, _, err := api.getEditor(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ed.View())
}

func (api *attendanceApi) toggle(ctx echo.Context) error {
	ed, _, err := api.getEditor(ctx)
	if err != nil {
		return err
	}
	var data cellRequest
	if err = ctx.Bind(&data); err != nil {
		return malformedPayload(err)
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	present, err := ed.Toggle(data.EnrollmentID, data.LessonID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cellResponse{EnrollmentID: data.EnrollmentID, LessonID: data.LessonID, Present: present})
}

func (api *attendanceApi) setCell(ctx echo.Context) error {
	ed, _, err := api.getEditor(ctx)
	if err != nil {
		return err
	}
	var data cellRequest
	if err = ctx.Bind(&data); err != nil {
		return malformedPayload(err)
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}
	if data.Present == nil {
		return core.NewValidationError(nil, core.FieldError{Field: "present", Error: "this field is required"})
	}

	if err = ed.Set(data.EnrollmentID, data.LessonID, *data.Present); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cellResponse{EnrollmentID: data.EnrollmentID, LessonID: data.LessonID, Present: *data.Present})
}

func (api *attendanceApi) setAll(ctx echo.Context) error {
	ed, _, err := api.getEditor(ctx)
	if err != nil {
		return err
	}
	var data setAllRequest
	if err = ctx.Bind(&data); err != nil {
		return malformedPayload(err)
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	ed.SetAll(*data.Present)
	return ctx.JSON(http.StatusOK, ed.View())
}

func (api *attendanceApi) submit(ctx echo.Context) error {
	ed, handle, err := api.getEditor(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.Submit(ctx.Request().Context(), ed)
	if err != nil {
		return err
	}
	api.editors.discard(handle)
	return ctx.JSON(http.StatusOK, res)
}

func (api *attendanceApi) discard(ctx echo.Context) error {
	handle, err := uuid.Parse(ctx.Param("handle"))
	if err != nil || !api.editors.discard(handle) {
		return errEditNotFound
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Helpers

func (api *attendanceApi) getEditor(ctx echo.Context) (*attendance.Editor, uuid.UUID, error) {
	handle, err := uuid.Parse(ctx.Param("handle"))
	if err != nil {
		return nil, uuid.Nil, errEditNotFound
	}
	ed, ok := api.editors.get(handle)
	if !ok {
		return nil, uuid.Nil, errEditNotFound
	}
	return ed, handle, nil
}
