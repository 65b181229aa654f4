package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/meeting"
	"github.com/trezcool/dissertrack/core/user"
)

type meetingApi struct {
	auth     *authenticator
	svc      meeting.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerMeetingAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	svc meeting.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := meetingApi{auth: auth, svc: svc, usrSvc: usrSvc, validate: validate}

	mg := g.Group("/meetings", jwt)
	mg.GET("", api.query)
	mg.POST("", api.schedule, roleMiddleware(user.RoleFaculty))

	dg := mg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("/status", api.updateStatus, roleMiddleware(user.RoleFaculty))

	g.GET("/students/:id/meeting-slots", api.slots, jwt)
}

// query lists the caller's meetings. The HOD sees all of them.
func (api *meetingApi) query(ctx echo.Context) error {
	filter := new(meeting.Filter)
	if !bindQuery(ctx, filter) {
		return ctx.JSON(http.StatusOK, []meeting.Meeting{})
	}
	filter.Clean()

	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	switch usr.Role {
	case user.RoleStudent:
		filter.StudentID = usr.ID
	case user.RoleFaculty:
		filter.FacultyID = usr.ID
	}

	meetings, err := api.svc.Query(ctx.Request().Context(), filter, parseOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying meetings")
	}
	return ctx.JSON(http.StatusOK, meetings)
}

func (api *meetingApi) schedule(ctx echo.Context) error {
	var data meeting.NewMeeting
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMeeting")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	m, err := api.svc.Schedule(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "scheduling meeting")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *meetingApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get("object"))
}

func (api *meetingApi) updateStatus(ctx echo.Context) error {
	m := ctx.Get("object").(meeting.Meeting)

	var data meeting.StatusUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	m, err = api.svc.UpdateStatus(ctx.Request().Context(), usr, m.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating meeting status")
	}
	return ctx.JSON(http.StatusOK, m)
}

// slots returns the four meeting slots of a student for a project.
// Visible to the student, their guide and the HOD.
func (api *meetingApi) slots(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	student, err := api.usrSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding student by ID")
	}
	if !(student.ID == usr.ID || usr.IsHOD() || (usr.IsFaculty() && student.AssignedGuideID == usr.ID)) {
		return errHttpNotFound
	}

	projectID := core.CleanString(ctx.QueryParam("projectId"))
	if projectID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "projectId", Error: "this field is required"})
	}

	slots, err := api.svc.Slots(ctx.Request().Context(), student.ID, projectID)
	if err != nil {
		return errors.Wrap(err, "generating meeting slots")
	}
	return ctx.JSON(http.StatusOK, slots)
}

// objectMiddleware loads the meeting of the path into the context as "object".
// Only its student, its guide and the HOD can see it.
func (api *meetingApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := api.auth.contextUser(ctx)
		if err != nil {
			return err
		}

		m, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == meeting.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding meeting by ID")
		}
		if usr.IsHOD() || m.Involves(usr.ID) {
			ctx.Set("object", m)
			return next(ctx)
		}
		return errHttpNotFound
	}
}
