package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dissertrack/core/project"
	"github.com/trezcool/dissertrack/core/user"
)

type projectApi struct {
	auth     *authenticator
	svc      project.Service
	validate *validator.Validate
}

func registerProjectAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	svc project.Service,
	validate *validator.Validate,
) {
	api := projectApi{auth: auth, svc: svc, validate: validate}

	pg := g.Group("/projects", jwt)
	pg.GET("", api.query)
	pg.POST("", api.create, roleMiddleware(user.RoleStudent))

	dg := pg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("/review", api.review, roleMiddleware(user.RoleHOD))
	dg.PUT("/guide", api.assignGuide, roleMiddleware(user.RoleHOD))
	dg.PUT("/complete", api.complete, roleMiddleware(user.RoleFaculty))
}

// query lists the projects visible to the user: their own, the ones they guide, or all for the HOD.
func (api *projectApi) query(ctx echo.Context) error {
	filter := new(project.QueryFilter)
	if !bindQuery(ctx, filter) {
		return ctx.JSON(http.StatusOK, []project.Project{})
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
		filter.GuideID = usr.ID
	}

	projects, err := api.svc.Query(ctx.Request().Context(), filter, parseOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying projects")
	}
	return ctx.JSON(http.StatusOK, projects)
}

func (api *projectApi) create(ctx echo.Context) error {
	var data project.NewProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating project")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *projectApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get("object"))
}

func (api *projectApi) review(ctx echo.Context) error {
	p := ctx.Get("object").(project.Project)

	var data project.Review
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Review")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	p, err = api.svc.Review(ctx.Request().Context(), usr, p.ID, data)
	if err != nil {
		return errors.Wrap(err, "reviewing project")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *projectApi) assignGuide(ctx echo.Context) error {
	p := ctx.Get("object").(project.Project)

	var data project.GuideAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GuideAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	p, err = api.svc.AssignGuide(ctx.Request().Context(), usr, p.ID, data.GuideID)
	if err != nil {
		return errors.Wrap(err, "assigning guide")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *projectApi) complete(ctx echo.Context) error {
	p := ctx.Get("object").(project.Project)

	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	p, err = api.svc.Complete(ctx.Request().Context(), usr, p.ID)
	if err != nil {
		return errors.Wrap(err, "completing project")
	}
	return ctx.JSON(http.StatusOK, p)
}

// objectMiddleware loads the project of the path into the context as "object".
// Only its student, its guide and the HOD can see it.
func (api *projectApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := api.auth.contextUser(ctx)
		if err != nil {
			return err
		}

		p, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == project.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding project by ID")
		}
		if usr.IsHOD() || p.StudentID == usr.ID || (p.GuideID != "" && p.GuideID == usr.ID) {
			ctx.Set("object", p)
			return next(ctx)
		}
		return errHttpNotFound
	}
}
