package handler

import (
	"encoding/json"
	"fmt"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"portfolioapi/internal/ingest"
	"portfolioapi/internal/model"
	"portfolioapi/internal/ordering"
	"portfolioapi/internal/service"
)

const (
	formFieldData   = "data"
	formFieldImages = "images"
)

// ListProjects godoc
// @Summary List projects, newest first
// @Tags projects
// @Param category query string false "exact category, or all"
// @Success 200 {array} model.Project
// @Router /projects [get]
func ListProjects(svc service.ProjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			items []model.Project
			err   error
		)
		category := c.Query("category")
		if category == "" || category == service.CategoryAll {
			items, err = svc.List(c.UserContext())
		} else {
			items, err = svc.ListByCategory(c.UserContext(), category)
		}
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(items)
	}
}

// GetProject godoc
// @Summary Get a project by id
// @Tags projects
// @Param id path string true "project id"
// @Success 200 {object} model.Project
// @Failure 404 {object} errorPayload
// @Router /projects/{id} [get]
func GetProject(svc service.ProjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := svc.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		if p == nil {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "project not found")
		}
		return c.JSON(p)
	}
}

// ListCategories godoc
// @Summary Category filter values, "all" first
// @Tags projects
// @Success 200 {array} string
// @Router /categories [get]
func ListCategories(svc service.ProjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cats, err := svc.ListCategories(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(cats)
	}
}

// CreateProject godoc
// @Summary Create a project with images
// @Description multipart/form-data: "data" holds the project fields as JSON, "images" repeats once per file in display order.
// @Tags projects
// @Accept mpfd
// @Security BearerAuth
// @Success 201 {object} model.Project
// @Failure 400 {object} errorPayload
// @Failure 422 {object} errorPayload
// @Router /projects [post]
func CreateProject(svc service.ProjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var fields model.ProjectFields
		files, closeFiles, err := readProjectForm(c, &fields)
		if err != nil {
			return respondError(c, err)
		}
		defer closeFiles()

		p, err := svc.Create(c.UserContext(), fields, files)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// UpdateProject godoc
// @Summary Patch a project and append images
// @Description "data" holds a partial project as JSON. A present "images" array replaces the stored order before new uploads are appended.
// @Tags projects
// @Accept mpfd
// @Security BearerAuth
// @Param id path string true "project id"
// @Success 200 {object} model.Project
// @Router /projects/{id} [patch]
func UpdateProject(svc service.ProjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var patch model.ProjectPatch
		files, closeFiles, err := readProjectForm(c, &patch)
		if err != nil {
			return respondError(c, err)
		}
		defer closeFiles()

		p, err := svc.Update(c.UserContext(), c.Params("id"), patch, files)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	}
}

type deleteImageRequest struct {
	URL string `json:"url"`
}

// DeleteProjectImage godoc
// @Summary Remove one image from a project
// @Tags projects
// @Security BearerAuth
// @Param id path string true "project id"
// @Success 200 {array} model.AssetRef
// @Router /projects/{id}/images [delete]
func DeleteProjectImage(svc service.ProjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req deleteImageRequest
		if err := c.BodyParser(&req); err != nil || req.URL == "" {
			return writeError(c, fiber.StatusBadRequest, "URL_REQUIRED", "url is required")
		}
		refs, err := svc.DeleteImage(c.UserContext(), c.Params("id"), req.URL)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(refs)
	}
}

// DeleteProject godoc
// @Summary Delete a project and its images
// @Tags projects
// @Security BearerAuth
// @Param id path string true "project id"
// @Success 200 {object} map[string]string
// @Router /projects/{id} [delete]
func DeleteProject(svc service.ProjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := svc.Delete(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"id": id})
	}
}

type reorderRequest struct {
	Images []string    `json:"images"`
	Op     ordering.Op `json:"op"`
	Index  int         `json:"index"`
}

// ReorderPreview godoc
// @Summary Preview an image reordering without saving it
// @Tags projects
// @Accept json
// @Success 200 {array} string
// @Failure 400 {object} errorPayload
// @Router /projects/reorder [post]
func ReorderPreview(svc service.ProjectService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req reorderRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		}
		out, err := svc.Reorder(req.Images, req.Op, req.Index)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(out)
	}
}

// readProjectForm decodes the "data" JSON field into dst and opens every "images" file.
// The returned close func must be called once the files have been consumed.
func readProjectForm(c *fiber.Ctx, dst any) ([]ingest.File, func(), error) {
	nop := func() {}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nop, badRequest{"MULTIPART_REQUIRED", "multipart form is required"}
	}
	if data := form.Value[formFieldData]; len(data) > 0 && data[0] != "" {
		if err := json.Unmarshal([]byte(data[0]), dst); err != nil {
			return nil, nop, badRequest{"INVALID_DATA", "data must be a JSON object"}
		}
	}

	headers := form.File[formFieldImages]
	files := make([]ingest.File, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, nop, badRequest{"FILE_OPEN_ERROR", fmt.Sprintf("cannot open uploaded file %q", fh.Filename)}
		}
		opened = append(opened, f)
		files = append(files, ingest.File{Name: fh.Filename, Content: f})
	}
	return files, closeAll, nil
}
