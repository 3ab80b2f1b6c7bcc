package controller

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"squadreg/services"
)

// respondError maps a service error kind onto an HTTP status. Anything
// unclassified is an unexpected store failure: logged, reported as a bare
// 500.
func respondError(c *fiber.Ctx, logger *logrus.Logger, err error) error {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		logger.WithError(err).Error("Unexpected failure")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal error",
		})
	}

	status := fiber.StatusInternalServerError
	switch svcErr.Kind {
	case services.KindInvalidInput:
		status = fiber.StatusBadRequest
	case services.KindNotFound:
		status = fiber.StatusNotFound
	case services.KindUnauthorized:
		status = fiber.StatusUnauthorized
	case services.KindForbidden:
		status = fiber.StatusForbidden
	case services.KindConflict:
		status = fiber.StatusConflict
	case services.KindUpstreamFailure:
		status = fiber.StatusBadGateway
	}

	body := fiber.Map{
		"error": svcErr.Message,
		"kind":  svcErr.Kind,
	}
	if svcErr.Field != "" {
		body["field"] = svcErr.Field
	}
	return c.Status(status).JSON(body)
}

// formValue returns the posted value for key, or nil when the field was not
// part of the request at all. The distinction drives partial updates.
func formValue(c *fiber.Ctx, key string) *string {
	if form, err := c.MultipartForm(); err == nil {
		if vals, ok := form.Value[key]; ok && len(vals) > 0 {
			v := vals[0]
			return &v
		}
		return nil
	}
	if c.Request().PostArgs().Has(key) {
		v := c.FormValue(key)
		return &v
	}
	return nil
}

// formAvatar reads the optional avatar upload. A missing file is not an
// error; size and format policing belong to the avatar store.
func formAvatar(c *fiber.Ctx) ([]byte, string, error) {
	fh, err := c.FormFile("avatar")
	if err != nil || fh == nil {
		return nil, "", nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	return data, fh.Header.Get("Content-Type"), nil
}
