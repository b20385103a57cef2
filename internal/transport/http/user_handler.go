package http

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/njprem/tours-auth-api/internal/domain"
	"github.com/njprem/tours-auth-api/internal/service"
	"github.com/njprem/tours-auth-api/internal/util"
)

type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func RegisterUsers(e *echo.Echo, auth *service.AuthService, users *service.UserService, logger *slog.Logger) {
	h := &UserHandler{users: users, logger: logger}

	g := e.Group(usersBasePath, Authenticate(auth, logger))
	g.GET("/me", h.getMe)
	g.PATCH("/updateMe", h.updateMe)
	g.DELETE("/deleteMe", h.deleteMe)
	g.GET("", h.list, Authorize(auth, logger, domain.RoleAdmin))
}

func (h *UserHandler) getMe(c echo.Context) error {
	current, ok := CurrentUser(c)
	if !ok {
		return writeError(c, h.logger, service.ErrNotLoggedIn)
	}
	user, err := h.users.GetMe(c.Request().Context(), current.ID)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, util.Success(util.Data("user", toUserResponse(user))))
}

func (h *UserHandler) updateMe(c echo.Context) error {
	current, ok := CurrentUser(c)
	if !ok {
		return writeError(c, h.logger, service.ErrNotLoggedIn)
	}

	var (
		in  service.UpdateMeInput
		err error
	)
	if isMultipart(c) {
		in, err = h.bindMultipartUpdate(c)
	} else {
		in, err = h.bindJSONUpdate(c)
	}
	if err != nil {
		if errors.Is(err, errPasswordInProfile) {
			return c.JSON(http.StatusBadRequest, util.Fail(msgPasswordNotAllowed))
		}
		return c.JSON(http.StatusBadRequest, util.Fail("invalid request body"))
	}
	if in.Photo != nil {
		if closer, ok := in.Photo.Reader.(multipart.File); ok {
			defer closer.Close()
		}
	}

	user, err := h.users.UpdateMe(c.Request().Context(), current.ID, in)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, util.Success(util.Data("user", toUserResponse(user))))
}

func (h *UserHandler) deleteMe(c echo.Context) error {
	current, ok := CurrentUser(c)
	if !ok {
		return writeError(c, h.logger, service.ErrNotLoggedIn)
	}
	if err := h.users.DeleteMe(c.Request().Context(), current.ID); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) list(c echo.Context) error {
	limit, offset := parsePagination(c, service.DefaultListLimit, 0)
	users, limit, offset, err := h.users.ListUsers(c.Request().Context(), limit, offset)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"status":  util.StatusSuccess,
		"results": len(users),
		"data":    util.Data("users", toUserResponses(users)),
		"meta": UsersMeta{
			Limit:   limit,
			Offset:  offset,
			Results: len(users),
		},
	})
}

var errPasswordInProfile = errors.New("password fields in profile update")

func (h *UserHandler) bindJSONUpdate(c echo.Context) (service.UpdateMeInput, error) {
	var req UpdateMeRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return service.UpdateMeInput{}, err
	}
	if req.Password != nil || req.PasswordConfirm != nil {
		return service.UpdateMeInput{}, errPasswordInProfile
	}
	return service.UpdateMeInput{Name: req.Name, Email: req.Email}, nil
}

func (h *UserHandler) bindMultipartUpdate(c echo.Context) (service.UpdateMeInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return service.UpdateMeInput{}, err
	}
	if _, ok := form.Value["password"]; ok {
		return service.UpdateMeInput{}, errPasswordInProfile
	}
	if _, ok := form.Value["passwordConfirm"]; ok {
		return service.UpdateMeInput{}, errPasswordInProfile
	}

	var in service.UpdateMeInput
	if values, ok := form.Value["name"]; ok && len(values) > 0 {
		in.Name = &values[0]
	}
	if values, ok := form.Value["email"]; ok && len(values) > 0 {
		in.Email = &values[0]
	}
	if files := form.File["photo"]; len(files) > 0 {
		header := files[0]
		file, err := header.Open()
		if err != nil {
			return service.UpdateMeInput{}, err
		}
		in.Photo = &service.PhotoUpload{
			Reader:      file,
			Size:        header.Size,
			FileName:    header.Filename,
			ContentType: detectContentType(file, header.Header.Get(echo.HeaderContentType)),
		}
	}
	return in, nil
}

// detectContentType sniffs the upload when the client sent no useful type.
func detectContentType(file multipart.File, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != echo.MIMEOctetStream {
		return declared
	}
	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return declared
	}
	return http.DetectContentType(head[:n])
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

func parsePagination(c echo.Context, defaultLimit, defaultOffset int) (int, int) {
	limit := defaultLimit
	offset := defaultOffset
	if v := strings.TrimSpace(c.QueryParam("limit")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if v := strings.TrimSpace(c.QueryParam("offset")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
