package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/beautyclinic/clinic-api/internal/core/domain"
	"github.com/beautyclinic/clinic-api/internal/core/ports"
)

// UserHandler serves the account management endpoints under /users.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

type createUserRequest struct {
	Username    string `json:"username" validate:"required" message:"Username is required and cannot be empty." example:"janedoe"`
	Email       string `json:"email" validate:"required,email" message:"Please provide a valid email address." example:"jane@example.com"`
	Password    string `json:"password" validate:"min=8" message:"Password is required and must be at least 8 characters long." example:"s3cure-pass"`
	DisplayName string `json:"displayName" validate:"required" message:"Display name is required." example:"Jane Doe"`
	Role        string `json:"role" validate:"omitempty,oneof=CUSTOMER STAFF ADMIN" message:"Invalid role specified." example:"CUSTOMER"`
	PhoneNumber string `json:"phoneNumber" example:"081234567899"`
}

type updateUserRequest struct {
	Username    *string `json:"username" validate:"omitempty,min=1" message:"Username cannot be empty."`
	Email       *string `json:"email" validate:"omitempty,email" message:"Please provide a valid email address."`
	Password    *string `json:"password" validate:"omitempty,min=8" message:"Password must be at least 8 characters long."`
	DisplayName *string `json:"displayName" validate:"omitempty,min=1" message:"Display name cannot be empty."`
	Role        *string `json:"role" validate:"omitempty,oneof=CUSTOMER STAFF ADMIN" message:"Invalid role specified."`
	PhoneNumber *string `json:"phoneNumber"`
}

type listUsersResponse struct {
	Users      []*domain.User `json:"users"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
}

// Create opens a new account.
//
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "Account details"
// @Success      201   {object}  Envelope{data=domain.User}
// @Failure      400   {object}  ErrorEnvelope
// @Failure      401   {object}  ErrorEnvelope
// @Failure      403   {object}  ErrorEnvelope
// @Failure      409   {object}  ErrorEnvelope
// @Router       /api/v1/users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.CreateUser(c.Request().Context(), ports.CreateUserInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        domain.Role(req.Role),
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return err
	}
	return sendSuccess(c, http.StatusCreated, "User created successfully.", user)
}

// List returns one page of users.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Page size (default 10, max 100)"
// @Param        role   query     string  false  "Filter by role"  Enums(CUSTOMER, STAFF, ADMIN)
// @Success      200    {object}  Envelope{data=listUsersResponse}
// @Failure      401    {object}  ErrorEnvelope
// @Failure      403    {object}  ErrorEnvelope
// @Router       /api/v1/users [get]
func (h *UserHandler) List(c echo.Context) error {
	page, err := queryInt(c, "page")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}

	res, err := h.service.ListUsers(c.Request().Context(), ports.ListUsersInput{
		Page:  page,
		Limit: limit,
		Role:  domain.Role(c.QueryParam("role")),
	})
	if err != nil {
		return err
	}

	return sendSuccess(c, http.StatusOK, "Users retrieved successfully.", listUsersResponse{
		Users:      res.Users,
		Total:      res.Total,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: res.TotalPages,
	})
}

// Get returns a single user.
//
// @Summary      Get a user by id
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User id"
// @Success      200  {object}  Envelope{data=domain.User}
// @Failure      401  {object}  ErrorEnvelope
// @Failure      403  {object}  ErrorEnvelope
// @Failure      404  {object}  ErrorEnvelope
// @Router       /api/v1/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	user, err := h.service.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return sendSuccess(c, http.StatusOK, "User retrieved successfully.", user)
}

// Update applies a partial update to a user.
//
// @Summary      Update a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                true  "User id"
// @Param        body  body      updateUserRequest  true  "Fields to change"
// @Success      200   {object}  Envelope{data=domain.User}
// @Failure      400   {object}  ErrorEnvelope
// @Failure      401   {object}  ErrorEnvelope
// @Failure      403   {object}  ErrorEnvelope
// @Failure      404   {object}  ErrorEnvelope
// @Failure      409   {object}  ErrorEnvelope
// @Router       /api/v1/users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := ports.UpdateUserInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		PhoneNumber: req.PhoneNumber,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		in.Role = &role
	}

	user, err := h.service.UpdateUser(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return sendSuccess(c, http.StatusOK, "User updated successfully.", user)
}

// Delete removes a user.
//
// @Summary      Delete a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User id"
// @Success      200  {object}  Envelope
// @Failure      401  {object}  ErrorEnvelope
// @Failure      403  {object}  ErrorEnvelope
// @Failure      404  {object}  ErrorEnvelope
// @Router       /api/v1/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteUser(c.Request().Context(), id); err != nil {
		return err
	}
	return sendSuccess(c, http.StatusOK, "User deleted successfully.", nil)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, domain.NewValidationError("User ID must be a positive integer.")
	}
	return id, nil
}

// queryInt parses an optional integer query parameter; absent means 0.
func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name + " must be an integer.")
	}
	return n, nil
}
