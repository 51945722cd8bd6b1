package handlers

import (
	"log"

	"storeadmin/internal/models"
	"storeadmin/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// UserHandler handles admin HTTP requests for users and roles.
type UserHandler struct {
	userService *services.UserService
	roleService *services.RoleService
	validate    *validator.Validate
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService, roleService *services.RoleService) *UserHandler {
	return &UserHandler{
		userService: userService,
		roleService: roleService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers user and role admin routes.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	userRoutes := router.Group("/users")
	userRoutes.Get("/", h.HandleGetUsers)
	userRoutes.Get("/:id", h.HandleGetUserByID)
	userRoutes.Put("/:id/role", h.HandleAssignRole)

	roleRoutes := router.Group("/roles")
	roleRoutes.Get("/", h.HandleGetRoles)
	roleRoutes.Post("/", h.HandleCreateRole)
	roleRoutes.Delete("/:id", h.HandleDeleteRole)
}

// HandleGetUsers retrieves all users.
func (h *UserHandler) HandleGetUsers(c *fiber.Ctx) error {
	users, err := h.userService.GetAllUsers(c.UserContext())
	if err != nil {
		log.Printf("Error getting all users: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve users",
			"error":   err.Error(),
		})
	}
	for i := range users {
		users[i].Password = ""
	}
	return c.JSON(users)
}

// HandleGetUserByID retrieves a single user.
func (h *UserHandler) HandleGetUserByID(c *fiber.Ctx) error {
	userID := c.Params("id")
	user, err := h.userService.GetUserByID(c.UserContext(), userID)
	if err != nil {
		log.Printf("Error getting user by ID %s: %v", userID, err)
		return orderErrorResponse(c, "Could not retrieve user", err)
	}
	user.Password = ""
	return c.JSON(user)
}

// AssignRoleRequest represents the request body for role assignment.
type AssignRoleRequest struct {
	RoleID string `json:"role_id" validate:"required,uuid"`
}

// HandleAssignRole sets a user's role.
func (h *UserHandler) HandleAssignRole(c *fiber.Ctx) error {
	userID := c.Params("id")
	var req AssignRoleRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing role assignment body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	user, err := h.userService.AssignRole(c.UserContext(), userID, req.RoleID)
	if err != nil {
		log.Printf("Error assigning role %s to user %s: %v", req.RoleID, userID, err)
		return orderErrorResponse(c, "Could not assign role", err)
	}
	user.Password = ""
	return c.JSON(user)
}

// HandleGetRoles retrieves all roles.
func (h *UserHandler) HandleGetRoles(c *fiber.Ctx) error {
	roles, err := h.roleService.GetAllRoles(c.UserContext())
	if err != nil {
		log.Printf("Error getting all roles: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve roles",
			"error":   err.Error(),
		})
	}
	return c.JSON(roles)
}

// HandleCreateRole creates a new role.
func (h *UserHandler) HandleCreateRole(c *fiber.Ctx) error {
	var role models.Role
	if err := c.BodyParser(&role); err != nil {
		log.Printf("Error parsing role request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(role); err != nil {
		return validationErrorResponse(c, err)
	}

	if err := h.roleService.CreateRole(c.UserContext(), &role); err != nil {
		log.Printf("Error creating role: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not create role",
			"error":   err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(role)
}

// HandleDeleteRole soft-deletes a role.
func (h *UserHandler) HandleDeleteRole(c *fiber.Ctx) error {
	roleID := c.Params("id")
	if err := h.roleService.DeleteRole(c.UserContext(), roleID); err != nil {
		log.Printf("Error deleting role %s: %v", roleID, err)
		return orderErrorResponse(c, "Could not delete role", err)
	}
	return c.JSON(fiber.Map{
		"message": "Role deleted successfully",
	})
}
