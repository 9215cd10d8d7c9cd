package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"todo-service/internal/domain"
	"todo-service/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	todos  service.TodoService
	users  service.UserService
	logger *logrus.Logger
}

// NewHandler builds the handler. A nil users service serves the anonymous
// variant: no /register or /login and no token checks on /todos.
func NewHandler(todos service.TodoService, users service.UserService, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		todos:  todos,
		users:  users,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger), corsMiddleware())

	router.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "Not Found")
	})

	router.GET("/health", func(c *gin.Context) {
		ok(c, "ok", nil)
	})

	todos := router.Group("/todos")
	if h.users != nil {
		router.POST("/register", h.register)
		router.POST("/login", h.login)
		todos.Use(h.requireAuth())
	}
	{
		todos.GET("", h.listTodos)
		todos.POST("", h.createTodo)
		todos.GET("/:id", h.getTodo)
		todos.DELETE("/:id", h.deleteTodo)
		todos.PUT("/:id/status", h.updateStatus)
		todos.PUT("/:id/title", h.updateTitle)
	}
}

type titleRequest struct {
	Title string `json:"title" form:"title"`
}

type statusRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

type credentialsRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (h *Handler) listTodos(c *gin.Context) {
	todos, err := h.todos.List(c.Request.Context(), caller(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]TodoResponse, len(todos))
	for i := range todos {
		resp[i] = todoToResponse(todos[i])
	}
	ok(c, "ok", gin.H{"todos_list": resp})
}

func (h *Handler) createTodo(c *gin.Context) {
	var req titleRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid input")
		return
	}

	todo, err := h.todos.Create(c.Request.Context(), caller(c), req.Title)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, "Created", gin.H{"data": todoToResponse(*todo)})
}

func (h *Handler) getTodo(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}

	todo, err := h.todos.Get(c.Request.Context(), caller(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, "ok", gin.H{"data": todoToResponse(*todo)})
}

func (h *Handler) deleteTodo(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}

	if err := h.todos.Delete(c.Request.Context(), caller(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, "ok", nil)
}

func (h *Handler) updateStatus(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid input: completed must be a boolean")
		return
	}

	todo, err := h.todos.UpdateStatus(c.Request.Context(), caller(c), id, *req.Completed)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, "Updated", gin.H{"data": todoToResponse(*todo)})
}

func (h *Handler) updateTitle(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}

	var req titleRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid input")
		return
	}

	todo, err := h.todos.UpdateTitle(c.Request.Context(), caller(c), id, req.Title)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, "Updated", gin.H{"data": todoToResponse(*todo)})
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid input")
		return
	}

	token, err := h.users.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.WithField("username", req.Username).Info("user registered")
	ok(c, "Registered", gin.H{"bearer": token})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid input")
		return
	}

	token, username, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, "Logged in", gin.H{"bearer": token, "username": username})
}

// parseID reads the :id path segment. Anything other than a positive integer
// cannot name a todo and is answered with 404.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusNotFound, service.ErrTodoNotFound.Error())
		return 0, false
	}
	return id, true
}

type TodoResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
	Username  string `json:"username,omitempty"`
}

func todoToResponse(todo domain.Todo) TodoResponse {
	return TodoResponse{
		ID:        todo.ID,
		Title:     todo.Title,
		Completed: todo.Completed,
		CreatedAt: todo.CreatedAt,
		UpdatedAt: todo.UpdatedAt,
		Username:  todo.Owner,
	}
}
