package http

import (
	"mime/multipart"
	"net/http"
	"time"

	"quizify-service/internal/app"
	"quizify-service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler adapts the use cases to gin routes.
type Handler struct {
	auth         *app.AuthService
	quizzes      *app.QuizService
	contests     *app.ContestService
	images       app.ImageStore
	now          func() time.Time
	exposeErrors bool
	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

func (h *Handler) fail(c *gin.Context, err error) {
	writeError(c, err, h.exposeErrors)
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, bindingError(err))
		return false
	}
	return true
}

func (h *Handler) principal(c *gin.Context) (app.Principal, bool) {
	p, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrUnauthenticated, false)
	}
	return p, ok
}

// formImage opens the multipart "image" field.
func formImage(c *gin.Context) (multipart.File, int64, error) {
	header, err := c.FormFile("image")
	if err != nil {
		return nil, 0, domain.ErrMissingImage
	}
	file, err := header.Open()
	if err != nil {
		return nil, 0, err
	}
	return file, header.Size, nil
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"message":   "Quiz Platform API is running",
		"timestamp": h.now().UTC(),
	})
}

// Auth and profile

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if !h.bind(c, &req) {
		return
	}
	session, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   session.Token,
		"user":    userJSON(session.User),
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}
	session, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   session.Token,
		"user":    userJSON(session.User),
	})
}

func (h *Handler) profile(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	user, err := h.auth.Profile(c.Request.Context(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userJSON(user)})
}

func (h *Handler) updateProfile(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req profileRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.auth.UpdateProfile(c.Request.Context(), p, app.ProfileUpdate{
		Name:           req.Name,
		College:        req.College,
		Bio:            req.Bio,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": userJSON(user)})
}

func (h *Handler) uploadProfilePicture(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	file, size, err := formImage(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer file.Close()

	user, err := h.auth.UploadProfilePicture(c.Request.Context(), p, file, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Profile picture uploaded successfully",
		"profilePicture": user.ProfilePicture,
		"user":           userJSON(user),
	})
}

func (h *Handler) stats(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	stats, err := h.auth.Stats(c.Request.Context(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// uploadImage stores a question or explanation image and returns its URL.
func (h *Handler) uploadImage(folder string) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, size, err := formImage(c)
		if err != nil {
			h.fail(c, err)
			return
		}
		defer file.Close()

		url, err := h.images.Save(c.Request.Context(), folder, file, size)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Image uploaded successfully", "imageUrl": url})
	}
}
