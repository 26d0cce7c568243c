package httpapi

import (
	"github.com/gin-gonic/gin"
)

type registerReq struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// @Summary Register customer
// @Tags users
// @Accept json
// @Produce json
// @Param input body registerReq true "Account"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /api/user/register [post]
func (s *Server) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	token, err := s.users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "User registered successfully", "token": token})
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// @Summary Customer login
// @Tags users
// @Accept json
// @Produce json
// @Param input body loginReq true "Credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} errorResponse
// @Router /api/user/login [post]
func (s *Server) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	token, err := s.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"token": token})
}

// @Summary Admin login
// @Tags users
// @Accept json
// @Produce json
// @Param input body loginReq true "Credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} errorResponse
// @Router /api/user/admin [post]
func (s *Server) adminLogin(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	token, err := s.users.AdminLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"token": token})
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.users.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"users": users})
}

type userIDReq struct {
	UserID string `json:"userId" binding:"required"`
}

func (s *Server) deleteUser(c *gin.Context) {
	var req userIDReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.users.Delete(c.Request.Context(), req.UserID); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "User deleted successfully"})
}

type banReq struct {
	UserID string `json:"userId" binding:"required"`
	Banned *bool  `json:"banned"`
}

// banUser блокирует пользователя; banned=false снимает блокировку
func (s *Server) banUser(c *gin.Context) {
	var req banReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	banned := true
	if req.Banned != nil {
		banned = *req.Banned
	}
	if err := s.users.Ban(c.Request.Context(), req.UserID, banned); err != nil {
		s.fail(c, err)
		return
	}
	msg := "User banned successfully"
	if !banned {
		msg = "User unbanned successfully"
	}
	ok(c, gin.H{"message": msg})
}
