package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storeadmin/backend/internal/auth"
	"storeadmin/backend/internal/domain"
	"storeadmin/backend/internal/middleware"
)

// AuthHandler 处理认证相关的 HTTP 请求
type AuthHandler struct {
	authService *auth.Service
	log         *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService *auth.Service, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

// Register 处理店主注册请求
// @Summary 店主注册
// @Description 创建新店主账户，返回用户信息和认证令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body domain.RegisterRequest true "注册信息"
// @Success 201 {object} Response{data=auth.AuthResponse} "注册成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 409 {object} Response "邮箱或用户名已存在"
// @Failure 500 {object} Response "服务器内部错误"
// @Router /v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidEmail):
			BadRequest(c, "邮箱格式无效")
		case errors.Is(err, auth.ErrEmailExists):
			Conflict(c, "该邮箱已被注册")
		case errors.Is(err, auth.ErrUsernameExists):
			Conflict(c, "该用户名已被使用")
		case errors.Is(err, domain.ErrPasswordTooShort),
			errors.Is(err, domain.ErrPasswordTooLong),
			errors.Is(err, domain.ErrUsernameTooShort),
			errors.Is(err, domain.ErrUsernameTooLong),
			errors.Is(err, domain.ErrInvalidUsername):
			BadRequest(c, err.Error())
		default:
			h.log.Error("failed to register user", zap.Error(err))
			InternalError(c, "注册失败，请稍后重试")
		}
		return
	}

	h.log.Info("user registered",
		zap.String("user_id", resp.User.ID),
		zap.String("email", resp.User.Email),
	)

	setSessionCookie(c, resp.AccessToken, int(resp.ExpiresIn))
	Created(c, resp)
}

// Login 处理店主登录请求
// @Summary 店主登录
// @Description 使用邮箱或用户名登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body domain.LoginRequest true "登录凭证"
// @Success 200 {object} Response{data=auth.AuthResponse} "登录成功"
// @Failure 401 {object} Response "凭证无效"
// @Failure 429 {object} Response "尝试次数过多"
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTooManyAttempts):
			TooManyRequests(c, MsgTooManyAttempts)
		case errors.Is(err, auth.ErrUserInactive):
			Forbidden(c, "账户已被禁用")
		default:
			// 用户不存在与密码错误返回同一个消息
			Unauthorized(c, MsgInvalidCredentials)
		}
		return
	}

	h.log.Info("user logged in", zap.String("user_id", resp.User.ID))

	setSessionCookie(c, resp.AccessToken, int(resp.ExpiresIn))
	Success(c, resp)
}

// Refresh 刷新访问令牌
// @Summary 刷新令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body domain.RefreshTokenRequest true "刷新令牌"
// @Success 200 {object} Response "刷新成功"
// @Failure 401 {object} Response "刷新令牌无效"
// @Router /v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req domain.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	accessToken, err := h.authService.Refresh(req.RefreshToken)
	if err != nil {
		Unauthorized(c, MsgTokenInvalid)
		return
	}

	Success(c, gin.H{
		"accessToken": accessToken,
	})
}

// Logout 注销登录
// @Summary 注销
// @Tags 认证
// @Accept json
// @Produce json
// @Success 200 {object} Response "注销成功"
// @Router /v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req domain.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		if err := h.authService.Logout(req.RefreshToken); err != nil {
			h.log.Warn("failed to revoke session", zap.Error(err))
		}
	}

	clearSessionCookie(c)
	SuccessWithMsg(c, "已注销", nil)
}

// Me 返回当前登录店主信息
// @Summary 当前用户
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=domain.User} "用户信息"
// @Failure 401 {object} Response "未认证"
// @Router /v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	user, err := h.authService.GetUser(userID)
	if err != nil {
		NotFound(c, "用户不存在")
		return
	}

	Success(c, user)
}

// setSessionCookie 下发会话 Cookie，与 Bearer 头等价的第二种会话载体
func setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteNoneMode) // 前端可能部署在不同域
	c.SetCookie(auth.SessionCookie, token, maxAge, "/", "", true, true)
}

// clearSessionCookie 清除会话 Cookie
func clearSessionCookie(c *gin.Context) {
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", true, true)
}
