package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"storeadmin/backend/internal/domain"
	"storeadmin/backend/internal/middleware"
	"storeadmin/backend/internal/service"
)

// APIKeyHandler API密钥管理处理器
//
// 所有端点都只接受会话认证：API密钥不能用来管理其它密钥。
type APIKeyHandler struct {
	apiKeyService *service.APIKeyService
}

// NewAPIKeyHandler 创建API密钥处理器
func NewAPIKeyHandler(apiKeyService *service.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{
		apiKeyService: apiKeyService,
	}
}

// createAPIKeyRequest 创建API密钥请求
type createAPIKeyRequest struct {
	Name       string                  `json:"name" binding:"required"` // 密钥名称/用途描述
	Permission domain.APIKeyPermission `json:"permission,omitempty"`    // read | read/write，缺省 read
	IsActive   *bool                   `json:"isActive,omitempty"`
}

// updateAPIKeyRequest 更新API密钥请求，目标密钥由请求体中的 _id 指定
type updateAPIKeyRequest struct {
	ID         string                  `json:"_id" binding:"required"`
	Name       string                  `json:"name,omitempty"`
	Permission domain.APIKeyPermission `json:"permission,omitempty"`
	IsActive   *bool                   `json:"isActive,omitempty"`
}

// deleteAPIKeyRequest 删除API密钥请求
type deleteAPIKeyRequest struct {
	ID string `json:"_id" binding:"required"`
}

// apiKeyResponse API密钥响应，Key 只在创建时返回一次
type apiKeyResponse struct {
	ID         string                  `json:"_id"`
	Key        string                  `json:"key,omitempty"`
	Name       string                  `json:"name"`
	Permission domain.APIKeyPermission `json:"permission"`
	IsActive   bool                    `json:"isActive"`
	CreatedAt  time.Time               `json:"createdAt"`
	UpdatedAt  time.Time               `json:"updatedAt"`
	LastUsedAt *time.Time              `json:"lastUsedAt,omitempty"`
}

func toAPIKeyResponse(key *domain.APIKey, rawKey string) apiKeyResponse {
	return apiKeyResponse{
		ID:         key.ID,
		Key:        rawKey,
		Name:       key.Name,
		Permission: key.Permission,
		IsActive:   key.IsActive,
		CreatedAt:  key.CreatedAt,
		UpdatedAt:  key.UpdatedAt,
		LastUsedAt: key.LastUsedAt,
	}
}

// CreateAPIKey godoc
// @Summary 创建API密钥
// @Description 为当前店主创建新的API密钥，原始密钥只在响应中出现一次
// @Tags APIKeys
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createAPIKeyRequest true "密钥参数"
// @Success 201 {object} Response{data=apiKeyResponse}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 500 {object} Response
// @Router /v1/api-keys [post]
func (h *APIKeyHandler) CreateAPIKey(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req createAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	apiKey, rawKey, err := h.apiKeyService.CreateAPIKey(service.CreateAPIKeyInput{
		UserID:     userID,
		Name:       req.Name,
		Permission: req.Permission,
		IsActive:   req.IsActive,
	})
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			BadRequest(c, verr.Error())
		case errors.Is(err, service.ErrInvalidPermission):
			BadRequest(c, GetErrorMessage(err))
		default:
			InternalError(c, MsgAPIKeyCreateFailed)
		}
		return
	}

	Created(c, toAPIKeyResponse(apiKey, rawKey))
}

// ListAPIKeys godoc
// @Summary 获取API密钥列表
// @Description 获取当前店主的所有API密钥，不包含原始密钥
// @Tags APIKeys
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=object{items=[]apiKeyResponse,count=int}}
// @Failure 401 {object} Response
// @Failure 500 {object} Response
// @Router /v1/api-keys [get]
func (h *APIKeyHandler) ListAPIKeys(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	apiKeys, err := h.apiKeyService.ListAPIKeys(userID)
	if err != nil {
		InternalError(c, MsgAPIKeyListFailed)
		return
	}

	items := make([]apiKeyResponse, 0, len(apiKeys))
	for _, key := range apiKeys {
		items = append(items, toAPIKeyResponse(key, ""))
	}

	Success(c, gin.H{
		"items": items,
		"count": len(items),
	})
}

// UpdateAPIKey godoc
// @Summary 更新API密钥
// @Description 更新密钥的名称、权限或激活状态，密钥本身不可变更
// @Tags APIKeys
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body updateAPIKeyRequest true "更新参数"
// @Success 200 {object} Response{data=apiKeyResponse}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /v1/api-keys [put]
func (h *APIKeyHandler) UpdateAPIKey(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req updateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	apiKey, err := h.apiKeyService.UpdateAPIKey(userID, req.ID, service.UpdateAPIKeyInput{
		Name:       req.Name,
		Permission: req.Permission,
		IsActive:   req.IsActive,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAPIKeyNotFound):
			NotFound(c, MsgAPIKeyNotFound)
		case errors.Is(err, service.ErrInvalidPermission):
			BadRequest(c, GetErrorMessage(err))
		default:
			InternalError(c, MsgAPIKeyUpdateFailed)
		}
		return
	}

	Success(c, toAPIKeyResponse(apiKey, ""))
}

// DeleteAPIKey godoc
// @Summary 删除API密钥
// @Description 删除密钥，已删除的密钥立即无法用于认证
// @Tags APIKeys
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body deleteAPIKeyRequest true "删除参数"
// @Success 200 {object} Response{data=apiKeyResponse}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /v1/api-keys [delete]
func (h *APIKeyHandler) DeleteAPIKey(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req deleteAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	apiKey, err := h.apiKeyService.DeleteAPIKey(userID, req.ID)
	if err != nil {
		if errors.Is(err, service.ErrAPIKeyNotFound) {
			NotFound(c, MsgAPIKeyNotFound)
			return
		}
		InternalError(c, MsgAPIKeyDeleteFailed)
		return
	}

	SuccessWithMsg(c, "删除成功", toAPIKeyResponse(apiKey, ""))
}
