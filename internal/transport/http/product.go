package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storeadmin/backend/internal/domain"
	"storeadmin/backend/internal/middleware"
	"storeadmin/backend/internal/service"
)

// ProductHandler 商品管理处理器
type ProductHandler struct {
	productService *service.ProductService
	log            *zap.Logger
}

// NewProductHandler 创建商品处理器
func NewProductHandler(productService *service.ProductService, log *zap.Logger) *ProductHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductHandler{
		productService: productService,
		log:            log,
	}
}

// CreateProduct godoc
// @Summary 创建商品
// @Tags Products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body domain.CreateProductRequest true "商品内容"
// @Success 201 {object} Response{data=domain.Product}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /v1/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req domain.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	product, err := h.productService.CreateProduct(userID, &req)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			BadRequest(c, verr.Error())
			return
		}
		h.log.Error("failed to create product", zap.Error(err))
		InternalError(c, MsgProductCreateFailed)
		return
	}

	Created(c, product)
}

// ListProducts godoc
// @Summary 获取商品列表
// @Tags Products
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=object{items=[]domain.Product,count=int}}
// @Failure 401 {object} Response
// @Router /v1/products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	products, err := h.productService.ListProducts(userID)
	if err != nil {
		h.log.Error("failed to list products", zap.Error(err))
		InternalError(c, MsgProductListFailed)
		return
	}

	Success(c, gin.H{
		"items": products,
		"count": len(products),
	})
}

// GetProduct godoc
// @Summary 获取商品详情
// @Tags Products
// @Produce json
// @Security BearerAuth
// @Param id path string true "商品ID"
// @Success 200 {object} Response{data=domain.Product}
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /v1/products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	product, err := h.productService.GetProduct(userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			NotFound(c, MsgProductNotFound)
			return
		}
		InternalError(c, MsgProductListFailed)
		return
	}

	Success(c, product)
}

// UpdateProduct godoc
// @Summary 更新商品
// @Tags Products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "商品ID"
// @Param request body service.UpdateProductInput true "更新内容"
// @Success 200 {object} Response{data=domain.Product}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /v1/products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var input service.UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	product, err := h.productService.UpdateProduct(userID, c.Param("id"), input)
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			BadRequest(c, verr.Error())
		case errors.Is(err, service.ErrProductNotFound):
			NotFound(c, MsgProductNotFound)
		default:
			h.log.Error("failed to update product", zap.Error(err))
			InternalError(c, MsgProductUpdateFailed)
		}
		return
	}

	Success(c, product)
}

// DeleteProduct godoc
// @Summary 删除商品
// @Tags Products
// @Produce json
// @Security BearerAuth
// @Param id path string true "商品ID"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /v1/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	if err := h.productService.DeleteProduct(userID, c.Param("id")); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			NotFound(c, MsgProductNotFound)
			return
		}
		InternalError(c, MsgProductDeleteFailed)
		return
	}

	SuccessWithMsg(c, "删除成功", nil)
}
