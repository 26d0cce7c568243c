package httpapi

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

type productReq struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price" binding:"gte=0"`
	Category    string   `json:"category" binding:"required"`
	SubCategory string   `json:"subCategory"`
	Sizes       []string `json:"sizes"`
	Bestseller  bool     `json:"bestseller"`
	Images      []string `json:"image" binding:"omitempty,max=4,dive,url"`
	Stock       int64    `json:"stock" binding:"gte=0"`
}

func (r productReq) product() domain.Product {
	return domain.Product{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Category:    r.Category,
		SubCategory: r.SubCategory,
		Sizes:       r.Sizes,
		Bestseller:  r.Bestseller,
		Images:      r.Images,
		Stock:       r.Stock,
	}
}

// @Summary Add product
// @Tags products
// @Accept json
// @Produce json
// @Param token header string true "Admin token"
// @Param input body productReq true "Product"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errorResponse
// @Router /api/product/add [post]
func (s *Server) addProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := s.products.Create(c.Request.Context(), req.product())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Product Added", "product": p})
}

type updateProductReq struct {
	ID string `json:"id" binding:"required"`
	productReq
}

// @Summary Update product
// @Tags products
// @Accept json
// @Produce json
// @Param token header string true "Admin token"
// @Param input body updateProductReq true "Product"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /api/product/update [post]
func (s *Server) updateProduct(c *gin.Context) {
	var req updateProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p := req.product()
	p.ID = req.ID
	updated, err := s.products.Update(c.Request.Context(), p)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Product Updated", "product": updated})
}

type idReq struct {
	ID string `json:"id" binding:"required"`
}

// @Summary Remove product
// @Tags products
// @Accept json
// @Produce json
// @Param token header string true "Admin token"
// @Param input body idReq true "Product id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} errorResponse
// @Router /api/product/remove [post]
func (s *Server) removeProduct(c *gin.Context) {
	var req idReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.products.Delete(c.Request.Context(), req.ID); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Product Removed"})
}

type productIDReq struct {
	ProductID string `json:"productId" binding:"required"`
}

// @Summary Get product by id
// @Tags products
// @Accept json
// @Produce json
// @Param input body productIDReq true "Product id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} errorResponse
// @Router /api/product/single [post]
func (s *Server) singleProduct(c *gin.Context) {
	var req productIDReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := s.products.GetByID(c.Request.Context(), req.ProductID)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"product": p})
}

// @Summary List products
// @Tags products
// @Produce json
// @Param q query string false "Name contains"
// @Param category query string false "Category"
// @Param subCategory query string false "Sub-category"
// @Param bestseller query bool false "Bestsellers only"
// @Param min_price query number false "Min price"
// @Param max_price query number false "Max price"
// @Success 200 {object} map[string]interface{}
// @Router /api/product/list [get]
func (s *Server) listProducts(c *gin.Context) {
	f := repository.ProductFilter{
		NameSubstring: c.Query("q"),
		Category:      c.Query("category"),
		SubCategory:   c.Query("subCategory"),
	}
	if v := c.Query("bestseller"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Bestseller = &b
		}
	}
	if v := c.Query("min_price"); v != "" {
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			f.MinPrice = &x
		}
	}
	if v := c.Query("max_price"); v != "" {
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			f.MaxPrice = &x
		}
	}
	list, err := s.products.List(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"products": list})
}

type updateStockReq struct {
	ProductID string `json:"productId" binding:"required"`
	Stock     *int64 `json:"stock" binding:"required"`
}

// @Summary Set product stock
// @Tags products
// @Accept json
// @Produce json
// @Param token header string true "Admin token"
// @Param input body updateStockReq true "Stock"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /api/product/updateStock [post]
func (s *Server) updateStock(c *gin.Context) {
	var req updateStockReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := s.products.UpdateStock(c.Request.Context(), req.ProductID, *req.Stock)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Product stock updated", "product": p})
}
