package httpapi

import (
	"github.com/gin-gonic/gin"
)

type addReviewReq struct {
	ProductID string `json:"productId" binding:"required"`
	Rating    int    `json:"rating" binding:"required"`
	Comment   string `json:"comment"`
}

// @Summary Add review
// @Tags reviews
// @Accept json
// @Produce json
// @Param token header string true "User token"
// @Param input body addReviewReq true "Review"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errorResponse
// @Router /api/review/add [post]
func (s *Server) addReview(c *gin.Context) {
	var req addReviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	r, err := s.reviews.Add(c.Request.Context(), currentUserID(c), req.ProductID, req.Rating, req.Comment)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Review Added", "review": r})
}

// @Summary Reviews of a product
// @Tags reviews
// @Accept json
// @Produce json
// @Param input body productIDReq true "Product"
// @Success 200 {object} map[string]interface{}
// @Router /api/review/product [post]
func (s *Server) productReviews(c *gin.Context) {
	var req productIDReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	list, err := s.reviews.ForProduct(c.Request.Context(), req.ProductID)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"reviews": list})
}

func (s *Server) allReviews(c *gin.Context) {
	list, err := s.reviews.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"reviews": list})
}

type reviewIDReq struct {
	ReviewID string `json:"reviewId" binding:"required"`
}

func (s *Server) deleteReview(c *gin.Context) {
	var req reviewIDReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.reviews.Delete(c.Request.Context(), req.ReviewID); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Review Deleted"})
}

type cartItemReq struct {
	ItemID   string `json:"itemId" binding:"required"`
	Size     string `json:"size" binding:"required"`
	Quantity int64  `json:"quantity"`
}

func (s *Server) addToCart(c *gin.Context) {
	var req cartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cart, err := s.cart.Add(c.Request.Context(), currentUserID(c), req.ItemID, req.Size)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Added To Cart", "cartData": cart})
}

func (s *Server) updateCart(c *gin.Context) {
	var req cartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cart, err := s.cart.Update(c.Request.Context(), currentUserID(c), req.ItemID, req.Size, req.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Cart Updated", "cartData": cart})
}

func (s *Server) getCart(c *gin.Context) {
	cart, err := s.cart.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"cartData": cart})
}
