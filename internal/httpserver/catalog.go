package httpserver

import (
	"net/http"

	productrepo "voiceshop/internal/repository/product"

	"github.com/gin-gonic/gin"
)

func listProductsHandler(repo productrepo.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := repo.ListActive(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
	}
}
