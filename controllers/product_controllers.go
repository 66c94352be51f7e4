package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type ProductController struct {
	DB *gorm.DB
}

func NewProductController(db *gorm.DB) *ProductController {
	return &ProductController{DB: db}
}

// CreateProduct -> add a sellable product
func (pc *ProductController) CreateProduct(c *gin.Context) {
	role, _ := c.Get("role")
	if role != "admin" {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var req struct {
		Name        string          `json:"name" binding:"required"`
		Price       decimal.Decimal `json:"price"`
		Stock       int             `json:"stock"`
		Description string          `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	product := models.Product{
		Name:        req.Name,
		Price:       req.Price,
		Stock:       req.Stock,
		Description: req.Description,
		Active:      true,
	}
	if err := pc.DB.Create(&product).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Product created", product)
}

// GetAllProducts -> list active products
func (pc *ProductController) GetAllProducts(c *gin.Context) {
	var products []models.Product
	if err := pc.DB.Where("active = ?", true).Find(&products).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of products", products)
}

// GetProductByID -> detail of one product
func (pc *ProductController) GetProductByID(c *gin.Context) {
	var product models.Product
	if err := pc.DB.First(&product, c.Param("product_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product detail", product)
}

// UpdateProduct -> patch name, price, stock or description
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	role, _ := c.Get("role")
	if role != "admin" {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var product models.Product
	if err := pc.DB.First(&product, c.Param("product_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var req struct {
		Name        *string          `json:"name"`
		Price       *decimal.Decimal `json:"price"`
		Stock       *int             `json:"stock"`
		Description *string          `json:"description"`
		Active      *bool            `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := pc.DB.Save(&product).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product updated", product)
}

// DeleteProduct -> retire a product (soft, keeps history on old tickets)
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	role, _ := c.Get("role")
	if role != "admin" {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var product models.Product
	if err := pc.DB.First(&product, c.Param("product_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	product.Active = false
	if err := pc.DB.Save(&product).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product deleted", gin.H{"id": product.ID})
}
